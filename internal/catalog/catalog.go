// Package catalog 把路径模型、镜像访问、索引解析与本地缓存组合成单个目录源的浏览能力：
// ListDirectory 逐条回调目录条目，GetContent 返回文件内容。两者都走 query.Execute，
// 远端可用时刷新缓存，不可用时回退到（可能过期的）本地数据。
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/tunehub/internal/cache"
	"github.com/any-hub/tunehub/internal/logging"
	"github.com/any-hub/tunehub/internal/query"
	"github.com/any-hub/tunehub/internal/sourcemodule"
	"github.com/any-hub/tunehub/internal/store"
	"github.com/any-hub/tunehub/internal/transport"
	"github.com/any-hub/tunehub/internal/vpath"
)

const (
	defaultMaxListingBytes = 8 << 20
	defaultMaxContentBytes = 64 << 20

	kindList    = "list"
	kindContent = "content"
)

var (
	// ErrNotCached 表示内容无需刷新但本地没有任何副本。
	ErrNotCached = errors.New("content not cached")
	// ErrNotFile 表示对目录请求了文件内容。
	ErrNotFile = errors.New("path is not a file")
	// ErrListingTooLarge 表示目录索引超过大小上限。
	ErrListingTooLarge = errors.New("listing exceeds size limit")
)

// Fetcher 按优先级尝试一组候选 URI，由 mirror.Provider 实现。
type Fetcher interface {
	OpenStream(ctx context.Context, locations []string) (*transport.Stream, error)
	FetchMetadata(ctx context.Context, locations []string) (transport.Metadata, error)
}

// Visitor 接收目录中的每个子项，顺序不作保证。
type Visitor interface {
	OnDirectory(name, description string)
	OnFile(name, description, size string)
}

// NopVisitor 丢弃所有回调。
type NopVisitor struct{}

func (NopVisitor) OnDirectory(string, string)    {}
func (NopVisitor) OnFile(string, string, string) {}

// Observer 记录每次查询的结果来源与耗时。
type Observer interface {
	ObserveQuery(kind, outcome string, elapsed time.Duration)
}

// NopObserver 不做任何记录。
type NopObserver struct{}

func (NopObserver) ObserveQuery(string, string, time.Duration) {}

// Options 描述构建 Catalog 所需的依赖。
type Options struct {
	Name     string
	Module   sourcemodule.ModuleMetadata
	Mirrors  []string
	Store    *store.Store
	Blobs    cache.Store
	Fetcher  Fetcher
	Observer Observer
	Logger   logrus.FieldLogger

	MaxListingBytes int64
	MaxContentBytes int64
}

// Catalog 是单个目录源的浏览门面。
type Catalog struct {
	name     string
	module   sourcemodule.ModuleMetadata
	root     vpath.Path
	store    *store.Store
	blobs    cache.Store
	fetcher  Fetcher
	observer Observer
	logger   logrus.FieldLogger

	maxListing int64
	maxContent int64
}

// New 校验依赖并构建 Catalog。
func New(opts Options) (*Catalog, error) {
	if opts.Name == "" {
		return nil, errors.New("catalog name required")
	}
	if opts.Store == nil || opts.Blobs == nil || opts.Fetcher == nil {
		return nil, fmt.Errorf("catalog %s: store, blobs and fetcher are required", opts.Name)
	}
	mirrors := opts.Mirrors
	if len(mirrors) == 0 {
		mirrors = opts.Module.DefaultMirrors
	}
	root := vpath.Root(mirrors...)
	if len(root.Mirrors()) == 0 {
		return nil, fmt.Errorf("catalog %s: no mirrors configured", opts.Name)
	}

	c := &Catalog{
		name:       opts.Name,
		module:     opts.Module,
		root:       root,
		store:      opts.Store,
		blobs:      opts.Blobs,
		fetcher:    opts.Fetcher,
		observer:   opts.Observer,
		logger:     opts.Logger,
		maxListing: opts.MaxListingBytes,
		maxContent: opts.MaxContentBytes,
	}
	if c.observer == nil {
		c.observer = NopObserver{}
	}
	if c.logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		c.logger = discard
	}
	if c.maxListing <= 0 {
		c.maxListing = defaultMaxListingBytes
	}
	if c.maxContent <= 0 {
		c.maxContent = defaultMaxContentBytes
	}
	return c, nil
}

// Name 返回目录源名称。
func (c *Catalog) Name() string { return c.name }

// Module 返回目录源所属模块。
func (c *Catalog) Module() sourcemodule.ModuleMetadata { return c.module }

// Root 返回根目录。
func (c *Catalog) Root() vpath.Path { return c.root }

// Resolve 将本地 ID 或镜像 URI 解析为本目录源下的 Path。
func (c *Catalog) Resolve(raw string) (vpath.Path, error) {
	return vpath.Parse(raw, c.root.Mirrors())
}

// ListDirectory 按目录逐条回调 visitor；本地与远端都没有数据时不回调也不报错。
func (c *Catalog) ListDirectory(ctx context.Context, p vpath.Path, visitor Visitor) error {
	p = p.AsDir()
	cmd := &listCommand{catalog: c, path: p}
	outcome, err := c.run(ctx, kindList, p, cmd)
	if err != nil {
		return fmt.Errorf("list %s: %w", p.LocalID(), err)
	}

	entries := cmd.cached
	if outcome == query.OutcomeRemote {
		entries = cmd.fetched
	}
	for _, e := range entries {
		if e.IsDir {
			visitor.OnDirectory(e.Name, e.Description)
		} else {
			visitor.OnFile(e.Name, e.Description, e.Size)
		}
	}
	return nil
}

// GetContent 返回文件内容；根目录与显式目录路径（末尾带 "/"）返回 ErrNotFile。
func (c *Catalog) GetContent(ctx context.Context, p vpath.Path) ([]byte, error) {
	if p.IsEmpty() || p.IsDir() {
		return nil, ErrNotFile
	}
	cmd := &contentCommand{catalog: c, path: p}
	outcome, err := c.run(ctx, kindContent, p, cmd)
	if err != nil {
		return nil, fmt.Errorf("content %s: %w", p.LocalID(), err)
	}
	if outcome == query.OutcomeRemote {
		found, err := cmd.ReadFromCache(ctx)
		if err != nil {
			return nil, fmt.Errorf("content %s: %w", p.LocalID(), err)
		}
		if !found {
			return nil, fmt.Errorf("content %s: %w", p.LocalID(), ErrNotCached)
		}
	}
	if cmd.data == nil {
		return nil, fmt.Errorf("content %s: %w", p.LocalID(), ErrNotCached)
	}
	return cmd.data, nil
}

// Tracks 返回目录下的全部文件（“播放整个文件夹”），必要时先加载目录。
func (c *Catalog) Tracks(ctx context.Context, p vpath.Path) ([]store.Track, error) {
	p = p.AsDir()
	if err := c.ListDirectory(ctx, p, NopVisitor{}); err != nil {
		return nil, err
	}
	tracks, err := c.store.DirTracks(ctx, p.LocalID())
	if err != nil {
		return nil, fmt.Errorf("tracks %s: %w", p.LocalID(), err)
	}
	return tracks, nil
}

func (c *Catalog) run(ctx context.Context, kind string, p vpath.Path, cmd query.Command[*store.Tx]) (query.Outcome, error) {
	started := time.Now()
	outcome, err := query.Execute[*store.Tx](ctx, cmd)
	elapsed := time.Since(started)

	label := string(outcome)
	if err != nil {
		label = "error"
	}
	c.observer.ObserveQuery(kind, label, elapsed)

	entry := c.logger.WithFields(logging.QueryFields(c.name, p.LocalID(), kind, label)).
		WithField("elapsed_ms", elapsed.Milliseconds())
	if err != nil {
		entry.WithError(err).Warn("查询失败")
	} else {
		entry.Debug("查询完成")
	}
	return outcome, err
}

func (c *Catalog) lifetime(prefix string, p vpath.Path, class sourcemodule.Class) *store.Lifetime {
	return c.store.Lifetime(prefix+p.LocalID(), class.TTL())
}
