package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/tunehub/internal/cache"
	"github.com/any-hub/tunehub/internal/listing"
	"github.com/any-hub/tunehub/internal/query"
	"github.com/any-hub/tunehub/internal/sourcemodule"
	"github.com/any-hub/tunehub/internal/store"
	"github.com/any-hub/tunehub/internal/vpath"
)

// listCommand 刷新或读取单个目录的条目集。
type listCommand struct {
	catalog *Catalog
	path    vpath.Path

	fetched []listing.Entry
	cached  []listing.Entry
}

func (cmd *listCommand) Lifetime() query.Lifetime[*store.Tx] {
	c := cmd.catalog
	return c.lifetime("dir:", cmd.path, c.module.LifetimeClass(cmd.path))
}

func (cmd *listCommand) StartTransaction(ctx context.Context) (*store.Tx, error) {
	return cmd.catalog.store.Begin(ctx)
}

func (cmd *listCommand) RefreshFromRemote(ctx context.Context, tx *store.Tx) error {
	c := cmd.catalog
	id := cmd.path.LocalID()

	stream, err := c.fetcher.OpenStream(ctx, cmd.path.RemoteLocations())
	if err != nil {
		c.logRefreshFailure(cmd.path, kindList, err)
		return err
	}
	defer stream.Close()

	data, err := io.ReadAll(io.LimitReader(stream, c.maxListing+1))
	if err != nil {
		c.logRefreshFailure(cmd.path, kindList, err)
		return fmt.Errorf("read listing: %w", err)
	}
	if int64(len(data)) > c.maxListing {
		c.logRefreshFailure(cmd.path, kindList, ErrListingTooLarge)
		return ErrListingTooLarge
	}

	parsed, err := listing.Parse(data, stream.Meta.ContentType, c.module.Formats...)
	if err != nil {
		c.logRefreshFailure(cmd.path, kindList, err)
		return err
	}

	if err := tx.ReplaceListing(ctx, id, parsed.Entries); err != nil {
		return err
	}
	var tracks []store.Track
	for _, e := range parsed.Entries {
		if e.IsDir {
			continue
		}
		tracks = append(tracks, store.Track{Path: cmd.path.Child(e.Name).LocalID(), Size: e.Size})
	}
	if err := tx.ReplaceDirTracks(ctx, id, tracks); err != nil {
		return err
	}

	c.logger.WithFields(logrus.Fields{
		"source":  c.name,
		"path":    id,
		"format":  parsed.Format,
		"entries": len(parsed.Entries),
		"uri":     stream.Meta.FinalURI,
	}).Debug("目录已从远端刷新")
	cmd.fetched = parsed.Entries
	return nil
}

func (cmd *listCommand) ReadFromCache(ctx context.Context) (bool, error) {
	entries, found, err := cmd.catalog.store.FindListing(ctx, cmd.path.LocalID())
	if err != nil || !found {
		return false, err
	}
	cmd.cached = entries
	return true, nil
}

// contentCommand 刷新或读取单个文件的内容。正文暂存在 blob 目录，随事务提交发布。
type contentCommand struct {
	catalog *Catalog
	path    vpath.Path

	data []byte
}

func (cmd *contentCommand) Lifetime() query.Lifetime[*store.Tx] {
	return cmd.catalog.lifetime("content:", cmd.path, sourcemodule.ClassContent)
}

func (cmd *contentCommand) StartTransaction(ctx context.Context) (*store.Tx, error) {
	return cmd.catalog.store.Begin(ctx)
}

func (cmd *contentCommand) RefreshFromRemote(ctx context.Context, tx *store.Tx) error {
	c := cmd.catalog
	id := cmd.path.LocalID()
	locations := cmd.path.RemoteLocations()

	if cached, ok := cmd.unchangedUpstream(ctx, locations); ok {
		// 远端未变化，只续期
		return tx.PutContent(ctx, id, cached)
	}

	stream, err := c.fetcher.OpenStream(ctx, locations)
	if err != nil {
		c.logRefreshFailure(cmd.path, kindContent, err)
		return err
	}
	defer stream.Close()

	locator := cache.Locator{Source: c.name, Path: id}
	staged, err := c.blobs.Stage(ctx, locator, stream, cache.PutOptions{
		ModTime:  stream.Meta.LastModified,
		MaxBytes: c.maxContent,
	})
	if err != nil {
		c.logRefreshFailure(cmd.path, kindContent, err)
		return fmt.Errorf("stage content: %w", err)
	}
	tx.OnCommit(staged.Publish)
	tx.OnRollback(staged.Discard)

	return tx.PutContent(ctx, id, store.ContentMeta{
		Blob:         id,
		Size:         staged.Size(),
		LastModified: stream.Meta.LastModified,
		FinalURI:     stream.Meta.FinalURI,
	})
}

// unchangedUpstream 用 HEAD 比对远端修改时间与长度，一致时返回本地元数据。
// 本地没有完整副本、未记录修改时间或 HEAD 失败时返回 false，由调用方重新下载。
func (cmd *contentCommand) unchangedUpstream(ctx context.Context, locations []string) (store.ContentMeta, bool) {
	c := cmd.catalog
	cached, found, err := c.store.FindContent(ctx, cmd.path.LocalID())
	if err != nil || !found || cached.LastModified.IsZero() {
		return store.ContentMeta{}, false
	}
	blob, ok := c.intactBlob(ctx, cached)
	if !ok {
		return store.ContentMeta{}, false
	}
	blob.Reader.Close()

	remote, err := c.fetcher.FetchMetadata(ctx, locations)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"source": c.name,
			"path":   cmd.path.LocalID(),
		}).WithError(err).Debug("HEAD 校验失败，改为完整下载")
		return store.ContentMeta{}, false
	}
	if !remote.LastModified.Equal(cached.LastModified) {
		return store.ContentMeta{}, false
	}
	if remote.ContentLength >= 0 && remote.ContentLength != cached.Size {
		return store.ContentMeta{}, false
	}
	return cached, true
}

// ReadFromCache 元数据存在但正文缺失或长度不符时视为未缓存。
func (cmd *contentCommand) ReadFromCache(ctx context.Context) (bool, error) {
	c := cmd.catalog
	meta, found, err := c.store.FindContent(ctx, cmd.path.LocalID())
	if err != nil || !found {
		return false, err
	}

	result, ok := c.intactBlob(ctx, meta)
	if !ok {
		return false, nil
	}
	defer result.Reader.Close()

	data, err := io.ReadAll(result.Reader)
	if err != nil {
		return false, fmt.Errorf("read cached content: %w", err)
	}
	cmd.data = data
	return true, nil
}

// intactBlob 打开正文并核对长度；长度与元数据不符的正文被删除。
// 返回 true 时调用方负责关闭 Reader。
func (c *Catalog) intactBlob(ctx context.Context, meta store.ContentMeta) (*cache.ReadResult, bool) {
	locator := cache.Locator{Source: c.name, Path: meta.Blob}
	result, err := c.blobs.Get(ctx, locator)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			c.logger.WithFields(logrus.Fields{"source": c.name, "blob": meta.Blob}).
				WithError(err).Warn("读取缓存正文失败")
		}
		return nil, false
	}
	if result.Entry.SizeBytes == meta.Size {
		return result, true
	}
	result.Reader.Close()

	entry := c.logger.WithFields(logrus.Fields{
		"source":   c.name,
		"blob":     meta.Blob,
		"expected": meta.Size,
		"actual":   result.Entry.SizeBytes,
	})
	if err := c.blobs.Remove(ctx, locator); err != nil {
		entry.WithError(err).Warn("删除损坏的缓存正文失败")
	} else {
		entry.Warn("缓存正文长度不符，已删除")
	}
	return nil, false
}

func (c *Catalog) logRefreshFailure(p vpath.Path, kind string, err error) {
	c.logger.WithFields(logrus.Fields{
		"source": c.name,
		"path":   p.LocalID(),
		"kind":   kind,
	}).WithError(err).Info("远端刷新失败，尝试回退本地缓存")
}
