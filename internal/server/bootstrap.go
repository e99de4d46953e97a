package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/tunehub/internal/cache"
	"github.com/any-hub/tunehub/internal/catalog"
	"github.com/any-hub/tunehub/internal/config"
	"github.com/any-hub/tunehub/internal/logging"
	"github.com/any-hub/tunehub/internal/metrics"
	"github.com/any-hub/tunehub/internal/mirror"
	"github.com/any-hub/tunehub/internal/store"
	"github.com/any-hub/tunehub/internal/transport"
)

// BootstrapOptions 汇总所有目录源共享的依赖。
type BootstrapOptions struct {
	Logger    *logrus.Logger
	Transport transport.Transport
	Blobs     cache.Store
	// MirrorOptions 追加到每个目录源的 mirror.Provider，测试中用于注入时钟。
	MirrorOptions []mirror.Option
	// StoreOptions 的 Logger 为空时使用带 source 字段的 Logger。
	StoreOptions store.Options
}

// OpenSources 为每个 [[Source]] 打开独立的 SQLite 存储与镜像 Provider，并装配 Catalog。
// 任一目录源失败时关闭已打开的存储并返回错误。
func OpenSources(ctx context.Context, cfg *config.Config, opts BootstrapOptions) (*SourceRegistry, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if opts.Logger == nil || opts.Transport == nil || opts.Blobs == nil {
		return nil, errors.New("logger, transport and blobs are required")
	}

	registry, err := NewSourceRegistry()
	if err != nil {
		return nil, err
	}
	for _, source := range cfg.Sources {
		c, closeFn, err := openSource(ctx, cfg.Global, source, opts)
		if err != nil {
			registry.Close()
			return nil, fmt.Errorf("source %s: %w", source.Name, err)
		}
		registry.closers = append(registry.closers, closeFn)
		if err := registry.add(c); err != nil {
			registry.Close()
			return nil, err
		}
	}
	return registry, nil
}

func openSource(ctx context.Context, global config.GlobalConfig, source config.SourceConfig, opts BootstrapOptions) (*catalog.Catalog, func() error, error) {
	runtime, err := config.BuildSourceRuntime(source)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.ForSource(opts.Logger, source.Name, runtime.Module.Key)

	storeOpts := opts.StoreOptions
	if storeOpts.Logger == nil {
		storeOpts.Logger = logger
	}
	st, err := store.Open(ctx, global.DatabasePath(source.Name), storeOpts)
	if err != nil {
		return nil, nil, err
	}

	mirrorOpts := append([]mirror.Option{
		mirror.WithLogger(logger),
		mirror.WithObserver(metrics.MirrorObserver(source.Name)),
	}, opts.MirrorOptions...)
	provider := mirror.New(opts.Transport, mirrorOpts...)

	c, err := catalog.New(catalog.Options{
		Name:            source.Name,
		Module:          runtime.Module,
		Mirrors:         runtime.Mirrors,
		Store:           st,
		Blobs:           opts.Blobs,
		Fetcher:         provider,
		Observer:        metrics.NewQueryObserver(source.Name),
		Logger:          logger,
		MaxListingBytes: global.MaxListingSize,
		MaxContentBytes: global.MaxContentSize,
	})
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	logger.WithField("mirrors", runtime.Mirrors).Debug("目录源已装配")
	return c, st.Close, nil
}
