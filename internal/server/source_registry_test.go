package server

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/any-hub/tunehub/internal/cache"
	"github.com/any-hub/tunehub/internal/catalog"
	"github.com/any-hub/tunehub/internal/config"
	"github.com/any-hub/tunehub/internal/transport"
)

func TestSourceRegistryLookupByName(t *testing.T) {
	upstream := newUpstreamServer(t)
	cfg := newTestConfig(t,
		config.SourceConfig{Name: "local", Type: "httpdir", Mirrors: []string{upstream.URL}},
		config.SourceConfig{Name: "modland", Type: "modland"},
	)
	registry := newTestRegistry(t, cfg)

	local, ok := registry.Lookup(" LOCAL ")
	if !ok {
		t.Fatalf("expected local source to be registered")
	}
	if local.Module().Key != "httpdir" {
		t.Fatalf("unexpected module %s", local.Module().Key)
	}

	modland, ok := registry.Lookup("modland")
	if !ok {
		t.Fatalf("expected modland source to be registered")
	}
	if got := modland.Root().Mirrors(); len(got) != 2 {
		t.Fatalf("expected module default mirrors, got %v", got)
	}

	if _, ok := registry.Lookup("unknown"); ok {
		t.Fatalf("unknown source should not resolve")
	}

	list := registry.List()
	if len(list) != 2 || list[0].Name() != "local" || list[1].Name() != "modland" {
		t.Fatalf("expected configuration order, got %d entries", len(list))
	}

	for _, name := range []string{"local", "modland"} {
		if _, err := os.Stat(cfg.Global.DatabasePath(name)); err != nil {
			t.Fatalf("expected database for %s: %v", name, err)
		}
	}
}

func TestSourceRegistryRejectsDuplicates(t *testing.T) {
	upstream := newUpstreamServer(t)
	cfg := newTestConfig(t, config.SourceConfig{Name: "local", Type: "httpdir", Mirrors: []string{upstream.URL}})
	registry := newTestRegistry(t, cfg)

	local, _ := registry.Lookup("local")
	if _, err := NewSourceRegistry(local, local); err == nil {
		t.Fatalf("expected duplicate name error")
	}
	if _, err := NewSourceRegistry((*catalog.Catalog)(nil)); err == nil {
		t.Fatalf("expected nil catalog error")
	}
}

func TestOpenSourcesRequiresDependencies(t *testing.T) {
	cfg := newTestConfig(t)
	if _, err := OpenSources(context.Background(), cfg, BootstrapOptions{}); err == nil {
		t.Fatalf("expected missing dependency error")
	}
	if _, err := OpenSources(context.Background(), nil, BootstrapOptions{}); err == nil {
		t.Fatalf("expected nil config error")
	}
}

func TestOpenSourcesFailsForUnknownModule(t *testing.T) {
	upstream := newUpstreamServer(t)
	cfg := newTestConfig(t,
		config.SourceConfig{Name: "local", Type: "httpdir", Mirrors: []string{upstream.URL}},
		config.SourceConfig{Name: "broken", Type: "gopher"},
	)
	blobs, err := cache.NewStore(cfg.Global.StoragePath)
	if err != nil {
		t.Fatalf("failed to create blob store: %v", err)
	}
	_, err = OpenSources(context.Background(), cfg, BootstrapOptions{
		Logger:    newTestLogger(),
		Transport: transport.NewHTTP(transport.Options{Connectivity: func() bool { return true }}),
		Blobs:     blobs,
	})
	var fieldErr config.FieldError
	if !errors.As(err, &fieldErr) {
		t.Fatalf("expected FieldError, got %v", err)
	}
	if !strings.Contains(err.Error(), "source broken") {
		t.Fatalf("error should name the source: %v", err)
	}
}

func TestBootstrappedCatalogListsUpstream(t *testing.T) {
	upstream := newUpstreamServer(t)
	cfg := newTestConfig(t, config.SourceConfig{Name: "local", Type: "httpdir", Mirrors: []string{upstream.URL}})
	registry := newTestRegistry(t, cfg)

	local, _ := registry.Lookup("local")
	var names []string
	visitor := visitorFunc(func(name string) { names = append(names, name) })
	if err := local.ListDirectory(context.Background(), local.Root(), visitor); err != nil {
		t.Fatalf("list root: %v", err)
	}
	if len(names) != 2 || names[0] != "demos" || names[1] != "song.xm" {
		t.Fatalf("unexpected entries %v", names)
	}
}

type visitorFunc func(name string)

func (f visitorFunc) OnDirectory(name, _ string) { f(name) }
func (f visitorFunc) OnFile(name, _, _ string)   { f(name) }
