package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/tunehub/internal/cache"
	"github.com/any-hub/tunehub/internal/config"
	"github.com/any-hub/tunehub/internal/transport"
)

const tableIndex = `<html><body><table>
<tr><th>Name</th><th>Last modified</th><th>Size</th></tr>
<tr><td><a href="demos/">demos/</a></td><td>2024-01-02 10:00</td><td>-</td></tr>
<tr><td><a href="song.xm">song.xm</a></td><td>2024-01-03 11:00</td><td>3K</td></tr>
</table></body></html>`

func newUpstreamServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, tableIndex)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestConfig(t *testing.T, sources ...config.SourceConfig) *config.Config {
	t.Helper()
	return &config.Config{
		Global: config.GlobalConfig{
			ListenPort:  5000,
			StoragePath: t.TempDir(),
		},
		Sources: sources,
	}
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestRegistry(t *testing.T, cfg *config.Config) *SourceRegistry {
	t.Helper()
	blobs, err := cache.NewStore(cfg.Global.StoragePath)
	if err != nil {
		t.Fatalf("failed to create blob store: %v", err)
	}
	registry, err := OpenSources(context.Background(), cfg, BootstrapOptions{
		Logger: newTestLogger(),
		Transport: transport.NewHTTP(transport.Options{
			Timeout:      5 * time.Second,
			Connectivity: func() bool { return true },
		}),
		Blobs: blobs,
	})
	if err != nil {
		t.Fatalf("failed to open sources: %v", err)
	}
	t.Cleanup(func() { registry.Close() })
	return registry
}
