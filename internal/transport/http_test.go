package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOpenStreamReturnsBodyAndMetadata(t *testing.T) {
	modified := time.Date(2018, 6, 27, 6, 24, 42, 0, time.UTC)
	var gotUA atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("Last-Modified", modified.Format(http.TimeFormat))
		_, _ = io.WriteString(w, "<html></html>")
	}))
	defer srv.Close()

	h := NewHTTP(Options{UserAgent: "tunehub-test"})
	stream, err := h.OpenStream(context.Background(), srv.URL+"/dir/")
	require.NoError(t, err)
	defer stream.Close()

	body, err := io.ReadAll(stream)
	require.NoError(t, err)
	require.Equal(t, "<html></html>", string(body))
	require.Equal(t, srv.URL+"/dir/", stream.Meta.FinalURI)
	require.Equal(t, "text/html", stream.Meta.ContentType)
	require.True(t, stream.Meta.LastModified.Equal(modified))
	require.Equal(t, "tunehub-test", gotUA.Load())
}

func TestFetchMetadataFollowsRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "42")
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	meta, err := NewHTTP(Options{}).FetchMetadata(context.Background(), srv.URL+"/old")
	require.NoError(t, err)
	require.Equal(t, srv.URL+"/new", meta.FinalURI)
	require.EqualValues(t, 42, meta.ContentLength)
}

func TestNon2xxBecomesStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewHTTP(Options{}).OpenStream(context.Background(), srv.URL+"/missing")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

type flakyRoundTripper struct {
	failures int32
	calls    atomic.Int32
}

func (f *flakyRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if f.calls.Add(1) <= f.failures {
		return nil, errors.New("connection reset")
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(http.NoBody),
		Header:     http.Header{},
		Request:    req,
	}, nil
}

func TestRoundTripperRetriesBounded(t *testing.T) {
	flaky := &flakyRoundTripper{failures: 2}
	h := NewHTTP(Options{Base: flaky, RetryMax: 2})
	stream, err := h.OpenStream(context.Background(), "http://mirror.example.org/a")
	require.NoError(t, err)
	stream.Close()
	require.EqualValues(t, 3, flaky.calls.Load())

	failing := &flakyRoundTripper{failures: 10}
	h = NewHTTP(Options{Base: failing, RetryMax: 1})
	_, err = h.OpenStream(context.Background(), "http://mirror.example.org/a")
	require.Error(t, err)
	require.EqualValues(t, 2, failing.calls.Load())
}

func TestHostLimiterHonoursCancellation(t *testing.T) {
	limiters := newHostLimiters(0.001)
	req := httptest.NewRequest(http.MethodGet, "http://mirror.example.org/a", nil)
	require.NoError(t, limiters.wait(req))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := limiters.wait(req.WithContext(ctx))
	require.Error(t, err)
}

func TestConnectivityOverride(t *testing.T) {
	h := NewHTTP(Options{Connectivity: func() bool { return false }})
	require.False(t, h.HasConnectivity())
}
