package mirror

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/any-hub/tunehub/internal/transport"
)

// fakeTransport 记录每次调用，按主机返回预设结果。
type fakeTransport struct {
	mu        sync.Mutex
	failing   map[string]bool
	connected bool
	calls     []string
}

func newFakeTransport(failing ...string) *fakeTransport {
	f := &fakeTransport{failing: map[string]bool{}, connected: true}
	for _, host := range failing {
		f.failing[host] = true
	}
	return f
}

func (f *fakeTransport) HasConnectivity() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) FetchMetadata(ctx context.Context, uri string) (transport.Metadata, error) {
	if err := f.record(uri); err != nil {
		return transport.Metadata{}, err
	}
	return transport.Metadata{FinalURI: uri, ContentLength: 3}, nil
}

func (f *fakeTransport) OpenStream(ctx context.Context, uri string) (*transport.Stream, error) {
	if err := f.record(uri); err != nil {
		return nil, err
	}
	return &transport.Stream{
		ReadCloser: io.NopCloser(strings.NewReader("from " + hostOf(uri))),
		Meta:       transport.Metadata{FinalURI: uri},
	}, nil
}

func (f *fakeTransport) record(uri string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, hostOf(uri))
	if f.failing[hostOf(uri)] {
		return &transport.StatusError{URI: uri, StatusCode: 503}
	}
	return nil
}

func (f *fakeTransport) takeCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	calls := f.calls
	f.calls = nil
	return calls
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func readAll(t *testing.T, stream *transport.Stream) string {
	t.Helper()
	defer stream.Close()
	body, err := io.ReadAll(stream)
	require.NoError(t, err)
	return string(body)
}

func TestFailoverQuarantinesFailedHosts(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	ft := newFakeTransport("a.example", "b.example")
	p := New(ft, WithClock(clock.Now))

	stream, err := p.OpenStream(context.Background(), []string{
		"http://a.example/x", "http://b.example/x", "http://c.example/x",
	})
	require.NoError(t, err)
	require.Equal(t, "from c.example", readAll(t, stream))
	require.Equal(t, []string{"a.example", "b.example", "c.example"}, ft.takeCalls())

	require.True(t, p.IsHostDisabled("a.example", clock.Now()))
	require.True(t, p.IsHostDisabled("b.example", clock.Now()))
	require.False(t, p.IsHostDisabled("c.example", clock.Now()))

	stream, err = p.OpenStream(context.Background(), []string{"http://a.example/y", "http://c.example/y"})
	require.NoError(t, err)
	require.Equal(t, "from c.example", readAll(t, stream))
	require.Equal(t, []string{"c.example"}, ft.takeCalls(), "quarantined host must be skipped without a request")
}

func TestQuarantineExpires(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	ft := newFakeTransport("a.example")
	p := New(ft, WithClock(clock.Now))

	_, err := p.FetchMetadata(context.Background(), []string{"http://a.example/x", "http://c.example/x"})
	require.NoError(t, err)
	ft.takeCalls()

	clock.Advance(QuarantinePeriod - time.Minute)
	_, err = p.FetchMetadata(context.Background(), []string{"http://a.example/x", "http://c.example/x"})
	require.NoError(t, err)
	require.Equal(t, []string{"c.example"}, ft.takeCalls())

	clock.Advance(2 * time.Minute)
	require.False(t, p.IsHostDisabled("a.example", clock.Now()))
	_, err = p.FetchMetadata(context.Background(), []string{"http://a.example/x", "http://c.example/x"})
	require.NoError(t, err)
	require.Equal(t, []string{"a.example", "c.example"}, ft.takeCalls())
}

func TestLastCandidateAlwaysTried(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	ft := newFakeTransport("a.example")
	p := New(ft, WithClock(clock.Now))

	_, err := p.FetchMetadata(context.Background(), []string{"http://a.example/x", "http://c.example/x"})
	require.NoError(t, err)
	ft.takeCalls()
	require.True(t, p.IsHostDisabled("a.example", clock.Now()))

	_, err = p.FetchMetadata(context.Background(), []string{"http://a.example/x"})
	var hostErr *HostError
	require.True(t, errors.As(err, &hostErr))
	require.Equal(t, "a.example", hostErr.Host)
	require.Equal(t, []string{"a.example"}, ft.takeCalls())

	var statusErr *transport.StatusError
	require.True(t, errors.As(err, &statusErr))
}

func TestNoConnectivityAbortsWithoutQuarantine(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	ft := newFakeTransport("a.example", "b.example")
	ft.connected = false
	p := New(ft, WithClock(clock.Now))

	_, err := p.OpenStream(context.Background(), []string{"http://a.example/x", "http://b.example/x"})
	var connErr *ConnectivityError
	require.True(t, errors.As(err, &connErr))
	require.Equal(t, []string{"a.example"}, ft.takeCalls())
	require.False(t, p.IsHostDisabled("a.example", clock.Now()))
}

func TestSingleLocationErrorIsSurfaced(t *testing.T) {
	ft := newFakeTransport("a.example")
	p := New(ft)

	_, err := p.OpenStream(context.Background(), []string{"http://a.example/x"})
	var hostErr *HostError
	require.True(t, errors.As(err, &hostErr))
	require.False(t, p.IsHostDisabled("a.example", time.Now()))
}

func TestEmptyLocations(t *testing.T) {
	p := New(newFakeTransport())
	_, err := p.OpenStream(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoLocations)
}

func TestObserverSeesEveryAttempt(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	var seen []string
	p := New(newFakeTransport("a.example"), WithClock(clock.Now), WithObserver(func(host, result string) {
		seen = append(seen, host+":"+result)
	}))

	locations := []string{"http://a.example/x", "http://c.example/x"}
	_, err := p.FetchMetadata(context.Background(), locations)
	require.NoError(t, err)
	_, err = p.FetchMetadata(context.Background(), locations)
	require.NoError(t, err)
	require.Equal(t, []string{
		"a.example:" + ResultFailed,
		"c.example:" + ResultOK,
		"a.example:" + ResultSkipped,
		"c.example:" + ResultOK,
	}, seen)
}
