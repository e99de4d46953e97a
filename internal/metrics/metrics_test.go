package metrics

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func exposition(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WritePrometheus(&buf))
	return buf.String()
}

func TestMirrorObserverCounts(t *testing.T) {
	observe := MirrorObserver("metrics-test")
	observe("a.example", "failed")
	observe("a.example", "failed")
	observe("b.example", "ok")

	text := exposition(t)
	require.Contains(t, text, `tunehub_mirror_attempts_total{host="a.example",result="failed",source="metrics-test"} 2`)
	require.Contains(t, text, `tunehub_mirror_attempts_total{host="b.example",result="ok",source="metrics-test"} 1`)
}

func TestQueryObserverExposition(t *testing.T) {
	obs := NewQueryObserver("metrics-expo")
	obs.ObserveQuery("list", "remote", 20*time.Millisecond)
	obs.ObserveQuery("list", "cache", time.Millisecond)

	text := exposition(t)
	require.Contains(t, text, `tunehub_query_total{kind="list",outcome="remote",source="metrics-expo"} 1`)
	require.Contains(t, text, `tunehub_query_duration_seconds_count{kind="list",source="metrics-expo"} 2`)
}
