// Package metrics 维护进程内 Prometheus 指标，并通过 /-/metrics 以文本格式暴露。
package metrics

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Registry 是 tunehub 自有的指标注册表，不混入默认的 Go 运行时指标。
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(MirrorAttempts, QueryTotal, QueryDuration)
}

// MirrorAttempts 镜像尝试次数（按结果）
var MirrorAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tunehub_mirror_attempts_total",
		Help: "镜像请求尝试次数",
	},
	[]string{"source", "host", "result"}, // ok | failed | skipped
)

// QueryTotal 目录/内容查询次数（按结果来源）
var QueryTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tunehub_query_total",
		Help: "目录与内容查询次数",
	},
	[]string{"source", "kind", "outcome"}, // remote | cache | empty | error
)

// QueryDuration 查询耗时（秒）
var QueryDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "tunehub_query_duration_seconds",
		Help:    "目录与内容查询耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"source", "kind"},
)

// MirrorObserver 返回记录镜像尝试结果的回调，供 mirror.WithObserver 使用。
func MirrorObserver(source string) func(host, result string) {
	return func(host, result string) {
		MirrorAttempts.WithLabelValues(source, host, result).Inc()
	}
}

// QueryObserver 记录单个目录源的查询结果。
type QueryObserver struct {
	source string
}

// NewQueryObserver 构造绑定目录源名称的观测器。
func NewQueryObserver(source string) QueryObserver {
	return QueryObserver{source: source}
}

// ObserveQuery 记录一次查询的结果与耗时。
func (o QueryObserver) ObserveQuery(kind, outcome string, elapsed time.Duration) {
	QueryTotal.WithLabelValues(o.source, kind, outcome).Inc()
	QueryDuration.WithLabelValues(o.source, kind).Observe(elapsed.Seconds())
}

// WritePrometheus 将 Prometheus 文本格式写入 w。
func WritePrometheus(w io.Writer) error {
	families, err := Registry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
