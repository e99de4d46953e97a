// Package mirror 在多个等价镜像之间做故障转移，并对失败主机做临时隔离。
package mirror

import (
	"context"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/tunehub/internal/transport"
)

const (
	// QuarantinePeriod 是主机失败后被跳过的时长。
	QuarantinePeriod = time.Hour

	quarantineCapacity = 256
)

// Attempt 结果标签，供指标与日志使用。
const (
	ResultOK      = "ok"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

// AttemptObserver 在每次尝试或跳过后被调用。
type AttemptObserver func(host, result string)

// Provider 包装 Transport，按优先级依次尝试候选地址。
type Provider struct {
	transport  transport.Transport
	quarantine *expirable.LRU[string, time.Time]
	period     time.Duration
	now        func() time.Time
	logger     logrus.FieldLogger
	observe    AttemptObserver
}

// Option 调整 Provider 行为。
type Option func(*Provider)

// WithClock 注入时钟，测试中用于推进隔离期。
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// WithLogger 设置结构化日志输出。
func WithLogger(logger logrus.FieldLogger) Option {
	return func(p *Provider) { p.logger = logger }
}

// WithObserver 设置尝试观察者。
func WithObserver(observe AttemptObserver) Option {
	return func(p *Provider) { p.observe = observe }
}

// New 构造镜像 Provider，隔离表只存在于内存中。
func New(t transport.Transport, opts ...Option) *Provider {
	p := &Provider{
		transport: t,
		period:    QuarantinePeriod,
		now:       time.Now,
		observe:   func(string, string) {},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		p.logger = discard
	}
	// LRU 自身的过期只负责回收内存，判定以存储的 disabled-until 为准。
	p.quarantine = expirable.NewLRU[string, time.Time](quarantineCapacity, nil, p.period)
	return p
}

// OpenStream 依次尝试候选地址并返回第一个成功打开的正文流。
func (p *Provider) OpenStream(ctx context.Context, locations []string) (*transport.Stream, error) {
	return attempt(ctx, p, locations, p.transport.OpenStream)
}

// FetchMetadata 依次尝试候选地址并返回第一个成功的元数据。
func (p *Provider) FetchMetadata(ctx context.Context, locations []string) (transport.Metadata, error) {
	return attempt(ctx, p, locations, p.transport.FetchMetadata)
}

// IsHostDisabled 报告主机在 at 时刻是否仍处于隔离期。
func (p *Provider) IsHostDisabled(host string, at time.Time) bool {
	until, ok := p.quarantine.Peek(strings.ToLower(host))
	return ok && at.Before(until)
}

func (p *Provider) disable(host string) {
	p.quarantine.Add(host, p.now().Add(p.period))
}

func attempt[T any](ctx context.Context, p *Provider, locations []string, op func(context.Context, string) (T, error)) (T, error) {
	var zero T
	if len(locations) == 0 {
		return zero, ErrNoLocations
	}

	last := len(locations) - 1
	for idx, uri := range locations {
		host := hostOf(uri)
		// 最后一个候选总会被尝试，隔离只裁剪前面可跳过的镜像。
		if idx != last && p.IsHostDisabled(host, p.now()) {
			p.observe(host, ResultSkipped)
			p.logger.WithFields(logrus.Fields{"action": "mirror_skip", "host": host, "uri": uri}).Debug("镜像处于隔离期，跳过")
			continue
		}

		result, err := op(ctx, uri)
		if err == nil {
			p.observe(host, ResultOK)
			return result, nil
		}
		p.observe(host, ResultFailed)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}

		fields := logrus.Fields{"action": "mirror_attempt", "host": host, "uri": uri, "error": err.Error()}
		if !p.transport.HasConnectivity() {
			p.logger.WithFields(fields).Warn("网络不可用，停止尝试其它镜像")
			return zero, &ConnectivityError{URI: uri, Err: err}
		}
		if idx == last {
			p.logger.WithFields(fields).Warn("所有镜像均失败")
			return zero, &HostError{Host: host, URI: uri, Err: err}
		}
		p.disable(host)
		p.logger.WithFields(fields).Info("镜像失败，已隔离并尝试下一个")
	}
	return zero, ErrNoLocations
}

func hostOf(uri string) string {
	parsed, err := url.Parse(uri)
	if err != nil || parsed.Host == "" {
		return strings.ToLower(uri)
	}
	return strings.ToLower(parsed.Host)
}
