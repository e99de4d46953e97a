package transport

import (
	"errors"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// pacedRoundTripper 把 UA、按主机限速与有界重试固化为统一策略。
type pacedRoundTripper struct {
	base      http.RoundTripper
	userAgent string
	// retryMax 为最大重试次数（不含首次尝试）。
	retryMax int
	limiters *hostLimiters
}

func (t *pacedRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.base == nil {
		return nil, errors.New("nil base transport")
	}

	// 仅对可重放的 GET/HEAD 重试。
	canRetry := (req.Method == http.MethodGet || req.Method == http.MethodHead) && req.Body == nil
	max := t.retryMax
	if max < 0 || !canRetry {
		max = 0
	}

	var lastErr error
	for attempt := 0; attempt <= max; attempt++ {
		if err := t.limiters.wait(req); err != nil {
			return nil, err
		}
		r := req.Clone(req.Context())
		if r.Header.Get("User-Agent") == "" && t.userAgent != "" {
			r.Header.Set("User-Agent", t.userAgent)
		}

		resp, err := t.base.RoundTrip(r)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if req.Context().Err() != nil {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// hostLimiters 为每个主机维护一个令牌桶，避免对同一镜像突发请求。
type hostLimiters struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newHostLimiters(perSecond float64) *hostLimiters {
	if perSecond <= 0 {
		return &hostLimiters{limit: rate.Inf}
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &hostLimiters{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (h *hostLimiters) wait(req *http.Request) error {
	if h == nil || h.limit == rate.Inf {
		return nil
	}
	host := strings.ToLower(req.URL.Host)

	h.mu.Lock()
	limiter := h.limiters[host]
	if limiter == nil {
		limiter = rate.NewLimiter(h.limit, h.burst)
		h.limiters[host] = limiter
	}
	h.mu.Unlock()

	return limiter.Wait(req.Context())
}
