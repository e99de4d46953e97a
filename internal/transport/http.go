package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/any-hub/tunehub/internal/version"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultRetryMax = 2
)

// 共享 HTTP transport 调优，复用长连接并集中配置超时。
var defaultTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   16,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ResponseHeaderTimeout: 20 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ForceAttemptHTTP2:     true,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// Options 控制 HTTP 实现的超时、重试、限速与连通性探测。
type Options struct {
	Timeout           time.Duration
	RetryMax          int
	RequestsPerSecond float64
	UserAgent         string
	// Connectivity 为空时检查本机是否存在已启用的非回环网卡。
	Connectivity func() bool
	// Base 为空时克隆共享的 defaultTransport。
	Base http.RoundTripper
}

// HTTP 是基于 net/http 的 Transport 实现。
type HTTP struct {
	client       *http.Client
	connectivity func() bool
}

// NewHTTP 构造共享的 HTTP Transport，所有镜像请求复用同一个 client。
func NewHTTP(opts Options) *HTTP {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	base := opts.Base
	if base == nil {
		base = defaultTransport.Clone()
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "tunehub/" + version.Version
	}
	connectivity := opts.Connectivity
	if connectivity == nil {
		connectivity = hasActiveInterface
	}

	return &HTTP{
		client: &http.Client{
			Timeout: timeout,
			Transport: &pacedRoundTripper{
				base:      base,
				userAgent: ua,
				retryMax:  opts.RetryMax,
				limiters:  newHostLimiters(opts.RequestsPerSecond),
			},
		},
		connectivity: connectivity,
	}
}

// HasConnectivity 报告是否存在任何可用网络。
func (h *HTTP) HasConnectivity() bool {
	return h.connectivity()
}

// FetchMetadata 发送 HEAD 请求并返回跟随重定向后的元数据。
func (h *HTTP) FetchMetadata(ctx context.Context, uri string) (Metadata, error) {
	resp, err := h.do(ctx, http.MethodHead, uri)
	if err != nil {
		return Metadata{}, err
	}
	resp.Body.Close()
	return metadataOf(resp, uri), nil
}

// OpenStream 发送 GET 请求并返回正文流，调用方负责关闭。
func (h *HTTP) OpenStream(ctx context.Context, uri string) (*Stream, error) {
	resp, err := h.do(ctx, http.MethodGet, uri)
	if err != nil {
		return nil, err
	}
	return &Stream{ReadCloser: resp.Body, Meta: metadataOf(resp, uri)}, nil
}

func (h *HTTP) do(ctx context.Context, method, uri string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &StatusError{URI: uri, StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}
	}
	return resp, nil
}

func metadataOf(resp *http.Response, uri string) Metadata {
	meta := Metadata{
		FinalURI:      uri,
		ContentLength: resp.ContentLength,
		ContentType:   resp.Header.Get("Content-Type"),
	}
	if resp.Request != nil && resp.Request.URL != nil {
		meta.FinalURI = resp.Request.URL.String()
	}
	if raw := resp.Header.Get("Last-Modified"); raw != "" {
		if parsed, err := http.ParseTime(raw); err == nil {
			meta.LastModified = parsed.UTC()
		}
	}
	return meta
}

// hasActiveInterface 检查是否存在已启用且配置了地址的非回环网卡。
func hasActiveInterface() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return true
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if addrs, err := iface.Addrs(); err == nil && len(addrs) > 0 {
			return true
		}
	}
	return false
}
