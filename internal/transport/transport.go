// Package transport 提供原始网络 I/O：连通性探测、元数据查询与正文流。
//
// 上层（镜像故障转移、目录刷新）只依赖 Transport 接口，测试中可替换为内存实现。
package transport

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// Metadata 描述远端资源的最终地址、长度与修改时间；未知长度为 -1。
type Metadata struct {
	FinalURI      string
	ContentLength int64
	LastModified  time.Time
	ContentType   string
}

// Stream 是一次打开的正文流，附带响应元数据。
type Stream struct {
	io.ReadCloser
	Meta Metadata
}

// Transport 是引擎唯一的网络依赖。
type Transport interface {
	HasConnectivity() bool
	FetchMetadata(ctx context.Context, uri string) (Metadata, error)
	OpenStream(ctx context.Context, uri string) (*Stream, error)
}

// StatusError 表示远端返回了非 2xx 状态码。
type StatusError struct {
	URI        string
	StatusCode int
	Location   string
}

func (e *StatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	loc := strings.TrimSpace(e.Location)
	if loc == "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URI)
	}
	return fmt.Sprintf("HTTP %d: %s location=%s", e.StatusCode, e.URI, loc)
}
