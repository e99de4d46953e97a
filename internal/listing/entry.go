// Package listing 将各站点的目录索引（XML、HTML 表格、PRE 块）归一化为统一条目。
//
// 解析函数均为纯函数：只依赖输入字节与声明的 Content-Type，不做网络访问。
package listing

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Entry 是目录中的一个子项；目录的 Size 为空，Description 为站点给出的修改时间。
type Entry struct {
	Name        string `json:"name"`
	IsDir       bool   `json:"is_dir"`
	Size        string `json:"size,omitempty"`
	Description string `json:"description,omitempty"`
}

// Format 标识一种索引标记格式。
type Format string

const (
	FormatXML   Format = "xml-index"
	FormatTable Format = "table-index"
	FormatPre   Format = "pre-index"
)

// Listing 是一次成功解析的结果。
type Listing struct {
	Format  Format
	Entries []Entry
}

var (
	// ErrBinaryContent 表示内容是二进制数据，不可能是目录索引。
	ErrBinaryContent = errors.New("binary content")
	// ErrUnknownFormat 表示所有已知格式都无法识别内容。
	ErrUnknownFormat = errors.New("no listing format recognized the content")
)

// ParseError 描述索引内容无法被识别的原因，绝不会被当作空目录处理。
type ParseError struct {
	ContentType string
	Detected    string
	Err         error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse listing (declared=%q detected=%q): %v", e.ContentType, e.Detected, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// entryFromHref 根据链接推导条目名称；排序链接、上级目录与绝对链接返回 ok=false。
func entryFromHref(href string) (name string, isDir bool, ok bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "?") || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "/") {
		return "", false, false
	}
	if strings.Contains(href, "://") || strings.HasPrefix(href, "..") || href == "./" {
		return "", false, false
	}
	if idx := strings.IndexAny(href, "?#"); idx >= 0 {
		href = href[:idx]
	}
	isDir = strings.HasSuffix(href, "/")
	trimmed := strings.TrimSuffix(href, "/")
	if trimmed == "" || strings.Contains(trimmed, "/") {
		return "", false, false
	}
	decoded, err := url.PathUnescape(trimmed)
	if err != nil {
		decoded = trimmed
	}
	return decoded, isDir, true
}

func normalizeSize(raw string, isDir bool) string {
	raw = strings.TrimSpace(raw)
	if isDir || raw == "-" {
		return ""
	}
	return raw
}
