// Package vpath 描述远端归档中的资源身份：本地缓存键 + 按优先级排列的镜像 URI。
package vpath

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// ErrForeignURI 表示 URI 不属于任何已知镜像。
var ErrForeignURI = errors.New("uri does not belong to any mirror")

// Path 是不可变的资源标识，段落均为解码后的原始名称。
type Path struct {
	mirrors  []string
	segments []string
	dir      bool
}

// Root 返回指定镜像集合的根目录。
func Root(mirrors ...string) Path {
	normalized := make([]string, 0, len(mirrors))
	for _, m := range mirrors {
		m = strings.TrimRight(strings.TrimSpace(m), "/")
		if m != "" {
			normalized = append(normalized, m)
		}
	}
	return Path{mirrors: normalized, dir: true}
}

// Parse 将本地 ID（/a/b）或某个镜像下的完整 URI 解析为 Path。
func Parse(raw string, mirrors []string) (Path, error) {
	root := Root(mirrors...)
	if !strings.Contains(raw, "://") {
		return root.Child("/" + strings.TrimPrefix(raw, "/")), nil
	}
	for _, base := range root.mirrors {
		if raw == base {
			return root, nil
		}
		if strings.HasPrefix(raw, base+"/") {
			rel := strings.TrimPrefix(raw, base)
			if idx := strings.IndexAny(rel, "?#"); idx >= 0 {
				rel = rel[:idx]
			}
			return root.childEscaped(rel)
		}
	}
	return Path{}, fmt.Errorf("%w: %s", ErrForeignURI, raw)
}

// LocalID 返回与百分号编码无关的规范缓存键，根目录为 "/"。
func (p Path) LocalID() string {
	return "/" + strings.Join(p.segments, "/")
}

// RemoteLocations 按镜像优先级返回同一资源的完整 URI，目录以 "/" 结尾。
func (p Path) RemoteLocations() []string {
	if len(p.mirrors) == 0 {
		return nil
	}
	escaped := make([]string, len(p.segments))
	for i, seg := range p.segments {
		escaped[i] = url.PathEscape(seg)
	}
	suffix := "/" + strings.Join(escaped, "/")
	if len(escaped) > 0 && !p.IsFile() {
		suffix += "/"
	}
	result := make([]string, len(p.mirrors))
	for i, base := range p.mirrors {
		result[i] = base + suffix
	}
	return result
}

// Parent 返回上级目录，根目录的上级仍是根目录。
func (p Path) Parent() Path {
	if len(p.segments) == 0 {
		return p
	}
	return Path{
		mirrors:  p.mirrors,
		segments: p.segments[:len(p.segments)-1:len(p.segments)-1],
		dir:      true,
	}
}

// Child 追加子路径；包含 "/" 时拆分为多段，以 "/" 开头表示从根目录起算。
func (p Path) Child(name string) Path {
	base := p.segments
	if strings.HasPrefix(name, "/") {
		base = nil
	}
	segments := make([]string, 0, len(base)+strings.Count(name, "/")+1)
	segments = append(segments, base...)
	for _, part := range strings.Split(name, "/") {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return Path{
		mirrors:  p.mirrors,
		segments: segments,
		dir:      strings.HasSuffix(name, "/") || len(segments) == 0,
	}
}

func (p Path) childEscaped(rel string) (Path, error) {
	parts := strings.Split(rel, "/")
	decoded := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		value, err := url.PathUnescape(part)
		if err != nil {
			return Path{}, fmt.Errorf("decode segment %q: %w", part, err)
		}
		decoded = append(decoded, value)
	}
	return Path{
		mirrors:  p.mirrors,
		segments: decoded,
		dir:      strings.HasSuffix(rel, "/") || len(decoded) == 0,
	}, nil
}

// AsDir 返回显式标记为目录的副本，用于名称带点的目录。
func (p Path) AsDir() Path {
	p.dir = true
	return p
}

// IsEmpty 表示根目录（没有任何段）。
func (p Path) IsEmpty() bool {
	return len(p.segments) == 0
}

// IsDir 报告路径是否被显式标记为目录（末尾带 "/"、经 AsDir 或根目录）。
func (p Path) IsDir() bool {
	return p.dir
}

// IsFile 判断末段是否带扩展名且未被显式标记为目录。
func (p Path) IsFile() bool {
	if p.IsEmpty() || p.dir {
		return false
	}
	return path.Ext(p.Name()) != ""
}

// Name 返回末段名称，根目录为空串。
func (p Path) Name() string {
	if p.IsEmpty() {
		return ""
	}
	return p.segments[len(p.segments)-1]
}

// Segments 返回段落副本。
func (p Path) Segments() []string {
	return append([]string(nil), p.segments...)
}

// Mirrors 返回镜像基地址副本。
func (p Path) Mirrors() []string {
	return append([]string(nil), p.mirrors...)
}

// Equal 比较镜像与段落；目录标记仅影响 URI 形态，不参与身份判断。
func (p Path) Equal(other Path) bool {
	if len(p.segments) != len(other.segments) || len(p.mirrors) != len(other.mirrors) {
		return false
	}
	for i := range p.segments {
		if p.segments[i] != other.segments[i] {
			return false
		}
	}
	for i := range p.mirrors {
		if p.mirrors[i] != other.mirrors[i] {
			return false
		}
	}
	return true
}

func (p Path) String() string {
	return p.LocalID()
}
