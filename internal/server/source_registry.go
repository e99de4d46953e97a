package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/any-hub/tunehub/internal/catalog"
)

// SourceRegistry 提供目录源名称到 Catalog 的查询能力，所有目录源共享同一个监听端口。
type SourceRegistry struct {
	catalogs map[string]*catalog.Catalog
	ordered  []*catalog.Catalog
	closers  []func() error
}

// NewSourceRegistry 按传入顺序登记 Catalog，名称重复时报错。
func NewSourceRegistry(catalogs ...*catalog.Catalog) (*SourceRegistry, error) {
	registry := &SourceRegistry{
		catalogs: make(map[string]*catalog.Catalog, len(catalogs)),
	}
	for _, c := range catalogs {
		if err := registry.add(c); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func (r *SourceRegistry) add(c *catalog.Catalog) error {
	if c == nil {
		return errors.New("catalog is nil")
	}
	key := normalizeSourceName(c.Name())
	if _, exists := r.catalogs[key]; exists {
		return fmt.Errorf("duplicate source name detected for %s", key)
	}
	r.catalogs[key] = c
	r.ordered = append(r.ordered, c)
	return nil
}

// Lookup 根据名称查找 Catalog，忽略大小写与首尾空白。
func (r *SourceRegistry) Lookup(name string) (*catalog.Catalog, bool) {
	if r == nil {
		return nil, false
	}
	c, ok := r.catalogs[normalizeSourceName(name)]
	return c, ok
}

// List 返回当前登记的 Catalog（按配置定义的顺序），用于 /sources 输出。
func (r *SourceRegistry) List() []*catalog.Catalog {
	if r == nil || len(r.ordered) == 0 {
		return nil
	}
	return append([]*catalog.Catalog(nil), r.ordered...)
}

// Close 释放装配阶段打开的存储。
func (r *SourceRegistry) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	for _, closeFn := range r.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

func normalizeSourceName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
