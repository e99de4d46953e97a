package sourcemodule

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/any-hub/tunehub/internal/listing"
)

// ErrInvalidModule 表示模块元数据未通过注册校验。
var ErrInvalidModule = errors.New("invalid source module")

var globalRegistry = newRegistry()

type registry struct {
	mu      sync.RWMutex
	modules map[string]ModuleMetadata
}

func newRegistry() *registry {
	return &registry{modules: make(map[string]ModuleMetadata)}
}

// Register 校验并登记模块元数据：键只允许小写字母、数字、"-" 与 "_"，
// 索引格式必须是 listing 支持的格式，默认镜像必须是带主机名的 http(s) 地址。
// 重复键返回错误。
func Register(meta ModuleMetadata) error {
	return globalRegistry.register(meta)
}

// MustRegister 在注册失败时 panic，适合模块 init() 中调用。
func MustRegister(meta ModuleMetadata) {
	if err := Register(meta); err != nil {
		panic(err)
	}
}

// Resolve 返回指定键的模块元数据。
func Resolve(key string) (ModuleMetadata, bool) {
	return globalRegistry.resolve(key)
}

// List 返回按键排序的模块元数据列表。
func List() []ModuleMetadata {
	return globalRegistry.list()
}

// Keys 返回所有已注册模块的键值。
func Keys() []string {
	items := List()
	result := make([]string, len(items))
	for i, meta := range items {
		result[i] = meta.Key
	}
	return result
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// normalize 返回校验后的副本；切片均被复制，注册后调用方的修改不会影响注册表。
func normalize(meta ModuleMetadata) (ModuleMetadata, error) {
	meta.Key = normalizeKey(meta.Key)
	if meta.Key == "" {
		return ModuleMetadata{}, fmt.Errorf("%w: key is required", ErrInvalidModule)
	}
	for _, r := range meta.Key {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' && r != '_' {
			return ModuleMetadata{}, fmt.Errorf("%w: key %q contains %q", ErrInvalidModule, meta.Key, r)
		}
	}

	formats := make([]listing.Format, 0, len(meta.Formats))
	seenFormat := make(map[listing.Format]bool, len(meta.Formats))
	for _, f := range meta.Formats {
		if !listing.IsKnownFormat(f) {
			return ModuleMetadata{}, fmt.Errorf("%w: module %s declares unknown format %q", ErrInvalidModule, meta.Key, f)
		}
		if seenFormat[f] {
			continue
		}
		seenFormat[f] = true
		formats = append(formats, f)
	}
	meta.Formats = formats

	mirrors := make([]string, 0, len(meta.DefaultMirrors))
	seenMirror := make(map[string]bool, len(meta.DefaultMirrors))
	for _, raw := range meta.DefaultMirrors {
		mirror := strings.TrimRight(strings.TrimSpace(raw), "/")
		parsed, err := url.Parse(mirror)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return ModuleMetadata{}, fmt.Errorf("%w: module %s has invalid default mirror %q", ErrInvalidModule, meta.Key, raw)
		}
		if parsed.RawQuery != "" || parsed.Fragment != "" {
			return ModuleMetadata{}, fmt.Errorf("%w: module %s default mirror %q must not carry query or fragment", ErrInvalidModule, meta.Key, raw)
		}
		if seenMirror[mirror] {
			return ModuleMetadata{}, fmt.Errorf("%w: module %s lists mirror %q twice", ErrInvalidModule, meta.Key, mirror)
		}
		seenMirror[mirror] = true
		mirrors = append(mirrors, mirror)
	}
	meta.DefaultMirrors = mirrors
	return meta, nil
}

func (r *registry) register(meta ModuleMetadata) error {
	meta, err := normalize(meta)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[meta.Key]; exists {
		return fmt.Errorf("module %s already registered", meta.Key)
	}
	r.modules[meta.Key] = meta
	return nil
}

func (r *registry) resolve(key string) (ModuleMetadata, bool) {
	normalized := normalizeKey(key)
	if normalized == "" {
		return ModuleMetadata{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, ok := r.modules[normalized]
	return meta, ok
}

func (r *registry) list() []ModuleMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]ModuleMetadata, 0, len(r.modules))
	for _, meta := range r.modules {
		result = append(result, meta)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}
