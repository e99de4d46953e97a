package config

import (
	"fmt"
	"path/filepath"

	"github.com/any-hub/tunehub/internal/sourcemodule"
)

// SourceRuntime 将目录源配置与模块元数据合并，方便运行时快速取用。
type SourceRuntime struct {
	Config  SourceConfig
	Module  sourcemodule.ModuleMetadata
	Mirrors []string
}

// BuildSourceRuntime 解析模块并计算生效的镜像列表（未配置时回退到模块默认值）。
func BuildSourceRuntime(cfg SourceConfig) (SourceRuntime, error) {
	meta, ok := sourcemodule.Resolve(cfg.Type)
	if !ok {
		return SourceRuntime{}, newFieldError(sourceField(cfg.Name, "Type"), fmt.Sprintf("未注册模块: %s", cfg.Type))
	}
	mirrors := cfg.Mirrors
	if len(mirrors) == 0 {
		mirrors = meta.DefaultMirrors
	}
	if len(mirrors) == 0 {
		return SourceRuntime{}, newFieldError(sourceField(cfg.Name, "Mirrors"), "模块没有默认镜像，必须显式配置")
	}
	return SourceRuntime{
		Config:  cfg,
		Module:  meta,
		Mirrors: append([]string(nil), mirrors...),
	}, nil
}

// DatabasePath 返回目录源的 SQLite 文件路径：StoragePath/<source>.db。
func (g GlobalConfig) DatabasePath(source string) string {
	return filepath.Join(g.StoragePath, source+".db")
}
