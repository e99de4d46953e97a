// Package httpdir 描述通用 HTTP 目录索引源：镜像必须在配置中显式给出，所有目录按一天过期。
package httpdir

import (
	"github.com/any-hub/tunehub/internal/listing"
	"github.com/any-hub/tunehub/internal/sourcemodule"
)

// Key 是配置中 Type 字段引用的模块键。
const Key = "httpdir"

func init() {
	sourcemodule.MustRegister(sourcemodule.ModuleMetadata{
		Key:         Key,
		Description: "Generic HTTP directory index (Apache/nginx/lighttpd listings or XML index)",
		Formats:     listing.Formats(),
	})
}
