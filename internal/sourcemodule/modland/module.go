// Package modland 描述 modland 模块音乐归档：<格式>/<作者>/<曲目>。
// 根目录是格式列表，几乎不变；其下的作者与曲目列表按周刷新。
package modland

import (
	"github.com/any-hub/tunehub/internal/listing"
	"github.com/any-hub/tunehub/internal/sourcemodule"
	"github.com/any-hub/tunehub/internal/vpath"
)

// Key 是配置中 Type 字段引用的模块键。
const Key = "modland"

var defaultMirrors = []string{
	"https://ftp.modland.com/pub/modules",
	"https://modland.com/pub/modules",
}

func init() {
	sourcemodule.MustRegister(sourcemodule.ModuleMetadata{
		Key:            Key,
		Description:    "Modland tracker music archive (format / author / track)",
		DefaultMirrors: defaultMirrors,
		Formats:        []listing.Format{listing.FormatTable, listing.FormatPre},
		Classify:       classify,
	})
}

func classify(p vpath.Path) sourcemodule.Class {
	if p.IsEmpty() {
		return sourcemodule.ClassClassification
	}
	return sourcemodule.ClassGroupList
}
