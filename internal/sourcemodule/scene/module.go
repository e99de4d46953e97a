// Package scene 描述 scene.org 文件归档（/music、/parties 等），目录按天刷新。
package scene

import (
	"github.com/any-hub/tunehub/internal/listing"
	"github.com/any-hub/tunehub/internal/sourcemodule"
)

// Key 是配置中 Type 字段引用的模块键。
const Key = "scene"

// ftp.scene.org 提供 XML 索引，放在首位
var defaultMirrors = []string{
	"https://ftp.scene.org/pub",
	"https://ftp.fau.de/scene.org",
}

func init() {
	sourcemodule.MustRegister(sourcemodule.ModuleMetadata{
		Key:            Key,
		Description:    "scene.org files archive mirrors",
		DefaultMirrors: defaultMirrors,
		Formats:        []listing.Format{listing.FormatXML, listing.FormatTable, listing.FormatPre},
	})
}
