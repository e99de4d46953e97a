package sourcemodule

import (
	"time"

	"github.com/any-hub/tunehub/internal/listing"
	"github.com/any-hub/tunehub/internal/vpath"
)

// Class 描述资源的变化频率，决定缓存 TTL。
type Class string

const (
	// ClassDirectory 是通用目录列表。
	ClassDirectory Class = "directory"
	// ClassGroupList 是作者列表、曲目列表等分组列表。
	ClassGroupList Class = "group-list"
	// ClassClassification 是格式列表等极少变化的分类。
	ClassClassification Class = "classification"
	// ClassContent 是文件内容。
	ClassContent Class = "content"
)

var classTTL = map[Class]time.Duration{
	ClassDirectory:      24 * time.Hour,
	ClassGroupList:      7 * 24 * time.Hour,
	ClassClassification: 28 * 24 * time.Hour,
	ClassContent:        30 * 24 * time.Hour,
}

// TTL 返回该类别的过期阈值；未知类别按通用目录处理。
func (c Class) TTL() time.Duration {
	if ttl, ok := classTTL[c]; ok {
		return ttl
	}
	return classTTL[ClassDirectory]
}

// Classes 返回全部资源类别，按 TTL 从短到长排列。
func Classes() []Class {
	return []Class{ClassDirectory, ClassGroupList, ClassClassification, ClassContent}
}

// Classifier 根据目录路径返回其资源类别。
type Classifier func(vpath.Path) Class

// ModuleMetadata 记录一个目录源模块的静态信息，供配置校验和诊断端使用。
type ModuleMetadata struct {
	Key            string           `json:"key"`
	Description    string           `json:"description"`
	DefaultMirrors []string         `json:"default_mirrors,omitempty"`
	Formats        []listing.Format `json:"formats"`
	Classify       Classifier       `json:"-"`
}

// LifetimeClass 返回路径的资源类别：文件一律为 ClassContent，目录交给模块分类，缺省为 ClassDirectory。
func (m ModuleMetadata) LifetimeClass(p vpath.Path) Class {
	if p.IsFile() {
		return ClassContent
	}
	if m.Classify == nil {
		return ClassDirectory
	}
	return m.Classify(p)
}
