package cache

import (
	"context"
	"errors"
	"io"
	"time"
)

// Store 负责管理内容正文的磁盘读写。磁盘布局遵循：
//
//	<StoragePath>/<Source>/blobs/<path>
type Store interface {
	// Get 返回一个可流式读取的正文。若不存在则返回 ErrNotFound。
	Get(ctx context.Context, locator Locator) (*ReadResult, error)

	// Stage 将正文写入临时文件，调用方决定 Publish 或 Discard。
	Stage(ctx context.Context, locator Locator, body io.Reader, opts PutOptions) (*Staged, error)

	// Remove 删除正文文件；文件不存在时不报错。
	Remove(ctx context.Context, locator Locator) error
}

// PutOptions 控制写入过程中的可选属性。
type PutOptions struct {
	ModTime time.Time
	// MaxBytes 大于 0 时限制正文大小，超出返回 ErrTooLarge。
	MaxBytes int64
}

// Locator 唯一定位一个正文（目录源 + 本地路径标识），路径均为 URL 路径风格。
type Locator struct {
	Source string
	Path   string
}

// Entry 描述一个已发布的正文文件。
type Entry struct {
	Locator   Locator   `json:"locator"`
	FilePath  string    `json:"file_path"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
}

// ReadResult 组合 Entry 与正文 Reader。
type ReadResult struct {
	Entry  Entry
	Reader io.ReadSeekCloser
}

var (
	// ErrNotFound 表示正文不存在。
	ErrNotFound = errors.New("cache entry not found")
	// ErrTooLarge 表示正文超过 PutOptions.MaxBytes。
	ErrTooLarge = errors.New("cache entry exceeds size limit")
	// ErrStaleStage 表示暂存文件已发布或已丢弃。
	ErrStaleStage = errors.New("staged entry already finalized")
)
