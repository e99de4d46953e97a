package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ContentMeta 描述已缓存的文件内容；Blob 是内容文件在 blob 目录中的相对位置。
type ContentMeta struct {
	Blob         string
	Size         int64
	LastModified time.Time
	FinalURI     string
}

// PutContent 在事务内登记内容元数据。
func (t *Tx) PutContent(ctx context.Context, pathID string, meta ContentMeta) error {
	var modified int64
	if !meta.LastModified.IsZero() {
		modified = meta.LastModified.Unix()
	}
	_, err := t.exec(ctx,
		`INSERT INTO contents (path_id, blob, size, last_modified, final_uri) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(path_id) DO UPDATE SET blob = excluded.blob, size = excluded.size,
		 last_modified = excluded.last_modified, final_uri = excluded.final_uri`,
		pathID, meta.Blob, meta.Size, modified, meta.FinalURI)
	if err != nil {
		return fmt.Errorf("put content %s: %w", pathID, err)
	}
	return nil
}

// FindContent 返回内容元数据；未缓存时 found=false。
func (s *Store) FindContent(ctx context.Context, pathID string) (ContentMeta, bool, error) {
	var meta ContentMeta
	var modified int64
	err := s.db.QueryRowContext(ctx,
		"SELECT blob, size, last_modified, final_uri FROM contents WHERE path_id = ?", pathID).
		Scan(&meta.Blob, &meta.Size, &modified, &meta.FinalURI)
	if errors.Is(err, sql.ErrNoRows) {
		return ContentMeta{}, false, nil
	}
	if err != nil {
		return ContentMeta{}, false, fmt.Errorf("find content %s: %w", pathID, err)
	}
	if modified > 0 {
		meta.LastModified = time.Unix(modified, 0).UTC()
	}
	return meta, true, nil
}
