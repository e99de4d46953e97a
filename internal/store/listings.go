package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/any-hub/tunehub/internal/listing"
)

// FindListing 返回目录的最新条目集；从未缓存时 found=false，不视为错误。
func (s *Store) FindListing(ctx context.Context, pathID string) ([]listing.Entry, bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT entries FROM listed WHERE path_id = ?", pathID).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find listing %s: %w", pathID, err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT name, is_dir, size, description FROM listings WHERE path_id = ? ORDER BY is_dir DESC, name",
		pathID)
	if err != nil {
		return nil, false, fmt.Errorf("query listing %s: %w", pathID, err)
	}
	defer rows.Close()

	entries := make([]listing.Entry, 0, count)
	for rows.Next() {
		var e listing.Entry
		if err := rows.Scan(&e.Name, &e.IsDir, &e.Size, &e.Description); err != nil {
			return nil, false, fmt.Errorf("scan listing %s: %w", pathID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate listing %s: %w", pathID, err)
	}
	return entries, true, nil
}

// ReplaceListing 在事务内整体替换目录条目集，不做增量合并。
func (t *Tx) ReplaceListing(ctx context.Context, pathID string, entries []listing.Entry) error {
	if err := t.ClearListing(ctx, pathID); err != nil {
		return err
	}
	for _, e := range entries {
		if err := t.PutEntry(ctx, pathID, e); err != nil {
			return err
		}
	}
	if _, err := t.exec(ctx,
		"INSERT INTO listed (path_id, entries) VALUES (?, ?) ON CONFLICT(path_id) DO UPDATE SET entries = excluded.entries",
		pathID, len(entries)); err != nil {
		return fmt.Errorf("mark listing %s: %w", pathID, err)
	}
	return nil
}

// ClearListing 删除目录的全部条目。
func (t *Tx) ClearListing(ctx context.Context, pathID string) error {
	if _, err := t.exec(ctx, "DELETE FROM listings WHERE path_id = ?", pathID); err != nil {
		return fmt.Errorf("clear listing %s: %w", pathID, err)
	}
	return nil
}

// PutEntry 写入单个条目；重复名称以后写入者为准。
func (t *Tx) PutEntry(ctx context.Context, pathID string, e listing.Entry) error {
	_, err := t.exec(ctx,
		`INSERT INTO listings (path_id, name, is_dir, size, description) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(path_id, name) DO UPDATE SET is_dir = excluded.is_dir, size = excluded.size, description = excluded.description`,
		pathID, e.Name, e.IsDir, e.Size, e.Description)
	if err != nil {
		return fmt.Errorf("put entry %s/%s: %w", pathID, e.Name, err)
	}
	return nil
}
