package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// trackIDBits 限定单库内曲目 ID 的位宽，剩余位留给目录 ID。
const trackIDBits = 32

// Track 是目录下的单个文件条目，ID 在库内稳定。
type Track struct {
	ID   uint64 `json:"id"`
	Path string `json:"path"`
	Size string `json:"size,omitempty"`
}

// ReplaceDirTracks 在事务内重建目录与其直属文件的关联。
func (t *Tx) ReplaceDirTracks(ctx context.Context, dirPath string, tracks []Track) error {
	g, err := t.store.Grouping(ctx, dirTracksGrouping, trackIDBits)
	if err != nil {
		return err
	}
	dirID, err := t.upsertID(ctx, "dirs", dirPath, "")
	if err != nil {
		return fmt.Errorf("register dir %s: %w", dirPath, err)
	}
	if err := g.ClearGroup(ctx, t, dirID); err != nil {
		return err
	}
	for _, tr := range tracks {
		id, err := t.upsertID(ctx, "tracks", tr.Path, tr.Size)
		if err != nil {
			return fmt.Errorf("register track %s: %w", tr.Path, err)
		}
		if err := g.Add(ctx, t, dirID, id); err != nil {
			return err
		}
	}
	return nil
}

// DirTracks 返回目录下已登记的文件，按 ID 升序。
func (s *Store) DirTracks(ctx context.Context, dirPath string) ([]Track, error) {
	var dirID int64
	err := s.db.QueryRowContext(ctx, "SELECT id FROM dirs WHERE path = ?", dirPath).Scan(&dirID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup dir %s: %w", dirPath, err)
	}

	g, err := s.Grouping(ctx, dirTracksGrouping, trackIDBits)
	if err != nil {
		return nil, err
	}
	sub, args, err := g.objectsQuery(uint64(dirID))
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, path, size FROM tracks WHERE id IN ("+sub+") ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("query tracks of %s: %w", dirPath, err)
	}
	defer rows.Close()

	var result []Track
	for rows.Next() {
		var tr Track
		var id int64
		if err := rows.Scan(&id, &tr.Path, &tr.Size); err != nil {
			return nil, err
		}
		tr.ID = uint64(id)
		result = append(result, tr)
	}
	return result, rows.Err()
}

func (t *Tx) upsertID(ctx context.Context, table, path, size string) (uint64, error) {
	var query string
	var args []any
	switch table {
	case "dirs":
		query = "INSERT INTO dirs (path) VALUES (?) ON CONFLICT(path) DO NOTHING"
		args = []any{path}
	case "tracks":
		query = "INSERT INTO tracks (path, size) VALUES (?, ?) ON CONFLICT(path) DO UPDATE SET size = excluded.size"
		args = []any{path, size}
	default:
		return 0, fmt.Errorf("unknown id table %q", table)
	}
	if _, err := t.exec(ctx, query, args...); err != nil {
		return 0, err
	}
	row, err := t.queryRow(ctx, "SELECT id FROM "+table+" WHERE path = ?", path)
	if err != nil {
		return 0, err
	}
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return uint64(id), nil
}
