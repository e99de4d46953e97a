// Package store 是每个目录源独享的嵌入式 SQLite 缓存：目录条目、TTL 时间戳、
// 分组关联索引与文件内容元数据。
//
// 写事务在单个 Store 实例内串行化；读操作直接走连接池，只会看到已提交的数据。
// 架构版本保存在 PRAGMA user_version 中，不一致时整体删除并重建，不做增量迁移。
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// SchemaVersion 每次表结构变化都必须递增。
const SchemaVersion = 1

var schema = []string{
	`CREATE TABLE listings (
		path_id TEXT NOT NULL,
		name TEXT NOT NULL,
		is_dir INTEGER NOT NULL,
		size TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (path_id, name)
	)`,
	`CREATE TABLE listed (path_id TEXT PRIMARY KEY, entries INTEGER NOT NULL)`,
	`CREATE TABLE timestamps (id TEXT PRIMARY KEY, stamp INTEGER NOT NULL)`,
	`CREATE TABLE contents (
		path_id TEXT PRIMARY KEY,
		blob TEXT NOT NULL,
		size INTEGER NOT NULL,
		last_modified INTEGER NOT NULL DEFAULT 0,
		final_uri TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE dirs (id INTEGER PRIMARY KEY, path TEXT NOT NULL UNIQUE)`,
	`CREATE TABLE tracks (id INTEGER PRIMARY KEY, path TEXT NOT NULL UNIQUE, size TEXT NOT NULL DEFAULT '')`,
	groupingDDL(dirTracksGrouping),
}

// Options 控制日志与时钟注入。
type Options struct {
	Logger logrus.FieldLogger
	Clock  func() time.Time
}

// Store 包装 *sql.DB，并负责写事务串行化。
type Store struct {
	db     *sql.DB
	path   string
	now    func() time.Time
	logger logrus.FieldLogger

	// 容量为 1 的写槽，保证同一时刻只有一个写事务
	writeSlot chan struct{}

	groupsMu sync.Mutex
	groups   map[string]*Grouping
}

// Open 打开（必要时创建）path 处的数据库文件，并确保架构版本一致。
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	if path == "" {
		return nil, errors.New("store path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(8)

	s := &Store{
		db:        db,
		path:      path,
		now:       opts.Clock,
		logger:    opts.Logger,
		writeSlot: make(chan struct{}, 1),
		groups:    make(map[string]*Grouping),
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		s.logger = discard
	}

	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	// 预先登记内置分组，避免在写事务内首次建表
	if _, err := s.Grouping(ctx, dirTracksGrouping, trackIDBits); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close 关闭底层连接池。
func (s *Store) Close() error {
	return s.db.Close()
}

// Path 返回数据库文件路径。
func (s *Store) Path() string {
	return s.path
}

func (s *Store) acquireWrite(ctx context.Context) error {
	select {
	case s.writeSlot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) releaseWrite() {
	<-s.writeSlot
}

func (s *Store) ensureSchema(ctx context.Context) error {
	var current int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if current == SchemaVersion {
		return nil
	}

	if err := s.acquireWrite(ctx); err != nil {
		return fmt.Errorf("schema write slot: %w", err)
	}
	defer s.releaseWrite()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer tx.Rollback()

	tables, err := existingTables(ctx, tx)
	if err != nil {
		return err
	}
	for _, name := range tables {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(name)); err != nil {
			return fmt.Errorf("drop table %s: %w", name, err)
		}
	}
	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
		return fmt.Errorf("write schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"action":  "schema_recreate",
		"path":    s.path,
		"from":    current,
		"to":      SchemaVersion,
		"dropped": len(tables),
	}).Info("缓存库架构版本不一致，已重建")
	return nil
}

func existingTables(ctx context.Context, tx *sql.Tx) ([]string, error) {
	rows, err := tx.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}
