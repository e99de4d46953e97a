package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Lifetime 记录某个资源键的最近刷新时间，并按固定 TTL 判断是否过期。
type Lifetime struct {
	store *Store
	key   string
	ttl   time.Duration
}

// Lifetime 返回 key 的生命周期跟踪器。
func (s *Store) Lifetime(key string, ttl time.Duration) *Lifetime {
	return &Lifetime{store: s, key: key, ttl: ttl}
}

// IsExpired 从未刷新过或超过 TTL 时返回 true；读取失败也按过期处理。
func (l *Lifetime) IsExpired(ctx context.Context) bool {
	stamp, ok, err := l.store.stamp(ctx, l.key)
	if err != nil {
		l.store.logger.WithFields(logrus.Fields{
			"action": "lifetime_read",
			"key":    l.key,
			"error":  err.Error(),
		}).Warn("读取刷新时间失败，按过期处理")
		return true
	}
	if !ok {
		return true
	}
	return l.store.now().Sub(stamp) > l.ttl
}

// Update 通过刷新事务写入当前时间；只有事务提交后才对读者可见。
func (l *Lifetime) Update(ctx context.Context, tx *Tx) error {
	_, err := tx.exec(ctx,
		"INSERT INTO timestamps (id, stamp) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET stamp = excluded.stamp",
		l.key, l.store.now().UnixNano())
	if err != nil {
		return fmt.Errorf("update lifetime %s: %w", l.key, err)
	}
	return nil
}

func (s *Store) stamp(ctx context.Context, key string) (time.Time, bool, error) {
	var nanos int64
	err := s.db.QueryRowContext(ctx, "SELECT stamp FROM timestamps WHERE id = ?", key).Scan(&nanos)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return time.Unix(0, nanos), true, nil
}
