package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Tx 是一次刷新的写事务。数据库事务在第一次写入时才真正开启，
// 之后持有 Store 的写槽直到 Commit 或 Rollback；网络读取期间不占用写槽。
//
// OnCommit/OnRollback 钩子用于把数据库之外的副作用（例如暂存的内容文件）
// 与事务结果绑定：提交后发布，回滚后丢弃。
type Tx struct {
	store *Store
	tx    *sql.Tx
	done  bool

	onCommit   []func() error
	onRollback []func()
}

// Begin 返回一个尚未开启的写事务。写事务在第一次写入时排队，读操作不受影响。
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &Tx{store: s}, nil
}

// Started 报告数据库事务是否已开启。
func (t *Tx) Started() bool { return t.tx != nil }

// OnCommit 注册提交成功后执行的钩子。
func (t *Tx) OnCommit(fn func() error) {
	t.onCommit = append(t.onCommit, fn)
}

// OnRollback 注册回滚（含提交失败）后执行的钩子。
func (t *Tx) OnRollback(fn func()) {
	t.onRollback = append(t.onRollback, fn)
}

// Commit 提交事务；数据库提交失败时按回滚处理。未开启的事务只执行提交钩子。
func (t *Tx) Commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true

	if t.tx != nil {
		err := t.tx.Commit()
		t.store.releaseWrite()
		if err != nil {
			t.runRollbackHooks()
			return fmt.Errorf("commit tx: %w", err)
		}
	}
	var errs []error
	for _, fn := range t.onCommit {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Rollback 放弃事务内的全部写入；已结束的事务上调用是空操作。
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true

	var err error
	if t.tx != nil {
		err = t.tx.Rollback()
		t.store.releaseWrite()
	}
	t.runRollbackHooks()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback tx: %w", err)
	}
	return nil
}

func (t *Tx) runRollbackHooks() {
	for _, fn := range t.onRollback {
		fn()
	}
}

// start 等待写槽并开启数据库事务；等待期间可被 ctx 取消。
func (t *Tx) start(ctx context.Context) error {
	if t.done {
		return sql.ErrTxDone
	}
	if t.tx != nil {
		return nil
	}
	if err := t.store.acquireWrite(ctx); err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	tx, err := t.store.db.BeginTx(ctx, nil)
	if err != nil {
		t.store.releaseWrite()
		return fmt.Errorf("begin tx: %w", err)
	}
	t.tx = tx
	return nil
}

func (t *Tx) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if err := t.start(ctx); err != nil {
		return nil, err
	}
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *Tx) queryRow(ctx context.Context, query string, args ...any) (*sql.Row, error) {
	if err := t.start(ctx); err != nil {
		return nil, err
	}
	return t.tx.QueryRowContext(ctx, query, args...), nil
}
