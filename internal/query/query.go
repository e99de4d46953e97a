// Package query 实现每次目录/内容查询共用的编排流程：
// 过期则在事务内回源刷新并提交，失败或未过期时回退到本地缓存，
// 只有缓存也没有数据时才把回源错误交给调用方。
package query

import (
	"context"
	"errors"
	"fmt"
)

// Outcome 描述一次查询的数据来源。
type Outcome string

const (
	// OutcomeRemote 表示本次从远端刷新并已提交。
	OutcomeRemote Outcome = "remote"
	// OutcomeCache 表示数据来自本地缓存（可能已过期）。
	OutcomeCache Outcome = "cache"
	// OutcomeEmpty 表示无需刷新且缓存中没有数据，不属于错误。
	OutcomeEmpty Outcome = "empty"
)

// Transaction 是刷新写入所用的事务。
type Transaction interface {
	Commit() error
	Rollback() error
}

// Lifetime 判断资源是否过期，并在刷新事务内记录刷新时间。
type Lifetime[T Transaction] interface {
	IsExpired(ctx context.Context) bool
	Update(ctx context.Context, tx T) error
}

// Command 把一次查询拆成四个步骤，由 Execute 统一编排。
// RefreshFromRemote 只能通过传入的事务写入。
type Command[T Transaction] interface {
	Lifetime() Lifetime[T]
	StartTransaction(ctx context.Context) (T, error)
	RefreshFromRemote(ctx context.Context, tx T) error
	ReadFromCache(ctx context.Context) (bool, error)
}

// Execute 运行查询编排流程。
func Execute[T Transaction](ctx context.Context, cmd Command[T]) (Outcome, error) {
	lifetime := cmd.Lifetime()

	var remoteErr error
	if lifetime.IsExpired(ctx) {
		remoteErr = refresh(ctx, cmd, lifetime)
		if remoteErr == nil {
			return OutcomeRemote, nil
		}
	}

	found, cacheErr := cmd.ReadFromCache(ctx)
	switch {
	case cacheErr == nil && found:
		return OutcomeCache, nil
	case cacheErr != nil && remoteErr != nil:
		return OutcomeEmpty, errors.Join(remoteErr, cacheErr)
	case cacheErr != nil:
		return OutcomeEmpty, cacheErr
	case remoteErr != nil:
		return OutcomeEmpty, remoteErr
	default:
		return OutcomeEmpty, nil
	}
}

func refresh[T Transaction](ctx context.Context, cmd Command[T], lifetime Lifetime[T]) (err error) {
	tx, err := cmd.StartTransaction(ctx)
	if err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = errors.Join(err, rbErr)
			}
		}
	}()

	if err := cmd.RefreshFromRemote(ctx, tx); err != nil {
		return err
	}
	if err := lifetime.Update(ctx, tx); err != nil {
		return err
	}
	// Commit 失败时事务已结束，不再回滚
	committed = true
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit refresh: %w", err)
	}
	return nil
}
