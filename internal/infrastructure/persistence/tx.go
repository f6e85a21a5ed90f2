package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

type txKey struct{}

// TxManager открывает транзакции sqlx и кладёт их в контекст.
// Адаптеры репозиториев берут исполнителя запросов из контекста.
type TxManager struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewTxManager создаёт менеджер транзакций. timeout ограничивает длительность одной транзакции.
func NewTxManager(db *sqlx.DB, timeout time.Duration) *TxManager {
	return &TxManager{db: db, timeout: timeout}
}

// WithinTx выполняет fn внутри транзакции с правильной обработкой ошибок.
// Если транзакция уже открыта в ctx, fn выполняется в ней.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return storeError(fmt.Errorf("begin transaction: %w", err), "не удалось начать транзакцию")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return storeError(fmt.Errorf("commit transaction: %w", err), "не удалось зафиксировать транзакцию")
	}
	return nil
}

// executor возвращает текущую транзакцию из контекста или пул соединений.
func executor(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}
