package common

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/dispute-backend/internal/logger"
	"github.com/ignatzorin/dispute-backend/internal/pkg/apperror"
)

// DBTX общее подмножество *sqlx.DB и *sqlx.Tx, которым пользуются репозитории.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
}

type txKey struct{}

// Executor возвращает транзакцию из контекста, если она открыта, иначе соединение.
func Executor(ctx context.Context, db *sqlx.DB) DBTX {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}

// GetByID - универсальная функция для получения сущности по ID
func GetByID[T any](ctx context.Context, db DBTX, table string, id int64, notFoundErr error) (*T, error) {
	return getOne[T](ctx, db, fmt.Sprintf("SELECT * FROM %s WHERE id = $1", table), table, id, notFoundErr)
}

// GetByIDForUpdate читает строку с блокировкой до конца транзакции.
func GetByIDForUpdate[T any](ctx context.Context, db DBTX, table string, id int64, notFoundErr error) (*T, error) {
	return getOne[T](ctx, db, fmt.Sprintf("SELECT * FROM %s WHERE id = $1 FOR UPDATE", table), table, id, notFoundErr)
}

func getOne[T any](ctx context.Context, db DBTX, query, table string, id int64, notFoundErr error) (*T, error) {
	var entity T
	if err := db.GetContext(ctx, &entity, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundErr
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "get by id from "+table)
	}
	return &entity, nil
}

// Transactor открывает транзакции и передаёт их репозиториям через контекст.
type Transactor struct {
	db        *sqlx.DB
	isolation sql.IsolationLevel
}

// NewTransactor создаёт транзакционный менеджер с уровнем READ COMMITTED:
// строки спора блокируются явно, а инварианты держат уникальные индексы.
func NewTransactor(db *sqlx.DB) *Transactor {
	return &Transactor{db: db, isolation: sql.LevelReadCommitted}
}

// WithinTransaction выполняет функцию внутри транзакции с правильной обработкой ошибок.
// Вложенный вызов присоединяется к уже открытой транзакции.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.db.BeginTxx(ctx, &sql.TxOptions{Isolation: t.isolation})
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Log.WithError(rbErr).Error("rollback transaction")
		}
		if apperror.CodeOf(err) == "" {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "transaction failed")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "commit transaction")
	}

	return nil
}
