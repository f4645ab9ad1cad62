package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/dispute-backend/internal/models"
	"github.com/ignatzorin/dispute-backend/internal/pkg/apperror"
	"github.com/ignatzorin/dispute-backend/internal/repository/common"
)

// OrderContextRepository читает заказы, которые ведёт сервис заказов.
type OrderContextRepository struct {
	db *sqlx.DB
}

// NewOrderContextRepository создаёт новый экземпляр.
func NewOrderContextRepository(db *sqlx.DB) *OrderContextRepository {
	return &OrderContextRepository{db: db}
}

// Resolve возвращает покупателя, продавца и статус заказа.
func (r *OrderContextRepository) Resolve(ctx context.Context, orderID int64) (*models.OrderContext, error) {
	var order models.OrderContext
	query := `
		SELECT id, buyer_id, seller_id, status
		FROM orders
		WHERE id = $1
	`
	if err := common.Executor(ctx, r.db).GetContext(ctx, &order, query, orderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrOrderNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to resolve order")
	}
	return &order, nil
}
