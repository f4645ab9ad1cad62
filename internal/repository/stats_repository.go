package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/dispute-backend/internal/models"
	"github.com/ignatzorin/dispute-backend/internal/pkg/apperror"
)

// StatsRepository считает агрегаты для панели администратора.
type StatsRepository struct {
	db *sqlx.DB
}

func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

func (r *StatsRepository) CountByStatus(ctx context.Context) ([]models.CountRow, error) {
	return r.countRows(ctx, `SELECT status AS key, COUNT(*) AS count FROM disputes GROUP BY status`)
}

func (r *StatsRepository) CountByType(ctx context.Context) ([]models.CountRow, error) {
	return r.countRows(ctx, `SELECT dispute_type AS key, COUNT(*) AS count FROM disputes GROUP BY dispute_type`)
}

func (r *StatsRepository) CountByResult(ctx context.Context) ([]models.CountRow, error) {
	return r.countRows(ctx, `SELECT result AS key, COUNT(*) AS count FROM arbitrations GROUP BY result`)
}

func (r *StatsRepository) CountPendingExecutions(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM arbitrations WHERE executed = FALSE`); err != nil {
		return 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to count pending executions")
	}
	return count, nil
}

func (r *StatsRepository) countRows(ctx context.Context, query string) ([]models.CountRow, error) {
	rows := make([]models.CountRow, 0)
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to aggregate disputes")
	}
	return rows, nil
}
