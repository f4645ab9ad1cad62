package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/dispute-backend/internal/models"
	"github.com/ignatzorin/dispute-backend/internal/pkg/apperror"
	"github.com/ignatzorin/dispute-backend/internal/repository/common"
)

// AuditRepository журнал переходов, только добавление.
type AuditRepository struct {
	db *sqlx.DB
}

func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, entry *models.AuditEntry) error {
	query := `
		INSERT INTO audit_logs (operator_id, action, entity_type, entity_id, before_state, after_state)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := common.Executor(ctx, r.db).QueryRowxContext(ctx, query,
		entry.OperatorID, entry.Action, entry.EntityType, entry.EntityID,
		nullableJSON(entry.BeforeState), nullableJSON(entry.AfterState),
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to write audit entry")
	}
	return nil
}

// ListByEntity возвращает историю сущности в хронологическом порядке.
func (r *AuditRepository) ListByEntity(ctx context.Context, entityType string, entityID int64) ([]models.AuditEntry, error) {
	entries := make([]models.AuditEntry, 0)
	err := common.Executor(ctx, r.db).SelectContext(ctx, &entries, `
		SELECT * FROM audit_logs WHERE entity_type = $1 AND entity_id = $2 ORDER BY created_at ASC, id ASC
	`, entityType, entityID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to load audit trail")
	}
	return entries, nil
}

func nullableJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
