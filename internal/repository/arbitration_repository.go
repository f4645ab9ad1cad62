package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/dispute-backend/internal/models"
	"github.com/ignatzorin/dispute-backend/internal/pkg/apperror"
	"github.com/ignatzorin/dispute-backend/internal/repository/common"
)

const constraintArbitrationDispute = "uq_arbitrations_dispute"

// ArbitrationRepository хранит решения арбитров.
type ArbitrationRepository struct {
	db *sqlx.DB
}

func NewArbitrationRepository(db *sqlx.DB) *ArbitrationRepository {
	return &ArbitrationRepository{db: db}
}

// Create сохраняет решение. Второе решение по спору отсекается индексом uq_arbitrations_dispute.
func (r *ArbitrationRepository) Create(ctx context.Context, a *models.Arbitration) error {
	query := `
		INSERT INTO arbitrations (dispute_id, arbitrator_id, result, refund_amount, reason,
			buyer_evidence_analysis, seller_evidence_analysis, arbitrated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, executed, created_at
	`
	err := common.Executor(ctx, r.db).QueryRowxContext(ctx, query,
		a.DisputeID, a.ArbitratorID, a.Result, a.RefundAmount, a.Reason,
		a.BuyerEvidenceAnalysis, a.SellerEvidenceAnalysis, a.ArbitratedAt,
	).Scan(&a.ID, &a.Executed, &a.CreatedAt)
	if err != nil {
		if mapped := common.MapUniqueViolation(err, constraintArbitrationDispute, apperror.ErrArbitrationExists); mapped != err {
			return mapped
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to create arbitration")
	}
	return nil
}

func (r *ArbitrationRepository) GetByID(ctx context.Context, id int64) (*models.Arbitration, error) {
	return common.GetByID[models.Arbitration](ctx, common.Executor(ctx, r.db), "arbitrations", id, apperror.ErrArbitrationNotFound)
}

// FindByDisputeID возвращает решение по спору или nil, если его нет.
func (r *ArbitrationRepository) FindByDisputeID(ctx context.Context, disputeID int64) (*models.Arbitration, error) {
	var a models.Arbitration
	err := common.Executor(ctx, r.db).GetContext(ctx, &a, `SELECT * FROM arbitrations WHERE dispute_id = $1`, disputeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to load arbitration")
	}
	return &a, nil
}

// ListPendingExecutions возвращает решения, по которым ещё не проведены выплаты.
func (r *ArbitrationRepository) ListPendingExecutions(ctx context.Context) ([]models.Arbitration, error) {
	items := make([]models.Arbitration, 0)
	err := common.Executor(ctx, r.db).SelectContext(ctx, &items, `
		SELECT * FROM arbitrations WHERE executed = FALSE ORDER BY arbitrated_at ASC, id ASC
	`)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to list pending executions")
	}
	return items, nil
}

// MarkExecuted отмечает выплату. Повторная отметка не проходит.
func (r *ArbitrationRepository) MarkExecuted(ctx context.Context, id int64, note string, executedAt time.Time) error {
	result, err := common.Executor(ctx, r.db).ExecContext(ctx, `
		UPDATE arbitrations SET executed = TRUE, executed_at = $2, execution_note = $3
		WHERE id = $1 AND executed = FALSE
	`, id, executedAt, note)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to mark arbitration executed")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to mark arbitration executed")
	}
	if rowsAffected == 0 {
		return apperror.ErrAlreadyExecuted
	}
	return nil
}
