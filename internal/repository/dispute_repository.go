package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/dispute-backend/internal/models"
	"github.com/ignatzorin/dispute-backend/internal/pkg/apperror"
	"github.com/ignatzorin/dispute-backend/internal/repository/common"
)

const constraintActiveDispute = "uq_disputes_active_order"

const disputeColumns = `
	id, code, order_id, initiator_id, initiator_role, respondent_id, dispute_type, description,
	status, negotiation_deadline, arbitration_deadline, arbitrator_id, close_reason,
	closed_at, completed_at, created_at, updated_at`

// DisputeRepository хранит споры.
type DisputeRepository struct {
	db *sqlx.DB
}

func NewDisputeRepository(db *sqlx.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

// NextCodeSequence выдаёт следующий номер для кода спора.
func (r *DisputeRepository) NextCodeSequence(ctx context.Context) (int64, error) {
	var seq int64
	if err := common.Executor(ctx, r.db).GetContext(ctx, &seq, `SELECT nextval('dispute_code_seq')`); err != nil {
		return 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to allocate dispute code")
	}
	return seq, nil
}

// Create сохраняет спор. Второй активный спор по заказу отсекается индексом uq_disputes_active_order.
func (r *DisputeRepository) Create(ctx context.Context, d *models.Dispute) error {
	query := `
		INSERT INTO disputes (code, order_id, initiator_id, initiator_role, respondent_id, dispute_type,
			description, status, negotiation_deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	err := common.Executor(ctx, r.db).QueryRowxContext(ctx, query,
		d.Code, d.OrderID, d.InitiatorID, d.InitiatorRole, d.RespondentID, d.DisputeType,
		d.Description, d.Status, d.NegotiationDeadline,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if mapped := common.MapUniqueViolation(err, constraintActiveDispute, apperror.ErrActiveDisputeExists); mapped != err {
			return mapped
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to create dispute")
	}
	return nil
}

func (r *DisputeRepository) GetByID(ctx context.Context, id int64) (*models.Dispute, error) {
	return r.getOne(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE id = $1`, id)
}

// GetByIDForUpdate блокирует строку спора до конца текущей транзакции.
func (r *DisputeRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Dispute, error) {
	return r.getOne(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE id = $1 FOR UPDATE`, id)
}

func (r *DisputeRepository) getOne(ctx context.Context, query string, args ...interface{}) (*models.Dispute, error) {
	var d models.Dispute
	if err := common.Executor(ctx, r.db).GetContext(ctx, &d, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrDisputeNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to load dispute")
	}
	return &d, nil
}

// FindActiveByOrderID возвращает незакрытый спор по заказу или nil.
func (r *DisputeRepository) FindActiveByOrderID(ctx context.Context, orderID int64) (*models.Dispute, error) {
	d, err := r.getOne(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE order_id = $1 AND status <> 'CLOSED'`, orderID)
	if errors.Is(err, apperror.ErrDisputeNotFound) {
		return nil, nil
	}
	return d, err
}

// Update сохраняет изменяемые поля спора.
func (r *DisputeRepository) Update(ctx context.Context, d *models.Dispute) error {
	query := `
		UPDATE disputes SET status = $2, arbitration_deadline = $3, arbitrator_id = $4,
			close_reason = $5, closed_at = $6, completed_at = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := common.Executor(ctx, r.db).QueryRowxContext(ctx, query,
		d.ID, d.Status, d.ArbitrationDeadline, d.ArbitratorID, d.CloseReason, d.ClosedAt, d.CompletedAt,
	).Scan(&d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.ErrDisputeNotFound
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to update dispute")
	}
	return nil
}

// ListByUser возвращает споры, где пользователь инициатор или ответчик.
func (r *DisputeRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]models.Dispute, error) {
	disputes := make([]models.Dispute, 0)
	err := common.Executor(ctx, r.db).SelectContext(ctx, &disputes, `
		SELECT `+disputeColumns+` FROM disputes
		WHERE initiator_id = $1 OR respondent_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to list disputes")
	}
	return disputes, nil
}

// ListByArbitrator возвращает дела, назначенные арбитру.
func (r *DisputeRepository) ListByArbitrator(ctx context.Context, arbitratorID int64) ([]models.Dispute, error) {
	disputes := make([]models.Dispute, 0)
	err := common.Executor(ctx, r.db).SelectContext(ctx, &disputes, `
		SELECT `+disputeColumns+` FROM disputes
		WHERE arbitrator_id = $1
		ORDER BY created_at DESC, id DESC
	`, arbitratorID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to list arbitrator cases")
	}
	return disputes, nil
}

// LockExpiredNegotiations выбирает просроченные переговоры. Строки, уже заблокированные
// пользовательскими операциями, пропускаются и попадут в следующий проход.
func (r *DisputeRepository) LockExpiredNegotiations(ctx context.Context, now time.Time) ([]models.Dispute, error) {
	disputes := make([]models.Dispute, 0)
	err := common.Executor(ctx, r.db).SelectContext(ctx, &disputes, `
		SELECT `+disputeColumns+` FROM disputes
		WHERE status = 'NEGOTIATING' AND negotiation_deadline < $1
		ORDER BY id
		FOR UPDATE SKIP LOCKED
	`, now)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to select expired negotiations")
	}
	return disputes, nil
}

// EscalateBatch переводит выбранные споры в ожидание арбитража одним запросом.
func (r *DisputeRepository) EscalateBatch(ctx context.Context, ids []int64, deadline time.Time) ([]models.Dispute, error) {
	disputes := make([]models.Dispute, 0, len(ids))
	err := common.Executor(ctx, r.db).SelectContext(ctx, &disputes, `
		UPDATE disputes SET status = 'PENDING_ARBITRATION', arbitration_deadline = $2, updated_at = NOW()
		WHERE id = ANY($1) AND status = 'NEGOTIATING'
		RETURNING `+disputeColumns,
		pq.Array(ids), deadline)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to escalate expired negotiations")
	}
	return disputes, nil
}

// LockExpiredArbitrations выбирает арбитражи с истёкшим сроком и без решения.
func (r *DisputeRepository) LockExpiredArbitrations(ctx context.Context, now time.Time) ([]models.Dispute, error) {
	disputes := make([]models.Dispute, 0)
	err := common.Executor(ctx, r.db).SelectContext(ctx, &disputes, `
		SELECT `+disputeColumns+` FROM disputes d
		WHERE d.status = 'ARBITRATING' AND d.arbitration_deadline < $1
		  AND NOT EXISTS (SELECT 1 FROM arbitrations a WHERE a.dispute_id = d.id)
		ORDER BY d.id
		FOR UPDATE SKIP LOCKED
	`, now)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to select expired arbitrations")
	}
	return disputes, nil
}

// CloseBatch закрывает выбранные арбитражи одним запросом.
func (r *DisputeRepository) CloseBatch(ctx context.Context, ids []int64, reason string, closedAt time.Time) ([]models.Dispute, error) {
	disputes := make([]models.Dispute, 0, len(ids))
	err := common.Executor(ctx, r.db).SelectContext(ctx, &disputes, `
		UPDATE disputes d SET status = 'CLOSED', close_reason = $2, closed_at = $3, updated_at = NOW()
		WHERE d.id = ANY($1) AND d.status = 'ARBITRATING'
		  AND NOT EXISTS (SELECT 1 FROM arbitrations a WHERE a.dispute_id = d.id)
		RETURNING `+disputeColumns,
		pq.Array(ids), reason, closedAt)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to close expired arbitrations")
	}
	return disputes, nil
}
