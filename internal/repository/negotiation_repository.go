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

const constraintPendingProposal = "uq_negotiation_pending_proposal"

const messageColumns = `
	id, dispute_id, sender_id, sender_role, message_type, content, proposed_refund_amount,
	proposal_status, responded_by, responded_at, response_note, created_at`

// NegotiationRepository журнал переговоров по спору.
type NegotiationRepository struct {
	db *sqlx.DB
}

func NewNegotiationRepository(db *sqlx.DB) *NegotiationRepository {
	return &NegotiationRepository{db: db}
}

// Create добавляет сообщение. Второе ожидающее предложение отсекается индексом
// uq_negotiation_pending_proposal.
func (r *NegotiationRepository) Create(ctx context.Context, m *models.NegotiationMessage) error {
	query := `
		INSERT INTO negotiation_messages (dispute_id, sender_id, sender_role, message_type, content,
			proposed_refund_amount, proposal_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := common.Executor(ctx, r.db).QueryRowxContext(ctx, query,
		m.DisputeID, m.SenderID, m.SenderRole, m.MessageType, m.Content,
		m.ProposedRefundAmount, m.ProposalStatus,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		if mapped := common.MapUniqueViolation(err, constraintPendingProposal, apperror.ErrPendingProposal); mapped != err {
			return mapped
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to create negotiation message")
	}
	return nil
}

func (r *NegotiationRepository) GetByID(ctx context.Context, id int64) (*models.NegotiationMessage, error) {
	return r.getOne(ctx, `SELECT `+messageColumns+` FROM negotiation_messages WHERE id = $1`, id)
}

func (r *NegotiationRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.NegotiationMessage, error) {
	return r.getOne(ctx, `SELECT `+messageColumns+` FROM negotiation_messages WHERE id = $1 FOR UPDATE`, id)
}

// FindProposal возвращает последнее предложение спора с указанным статусом.
func (r *NegotiationRepository) FindProposal(ctx context.Context, disputeID int64, status models.ProposalStatus) (*models.NegotiationMessage, error) {
	return r.getOne(ctx, `
		SELECT `+messageColumns+` FROM negotiation_messages
		WHERE dispute_id = $1 AND message_type = 'PROPOSAL' AND proposal_status = $2
		ORDER BY created_at DESC, id DESC LIMIT 1
	`, disputeID, status)
}

func (r *NegotiationRepository) getOne(ctx context.Context, query string, args ...interface{}) (*models.NegotiationMessage, error) {
	var m models.NegotiationMessage
	if err := common.Executor(ctx, r.db).GetContext(ctx, &m, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrProposalNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to load negotiation message")
	}
	return &m, nil
}

// ListByDispute возвращает историю переговоров в порядке создания.
func (r *NegotiationRepository) ListByDispute(ctx context.Context, disputeID int64) ([]models.NegotiationMessage, error) {
	messages := make([]models.NegotiationMessage, 0)
	err := common.Executor(ctx, r.db).SelectContext(ctx, &messages, `
		SELECT `+messageColumns+` FROM negotiation_messages
		WHERE dispute_id = $1
		ORDER BY created_at ASC, id ASC
	`, disputeID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to load negotiation history")
	}
	return messages, nil
}

// SaveResponse фиксирует ответ на предложение. Ответ записывается только один раз.
func (r *NegotiationRepository) SaveResponse(ctx context.Context, m *models.NegotiationMessage) error {
	result, err := common.Executor(ctx, r.db).ExecContext(ctx, `
		UPDATE negotiation_messages
		SET proposal_status = $2, responded_by = $3, responded_at = $4, response_note = $5
		WHERE id = $1 AND proposal_status = 'PENDING'
	`, m.ID, m.ProposalStatus, m.RespondedBy, m.RespondedAt, m.ResponseNote)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to save proposal response")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to save proposal response")
	}
	if rowsAffected == 0 {
		return apperror.ErrProposalAnswered
	}
	return nil
}
