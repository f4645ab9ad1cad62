package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/dispute-backend/internal/models"
	"github.com/ignatzorin/dispute-backend/internal/pkg/apperror"
	"github.com/ignatzorin/dispute-backend/internal/repository/common"
)

const constraintEvidenceStoredFile = "uq_evidence_stored_file"

// EvidenceRepository хранит доказательства по спорам.
type EvidenceRepository struct {
	db *sqlx.DB
}

func NewEvidenceRepository(db *sqlx.DB) *EvidenceRepository {
	return &EvidenceRepository{db: db}
}

func (r *EvidenceRepository) Create(ctx context.Context, e *models.Evidence) error {
	query := `
		INSERT INTO evidence (dispute_id, uploader_id, uploader_role, evidence_type, file_url,
			file_name, file_size, description, checksum, stored)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`
	err := common.Executor(ctx, r.db).QueryRowxContext(ctx, query,
		e.DisputeID, e.UploaderID, e.UploaderRole, e.EvidenceType, e.FileURL,
		e.FileName, e.FileSize, e.Description, e.Checksum, e.Stored,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		if mapped := common.MapUniqueViolation(err, constraintEvidenceStoredFile, apperror.ErrEvidenceFileAttached); mapped != err {
			return mapped
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to create evidence")
	}
	return nil
}

func (r *EvidenceRepository) GetByID(ctx context.Context, id int64) (*models.Evidence, error) {
	return common.GetByID[models.Evidence](ctx, common.Executor(ctx, r.db), "evidence", id, apperror.ErrEvidenceNotFound)
}

func (r *EvidenceRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Evidence, error) {
	return common.GetByIDForUpdate[models.Evidence](ctx, common.Executor(ctx, r.db), "evidence", id, apperror.ErrEvidenceNotFound)
}

// ListByDispute возвращает доказательства спора; role == "" означает обе стороны.
func (r *EvidenceRepository) ListByDispute(ctx context.Context, disputeID int64, role models.PartyRole) ([]models.Evidence, error) {
	query := `SELECT * FROM evidence WHERE dispute_id = $1`
	args := []interface{}{disputeID}
	if role != "" {
		query += ` AND uploader_role = $2`
		args = append(args, role)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	items := make([]models.Evidence, 0)
	if err := common.Executor(ctx, r.db).SelectContext(ctx, &items, query, args...); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to list evidence")
	}
	return items, nil
}

// SaveEvaluation записывает оценку. Уже оценённое доказательство не меняется.
func (r *EvidenceRepository) SaveEvaluation(ctx context.Context, e *models.Evidence) error {
	result, err := common.Executor(ctx, r.db).ExecContext(ctx, `
		UPDATE evidence SET validity = $2, validity_reason = $3, evaluated_by = $4, evaluated_at = $5
		WHERE id = $1 AND validity IS NULL
	`, e.ID, e.Validity, e.ValidityReason, e.EvaluatedBy, e.EvaluatedAt)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to evaluate evidence")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to evaluate evidence")
	}
	if rowsAffected == 0 {
		return apperror.ErrEvidenceEvaluated
	}
	return nil
}

// Delete удаляет ещё не оценённое доказательство.
func (r *EvidenceRepository) Delete(ctx context.Context, id int64) error {
	result, err := common.Executor(ctx, r.db).ExecContext(ctx, `DELETE FROM evidence WHERE id = $1 AND validity IS NULL`, id)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to delete evidence")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to delete evidence")
	}
	if rowsAffected == 0 {
		return apperror.ErrEvaluatedUndeletable
	}
	return nil
}

// Summary считает доказательства по сторонам и оценкам.
func (r *EvidenceRepository) Summary(ctx context.Context, disputeID int64) (*models.EvidenceSummary, error) {
	summary := models.EvidenceSummary{DisputeID: disputeID}
	err := common.Executor(ctx, r.db).QueryRowxContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE uploader_role = 'BUYER'),
			COUNT(*) FILTER (WHERE uploader_role = 'SELLER'),
			COUNT(*) FILTER (WHERE validity = 'VALID'),
			COUNT(*) FILTER (WHERE validity = 'INVALID'),
			COUNT(*) FILTER (WHERE validity = 'DOUBTFUL'),
			COUNT(*) FILTER (WHERE validity IS NULL)
		FROM evidence WHERE dispute_id = $1
	`, disputeID).Scan(
		&summary.Total, &summary.Buyer, &summary.Seller,
		&summary.Valid, &summary.Invalid, &summary.Doubtful, &summary.Unevaluated,
	)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "failed to summarize evidence")
	}
	return &summary, nil
}
