package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/dispute-backend/internal/logger"
	"github.com/ignatzorin/dispute-backend/internal/models"
	"github.com/ignatzorin/dispute-backend/internal/pkg/apperror"
	"github.com/ignatzorin/dispute-backend/internal/validation"
)

// EvidenceService хранилище доказательств сторон.
type EvidenceService struct {
	tx        Transactor
	disputes  DisputeRepository
	evidence  EvidenceRepository
	files     FileRemover
	publisher *Publisher
	now       func() time.Time
}

func NewEvidenceService(tx Transactor, disputes DisputeRepository, evidence EvidenceRepository, files FileRemover, publisher *Publisher) *EvidenceService {
	return &EvidenceService{
		tx:        tx,
		disputes:  disputes,
		evidence:  evidence,
		files:     files,
		publisher: publisher,
		now:       time.Now,
	}
}

// UploadEvidence прикрепляет доказательство к незавершённому спору.
func (s *EvidenceService) UploadEvidence(ctx context.Context, disputeID, uploaderID int64, item models.EvidenceItem) (*models.Evidence, error) {
	if !item.EvidenceType.IsValid() {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "unknown evidence type %q", item.EvidenceType)
	}
	item.FileURL = strings.TrimSpace(item.FileURL)
	if item.Stored {
		if err := validation.ValidateStoredPath(item.FileURL, disputeID); err != nil {
			return nil, invalid(err)
		}
	} else if err := validation.ValidateExternalLink(item.FileURL); err != nil {
		return nil, invalid(err)
	}
	if item.FileSize < 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "file size must not be negative")
	}
	fileName, err := validation.OptionalText("имя файла", item.FileName, validation.MaxFileNameLength)
	if err != nil {
		return nil, invalid(err)
	}
	description, err := validation.OptionalText("описание", item.Description, validation.MaxDescriptionLength)
	if err != nil {
		return nil, invalid(err)
	}

	var (
		d        *models.Dispute
		evidence *models.Evidence
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		d, err = s.disputes.GetByIDForUpdate(ctx, disputeID)
		if err != nil {
			return err
		}
		role, ok := models.PartyRoleOf(d, uploaderID)
		if !ok {
			return apperror.ErrNotParticipant
		}
		if d.Status.IsTerminal() {
			return apperror.Newf(apperror.ErrCodeInvalidState, "dispute is %s", d.Status)
		}

		evidence = &models.Evidence{
			DisputeID:    d.ID,
			UploaderID:   uploaderID,
			UploaderRole: role,
			EvidenceType: item.EvidenceType,
			FileURL:      item.FileURL,
			FileName:     fileName,
			FileSize:     item.FileSize,
			Description:  description,
			Stored:       item.Stored,
		}
		if item.Checksum != "" {
			evidence.Checksum = &item.Checksum
		}
		return s.evidence.Create(ctx, evidence)
	})
	if err != nil {
		return nil, err
	}

	fx := &effects{}
	fx.notify(models.NotificationRequest{
		UserID:      models.Counterpart(d, uploaderID),
		Type:        models.NotificationEvidenceUploaded,
		Title:       "Новое доказательство по спору",
		Body:        evidence.FileName,
		RelatedID:   evidence.ID,
		RelatedType: models.RelatedTypeEvidence,
		Link:        disputeLink(d),
	})
	if d.ArbitratorID != nil {
		fx.notify(models.NotificationRequest{
			UserID:      *d.ArbitratorID,
			Type:        models.NotificationEvidenceUploaded,
			Title:       "Новое доказательство по делу",
			Body:        evidence.FileName,
			RelatedID:   evidence.ID,
			RelatedType: models.RelatedTypeEvidence,
			Link:        disputeLink(d),
		})
	}
	s.publisher.publish(ctx, fx)

	return evidence, nil
}

// GetEvidence возвращает доказательство по идентификатору.
func (s *EvidenceService) GetEvidence(ctx context.Context, evidenceID int64) (*models.Evidence, error) {
	return s.evidence.GetByID(ctx, evidenceID)
}

// GetDisputeEvidence возвращает доказательства обеих сторон.
func (s *EvidenceService) GetDisputeEvidence(ctx context.Context, disputeID int64) ([]models.Evidence, error) {
	return s.listByRole(ctx, disputeID, "")
}

func (s *EvidenceService) GetBuyerEvidence(ctx context.Context, disputeID int64) ([]models.Evidence, error) {
	return s.listByRole(ctx, disputeID, models.PartyRoleBuyer)
}

func (s *EvidenceService) GetSellerEvidence(ctx context.Context, disputeID int64) ([]models.Evidence, error) {
	return s.listByRole(ctx, disputeID, models.PartyRoleSeller)
}

func (s *EvidenceService) listByRole(ctx context.Context, disputeID int64, role models.PartyRole) ([]models.Evidence, error) {
	if _, err := s.disputes.GetByID(ctx, disputeID); err != nil {
		return nil, err
	}
	return s.evidence.ListByDispute(ctx, disputeID, role)
}

// EvaluateEvidence фиксирует оценку арбитра. Повторная оценка запрещена.
func (s *EvidenceService) EvaluateEvidence(ctx context.Context, evidenceID int64, validity models.Validity, reason string, evaluatorID int64) (*models.Evidence, error) {
	if !validity.IsValid() {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "unknown validity %q", validity)
	}
	reason, err := validation.OptionalText("обоснование", reason, validation.MaxReasonLength)
	if err != nil {
		return nil, invalid(err)
	}

	var evidence *models.Evidence
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		evidence, err = s.evidence.GetByIDForUpdate(ctx, evidenceID)
		if err != nil {
			return err
		}
		if evidence.IsEvaluated() {
			return apperror.ErrEvidenceEvaluated
		}

		now := s.now()
		evidence.Validity = &validity
		evidence.EvaluatedBy = &evaluatorID
		evidence.EvaluatedAt = &now
		if reason != "" {
			evidence.ValidityReason = &reason
		}
		return s.evidence.SaveEvaluation(ctx, evidence)
	})
	if err != nil {
		return nil, err
	}

	fx := &effects{}
	fx.record(models.AuditEntry{
		OperatorID: evaluatorID,
		Action:     models.AuditActionEvidenceEvaluate,
		EntityType: models.RelatedTypeEvidence,
		EntityID:   evidence.ID,
		AfterState: statusJSON(string(validity)),
	})
	s.publisher.publish(ctx, fx)

	return evidence, nil
}

// GetEvidenceSummary считает доказательства спора по сторонам и оценкам.
func (s *EvidenceService) GetEvidenceSummary(ctx context.Context, disputeID int64) (*models.EvidenceSummary, error) {
	if _, err := s.disputes.GetByID(ctx, disputeID); err != nil {
		return nil, err
	}
	return s.evidence.Summary(ctx, disputeID)
}

// DeleteEvidence удаляет неоценённое доказательство по запросу загрузившего.
func (s *EvidenceService) DeleteEvidence(ctx context.Context, evidenceID, requesterID int64) error {
	var evidence *models.Evidence
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		evidence, err = s.evidence.GetByIDForUpdate(ctx, evidenceID)
		if err != nil {
			return err
		}
		if evidence.UploaderID != requesterID {
			return apperror.ErrNotUploader
		}
		if evidence.IsEvaluated() {
			return apperror.ErrEvaluatedUndeletable
		}
		return s.evidence.Delete(ctx, evidence.ID)
	})
	if err != nil {
		return err
	}

	// Внешние ссылки не трогаем: удаляется только файл, сохранённый для этой записи.
	if s.files != nil && evidence.Stored {
		if err := s.files.Remove(evidence.FileURL); err != nil {
			logger.Log.WithError(err).WithFields(logrus.Fields{
				"evidence_id": evidence.ID,
				"file_url":    evidence.FileURL,
			}).Warn("failed to remove evidence file")
		}
	}

	fx := &effects{}
	fx.record(models.AuditEntry{
		OperatorID: requesterID,
		Action:     models.AuditActionEvidenceDelete,
		EntityType: models.RelatedTypeEvidence,
		EntityID:   evidence.ID,
	})
	s.publisher.publish(ctx, fx)

	return nil
}
