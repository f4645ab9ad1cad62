package service

import (
	"context"
	"time"

	"github.com/ignatzorin/dispute-backend/internal/logger"
	"github.com/ignatzorin/dispute-backend/internal/models"
	"github.com/ignatzorin/dispute-backend/internal/pkg/apperror"
	"github.com/ignatzorin/dispute-backend/internal/validation"
)

// SubmitArbitrationInput решение арбитра по спору.
type SubmitArbitrationInput struct {
	DisputeID              int64
	ArbitratorID           int64
	Result                 models.ArbitrationResult
	RefundAmount           *float64
	Reason                 string
	BuyerEvidenceAnalysis  string
	SellerEvidenceAnalysis string
}

// ArbitrationService назначение арбитров, решения и учёт их исполнения.
type ArbitrationService struct {
	tx           Transactor
	disputes     DisputeRepository
	arbitrations ArbitrationRepository
	publisher    *Publisher
	windows      Windows
	now          func() time.Time
}

func NewArbitrationService(tx Transactor, disputes DisputeRepository, arbitrations ArbitrationRepository, publisher *Publisher, windows Windows) *ArbitrationService {
	return &ArbitrationService{
		tx:           tx,
		disputes:     disputes,
		arbitrations: arbitrations,
		publisher:    publisher,
		windows:      windows,
		now:          time.Now,
	}
}

// AssignArbitrator назначает арбитра и открывает новый срок арбитража.
func (s *ArbitrationService) AssignArbitrator(ctx context.Context, disputeID, arbitratorID, operatorID int64) (*models.Dispute, error) {
	if arbitratorID <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "arbitrator id is required")
	}

	var d *models.Dispute
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		d, err = s.disputes.GetByIDForUpdate(ctx, disputeID)
		if err != nil {
			return err
		}
		if d.ArbitratorID != nil {
			return apperror.ErrArbitratorAssigned
		}
		if d.Status != models.DisputeStatusPendingArbitration {
			return apperror.Newf(apperror.ErrCodeInvalidState, "cannot assign arbitrator in status %s", d.Status)
		}
		if models.RoleOf(d, arbitratorID) != models.ParticipantNone {
			return apperror.New(apperror.ErrCodeValidation, "a party cannot arbitrate its own dispute")
		}

		deadline := s.now().Add(s.windows.Arbitration)
		d.Status = models.DisputeStatusArbitrating
		d.ArbitratorID = &arbitratorID
		d.ArbitrationDeadline = &deadline
		return s.disputes.Update(ctx, d)
	})
	if err != nil {
		return nil, err
	}

	logger.Dispute(d.ID, d.Code).WithField("arbitrator_id", arbitratorID).Info("arbitrator assigned")

	fx := &effects{}
	fx.transition(operatorID, models.AuditActionAssignArbitrator, d, models.DisputeStatusPendingArbitration)
	for _, userID := range append(d.Participants(), arbitratorID) {
		fx.notify(disputeNotification(userID, models.NotificationArbitratorAssigned, "Назначен арбитр", d))
	}
	s.publisher.publish(ctx, fx)

	return d, nil
}

// SubmitArbitration сохраняет обязательное решение и завершает спор.
func (s *ArbitrationService) SubmitArbitration(ctx context.Context, in SubmitArbitrationInput) (*models.Arbitration, error) {
	if !in.Result.IsValid() {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "unknown arbitration result %q", in.Result)
	}
	reason, err := validation.RequiredText("обоснование решения", in.Reason, validation.MaxReasonLength)
	if err != nil {
		return nil, invalid(err)
	}
	buyerAnalysis, err := validation.OptionalText("анализ доказательств покупателя", in.BuyerEvidenceAnalysis, validation.MaxDescriptionLength)
	if err != nil {
		return nil, invalid(err)
	}
	sellerAnalysis, err := validation.OptionalText("анализ доказательств продавца", in.SellerEvidenceAnalysis, validation.MaxDescriptionLength)
	if err != nil {
		return nil, invalid(err)
	}

	var (
		d           *models.Dispute
		arbitration *models.Arbitration
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		d, err = s.disputes.GetByIDForUpdate(ctx, in.DisputeID)
		if err != nil {
			return err
		}

		existing, err := s.arbitrations.FindByDisputeID(ctx, d.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperror.ErrArbitrationExists
		}
		if d.Status != models.DisputeStatusArbitrating {
			return apperror.Newf(apperror.ErrCodeInvalidState, "cannot arbitrate dispute in status %s", d.Status)
		}
		if d.ArbitratorID == nil || *d.ArbitratorID != in.ArbitratorID {
			return apperror.ErrNotArbitrator
		}

		refund := in.RefundAmount
		if in.Result.RequiresRefund() {
			if refund == nil {
				return apperror.New(apperror.ErrCodeValidation, "refund amount is required")
			}
			if err := validation.ValidateAmount("сумма возврата", *refund); err != nil {
				return invalid(err)
			}
		} else {
			refund = nil
		}

		now := s.now()
		arbitration = &models.Arbitration{
			DisputeID:              d.ID,
			ArbitratorID:           in.ArbitratorID,
			Result:                 in.Result,
			RefundAmount:           refund,
			Reason:                 reason,
			BuyerEvidenceAnalysis:  buyerAnalysis,
			SellerEvidenceAnalysis: sellerAnalysis,
			ArbitratedAt:           now,
		}
		if err := s.arbitrations.Create(ctx, arbitration); err != nil {
			return err
		}

		d.Status = models.DisputeStatusCompleted
		d.CompletedAt = &now
		return s.disputes.Update(ctx, d)
	})
	if err != nil {
		return nil, err
	}

	logger.Dispute(d.ID, d.Code).WithField("result", arbitration.Result).Info("arbitration submitted")

	fx := &effects{}
	fx.transition(in.ArbitratorID, models.AuditActionVerdict, d, models.DisputeStatusArbitrating)
	for _, userID := range d.Participants() {
		fx.notify(models.NotificationRequest{
			UserID:      userID,
			Type:        models.NotificationArbitrationVerdict,
			Title:       "Вынесено решение по спору",
			Body:        string(arbitration.Result),
			RelatedID:   arbitration.ID,
			RelatedType: models.RelatedTypeArbitration,
			Link:        disputeLink(d),
		})
	}
	s.publisher.publish(ctx, fx)

	return arbitration, nil
}

// GetArbitrationDetail возвращает решение по спору.
func (s *ArbitrationService) GetArbitrationDetail(ctx context.Context, disputeID int64) (*models.Arbitration, error) {
	arbitration, err := s.arbitrations.FindByDisputeID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if arbitration == nil {
		return nil, apperror.ErrArbitrationNotFound
	}
	return arbitration, nil
}

// GetArbitratorCases возвращает споры, назначенные арбитру.
func (s *ArbitrationService) GetArbitratorCases(ctx context.Context, arbitratorID int64) ([]models.Dispute, error) {
	return s.disputes.ListByArbitrator(ctx, arbitratorID)
}

// GetPendingExecutions возвращает решения, ожидающие выплаты.
func (s *ArbitrationService) GetPendingExecutions(ctx context.Context) ([]models.Arbitration, error) {
	return s.arbitrations.ListPendingExecutions(ctx)
}

// MarkExecuted отмечает, что решение исполнено платёжной системой.
func (s *ArbitrationService) MarkExecuted(ctx context.Context, arbitrationID int64, note string, operatorID int64) (*models.Arbitration, error) {
	note, err := validation.OptionalText("комментарий", note, validation.MaxReasonLength)
	if err != nil {
		return nil, invalid(err)
	}

	var arbitration *models.Arbitration
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		arbitration, err = s.arbitrations.GetByID(ctx, arbitrationID)
		if err != nil {
			return err
		}
		if arbitration.Executed {
			return apperror.ErrAlreadyExecuted
		}

		now := s.now()
		if err := s.arbitrations.MarkExecuted(ctx, arbitration.ID, note, now); err != nil {
			return err
		}
		arbitration.Executed = true
		arbitration.ExecutedAt = &now
		arbitration.ExecutionNote = &note
		return nil
	})
	if err != nil {
		return nil, err
	}

	fx := &effects{}
	fx.record(models.AuditEntry{
		OperatorID: operatorID,
		Action:     models.AuditActionExecuted,
		EntityType: models.RelatedTypeArbitration,
		EntityID:   arbitration.ID,
		AfterState: statusJSON("EXECUTED"),
	})
	if d, err := s.disputes.GetByID(ctx, arbitration.DisputeID); err == nil {
		for _, userID := range d.Participants() {
			fx.notify(models.NotificationRequest{
				UserID:      userID,
				Type:        models.NotificationArbitrationExecuted,
				Title:       "Решение по спору исполнено",
				Body:        d.Code,
				RelatedID:   arbitration.ID,
				RelatedType: models.RelatedTypeArbitration,
				Link:        disputeLink(d),
			})
		}
	}
	s.publisher.publish(ctx, fx)

	return arbitration, nil
}
