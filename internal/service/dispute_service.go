package service

import (
	"context"
	"time"

	"github.com/ignatzorin/dispute-backend/internal/logger"
	"github.com/ignatzorin/dispute-backend/internal/models"
	"github.com/ignatzorin/dispute-backend/internal/pkg/apperror"
	"github.com/ignatzorin/dispute-backend/internal/validation"
)

// Windows задаёт сроки этапов спора.
type Windows struct {
	Negotiation time.Duration
	Arbitration time.Duration
}

// DefaultWindows: 48 часов на переговоры и 72 часа на арбитраж.
var DefaultWindows = Windows{
	Negotiation: 48 * time.Hour,
	Arbitration: 72 * time.Hour,
}

// SubmitDisputeInput данные для открытия спора.
type SubmitDisputeInput struct {
	OrderID     int64
	InitiatorID int64
	Type        models.DisputeType
	Description string
}

// DisputeService ведёт жизненный цикл спора.
type DisputeService struct {
	tx        Transactor
	disputes  DisputeRepository
	orders    OrderContext
	publisher *Publisher
	windows   Windows
	now       func() time.Time
}

func NewDisputeService(tx Transactor, disputes DisputeRepository, orders OrderContext, publisher *Publisher, windows Windows) *DisputeService {
	return &DisputeService{
		tx:        tx,
		disputes:  disputes,
		orders:    orders,
		publisher: publisher,
		windows:   windows,
		now:       time.Now,
	}
}

// SubmitDispute открывает спор по завершённому заказу.
func (s *DisputeService) SubmitDispute(ctx context.Context, in SubmitDisputeInput) (*models.Dispute, error) {
	if !in.Type.IsValid() {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "unknown dispute type %q", in.Type)
	}
	// Описание хранится как подано, пробелы учитываются только при проверке.
	if _, err := validation.RequiredText("описание", in.Description, validation.MaxDescriptionLength); err != nil {
		return nil, invalid(err)
	}

	order, err := s.orders.Resolve(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if !order.IsCompleted() {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "order is not completed")
	}

	var (
		initiatorRole models.PartyRole
		respondentID  int64
	)
	switch in.InitiatorID {
	case order.BuyerID:
		initiatorRole, respondentID = models.PartyRoleBuyer, order.SellerID
	case order.SellerID:
		initiatorRole, respondentID = models.PartyRoleSeller, order.BuyerID
	default:
		return nil, apperror.New(apperror.ErrCodeForbidden, "initiator is not a party of the order")
	}

	var d *models.Dispute
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.disputes.FindActiveByOrderID(ctx, in.OrderID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperror.ErrActiveDisputeExists
		}

		seq, err := s.disputes.NextCodeSequence(ctx)
		if err != nil {
			return err
		}

		now := s.now()
		d = &models.Dispute{
			Code:                models.FormatDisputeCode(now, seq),
			OrderID:             in.OrderID,
			InitiatorID:         in.InitiatorID,
			InitiatorRole:       initiatorRole,
			RespondentID:        respondentID,
			DisputeType:         in.Type,
			Description:         in.Description,
			Status:              models.DisputeStatusSubmitted,
			NegotiationDeadline: now.Add(s.windows.Negotiation),
		}
		return s.disputes.Create(ctx, d)
	})
	if err != nil {
		return nil, err
	}

	logger.Dispute(d.ID, d.Code).WithField("order_id", d.OrderID).Info("dispute submitted")

	fx := &effects{}
	fx.transition(in.InitiatorID, models.AuditActionSubmit, d, "")
	fx.notify(disputeNotification(d.RespondentID, models.NotificationDisputeSubmitted, "По вашему заказу открыт спор", d))
	s.publisher.publish(ctx, fx)

	return d, nil
}

// GetDisputeDetail возвращает спор по идентификатору.
func (s *DisputeService) GetDisputeDetail(ctx context.Context, id int64) (*models.Dispute, error) {
	return s.disputes.GetByID(ctx, id)
}

// ListUserDisputes возвращает споры пользователя, новые первыми.
func (s *DisputeService) ListUserDisputes(ctx context.Context, userID int64, limit, offset int) ([]models.Dispute, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.disputes.ListByUser(ctx, userID, limit, offset)
}

// EscalateToArbitration передаёт спор на арбитраж. Для спора, который уже
// ждёт арбитража или рассматривается, вызов ничего не меняет.
func (s *DisputeService) EscalateToArbitration(ctx context.Context, id, operatorID int64) (*models.Dispute, error) {
	var (
		d       *models.Dispute
		changed bool
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		d, err = s.disputes.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		switch d.Status {
		case models.DisputeStatusPendingArbitration, models.DisputeStatusArbitrating:
			return nil
		case models.DisputeStatusNegotiating:
		default:
			return apperror.Newf(apperror.ErrCodeInvalidState, "cannot escalate dispute in status %s", d.Status)
		}

		deadline := s.now().Add(s.windows.Arbitration)
		d.Status = models.DisputeStatusPendingArbitration
		d.ArbitrationDeadline = &deadline
		changed = true
		return s.disputes.Update(ctx, d)
	})
	if err != nil {
		return nil, err
	}

	if changed {
		fx := &effects{}
		fx.transition(operatorID, models.AuditActionEscalate, d, models.DisputeStatusNegotiating)
		for _, userID := range d.Participants() {
			fx.notify(disputeNotification(userID, models.NotificationDisputeEscalated, "Спор передан на арбитраж", d))
		}
		s.publisher.publish(ctx, fx)
	}

	return d, nil
}

// CloseDispute закрывает незавершённый спор с указанной причиной.
func (s *DisputeService) CloseDispute(ctx context.Context, id, operatorID int64, reason string) (*models.Dispute, error) {
	reason, err := validation.OptionalText("причина закрытия", reason, validation.MaxReasonLength)
	if err != nil {
		return nil, invalid(err)
	}
	if reason == "" {
		reason = models.CloseReasonManual
	}

	var (
		d      *models.Dispute
		before models.DisputeStatus
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		d, err = s.disputes.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		before = d.Status
		return s.closeLocked(ctx, d, reason)
	})
	if err != nil {
		return nil, err
	}

	fx := &effects{}
	fx.transition(operatorID, models.AuditActionClose, d, before)
	for _, userID := range d.Participants() {
		fx.notify(disputeNotification(userID, models.NotificationDisputeClosed, "Спор закрыт", d))
	}
	s.publisher.publish(ctx, fx)

	return d, nil
}

// closeLocked закрывает спор, строка которого уже заблокирована в текущей транзакции.
func (s *DisputeService) closeLocked(ctx context.Context, d *models.Dispute, reason string) error {
	if !d.Status.CanTransitionTo(models.DisputeStatusClosed) {
		return apperror.Newf(apperror.ErrCodeInvalidState, "cannot close dispute in status %s", d.Status)
	}
	now := s.now()
	d.Status = models.DisputeStatusClosed
	d.CloseReason = &reason
	d.ClosedAt = &now
	return s.disputes.Update(ctx, d)
}

// MarkExpiredNegotiations переводит просроченные переговоры в ожидание арбитража.
func (s *DisputeService) MarkExpiredNegotiations(ctx context.Context) (int, error) {
	var escalated []models.Dispute
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		now := s.now()
		expired, err := s.disputes.LockExpiredNegotiations(ctx, now)
		if err != nil || len(expired) == 0 {
			return err
		}
		escalated, err = s.disputes.EscalateBatch(ctx, disputeIDs(expired), now.Add(s.windows.Arbitration))
		return err
	})
	if err != nil {
		return 0, err
	}

	fx := &effects{}
	for i := range escalated {
		d := &escalated[i]
		fx.transition(models.SystemOperatorID, models.AuditActionAutoEscalate, d, models.DisputeStatusNegotiating)
		for _, userID := range d.Participants() {
			fx.notify(disputeNotification(userID, models.NotificationDisputeEscalated, "Срок переговоров истёк, спор передан на арбитраж", d))
		}
	}
	s.publisher.publish(ctx, fx)

	return len(escalated), nil
}

// MarkExpiredArbitrations закрывает арбитражи, по которым арбитр не вынес решение в срок.
func (s *DisputeService) MarkExpiredArbitrations(ctx context.Context) (int, error) {
	var closed []models.Dispute
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		now := s.now()
		expired, err := s.disputes.LockExpiredArbitrations(ctx, now)
		if err != nil || len(expired) == 0 {
			return err
		}
		closed, err = s.disputes.CloseBatch(ctx, disputeIDs(expired), models.CloseReasonArbitrationExpired, now)
		return err
	})
	if err != nil {
		return 0, err
	}

	fx := &effects{}
	for i := range closed {
		d := &closed[i]
		fx.transition(models.SystemOperatorID, models.AuditActionAutoClose, d, models.DisputeStatusArbitrating)
		for _, userID := range d.Participants() {
			fx.notify(disputeNotification(userID, models.NotificationDisputeClosed, "Срок арбитража истёк, спор закрыт", d))
		}
	}
	s.publisher.publish(ctx, fx)

	return len(closed), nil
}

func disputeIDs(disputes []models.Dispute) []int64 {
	ids := make([]int64, 0, len(disputes))
	for _, d := range disputes {
		ids = append(ids, d.ID)
	}
	return ids
}
