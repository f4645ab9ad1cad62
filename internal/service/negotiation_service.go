package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ignatzorin/dispute-backend/internal/logger"
	"github.com/ignatzorin/dispute-backend/internal/models"
	"github.com/ignatzorin/dispute-backend/internal/pkg/apperror"
	"github.com/ignatzorin/dispute-backend/internal/validation"
)

// NegotiationService канал переговоров между покупателем и продавцом.
type NegotiationService struct {
	tx        Transactor
	disputes  DisputeRepository
	messages  NegotiationRepository
	publisher *Publisher
	now       func() time.Time
}

func NewNegotiationService(tx Transactor, disputes DisputeRepository, messages NegotiationRepository, publisher *Publisher) *NegotiationService {
	return &NegotiationService{
		tx:        tx,
		disputes:  disputes,
		messages:  messages,
		publisher: publisher,
		now:       time.Now,
	}
}

// SendTextMessage добавляет текстовое сообщение. Первое сообщение открывает переговоры.
func (s *NegotiationService) SendTextMessage(ctx context.Context, disputeID, senderID int64, content string) (*models.NegotiationMessage, error) {
	content, err := messageContent(content)
	if err != nil {
		return nil, err
	}

	var (
		d       *models.Dispute
		message *models.NegotiationMessage
		opened  bool
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		d, err = s.disputes.GetByIDForUpdate(ctx, disputeID)
		if err != nil {
			return err
		}
		role, ok := models.PartyRoleOf(d, senderID)
		if !ok {
			return apperror.ErrNotParticipant
		}
		if d.Status.IsTerminal() {
			return apperror.Newf(apperror.ErrCodeInvalidState, "dispute is %s", d.Status)
		}
		if opened, err = s.openNegotiation(ctx, d); err != nil {
			return err
		}

		message = &models.NegotiationMessage{
			DisputeID:   d.ID,
			SenderID:    senderID,
			SenderRole:  role,
			MessageType: models.MessageTypeText,
			Content:     content,
		}
		return s.messages.Create(ctx, message)
	})
	if err != nil {
		return nil, err
	}

	fx := &effects{}
	if opened {
		fx.transition(senderID, models.AuditActionStartNegotiation, d, models.DisputeStatusSubmitted)
	}
	fx.notify(models.NotificationRequest{
		UserID:      models.Counterpart(d, senderID),
		Type:        models.NotificationNegotiationMessage,
		Title:       "Новое сообщение в споре",
		Body:        content,
		RelatedID:   d.ID,
		RelatedType: models.RelatedTypeDispute,
		Link:        disputeLink(d),
	})
	s.publisher.publish(ctx, fx)

	return message, nil
}

// ProposeResolution выставляет предложение о возврате. Ожидающее предложение на спор одно.
func (s *NegotiationService) ProposeResolution(ctx context.Context, disputeID, proposerID int64, content string, amount float64) (*models.NegotiationMessage, error) {
	if err := validation.ValidateAmount("сумма возврата", amount); err != nil {
		return nil, invalid(err)
	}
	content, err := messageContent(content)
	if err != nil {
		return nil, err
	}

	var (
		d        *models.Dispute
		proposal *models.NegotiationMessage
		opened   bool
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		d, err = s.disputes.GetByIDForUpdate(ctx, disputeID)
		if err != nil {
			return err
		}
		role, ok := models.PartyRoleOf(d, proposerID)
		if !ok {
			return apperror.ErrNotParticipant
		}
		if d.Status != models.DisputeStatusSubmitted && d.Status != models.DisputeStatusNegotiating {
			return apperror.Newf(apperror.ErrCodeInvalidState, "proposals are not accepted in status %s", d.Status)
		}

		pending, err := s.messages.FindProposal(ctx, d.ID, models.ProposalStatusPending)
		if err != nil && !apperror.IsNotFound(err) {
			return err
		}
		if pending != nil {
			return apperror.ErrPendingProposal
		}

		if opened, err = s.openNegotiation(ctx, d); err != nil {
			return err
		}

		status := models.ProposalStatusPending
		proposal = &models.NegotiationMessage{
			DisputeID:            d.ID,
			SenderID:             proposerID,
			SenderRole:           role,
			MessageType:          models.MessageTypeProposal,
			Content:              content,
			ProposedRefundAmount: &amount,
			ProposalStatus:       &status,
		}
		return s.messages.Create(ctx, proposal)
	})
	if err != nil {
		return nil, err
	}

	fx := &effects{}
	if opened {
		fx.transition(proposerID, models.AuditActionStartNegotiation, d, models.DisputeStatusSubmitted)
	}
	fx.notify(models.NotificationRequest{
		UserID:      models.Counterpart(d, proposerID),
		Type:        models.NotificationProposalReceived,
		Title:       "Предложение об урегулировании",
		Body:        content,
		RelatedID:   proposal.ID,
		RelatedType: models.RelatedTypeProposal,
		Link:        disputeLink(d),
	})
	s.publisher.publish(ctx, fx)

	return proposal, nil
}

// RespondToProposal принимает или отклоняет предложение. Принятие закрывает спор.
func (s *NegotiationService) RespondToProposal(ctx context.Context, proposalID, responderID int64, accepted bool, note string) (*models.NegotiationMessage, error) {
	note, err := validation.OptionalText("комментарий", note, validation.MaxReasonLength)
	if err != nil {
		return nil, invalid(err)
	}

	var (
		d        *models.Dispute
		proposal *models.NegotiationMessage
		before   models.DisputeStatus
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		proposal, err = s.messages.GetByID(ctx, proposalID)
		if err != nil {
			return err
		}
		if !proposal.IsProposal() {
			return apperror.ErrProposalNotFound
		}

		// Сначала спор, потом предложение: порядок блокировок как в остальных операциях.
		d, err = s.disputes.GetByIDForUpdate(ctx, proposal.DisputeID)
		if err != nil {
			return err
		}
		if proposal, err = s.messages.GetByIDForUpdate(ctx, proposalID); err != nil {
			return err
		}

		if models.RoleOf(d, responderID) == models.ParticipantNone || responderID == proposal.SenderID {
			return apperror.ErrNotCounterpart
		}
		if !proposal.IsPending() {
			return apperror.ErrProposalAnswered
		}
		if d.Status != models.DisputeStatusNegotiating && d.Status != models.DisputeStatusPendingArbitration {
			return apperror.Newf(apperror.ErrCodeInvalidState, "cannot answer proposals in status %s", d.Status)
		}

		status := models.ProposalStatusRejected
		if accepted {
			status = models.ProposalStatusAccepted
		}
		now := s.now()
		proposal.ProposalStatus = &status
		proposal.RespondedBy = &responderID
		proposal.RespondedAt = &now
		if note != "" {
			proposal.ResponseNote = &note
		}
		if err := s.messages.SaveResponse(ctx, proposal); err != nil {
			return err
		}

		if !accepted {
			return nil
		}
		before = d.Status
		reason := models.CloseReasonNegotiatedSettlement
		d.Status = models.DisputeStatusClosed
		d.CloseReason = &reason
		d.ClosedAt = &now
		return s.disputes.Update(ctx, d)
	})
	if err != nil {
		return nil, err
	}

	action := models.AuditActionProposalReject
	if accepted {
		action = models.AuditActionProposalAccept
	}
	logger.Dispute(d.ID, d.Code).WithField("proposal_id", proposal.ID).WithField("accepted", accepted).Info("proposal answered")

	fx := &effects{}
	fx.record(models.AuditEntry{
		OperatorID: responderID,
		Action:     action,
		EntityType: models.RelatedTypeProposal,
		EntityID:   proposal.ID,
		AfterState: proposalState(proposal),
	})
	fx.notify(models.NotificationRequest{
		UserID:      proposal.SenderID,
		Type:        models.NotificationProposalAnswered,
		Title:       "Ответ на предложение",
		Body:        string(*proposal.ProposalStatus),
		RelatedID:   proposal.ID,
		RelatedType: models.RelatedTypeProposal,
		Link:        disputeLink(d),
	})
	if accepted {
		fx.transition(responderID, models.AuditActionClose, d, before)
		for _, userID := range d.Participants() {
			fx.notify(disputeNotification(userID, models.NotificationDisputeClosed, "Спор урегулирован", d))
		}
	}
	s.publisher.publish(ctx, fx)

	return proposal, nil
}

// GetNegotiationHistory возвращает переговоры в хронологическом порядке.
func (s *NegotiationService) GetNegotiationHistory(ctx context.Context, disputeID int64) ([]models.NegotiationMessage, error) {
	if _, err := s.disputes.GetByID(ctx, disputeID); err != nil {
		return nil, err
	}
	return s.messages.ListByDispute(ctx, disputeID)
}

// GetPendingProposal возвращает ожидающее ответа предложение.
func (s *NegotiationService) GetPendingProposal(ctx context.Context, disputeID int64) (*models.NegotiationMessage, error) {
	return s.messages.FindProposal(ctx, disputeID, models.ProposalStatusPending)
}

// GetAcceptedProposal возвращает принятое предложение.
func (s *NegotiationService) GetAcceptedProposal(ctx context.Context, disputeID int64) (*models.NegotiationMessage, error) {
	return s.messages.FindProposal(ctx, disputeID, models.ProposalStatusAccepted)
}

// openNegotiation переводит поданный спор в переговоры.
func (s *NegotiationService) openNegotiation(ctx context.Context, d *models.Dispute) (bool, error) {
	if d.Status != models.DisputeStatusSubmitted {
		return false, nil
	}
	d.Status = models.DisputeStatusNegotiating
	return true, s.disputes.Update(ctx, d)
}

func messageContent(content string) (string, error) {
	content, err := validation.RequiredText("сообщение", content, validation.MaxMessageLength)
	return content, invalid(err)
}

func proposalState(m *models.NegotiationMessage) json.RawMessage {
	if m.ProposalStatus == nil {
		return nil
	}
	return statusJSON(string(*m.ProposalStatus))
}
