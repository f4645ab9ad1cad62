package models

import (
	"fmt"
	"time"
)

// DisputeStatus состояние спора.
type DisputeStatus string

const (
	DisputeStatusSubmitted          DisputeStatus = "SUBMITTED"
	DisputeStatusNegotiating        DisputeStatus = "NEGOTIATING"
	DisputeStatusPendingArbitration DisputeStatus = "PENDING_ARBITRATION"
	DisputeStatusArbitrating        DisputeStatus = "ARBITRATING"
	DisputeStatusCompleted          DisputeStatus = "COMPLETED"
	DisputeStatusClosed             DisputeStatus = "CLOSED"
)

var disputeTransitions = map[DisputeStatus][]DisputeStatus{
	DisputeStatusSubmitted:          {DisputeStatusNegotiating, DisputeStatusClosed},
	DisputeStatusNegotiating:        {DisputeStatusPendingArbitration, DisputeStatusClosed},
	DisputeStatusPendingArbitration: {DisputeStatusArbitrating, DisputeStatusClosed},
	DisputeStatusArbitrating:        {DisputeStatusCompleted, DisputeStatusClosed},
	DisputeStatusCompleted:          {},
	DisputeStatusClosed:             {},
}

func (s DisputeStatus) IsValid() bool {
	_, ok := disputeTransitions[s]
	return ok
}

// IsTerminal сообщает, что из статуса нет переходов.
func (s DisputeStatus) IsTerminal() bool {
	return s == DisputeStatusCompleted || s == DisputeStatusClosed
}

func (s DisputeStatus) CanTransitionTo(next DisputeStatus) bool {
	for _, allowed := range disputeTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AllDisputeStatuses перечисляет статусы в порядке жизненного цикла.
var AllDisputeStatuses = []DisputeStatus{
	DisputeStatusSubmitted,
	DisputeStatusNegotiating,
	DisputeStatusPendingArbitration,
	DisputeStatusArbitrating,
	DisputeStatusCompleted,
	DisputeStatusClosed,
}

// PartyRole сторона сделки, от имени которой действует пользователь.
type PartyRole string

const (
	PartyRoleBuyer  PartyRole = "BUYER"
	PartyRoleSeller PartyRole = "SELLER"
)

// Opposite возвращает противоположную сторону.
func (r PartyRole) Opposite() PartyRole {
	if r == PartyRoleBuyer {
		return PartyRoleSeller
	}
	return PartyRoleBuyer
}

type DisputeType string

const (
	DisputeTypeItemNotReceived DisputeType = "ITEM_NOT_RECEIVED"
	DisputeTypeNotAsDescribed  DisputeType = "NOT_AS_DESCRIBED"
	DisputeTypeQualityIssue    DisputeType = "QUALITY_ISSUE"
	DisputeTypeDamaged         DisputeType = "DAMAGED"
	DisputeTypeOther           DisputeType = "OTHER"
)

func (t DisputeType) IsValid() bool {
	switch t {
	case DisputeTypeItemNotReceived, DisputeTypeNotAsDescribed, DisputeTypeQualityIssue, DisputeTypeDamaged, DisputeTypeOther:
		return true
	}
	return false
}

// Стандартные причины закрытия.
const (
	CloseReasonNegotiatedSettlement = "negotiated settlement"
	CloseReasonArbitrationExpired   = "arbitration period expired"
	CloseReasonManual               = "closed by request"
)

// Dispute конфликт по одному заказу.
type Dispute struct {
	ID                  int64         `db:"id" json:"id"`
	Code                string        `db:"code" json:"code"`
	OrderID             int64         `db:"order_id" json:"order_id"`
	InitiatorID         int64         `db:"initiator_id" json:"initiator_id"`
	InitiatorRole       PartyRole     `db:"initiator_role" json:"initiator_role"`
	RespondentID        int64         `db:"respondent_id" json:"respondent_id"`
	DisputeType         DisputeType   `db:"dispute_type" json:"dispute_type"`
	Description         string        `db:"description" json:"description"`
	Status              DisputeStatus `db:"status" json:"status"`
	NegotiationDeadline time.Time     `db:"negotiation_deadline" json:"negotiation_deadline"`
	ArbitrationDeadline *time.Time    `db:"arbitration_deadline" json:"arbitration_deadline,omitempty"`
	ArbitratorID        *int64        `db:"arbitrator_id" json:"arbitrator_id,omitempty"`
	CloseReason         *string       `db:"close_reason" json:"close_reason,omitempty"`
	ClosedAt            *time.Time    `db:"closed_at" json:"closed_at,omitempty"`
	CompletedAt         *time.Time    `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt           time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time     `db:"updated_at" json:"updated_at"`
}

// BuyerID возвращает идентификатор покупателя по роли инициатора.
func (d *Dispute) BuyerID() int64 {
	if d.InitiatorRole == PartyRoleBuyer {
		return d.InitiatorID
	}
	return d.RespondentID
}

// SellerID возвращает идентификатор продавца.
func (d *Dispute) SellerID() int64 {
	if d.InitiatorRole == PartyRoleSeller {
		return d.InitiatorID
	}
	return d.RespondentID
}

// Participants возвращает обоих участников спора.
func (d *Dispute) Participants() []int64 {
	return []int64{d.InitiatorID, d.RespondentID}
}

// FormatDisputeCode строит код вида DSP-20260115-000042.
func FormatDisputeCode(at time.Time, seq int64) string {
	return fmt.Sprintf("DSP-%s-%06d", at.Format("20060102"), seq%1_000_000)
}
