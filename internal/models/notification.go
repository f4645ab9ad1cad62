package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Типы уведомлений о споре.
const (
	NotificationDisputeSubmitted    = "dispute.submitted"
	NotificationDisputeEscalated    = "dispute.escalated"
	NotificationDisputeClosed       = "dispute.closed"
	NotificationNegotiationMessage  = "negotiation.message"
	NotificationProposalReceived    = "negotiation.proposal"
	NotificationProposalAnswered    = "negotiation.proposal_answered"
	NotificationEvidenceUploaded    = "evidence.uploaded"
	NotificationArbitratorAssigned  = "arbitration.assigned"
	NotificationArbitrationVerdict  = "arbitration.verdict"
	NotificationArbitrationExecuted = "arbitration.executed"
)

// Типы связанных сущностей в уведомлениях.
const (
	RelatedTypeDispute     = "DISPUTE"
	RelatedTypeProposal    = "PROPOSAL"
	RelatedTypeEvidence    = "EVIDENCE"
	RelatedTypeArbitration = "ARBITRATION"
)

// NotificationRequest то, что ядро передаёт диспетчеру уведомлений.
type NotificationRequest struct {
	UserID      int64  `json:"user_id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	RelatedID   int64  `json:"related_id"`
	RelatedType string `json:"related_type"`
	Link        string `json:"link"`
}

// Notification описывает событие, отправленное пользователю.
type Notification struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    int64           `db:"user_id" json:"user_id"`
	Type      string          `db:"type" json:"type"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	IsRead    bool            `db:"is_read" json:"is_read"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
