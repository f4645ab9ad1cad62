package models

import "time"

type MessageType string

const (
	MessageTypeText     MessageType = "TEXT"
	MessageTypeProposal MessageType = "PROPOSAL"
)

type ProposalStatus string

const (
	ProposalStatusPending  ProposalStatus = "PENDING"
	ProposalStatusAccepted ProposalStatus = "ACCEPTED"
	ProposalStatusRejected ProposalStatus = "REJECTED"
)

// NegotiationMessage запись в журнале переговоров. После создания меняются
// только поля ответа на предложение, и только один раз.
type NegotiationMessage struct {
	ID                   int64           `db:"id" json:"id"`
	DisputeID            int64           `db:"dispute_id" json:"dispute_id"`
	SenderID             int64           `db:"sender_id" json:"sender_id"`
	SenderRole           PartyRole       `db:"sender_role" json:"sender_role"`
	MessageType          MessageType     `db:"message_type" json:"message_type"`
	Content              string          `db:"content" json:"content"`
	ProposedRefundAmount *float64        `db:"proposed_refund_amount" json:"proposed_refund_amount,omitempty"`
	ProposalStatus       *ProposalStatus `db:"proposal_status" json:"proposal_status,omitempty"`
	RespondedBy          *int64          `db:"responded_by" json:"responded_by,omitempty"`
	RespondedAt          *time.Time      `db:"responded_at" json:"responded_at,omitempty"`
	ResponseNote         *string         `db:"response_note" json:"response_note,omitempty"`
	CreatedAt            time.Time       `db:"created_at" json:"created_at"`
}

func (m *NegotiationMessage) IsProposal() bool {
	return m.MessageType == MessageTypeProposal
}

func (m *NegotiationMessage) IsPending() bool {
	return m.IsProposal() && m.ProposalStatus != nil && *m.ProposalStatus == ProposalStatusPending
}
