package models

import (
	"encoding/json"
	"time"
)

// Действия, попадающие в журнал аудита.
const (
	AuditActionSubmit           = "DISPUTE_SUBMIT"
	AuditActionStartNegotiation = "DISPUTE_NEGOTIATE"
	AuditActionEscalate         = "DISPUTE_ESCALATE"
	AuditActionClose            = "DISPUTE_CLOSE"
	AuditActionAutoEscalate     = "DISPUTE_AUTO_ESCALATE"
	AuditActionAutoClose        = "DISPUTE_AUTO_CLOSE"
	AuditActionProposalAccept   = "PROPOSAL_ACCEPT"
	AuditActionProposalReject   = "PROPOSAL_REJECT"
	AuditActionEvidenceEvaluate = "EVIDENCE_EVALUATE"
	AuditActionEvidenceDelete   = "EVIDENCE_DELETE"
	AuditActionAssignArbitrator = "ARBITRATOR_ASSIGN"
	AuditActionVerdict          = "ARBITRATION_VERDICT"
	AuditActionExecuted         = "ARBITRATION_EXECUTED"
)

// SystemOperatorID обозначает действия, выполненные фоновыми задачами.
const SystemOperatorID int64 = 0

// AuditEntry запись о переходе состояния.
type AuditEntry struct {
	ID          int64           `db:"id" json:"id"`
	OperatorID  int64           `db:"operator_id" json:"operator_id"`
	Action      string          `db:"action" json:"action"`
	EntityType  string          `db:"entity_type" json:"entity_type"`
	EntityID    int64           `db:"entity_id" json:"entity_id"`
	BeforeState json.RawMessage `db:"before_state" json:"before_state,omitempty"`
	AfterState  json.RawMessage `db:"after_state" json:"after_state,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}
