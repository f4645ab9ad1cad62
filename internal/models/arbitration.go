package models

import "time"

type ArbitrationResult string

const (
	ArbitrationResultFullRefund    ArbitrationResult = "FULL_REFUND"
	ArbitrationResultPartialRefund ArbitrationResult = "PARTIAL_REFUND"
	ArbitrationResultReject        ArbitrationResult = "REJECT"
)

func (r ArbitrationResult) IsValid() bool {
	switch r {
	case ArbitrationResultFullRefund, ArbitrationResultPartialRefund, ArbitrationResultReject:
		return true
	}
	return false
}

// RequiresRefund сообщает, что решение предполагает возврат средств.
func (r ArbitrationResult) RequiresRefund() bool {
	return r == ArbitrationResultFullRefund || r == ArbitrationResultPartialRefund
}

// Arbitration обязательное решение арбитра, одно на спор.
type Arbitration struct {
	ID                     int64             `db:"id" json:"id"`
	DisputeID              int64             `db:"dispute_id" json:"dispute_id"`
	ArbitratorID           int64             `db:"arbitrator_id" json:"arbitrator_id"`
	Result                 ArbitrationResult `db:"result" json:"result"`
	RefundAmount           *float64          `db:"refund_amount" json:"refund_amount,omitempty"`
	Reason                 string            `db:"reason" json:"reason"`
	BuyerEvidenceAnalysis  string            `db:"buyer_evidence_analysis" json:"buyer_evidence_analysis"`
	SellerEvidenceAnalysis string            `db:"seller_evidence_analysis" json:"seller_evidence_analysis"`
	Executed               bool              `db:"executed" json:"executed"`
	ExecutedAt             *time.Time        `db:"executed_at" json:"executed_at,omitempty"`
	ExecutionNote          *string           `db:"execution_note" json:"execution_note,omitempty"`
	ArbitratedAt           time.Time         `db:"arbitrated_at" json:"arbitrated_at"`
	CreatedAt              time.Time         `db:"created_at" json:"created_at"`
}
