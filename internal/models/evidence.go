package models

import "time"

type EvidenceType string

const (
	EvidenceTypeImage    EvidenceType = "IMAGE"
	EvidenceTypeVideo    EvidenceType = "VIDEO"
	EvidenceTypeDocument EvidenceType = "DOCUMENT"
	EvidenceTypeChatLog  EvidenceType = "CHAT_LOG"
	EvidenceTypeOther    EvidenceType = "OTHER"
)

func (t EvidenceType) IsValid() bool {
	switch t {
	case EvidenceTypeImage, EvidenceTypeVideo, EvidenceTypeDocument, EvidenceTypeChatLog, EvidenceTypeOther:
		return true
	}
	return false
}

// Validity оценка доказательства арбитром.
type Validity string

const (
	ValidityValid    Validity = "VALID"
	ValidityInvalid  Validity = "INVALID"
	ValidityDoubtful Validity = "DOUBTFUL"
)

func (v Validity) IsValid() bool {
	switch v {
	case ValidityValid, ValidityInvalid, ValidityDoubtful:
		return true
	}
	return false
}

// Evidence материал, приложенный к спору одной из сторон.
type Evidence struct {
	ID             int64        `db:"id" json:"id"`
	DisputeID      int64        `db:"dispute_id" json:"dispute_id"`
	UploaderID     int64        `db:"uploader_id" json:"uploader_id"`
	UploaderRole   PartyRole    `db:"uploader_role" json:"uploader_role"`
	EvidenceType   EvidenceType `db:"evidence_type" json:"evidence_type"`
	FileURL        string       `db:"file_url" json:"file_url"`
	FileName       string       `db:"file_name" json:"file_name"`
	FileSize       int64        `db:"file_size" json:"file_size"`
	Description    string       `db:"description" json:"description"`
	Checksum       *string      `db:"checksum" json:"checksum,omitempty"`
	Stored         bool         `db:"stored" json:"stored"`
	Validity       *Validity    `db:"validity" json:"validity,omitempty"`
	ValidityReason *string      `db:"validity_reason" json:"validity_reason,omitempty"`
	EvaluatedBy    *int64       `db:"evaluated_by" json:"evaluated_by,omitempty"`
	EvaluatedAt    *time.Time   `db:"evaluated_at" json:"evaluated_at,omitempty"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
}

func (e *Evidence) IsEvaluated() bool {
	return e.Validity != nil
}

// EvidenceItem входные данные для загрузки доказательства.
type EvidenceItem struct {
	EvidenceType EvidenceType
	FileURL      string
	FileName     string
	FileSize     int64
	Description  string
	Checksum     string
	// Stored: файл сохранён сервисом в каталоге спора, иначе это внешняя ссылка.
	Stored bool
}

// EvidenceSummary сводка по доказательствам спора.
type EvidenceSummary struct {
	DisputeID   int64 `json:"dispute_id"`
	Total       int   `json:"total"`
	Buyer       int   `json:"buyer"`
	Seller      int   `json:"seller"`
	Valid       int   `json:"valid"`
	Invalid     int   `json:"invalid"`
	Doubtful    int   `json:"doubtful"`
	Unevaluated int   `json:"unevaluated"`
}
