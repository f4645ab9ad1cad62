package service

import (
	"context"
	"time"

	"github.com/ignatzorin/dispute-backend/internal/models"
)

// Transactor выполняет функцию в одной транзакции; репозитории берут её из контекста.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// DisputeRepository описывает хранилище споров.
type DisputeRepository interface {
	NextCodeSequence(ctx context.Context) (int64, error)
	Create(ctx context.Context, d *models.Dispute) error
	GetByID(ctx context.Context, id int64) (*models.Dispute, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Dispute, error)
	FindActiveByOrderID(ctx context.Context, orderID int64) (*models.Dispute, error)
	Update(ctx context.Context, d *models.Dispute) error
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]models.Dispute, error)
	ListByArbitrator(ctx context.Context, arbitratorID int64) ([]models.Dispute, error)
	LockExpiredNegotiations(ctx context.Context, now time.Time) ([]models.Dispute, error)
	EscalateBatch(ctx context.Context, ids []int64, deadline time.Time) ([]models.Dispute, error)
	LockExpiredArbitrations(ctx context.Context, now time.Time) ([]models.Dispute, error)
	CloseBatch(ctx context.Context, ids []int64, reason string, closedAt time.Time) ([]models.Dispute, error)
}

// NegotiationRepository описывает журнал переговоров.
type NegotiationRepository interface {
	Create(ctx context.Context, m *models.NegotiationMessage) error
	GetByID(ctx context.Context, id int64) (*models.NegotiationMessage, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*models.NegotiationMessage, error)
	FindProposal(ctx context.Context, disputeID int64, status models.ProposalStatus) (*models.NegotiationMessage, error)
	ListByDispute(ctx context.Context, disputeID int64) ([]models.NegotiationMessage, error)
	SaveResponse(ctx context.Context, m *models.NegotiationMessage) error
}

// EvidenceRepository описывает хранилище доказательств.
type EvidenceRepository interface {
	Create(ctx context.Context, e *models.Evidence) error
	GetByID(ctx context.Context, id int64) (*models.Evidence, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Evidence, error)
	ListByDispute(ctx context.Context, disputeID int64, role models.PartyRole) ([]models.Evidence, error)
	SaveEvaluation(ctx context.Context, e *models.Evidence) error
	Delete(ctx context.Context, id int64) error
	Summary(ctx context.Context, disputeID int64) (*models.EvidenceSummary, error)
}

// ArbitrationRepository описывает хранилище решений.
type ArbitrationRepository interface {
	Create(ctx context.Context, a *models.Arbitration) error
	GetByID(ctx context.Context, id int64) (*models.Arbitration, error)
	FindByDisputeID(ctx context.Context, disputeID int64) (*models.Arbitration, error)
	ListPendingExecutions(ctx context.Context) ([]models.Arbitration, error)
	MarkExecuted(ctx context.Context, id int64, note string, executedAt time.Time) error
}

// OrderContext отдаёт сведения о заказе из сервиса заказов.
type OrderContext interface {
	Resolve(ctx context.Context, orderID int64) (*models.OrderContext, error)
}

// NotificationDispatcher доставляет уведомления. Ошибки доставки не возвращаются.
type NotificationDispatcher interface {
	Send(ctx context.Context, req models.NotificationRequest)
}

// AuditLogger записывает переходы состояний.
type AuditLogger interface {
	Record(ctx context.Context, entry models.AuditEntry) error
}

// FileRemover удаляет сохранённые файлы доказательств.
type FileRemover interface {
	Remove(fileURL string) error
}
