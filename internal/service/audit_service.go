package service

import (
	"context"

	"github.com/ignatzorin/dispute-backend/internal/models"
)

// AuditRepository хранилище журнала аудита.
type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditEntry) error
	ListByEntity(ctx context.Context, entityType string, entityID int64) ([]models.AuditEntry, error)
}

// AuditService пишет журнал переходов.
type AuditService struct {
	repo AuditRepository
}

func NewAuditService(repo AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

func (s *AuditService) Record(ctx context.Context, entry models.AuditEntry) error {
	return s.repo.Create(ctx, &entry)
}

// DisputeTrail возвращает историю переходов спора.
func (s *AuditService) DisputeTrail(ctx context.Context, disputeID int64) ([]models.AuditEntry, error) {
	return s.repo.ListByEntity(ctx, models.RelatedTypeDispute, disputeID)
}
