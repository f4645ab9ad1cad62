package service

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/dispute-backend/internal/goroutine"
	"github.com/ignatzorin/dispute-backend/internal/logger"
	"github.com/ignatzorin/dispute-backend/internal/models"
)

// Publisher отправляет аудит и уведомления после фиксации транзакции.
// Ошибки только логируются: откатывать уже зафиксированный переход нельзя.
type Publisher struct {
	audit    AuditLogger
	notifier NotificationDispatcher
	launcher goroutine.Launcher
}

func NewPublisher(audit AuditLogger, notifier NotificationDispatcher, launcher goroutine.Launcher) *Publisher {
	return &Publisher{audit: audit, notifier: notifier, launcher: launcher}
}

// effects копит побочные эффекты операции, пока транзакция не зафиксирована.
type effects struct {
	audits        []models.AuditEntry
	notifications []models.NotificationRequest
}

func (e *effects) transition(operatorID int64, action string, d *models.Dispute, before models.DisputeStatus) {
	e.audits = append(e.audits, models.AuditEntry{
		OperatorID:  operatorID,
		Action:      action,
		EntityType:  models.RelatedTypeDispute,
		EntityID:    d.ID,
		BeforeState: statusState(before),
		AfterState:  statusState(d.Status),
	})
}

func (e *effects) record(entry models.AuditEntry) {
	e.audits = append(e.audits, entry)
}

func (e *effects) notify(req models.NotificationRequest) {
	e.notifications = append(e.notifications, req)
}

// publish запускается только после успешного коммита.
func (p *Publisher) publish(ctx context.Context, fx *effects) {
	if p == nil || fx == nil || (len(fx.audits) == 0 && len(fx.notifications) == 0) {
		return
	}
	ctx = context.WithoutCancel(ctx)

	p.launcher.Go(func() {
		for _, entry := range fx.audits {
			if p.audit == nil {
				break
			}
			if err := p.audit.Record(ctx, entry); err != nil {
				logger.Log.WithError(err).WithFields(logrus.Fields{
					"action":    entry.Action,
					"entity_id": entry.EntityID,
				}).Error("failed to write audit entry")
			}
		}
		for _, req := range fx.notifications {
			if p.notifier == nil {
				break
			}
			p.notifier.Send(ctx, req)
		}
	})
}

func statusState(status models.DisputeStatus) json.RawMessage {
	if status == "" {
		return nil
	}
	return statusJSON(string(status))
}

func statusJSON(status string) json.RawMessage {
	raw, _ := json.Marshal(map[string]string{"status": status})
	return raw
}

func disputeLink(d *models.Dispute) string {
	return "/disputes/" + d.Code
}

func disputeNotification(userID int64, kind, title string, d *models.Dispute) models.NotificationRequest {
	return models.NotificationRequest{
		UserID:      userID,
		Type:        kind,
		Title:       title,
		Body:        d.Code,
		RelatedID:   d.ID,
		RelatedType: models.RelatedTypeDispute,
		Link:        disputeLink(d),
	}
}
