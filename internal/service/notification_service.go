package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/dispute-backend/internal/logger"
	"github.com/ignatzorin/dispute-backend/internal/models"
)

// NotificationStore описывает взаимодействие сервиса с хранилищем уведомлений.
type NotificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, userID int64, limit, offset int, unreadOnly bool) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, id uuid.UUID, userID int64) error
	CountUnread(ctx context.Context, userID int64) (int, error)
}

// Pusher доставляет событие подключённым клиентам пользователя.
type Pusher interface {
	PushToUser(userID int64, event string, data any) error
}

// NotificationService сохраняет уведомления и отправляет их в WebSocket.
type NotificationService struct {
	repo   NotificationStore
	pusher Pusher
}

// NewNotificationService создаёт новый сервис уведомлений.
func NewNotificationService(repo NotificationStore, pusher Pusher) *NotificationService {
	return &NotificationService{repo: repo, pusher: pusher}
}

// Send сохраняет уведомление и отправляет его пользователю. Ошибки только логируются.
func (s *NotificationService) Send(ctx context.Context, req models.NotificationRequest) {
	notification, err := s.CreateNotification(ctx, req)
	if err != nil {
		logger.Log.WithError(err).WithFields(logrus.Fields{
			"user_id": req.UserID,
			"type":    req.Type,
		}).Error("failed to save notification")
		return
	}

	if s.pusher == nil {
		return
	}
	if err := s.pusher.PushToUser(req.UserID, req.Type, notification); err != nil {
		logger.Log.WithError(err).WithField("user_id", req.UserID).Warn("failed to push notification")
	}
}

// CreateNotification создаёт новое уведомление.
func (s *NotificationService) CreateNotification(ctx context.Context, req models.NotificationRequest) (*models.Notification, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("notification service: marshal payload %w", err)
	}

	notification := &models.Notification{
		UserID:  req.UserID,
		Type:    req.Type,
		Payload: payload,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, err
	}

	return notification, nil
}

// ListNotifications возвращает список уведомлений пользователя.
func (s *NotificationService) ListNotifications(ctx context.Context, userID int64, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	return s.repo.List(ctx, userID, limit, offset, unreadOnly)
}

// MarkAsRead отмечает уведомление пользователя как прочитанное.
func (s *NotificationService) MarkAsRead(ctx context.Context, id uuid.UUID, userID int64) error {
	return s.repo.MarkAsRead(ctx, id, userID)
}

// CountUnread возвращает количество непрочитанных уведомлений.
func (s *NotificationService) CountUnread(ctx context.Context, userID int64) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}
