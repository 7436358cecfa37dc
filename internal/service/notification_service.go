package service

import (
	"context"
	"strings"
	"time"

	"kuickmart/internal/domain"
	"kuickmart/internal/notify"
)

// NotificationService validates and broadcasts admin-authored notifications
type NotificationService interface {
	Send(ctx context.Context, kind domain.NotificationType, message string) (*domain.Notification, error)
}

type notificationService struct {
	publisher notify.Publisher
}

// NewNotificationService creates a new instance of NotificationService
func NewNotificationService(publisher notify.Publisher) NotificationService {
	return &notificationService{publisher: publisher}
}

func (s *notificationService) Send(ctx context.Context, kind domain.NotificationType, message string) (*domain.Notification, error) {
	if !kind.Valid() {
		return nil, domain.NewValidationError("type", "must be one of order, promotion, info")
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, domain.NewValidationError("message", "must not be empty")
	}

	n := domain.Notification{Type: kind, Message: message, CreatedAt: time.Now().UTC()}
	s.publisher.Publish(ctx, n)
	return &n, nil
}
