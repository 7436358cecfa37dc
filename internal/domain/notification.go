package domain

import "time"

type NotificationType string

const (
	NotificationOrder     NotificationType = "order"
	NotificationPromotion NotificationType = "promotion"
	NotificationInfo      NotificationType = "info"
)

// Notification is an informational message pushed to connected sessions
type Notification struct {
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"created_at"`
}

// Valid reports whether t is a known notification type
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationOrder, NotificationPromotion, NotificationInfo:
		return true
	}
	return false
}
