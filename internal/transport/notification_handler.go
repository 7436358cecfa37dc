package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"kuickmart/internal/domain"
	"kuickmart/internal/middleware"
	"kuickmart/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// DefaultHeartbeat is how often an idle event stream sends a comment line
const DefaultHeartbeat = 25 * time.Second

// SendNotificationRequest is an admin broadcast
type SendNotificationRequest struct {
	Type    string `json:"type" validate:"required,oneof=order promotion info"`
	Message string `json:"message" validate:"required,max=500"`
}

// Subscriber hands out notification subscriptions
type Subscriber interface {
	Subscribe() (<-chan domain.Notification, func())
}

// NotificationHandler accepts broadcasts and streams them to connected sessions
type NotificationHandler struct {
	notifications service.NotificationService
	subscriber    Subscriber
	heartbeat     time.Duration
	logger        *zap.Logger
}

func NewNotificationHandler(notifications service.NotificationService, subscriber Subscriber, heartbeat time.Duration, logger *zap.Logger) *NotificationHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &NotificationHandler{
		notifications: notifications,
		subscriber:    subscriber,
		heartbeat:     heartbeat,
		logger:        logger,
	}
}

func (h *NotificationHandler) RegisterRoutes(r chi.Router, authMiddleware, requireAdmin func(http.Handler) http.Handler) {
	r.Route("/api/notifications", func(r chi.Router) {
		r.Use(authMiddleware)
		r.With(requireAdmin).Post("/", h.Send)
		r.Get("/stream", h.Stream)
	})
}

func (h *NotificationHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req SendNotificationRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	n, err := h.notifications.Send(r.Context(), domain.NotificationType(req.Type), req.Message)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to send notification")
		return
	}
	middleware.RespondWithJSON(w, http.StatusAccepted, n)
}

// Stream writes notifications as server-sent events until the client goes away
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		middleware.RespondWithError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events, cancel := h.subscriber.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case n, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(n)
			if err != nil {
				h.logger.Error("Failed to encode notification", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", n.Type, payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
