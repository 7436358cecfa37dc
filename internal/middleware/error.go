package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// ErrorResponse is the envelope every failed request answers with
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the status text as Code and optional structured details
type ErrorDetail struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp string         `json:"timestamp"`
}

func RespondWithError(w http.ResponseWriter, statusCode int, message string) {
	RespondWithErrorDetails(w, statusCode, message, nil)
}

func RespondWithErrorDetails(w http.ResponseWriter, statusCode int, message string, details map[string]any) {
	RespondWithJSON(w, statusCode, ErrorResponse{Error: ErrorDetail{
		Code:      http.StatusText(statusCode),
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}})
}

// RespondWithValidationErrors answers 400 with the per-field failures
func RespondWithValidationErrors(w http.ResponseWriter, fields []ValidationError) {
	RespondWithErrorDetails(w, http.StatusBadRequest, "validation failed", map[string]any{
		"validation_errors": fields,
	})
}

// RespondWithJSON writes payload as the JSON body. Encoding errors after the
// header is out cannot be reported to the client.
func RespondWithJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// ErrorHandlingMiddleware turns handler panics into a logged 500 envelope.
// http.ErrAbortHandler is re-raised so net/http can drop the connection.
func ErrorHandlingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("Handler panicked",
					zap.Any("panic", rec),
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"),
				)
				RespondWithError(w, http.StatusInternalServerError, "internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
