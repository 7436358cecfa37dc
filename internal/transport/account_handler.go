package transport

import (
	"net/http"

	"kuickmart/internal/domain"
	"kuickmart/internal/middleware"
	"kuickmart/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RewardsResponse is the caller's balance with the ledger behind it
type RewardsResponse struct {
	Points  int64                 `json:"points"`
	Entries []*domain.RewardEntry `json:"entries"`
}

// AccountHandler serves the per-user rewards balance and search history
type AccountHandler struct {
	rewards service.RewardsService
	search  service.SearchService
	logger  *zap.Logger
}

func NewAccountHandler(rewards service.RewardsService, search service.SearchService, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{rewards: rewards, search: search, logger: logger}
}

func (h *AccountHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/api/rewards", h.GetRewards)
		r.Get("/api/search-history", h.GetSearchHistory)
		r.Delete("/api/search-history", h.ClearSearchHistory)
	})
}

func (h *AccountHandler) GetRewards(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	account, err := h.rewards.GetBalance(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to get rewards balance")
		return
	}
	entries, err := h.rewards.ListEntries(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to list reward entries")
		return
	}
	if entries == nil {
		entries = []*domain.RewardEntry{}
	}

	middleware.RespondWithJSON(w, http.StatusOK, RewardsResponse{Points: account.Points, Entries: entries})
}

func (h *AccountHandler) GetSearchHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	history, err := h.search.History(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to get search history")
		return
	}
	if history == nil {
		history = []*domain.SearchEntry{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, history)
}

func (h *AccountHandler) ClearSearchHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.search.ClearHistory(r.Context(), userID); err != nil {
		respondWithServiceError(w, h.logger, err, "failed to clear search history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
