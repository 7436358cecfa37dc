package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kuickmart/internal/domain"
	"kuickmart/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	searchHistoryLimit = 20
	maxSearchTermLen   = 200
)

// SearchService records and lists users' product searches
type SearchService interface {
	// Record stores a search term. Failures are logged and never reach the caller.
	Record(ctx context.Context, userID uuid.UUID, term string)
	History(ctx context.Context, userID uuid.UUID) ([]*domain.SearchEntry, error)
	ClearHistory(ctx context.Context, userID uuid.UUID) error
}

type searchService struct {
	repo   repository.SearchHistoryRepository
	logger *zap.Logger
}

// NewSearchService creates a new instance of SearchService
func NewSearchService(repo repository.SearchHistoryRepository, logger *zap.Logger) SearchService {
	return &searchService{repo: repo, logger: logger}
}

func (s *searchService) Record(ctx context.Context, userID uuid.UUID, term string) {
	term = strings.TrimSpace(term)
	if term == "" {
		return
	}
	if runes := []rune(term); len(runes) > maxSearchTermLen {
		term = string(runes[:maxSearchTermLen])
	}

	err := s.repo.Record(ctx, &domain.SearchEntry{UserID: userID, SearchTerm: term, CreatedAt: time.Now().UTC()})
	if err != nil {
		s.logger.Warn("Failed to record search", zap.String("user_id", userID.String()), zap.Error(err))
	}
}

func (s *searchService) History(ctx context.Context, userID uuid.UUID) ([]*domain.SearchEntry, error) {
	entries, err := s.repo.ListByUser(ctx, userID, searchHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get search history of user %s: %w", userID, err)
	}
	return entries, nil
}

func (s *searchService) ClearHistory(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.repo.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear search history of user %s: %w", userID, err)
	}
	return nil
}
