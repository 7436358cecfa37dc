package repository

import (
	"context"
	"fmt"
	"time"

	"kuickmart/internal/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const searchHistoryCollection = "searchhistories"

// SearchHistoryRepository records and lists the product searches of users
type SearchHistoryRepository interface {
	Record(ctx context.Context, entry *domain.SearchEntry) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int64) ([]*domain.SearchEntry, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type searchDoc struct {
	UserID     string    `bson:"user_id"`
	SearchTerm string    `bson:"search_term"`
	CreatedAt  time.Time `bson:"created_at"`
}

type mongoSearchHistoryRepository struct {
	coll *mongo.Collection
}

// NewSearchHistoryRepository stores search history in the given Mongo database
func NewSearchHistoryRepository(db *mongo.Database) SearchHistoryRepository {
	return &mongoSearchHistoryRepository{coll: db.Collection(searchHistoryCollection)}
}

// EnsureSearchHistoryIndexes creates the per-user recency index
func EnsureSearchHistoryIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(searchHistoryCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create search history index: %w", err)
	}
	return nil
}

func (r *mongoSearchHistoryRepository) Record(ctx context.Context, entry *domain.SearchEntry) error {
	_, err := r.coll.InsertOne(ctx, searchDoc{
		UserID:     entry.UserID.String(),
		SearchTerm: entry.SearchTerm,
		CreatedAt:  entry.CreatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to record search: %w", err)
	}
	return nil
}

func (r *mongoSearchHistoryRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int64) ([]*domain.SearchEntry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cur, err := r.coll.Find(ctx, bson.M{"user_id": userID.String()}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list search history: %w", err)
	}
	defer cur.Close(ctx)

	var docs []searchDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode search history: %w", err)
	}

	entries := make([]*domain.SearchEntry, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, &domain.SearchEntry{
			UserID:     userID,
			SearchTerm: d.SearchTerm,
			CreatedAt:  d.CreatedAt,
		})
	}
	return entries, nil
}

func (r *mongoSearchHistoryRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := r.coll.DeleteMany(ctx, bson.M{"user_id": userID.String()})
	if err != nil {
		return 0, fmt.Errorf("failed to clear search history: %w", err)
	}
	return result.DeletedCount, nil
}

type noopSearchHistoryRepository struct{}

// NewNoopSearchHistoryRepository discards searches; used when no Mongo URI is configured
func NewNoopSearchHistoryRepository() SearchHistoryRepository {
	return noopSearchHistoryRepository{}
}

func (noopSearchHistoryRepository) Record(context.Context, *domain.SearchEntry) error { return nil }

func (noopSearchHistoryRepository) ListByUser(context.Context, uuid.UUID, int64) ([]*domain.SearchEntry, error) {
	return []*domain.SearchEntry{}, nil
}

func (noopSearchHistoryRepository) DeleteByUser(context.Context, uuid.UUID) (int64, error) {
	return 0, nil
}
