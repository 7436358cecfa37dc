package repository

import (
	"context"
	"testing"
	"time"

	"kuickmart/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func setupMongo(t *testing.T) *mongo.Database {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.PortEndpoint(ctx, "27017/tcp", "mongodb")
	require.NoError(t, err)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(endpoint))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	return client.Database("kuickmart_test")
}

func TestSearchHistoryRepository_RecordAndList(t *testing.T) {
	ctx := context.Background()
	db := setupMongo(t)
	require.NoError(t, EnsureSearchHistoryIndexes(ctx, db))
	repo := NewSearchHistoryRepository(db)

	userID := uuid.New()
	other := uuid.New()
	base := time.Now().UTC().Truncate(time.Millisecond)
	for i, term := range []string{"shoes", "shirt", "socks"} {
		require.NoError(t, repo.Record(ctx, &domain.SearchEntry{UserID: userID, SearchTerm: term, CreatedAt: base.Add(time.Duration(i) * time.Second)}))
	}
	require.NoError(t, repo.Record(ctx, &domain.SearchEntry{UserID: other, SearchTerm: "hats", CreatedAt: base}))

	entries, err := repo.ListByUser(ctx, userID, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "socks", entries[0].SearchTerm)
	assert.Equal(t, "shirt", entries[1].SearchTerm)
	assert.Equal(t, userID, entries[0].UserID)

	deleted, err := repo.DeleteByUser(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted)

	entries, err = repo.ListByUser(ctx, other, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNoopSearchHistoryRepository(t *testing.T) {
	repo := NewNoopSearchHistoryRepository()
	require.NoError(t, repo.Record(context.Background(), &domain.SearchEntry{SearchTerm: "x"}))
	entries, err := repo.ListByUser(context.Background(), uuid.New(), 5)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
