package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

func newMigrationProvider(db *sql.DB, migrationsDir string) (*goose.Provider, error) {
	if _, err := os.Stat(migrationsDir); err != nil {
		return nil, fmt.Errorf("migrations directory %q: %w", migrationsDir, err)
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, os.DirFS(migrationsDir))
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	return provider, nil
}

// RunMigrations applies every pending goose migration in migrationsDir
func RunMigrations(ctx context.Context, db *sql.DB, migrationsDir string, logger *zap.Logger) error {
	provider, err := newMigrationProvider(db, migrationsDir)
	if err != nil {
		return err
	}

	results, err := provider.Up(ctx)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	for _, r := range results {
		logger.Info("Applied migration",
			zap.Int64("version", r.Source.Version),
			zap.String("file", r.Source.Path),
			zap.Duration("took", r.Duration),
		)
	}

	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	logger.Info("Schema is up to date",
		zap.Int64("version", version),
		zap.Int("applied", len(results)),
	)
	return nil
}

// PendingMigrations lists the versions in migrationsDir not yet applied
func PendingMigrations(ctx context.Context, db *sql.DB, migrationsDir string) ([]int64, error) {
	provider, err := newMigrationProvider(db, migrationsDir)
	if err != nil {
		return nil, err
	}

	statuses, err := provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration status: %w", err)
	}

	var pending []int64
	for _, s := range statuses {
		if s.State == goose.StatePending {
			pending = append(pending, s.Source.Version)
		}
	}
	return pending, nil
}
