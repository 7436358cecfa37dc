package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"kuickmart/internal/config"
	"kuickmart/internal/database"
	"kuickmart/internal/logger"
	"kuickmart/internal/notify"
	"kuickmart/internal/repository"
	"kuickmart/internal/server"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const tokenCleanupInterval = time.Hour

func gracefulShutdown(ctx context.Context, apiServer *server.Server, logger *zap.Logger, done chan bool) {
	<-ctx.Done()

	logger.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")
	done <- true
}

// connectRedis returns nil when Redis is disabled or unreachable; rate
// limiting and cross-instance notifications are then off
func connectRedis(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) *redis.Client {
	if !cfg.Enabled {
		log.Info("Redis disabled")
		return nil
	}
	client, err := database.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Warn("Redis unavailable, continuing without it", zap.Error(err))
		return nil
	}
	log.Info("Connected to redis", zap.String("addr", cfg.Addr()))
	return client
}

// connectMongo returns nil when no URI is configured; search history is then not recorded
func connectMongo(ctx context.Context, cfg config.MongoConfig, log *zap.Logger) *mongo.Database {
	if cfg.URI == "" {
		log.Info("MONGO_URI not set, search history disabled")
		return nil
	}
	db, err := database.NewMongoDatabase(ctx, cfg)
	if err != nil {
		log.Warn("Mongo unavailable, search history disabled", zap.Error(err))
		return nil
	}
	if err := repository.EnsureSearchHistoryIndexes(ctx, db); err != nil {
		log.Warn("Failed to create search history indexes", zap.Error(err))
	}
	log.Info("Connected to mongo", zap.String("database", cfg.Database))
	return db
}

func cleanupRefreshTokens(ctx context.Context, repo repository.RefreshTokenRepository, log *zap.Logger) {
	ticker := time.NewTicker(tokenCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.DeleteExpired(ctx, time.Now())
			if err != nil {
				log.Warn("Failed to delete expired refresh tokens", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Info("Deleted expired refresh tokens", zap.Int64("count", n))
			}
		}
	}
}

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	if cfg.JWT.Secret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	log.Info("Starting kuickmart API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbService, err := database.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	db := dbService.DB()
	log.Info("Database health check", zap.Any("health", dbService.Health()))

	if err := database.RunMigrations(ctx, db, cfg.Database.MigrationsDir, log); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database migrations completed successfully")

	redisClient := connectRedis(ctx, cfg.Redis, log)
	mongoDB := connectMongo(ctx, cfg.Mongo, log)

	hub := notify.NewHub(notify.DefaultBufferSize, log)
	var publisher notify.Publisher = hub
	if redisClient != nil {
		publisher = notify.NewRedisPublisher(redisClient, cfg.Notify.Channel, log)
		bridge := notify.NewRedisBridge(redisClient, cfg.Notify.Channel, hub, log)
		go func() {
			if err := bridge.Run(ctx, nil); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Notification bridge stopped", zap.Error(err))
			}
		}()
	}

	go cleanupRefreshTokens(ctx, repository.NewRefreshTokenRepository(db), log)

	srv := server.NewServer(cfg, log, server.Dependencies{
		DB:        db,
		Redis:     redisClient,
		Mongo:     mongoDB,
		Hub:       hub,
		Publisher: publisher,
		Health:    dbService.Health,
	})

	done := make(chan bool, 1)
	go gracefulShutdown(ctx, srv, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err = srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	<-done
	log.Info("Graceful shutdown complete")
}
