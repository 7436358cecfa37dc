package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"kuickmart/internal/config"
	custommiddleware "kuickmart/internal/middleware"
	"kuickmart/internal/notify"
	"kuickmart/internal/repository"
	"kuickmart/internal/service"
	"kuickmart/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Dependencies are the connections the server builds its stores on.
// Redis and Mongo are optional.
type Dependencies struct {
	DB        *sql.DB
	Redis     *redis.Client
	Mongo     *mongo.Database
	Hub       *notify.Hub
	Publisher notify.Publisher
	Health    func() map[string]string
}

// Services is everything the HTTP layer calls into
type Services struct {
	Users         service.UserService
	Catalog       service.CatalogService
	Cart          service.CartService
	Orders        service.OrderService
	Rewards       service.RewardsService
	Search        service.SearchService
	Analytics     service.AnalyticsService
	Notifications service.NotificationService
	Subscriber    transport.Subscriber
	Health        func() map[string]string
}

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	deps   Dependencies
}

// NewServices wires repositories and services over the given connections
func NewServices(cfg *config.Config, logger *zap.Logger, deps Dependencies) Services {
	userRepo := repository.NewUserRepository(deps.DB)
	refreshTokenRepo := repository.NewRefreshTokenRepository(deps.DB)
	productRepo := repository.NewProductRepository(deps.DB)
	categoryRepo := repository.NewCategoryRepository(deps.DB)
	cartRepo := repository.NewCartRepository(deps.DB)
	orderRepo := repository.NewOrderRepository(deps.DB)
	rewardsRepo := repository.NewRewardsRepository(deps.DB)
	analyticsRepo := repository.NewAnalyticsRepository(deps.DB)

	searchRepo := repository.NewNoopSearchHistoryRepository()
	if deps.Mongo != nil {
		searchRepo = repository.NewSearchHistoryRepository(deps.Mongo)
	}

	if deps.Hub == nil {
		deps.Hub = notify.NewHub(notify.DefaultBufferSize, logger)
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = deps.Hub
	}

	userService := service.NewUserService(userRepo, refreshTokenRepo, service.TokenConfig{
		Secret:        cfg.JWT.Secret,
		AccessExpiry:  time.Duration(cfg.JWT.AccessExpiry) * time.Minute,
		RefreshExpiry: time.Duration(cfg.JWT.RefreshExpiry) * 24 * time.Hour,
	})
	catalogService := service.NewCatalogService(productRepo, categoryRepo, logger)
	rewardsService := service.NewRewardsService(rewardsRepo, cfg.Rewards.PointsPerUnit, logger)
	orderService := service.NewOrderService(cartRepo, productRepo, orderRepo, catalogService, rewardsService, publisher, logger)

	return Services{
		Users:         userService,
		Catalog:       catalogService,
		Cart:          service.NewCartService(cartRepo, productRepo),
		Orders:        orderService,
		Rewards:       rewardsService,
		Search:        service.NewSearchService(searchRepo, logger),
		Analytics:     service.NewAnalyticsService(analyticsRepo, logger),
		Notifications: service.NewNotificationService(publisher),
		Subscriber:    deps.Hub,
		Health:        deps.Health,
	}
}

// NewRouter mounts middleware and every route group. redisClient enables
// rate limiting when non-nil.
func NewRouter(cfg *config.Config, logger *zap.Logger, svc Services, redisClient *redis.Client) http.Handler {
	router := chi.NewRouter()

	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.Server.IsDevelopment()))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	if redisClient != nil && cfg.RateLimit.Requests > 0 {
		router.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.Requests,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         "kuickmart:ratelimit",
		}, logger))
	}

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{"status": "ok"}
		code := http.StatusOK
		if svc.Health != nil {
			db := svc.Health()
			status["database"] = db
			if db["status"] != "up" {
				status["status"] = "degraded"
				code = http.StatusServiceUnavailable
			}
		}
		custommiddleware.RespondWithJSON(w, code, status)
	})

	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)
	optionalAuth := custommiddleware.OptionalAuthMiddleware(cfg.JWT.Secret, logger)
	requireAdmin := custommiddleware.RequireAdmin(logger)

	transport.NewUserHandler(svc.Users, logger).RegisterRoutes(router, authMiddleware)
	transport.NewCatalogHandler(svc.Catalog, svc.Search, logger).RegisterRoutes(router, optionalAuth, authMiddleware, requireAdmin)
	transport.NewCartHandler(svc.Cart, logger).RegisterRoutes(router, authMiddleware)
	transport.NewOrderHandler(svc.Orders, logger).RegisterRoutes(router, authMiddleware, requireAdmin)
	transport.NewAccountHandler(svc.Rewards, svc.Search, logger).RegisterRoutes(router, authMiddleware)
	transport.NewNotificationHandler(svc.Notifications, svc.Subscriber, transport.DefaultHeartbeat, logger).RegisterRoutes(router, authMiddleware, requireAdmin)
	transport.NewAdminHandler(svc.Users, svc.Analytics, logger).RegisterRoutes(router, authMiddleware, requireAdmin)

	return router
}

func NewServer(cfg *config.Config, logger *zap.Logger, deps Dependencies) *Server {
	if deps.Hub == nil {
		deps.Hub = notify.NewHub(notify.DefaultBufferSize, logger)
	}
	svc := NewServices(cfg, logger, deps)

	srv := &Server{
		// No WriteTimeout: notification streams stay open
		Server: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:           NewRouter(cfg, logger, svc, deps.Redis),
			IdleTimeout:       time.Minute,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
		},
		config: cfg,
		logger: logger,
		deps:   deps,
	}
	// Shutdown does not cancel request contexts; closing the hub ends open streams
	srv.RegisterOnShutdown(deps.Hub.Close)
	return srv
}

// Close releases the connections handed to NewServer
func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.deps.Redis != nil {
		if err := s.deps.Redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if s.deps.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.deps.Mongo.Client().Disconnect(ctx); err != nil {
			s.logger.Error("Failed to disconnect from mongo", zap.Error(err))
		}
	}

	if s.deps.DB != nil {
		if err := s.deps.DB.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	_ = s.logger.Sync()
	return nil
}
