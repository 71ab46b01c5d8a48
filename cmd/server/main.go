package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/civiport/civiport/application/port/inbound"
	"github.com/civiport/civiport/application/usecase"
	"github.com/civiport/civiport/infrastructure/adapter/postgres"
	"github.com/civiport/civiport/infrastructure/config"
	"github.com/civiport/civiport/infrastructure/http/handler"
	"github.com/civiport/civiport/infrastructure/http/middleware"
	"github.com/civiport/civiport/infrastructure/metrics"
	"github.com/civiport/civiport/infrastructure/service/jwt"
	"github.com/civiport/civiport/infrastructure/service/logger"
	"github.com/civiport/civiport/infrastructure/service/password"
	"github.com/civiport/civiport/infrastructure/service/ratelimit"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	structuredLogger := logger.NewStructuredLogger(logger.LoggerConfig{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "civiport",
	})
	structuredLogger.Info(ctx, "Application starting", map[string]interface{}{
		"env": cfg.Environment,
	})

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		structuredLogger.Error(ctx, "Failed to ping database", err, nil)
		log.Fatalf("Failed to ping database: %v", err)
	}
	structuredLogger.Info(ctx, "Database connection established", nil)

	var rateLimitService inbound.RateLimitService
	{
		rlConfig := ratelimit.RateLimitConfig{
			Enabled:       cfg.RateLimitEnabled,
			RedisURL:      cfg.RedisURL,
			IPAttempts:    cfg.RateLimitIPAttempts,
			IPWindow:      cfg.RateLimitIPWindow,
			UserAttempts:  cfg.RateLimitUserAttempts,
			UserWindow:    cfg.RateLimitUserWindow,
			BlockDuration: cfg.RateLimitBlockDuration,
		}
		rs, err := ratelimit.NewRateLimitService(rlConfig, logrus.New())
		if err != nil {
			structuredLogger.Error(ctx, "Failed to initialize rate limit service", err, map[string]interface{}{
				"redis_url": cfg.RedisURL,
			})
		} else {
			rateLimitService = rs
			structuredLogger.Info(ctx, "Rate limiting service initialized", map[string]interface{}{
				"enabled": cfg.RateLimitEnabled,
			})
		}
	}

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	caseRepo := postgres.NewCaseRepository(db)
	auditRepo := postgres.NewAuditRepository(db)
	refreshTokenRepo := postgres.NewRefreshTokenRepository(db, cfg.RefreshTokenSalt)

	// Services
	tokenService, err := jwt.NewJWTService(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize JWT service: %v", err)
	}
	passwordService := password.NewBcryptPasswordService(10)

	// Use cases
	authUseCase := usecase.NewAuthUseCase(
		userRepo,
		refreshTokenRepo,
		auditRepo,
		tokenService,
		passwordService,
		rateLimitService,
		structuredLogger,
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
	)
	caseUseCase := usecase.NewCaseUseCase(caseRepo, structuredLogger)
	userManagementUseCase := usecase.NewUserManagementUseCase(userRepo, auditRepo, passwordService, structuredLogger)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(rateLimitService, structuredLogger)

	// Handlers
	authHandler := handler.NewAuthHandler(authUseCase)
	caseHandler := handler.NewCaseHandler(caseUseCase, authMiddleware)
	userManagementHandler := handler.NewUserManagementHandler(userManagementUseCase, authMiddleware)

	// Routes
	router := mux.NewRouter()
	router.Handle("/v1/auth/register", rateLimitMiddleware.RateLimit(http.HandlerFunc(authHandler.Register))).Methods(http.MethodPost)
	router.Handle("/v1/auth/login", rateLimitMiddleware.RateLimit(http.HandlerFunc(authHandler.Login))).Methods(http.MethodPost)
	router.Handle("/v1/auth/refresh", rateLimitMiddleware.RateLimit(http.HandlerFunc(authHandler.Refresh))).Methods(http.MethodPost)
	router.HandleFunc("/v1/auth/logout", authMiddleware.RequireAuth(authHandler.Logout)).Methods(http.MethodPost)
	router.HandleFunc("/v1/auth/me", authMiddleware.RequireAuth(authHandler.Me)).Methods(http.MethodGet)

	caseHandler.RegisterRoutes(router)
	userManagementHandler.RegisterRoutes(router)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"status":"healthy"}`)
	}).Methods(http.MethodGet)

	if cfg.MetricsEnabled {
		router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	}

	// Compose middleware: recovery innermost of the cross-cutting stack, then
	// correlation ID, metrics, CORS
	var rootHandler http.Handler = middleware.RecoveryMiddleware(router, structuredLogger)
	rootHandler = middleware.CorrelationIDMiddleware(rootHandler)
	if cfg.MetricsEnabled {
		rootHandler = metrics.Middleware(rootHandler)
	}
	if cfg.CORSEnabled && len(cfg.CORSAllowedOrigins) > 0 {
		rootHandler = middleware.CORSMiddleware(rootHandler, cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		structuredLogger.Info(ctx, "Starting server", map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			structuredLogger.Error(ctx, "Server failed to start", err, map[string]interface{}{
				"host": cfg.ServerHost,
				"port": cfg.ServerPort,
			})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	structuredLogger.Info(ctx, "Shutting down server...", nil)

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		structuredLogger.Error(ctx, "Server forced to shutdown", err, nil)
	}
	structuredLogger.Info(ctx, "Server exited", nil)
}
