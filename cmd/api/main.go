package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jhalloran/linkgate/internal/auth"
	"github.com/jhalloran/linkgate/internal/background"
	"github.com/jhalloran/linkgate/internal/cache"
	"github.com/jhalloran/linkgate/internal/config"
	"github.com/jhalloran/linkgate/internal/database"
	"github.com/jhalloran/linkgate/internal/handlers"
	"github.com/jhalloran/linkgate/internal/metrics"
	middlewareCustom "github.com/jhalloran/linkgate/internal/middleware"
	"github.com/jhalloran/linkgate/internal/repositories"
	"github.com/jhalloran/linkgate/internal/routes"
	"github.com/jhalloran/linkgate/internal/services"
	pkghttp "github.com/jhalloran/linkgate/pkg/http"
	pkglogger "github.com/jhalloran/linkgate/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("signature_scheme", cfg.Gateway.SignatureScheme))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	appRepo := repositories.NewAppRepository(db)
	accountRepo := repositories.NewAccountRepository(db)
	codeRepo := repositories.NewAuthCodeRepository(db)
	grantRepo := repositories.NewAccessGrantRepository(db)

	// App rows are effectively immutable for this service; a short
	// read-through cache keeps the hot path off the database.
	appCache := cache.NewAppCache(appRepo, cfg.Gateway.AppCacheTTL)

	// Signature scheme and auth plumbing
	scheme, err := auth.NewSignatureScheme(cfg.Gateway.SignatureScheme)
	if err != nil {
		logger.Error("failed to initialize signature scheme", slog.Any("error", err))
		os.Exit(1)
	}

	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Gateway.TimingDelayBaseMs,
		RandomDelayMs: cfg.Gateway.TimingDelayRandomMs,
	})

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Initialize services
	lockoutService := services.NewLockoutService(accountRepo, cfg.Gateway.MaxDailyFailures, logger, auditLogger)
	codeService := services.NewCodeService(codeRepo, cfg.Gateway.AuthCodeTTL, logger, auditLogger)
	grantService := services.NewGrantService(grantRepo, cfg.Gateway.AccessTokenTTL, logger, auditLogger)

	gatewayService := services.NewGatewayService(
		appCache,
		accountRepo,
		codeService,
		grantService,
		lockoutService,
		scheme,
		cfg.Gateway.ReplayTolerance,
		timingDelay,
		logger,
		auditLogger,
	)

	// Metrics
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	gatewayMetrics := metrics.New(promRegistry)

	// Initialize handlers
	ipConfig := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)
	connectHandler := handlers.NewConnectHandler(gatewayService, ipConfig, gatewayMetrics)

	// Expired credential sweep
	cleanupManager := background.NewCleanupManager(
		codeRepo,
		grantRepo,
		logger,
		cfg.Gateway.CleanupInterval,
		cfg.Gateway.CredentialRetention,
	)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(&middlewareCustom.CORSConfig{AllowedOrigins: cfg.Server.AllowedOrigins}))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, connectHandler, promRegistry, cfg.Gateway.RateLimitRequests, cfg.Gateway.RateLimitWindow)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := db.HealthCheck(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
