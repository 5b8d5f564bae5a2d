package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/faketect/faketect/internal"
	"github.com/faketect/faketect/internal/billing"
	"github.com/faketect/faketect/internal/detect"
	"github.com/faketect/faketect/internal/detect/illuminarty"
	"github.com/faketect/faketect/internal/detect/mock"
	"github.com/faketect/faketect/internal/detect/openaitext"
	"github.com/faketect/faketect/internal/detect/sightengine"
	"github.com/faketect/faketect/internal/email"
	"github.com/faketect/faketect/internal/handler"
	"github.com/faketect/faketect/internal/jobs"
	"github.com/faketect/faketect/internal/middleware"
	"github.com/faketect/faketect/internal/repository"
	"github.com/faketect/faketect/internal/service"
	"github.com/faketect/faketect/internal/storage"
	"github.com/faketect/faketect/internal/worker"
)

func run() error {
	ctx := context.Background()

	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("database ready")

	queries := repository.New(db)

	// Grant admin to configured accounts. Accounts that do not exist yet
	// are picked up on the next restart.
	for _, adminEmail := range cfg.AdminEmails {
		n, err := queries.SetUserAdminByEmail(ctx, adminEmail)
		if err != nil {
			return fmt.Errorf("admin bootstrap failed: %w", err)
		}
		if n > 0 {
			logger.Info("granted admin access", "email", adminEmail)
		}
	}

	store, err := newStorage(cfg, logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}

	aggregator, err := newAggregator(cfg, logger)
	if err != nil {
		return fmt.Errorf("detection setup failed: %w", err)
	}

	// Services
	auditService := service.NewAuditService(queries, logger)
	userService := service.NewUserService(queries, auditService, logger)
	quotaService := service.NewQuotaService(queries, logger)
	analysisService := service.NewAnalysisService(
		queries, quotaService, aggregator, store,
		service.NewImagingProcessor(), auditService, logger,
	)
	adminService := service.NewAdminService(queries, logger)
	gdprService := service.NewGDPRService(queries, store, auditService, logger)

	// Stripe billing. Endpoints return 501 until keys are configured.
	var billingService billing.Service
	if cfg.StripeSecretKey != "" {
		billingService = billing.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret, billing.PriceConfig{
			Standard: billing.PlanPrices{
				MonthlyPriceID: cfg.StripeStandardMonthlyPriceID,
				YearlyPriceID:  cfg.StripeStandardYearlyPriceID,
			},
			Professional: billing.PlanPrices{
				MonthlyPriceID: cfg.StripeProfessionalMonthlyPriceID,
				YearlyPriceID:  cfg.StripeProfessionalYearlyPriceID,
			},
			Business: billing.PlanPrices{
				MonthlyPriceID: cfg.StripeBusinessMonthlyPriceID,
				YearlyPriceID:  cfg.StripeBusinessYearlyPriceID,
			},
			Enterprise: billing.PlanPrices{
				MonthlyPriceID: cfg.StripeEnterpriseMonthlyPriceID,
				YearlyPriceID:  cfg.StripeEnterpriseYearlyPriceID,
			},
		})
		logger.Info("stripe billing enabled")
	}

	// Background worker
	var jobWorker *worker.Worker
	if cfg.WorkerEnabled {
		emailService, err := email.NewSMTPEmailService(email.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		}, cfg.BaseURL, logger)
		if err != nil {
			return fmt.Errorf("email service initialization failed: %w", err)
		}

		jobWorker, err = worker.New(db, queries, worker.Config{
			Concurrency:       cfg.WorkerConcurrency,
			PollInterval:      cfg.WorkerPollInterval,
			JobTimeout:        cfg.WorkerJobTimeout,
			ShutdownTimeout:   30 * time.Second,
			StaleJobThreshold: 10 * time.Minute,
		}, logger)
		if err != nil {
			return fmt.Errorf("worker initialization failed: %w", err)
		}
		jobWorker.Register(jobs.NewSendEmailHandler(emailService, logger))
		jobWorker.Register(jobs.NewExportUserDataHandler(queries, store, logger))
		jobWorker.Register(jobs.NewPurgeExpiredAnalysesHandler(queries, store, logger))
		jobWorker.Register(jobs.NewCleanupCredentialsHandler(queries, logger))
		jobWorker.Start(ctx)
		defer jobWorker.Stop()

		go scheduleMaintenance(ctx, cfg, queries, logger)
	}

	// Middleware
	isSecure := cfg.IsProduction()
	authMw := middleware.NewAuthMiddleware(userService, logger, isSecure)
	requireUser := middleware.Stack(authMw.WithUser, authMw.RequireUser)
	requireAdmin := middleware.Stack(authMw.WithUser, authMw.RequireAdmin)

	// Handlers
	authHandler := handler.NewAuthHandler(userService, queries, isSecure, logger)
	analysisHandler := handler.NewAnalysisHandler(analysisService, quotaService, logger)
	billingHandler := handler.NewBillingHandler(billingService, userService, cfg.BaseURL, logger)
	webhookHandler := handler.NewWebhookHandler(billingService, userService, logger)
	adminHandler := handler.NewAdminHandler(adminService, quotaService, auditService, logger)
	accountHandler := handler.NewAccountHandler(gdprService, isSecure, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	metricsMw := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)
	mux.Handle("GET /metrics", metricsMw.Handler(promhttp.Handler()))

	authLimiter := middleware.NewAuthRateLimiter(logger)
	authHandler.RegisterRoutes(mux, requireUser, handler.AuthRateLimits{
		Login:         authLimiter.LimitLogin,
		Register:      authLimiter.LimitRegister,
		PasswordReset: authLimiter.LimitPasswordReset,
	})
	analysisHandler.RegisterRoutes(mux, requireUser)
	billingHandler.RegisterRoutes(mux, requireUser)
	webhookHandler.RegisterRoutes(mux)
	adminHandler.RegisterRoutes(mux, requireAdmin)
	accountHandler.RegisterRoutes(mux, requireUser)

	// Outer middleware: security headers, request logging, API rate limit.
	apiLimiter := middleware.NewRateLimitMiddleware(
		middleware.NewRateLimiter(120, time.Minute, logger), logger,
	)
	chain := middleware.Stack(
		middleware.NewSecurityHeadersMiddleware(isSecure).Handler,
		middleware.NewRequestLoggingMiddleware(logger).Handler,
		apiLimiter.Limit,
	)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: chain(mux),
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
		}
	}()

	<-sigChan
	logger.Info("shutdown signal received, initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("graceful shutdown complete")
	return nil
}

// newStorage builds the configured storage backend.
func newStorage(cfg *internal.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.StorageProvider == storage.ProviderR2 {
		return storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		}, logger)
	}
	return storage.NewLocalStorage(storage.LocalConfig{
		BasePath: cfg.LocalStoragePath,
		BaseURL:  cfg.LocalStorageURL,
	}, logger)
}

// newAggregator wires up every detection provider that has credentials.
// With none configured the aggregator falls back to demo verdicts.
func newAggregator(cfg *internal.Config, logger *slog.Logger) (*detect.Aggregator, error) {
	var imageProviders []detect.ImageProvider
	var videoProvider detect.VideoProvider
	var textProvider detect.TextProvider

	if cfg.DetectionMode == "mock" {
		logger.Warn("detection running in mock mode, verdicts are canned")
		a := mock.New("mock-a")
		b := mock.New("mock-b")
		return detect.NewAggregator([]detect.ImageProvider{a, b}, a, a, logger), nil
	}

	if cfg.SightengineAPIUser != "" {
		se, err := sightengine.New(sightengine.Config{
			APIUser:   cfg.SightengineAPIUser,
			APISecret: cfg.SightengineSecret,
		}, logger)
		if err != nil {
			return nil, err
		}
		imageProviders = append(imageProviders, se)
		videoProvider = se
	}

	if cfg.IlluminartyAPIKey != "" {
		il, err := illuminarty.New(cfg.IlluminartyAPIKey, logger)
		if err != nil {
			return nil, err
		}
		imageProviders = append(imageProviders, il)
	}

	if cfg.OpenAIAPIKey != "" {
		ot, err := openaitext.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, logger)
		if err != nil {
			return nil, err
		}
		textProvider = ot
	}

	if len(imageProviders) == 0 {
		logger.Warn("no detection providers configured, running in demo mode")
	}

	return detect.NewAggregator(imageProviders, videoProvider, textProvider, logger), nil
}

// scheduleMaintenance enqueues the recurring housekeeping jobs once a day.
// Enqueueing is idempotent enough at this cadence; duplicate sweeps are
// harmless.
func scheduleMaintenance(ctx context.Context, cfg *internal.Config, queries *repository.Queries, logger *slog.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	enqueue := func() {
		if cfg.AnalysisRetentionDays > 0 {
			_, err := worker.EnqueuePurgeExpiredAnalyses(ctx, queries, cfg.AnalysisRetentionDays)
			if err != nil {
				logger.Error("failed to enqueue retention sweep", "error", err)
			}
		}
		_, err := worker.EnqueueJob(ctx, queries, worker.JobTypeCleanupCredentials, struct{}{})
		if err != nil {
			logger.Error("failed to enqueue credential cleanup", "error", err)
		}
	}

	enqueue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			enqueue()
		}
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
