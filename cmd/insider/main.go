package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/hatvoni/insider/internal/analytics"
	"github.com/hatvoni/insider/internal/app"
	"github.com/hatvoni/insider/internal/auth"
	"github.com/hatvoni/insider/internal/documents"
	"github.com/hatvoni/insider/internal/finance"
	"github.com/hatvoni/insider/internal/navstate"
	"github.com/hatvoni/insider/internal/observability"
	"github.com/hatvoni/insider/internal/operations/batches"
	"github.com/hatvoni/insider/internal/operations/lots"
	"github.com/hatvoni/insider/internal/operations/processed"
	"github.com/hatvoni/insider/internal/operations/transfers"
	"github.com/hatvoni/insider/internal/operations/waste"
	"github.com/hatvoni/insider/internal/platform/storage"
	"github.com/hatvoni/insider/internal/rbac"
	"github.com/hatvoni/insider/internal/sales/customers"
	"github.com/hatvoni/insider/internal/sales/delivery"
	"github.com/hatvoni/insider/internal/sales/invoices"
	"github.com/hatvoni/insider/internal/sales/orders"
	"github.com/hatvoni/insider/internal/shared"
	"github.com/hatvoni/insider/internal/users"
	"github.com/hatvoni/insider/jobs"
	"github.com/hatvoni/insider/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	store, err := storage.New(ctx, cfg.StorageConfig())
	if err != nil {
		logger.Error("init object store", slog.Any("error", err))
		os.Exit(1)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		logger.Warn("ensure bucket", slog.Any("error", err))
	}

	gotenberg := report.NewClient(cfg.GotenbergURL)
	if err := gotenberg.Ping(ctx); err != nil {
		logger.Warn("gotenberg ping", slog.Any("error", err))
	}

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "insider_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)
	validate := validator.New()
	metrics := observability.NewMetrics()

	rbacService := rbac.NewService(rbac.NewRepository(dbpool))
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	userService := users.NewService(users.NewRepository(dbpool), auditLogger)
	financeService := finance.NewService(finance.NewRepository(dbpool), auditLogger, redisClient)
	lotService := lots.NewService(lots.NewRepository(dbpool), auditLogger)
	wasteService := waste.NewService(waste.NewRepository(dbpool), auditLogger)
	transferService := transfers.NewService(transfers.NewRepository(dbpool), auditLogger)
	batchService := batches.NewService(batches.NewRepository(dbpool), auditLogger)
	processedService := processed.NewService(processed.NewRepository(dbpool), auditLogger)
	customerService := customers.NewService(customers.NewRepository(dbpool), auditLogger)
	orderService := orders.NewService(orders.NewRepository(dbpool), auditLogger, cfg.OrderUnlockWindow)
	invoiceService := invoices.NewService(invoices.NewRepository(dbpool), auditLogger)
	deliveryService := delivery.NewService(delivery.NewRepository(dbpool), auditLogger)
	documentService := documents.NewService(documents.NewRepository(dbpool), store, rbacService, auditLogger)
	analyticsService := analytics.NewService(analytics.NewRepository(dbpool))
	navStore := navstate.NewStore(redisClient, logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("asynq inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		RBACMiddleware: rbacMiddleware,
		Metrics:        metrics,

		AuthHandler:      auth.NewHandler(logger, userService, sessionManager, validate),
		FinanceHandler:   finance.NewHandler(logger, financeService, validate, rbacMiddleware),
		LotsHandler:      lots.NewHandler(logger, lotService, validate, rbacMiddleware),
		WasteHandler:     waste.NewHandler(logger, wasteService, validate, rbacMiddleware),
		TransfersHandler: transfers.NewHandler(logger, transferService, validate, rbacMiddleware),
		BatchesHandler:   batches.NewHandler(logger, batchService, validate, rbacMiddleware),
		ProcessedHandler: processed.NewHandler(logger, processedService, validate, rbacMiddleware),
		CustomersHandler: customers.NewHandler(logger, customerService, validate, rbacMiddleware),
		OrdersHandler:    orders.NewHandler(logger, orderService, validate, rbacMiddleware),
		InvoicesHandler:  invoices.NewHandler(logger, invoiceService, jobsClient, store, rbacMiddleware),
		DeliveryHandler:  delivery.NewHandler(logger, deliveryService, validate, rbacMiddleware),
		DocumentsHandler: documents.NewHandler(logger, documentService, validate, rbacMiddleware),
		RBACHandler:      rbac.NewHandler(logger, rbacService, validate, rbacMiddleware),
		UsersHandler:     users.NewHandler(logger, userService, validate, rbacMiddleware),
		NavStateHandler:  navstate.NewHandler(logger, navStore, validate),
		AnalyticsHandler: analytics.NewHandler(logger, analyticsService, gotenberg, rbacMiddleware),
		JobsHandler:      jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.AppAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", slog.Any("error", err))
	}
}
