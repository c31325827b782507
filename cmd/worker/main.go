package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/hatvoni/insider/internal/app"
	"github.com/hatvoni/insider/internal/observability"
	"github.com/hatvoni/insider/internal/platform/storage"
	"github.com/hatvoni/insider/internal/sales/invoices"
	"github.com/hatvoni/insider/internal/sales/orders"
	"github.com/hatvoni/insider/internal/shared"
	"github.com/hatvoni/insider/jobs"
	"github.com/hatvoni/insider/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	store, err := storage.New(ctx, cfg.StorageConfig())
	if err != nil {
		logger.Error("init object store", slog.Any("error", err))
		os.Exit(1)
	}

	gotenberg := report.NewClient(cfg.GotenbergURL)
	if err := gotenberg.Ping(ctx); err != nil {
		logger.Warn("gotenberg ping", slog.Any("error", err))
	}

	auditLogger := shared.NewAuditLogger(dbpool)
	metrics := observability.NewMetrics()

	deps := jobs.Deps{
		Logger:      logger,
		Invoices:    invoices.NewService(invoices.NewRepository(dbpool), auditLogger),
		Orders:      orders.NewService(orders.NewRepository(dbpool), auditLogger, cfg.OrderUnlockWindow),
		Gotenberg:   gotenberg,
		Storage:     store,
		Idempotency: shared.NewIdempotencyStore(dbpool),
		Metrics:     metrics,
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers:  jobs.Handlers(deps),
		Cron:      jobs.DefaultCron(),
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker starting")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
