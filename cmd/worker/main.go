package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rxdesk/rxdesk/internal/app"
	jobmetrics "github.com/rxdesk/rxdesk/internal/jobs"
	"github.com/rxdesk/rxdesk/internal/observability"
	"github.com/rxdesk/rxdesk/internal/platform/cache"
	"github.com/rxdesk/rxdesk/internal/platform/db"
	"github.com/rxdesk/rxdesk/internal/printing/escpos"
	"github.com/rxdesk/rxdesk/internal/printing/render"
	"github.com/rxdesk/rxdesk/internal/printing/templates"
	"github.com/rxdesk/rxdesk/internal/receipt"
	"github.com/rxdesk/rxdesk/jobs"
	"github.com/rxdesk/rxdesk/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisOptions())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	templateService := templates.NewService(templates.NewRepository(pool), templates.NewCache(redisClient, cfg.TemplateCacheTTL), logger)
	renderer := render.NewRenderer(render.Options{Symbology: cfg.PrintSymbology})
	encoder, err := escpos.NewEncoder(cfg.PrinterCharset)
	if err != nil {
		logger.Error("printer charset", slog.Any("error", err))
		os.Exit(1)
	}
	surfaces := report.NewSurfaces(report.NewClient(cfg.GotenbergURL), report.PrinterSurface{Type: cfg.PrinterType, Addr: cfg.PrinterAddr, Encoder: encoder})

	receiptService := receipt.NewService(receipt.NewRepository(pool), templateService, renderer, surfaces, receipt.Options{
		Location:        cfg.Location(),
		DefaultMarginMm: cfg.PrintMarginMm,
		Recorder:        metrics,
		Logger:          logger,
	})
	receiptJob := receipt.NewJob(receipt.JobConfig{
		Service:       receiptService,
		StorageDir:    cfg.ReceiptStorageDir,
		SendToPrinter: cfg.PrinterType == "network",
		Retention:     cfg.ReceiptRetention,
		Metrics:       jobmetrics.NewMetrics(metrics.Registerer()),
		Logger:        logger,
	})

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: cfg.RedisOptions().Asynq(),
		Logger:    logger,
		Location:  cfg.Location(),
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskReceiptPrint, Handler: receiptJob.Handle},
			{Type: jobs.TaskReceiptPurge, Handler: receiptJob.Purge},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "30 3 * * *", Task: jobs.NewReceiptPurgeTask()},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
