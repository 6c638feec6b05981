package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/rxdesk/rxdesk/internal/app"
	"github.com/rxdesk/rxdesk/internal/auth"
	"github.com/rxdesk/rxdesk/internal/observability"
	"github.com/rxdesk/rxdesk/internal/platform/cache"
	"github.com/rxdesk/rxdesk/internal/platform/db"
	"github.com/rxdesk/rxdesk/internal/printing/designer"
	designerhttp "github.com/rxdesk/rxdesk/internal/printing/designer/http"
	"github.com/rxdesk/rxdesk/internal/printing/escpos"
	"github.com/rxdesk/rxdesk/internal/printing/render"
	"github.com/rxdesk/rxdesk/internal/printing/templates"
	templatehttp "github.com/rxdesk/rxdesk/internal/printing/templates/http"
	"github.com/rxdesk/rxdesk/internal/receipt"
	receipthttp "github.com/rxdesk/rxdesk/internal/receipt/http"
	"github.com/rxdesk/rxdesk/jobs"
	"github.com/rxdesk/rxdesk/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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
	authMW := auth.Middleware{Verifier: auth.NewVerifier(cfg.AuthSecret, cfg.AuthIssuer), Logger: logger}
	renderer := render.NewRenderer(render.Options{Symbology: cfg.PrintSymbology})

	templateRepo := templates.NewRepository(dbpool)
	templateCache := templates.NewCache(redisClient, cfg.TemplateCacheTTL)
	templateService := templates.NewService(templateRepo, templateCache, logger)
	templateHandler := templatehttp.NewHandler(logger, templateService, authMW)

	sessions := designer.NewSessionStore(redisClient, cfg.DesignerSessionTTL)
	designerService := designer.NewService(sessions, templateService, renderer, metrics)
	designerHandler := designerhttp.NewHandler(logger, designerService, authMW)

	reportClient := report.NewClient(cfg.GotenbergURL)
	reportHandler := report.NewHandler(reportClient, logger)
	encoder, err := escpos.NewEncoder(cfg.PrinterCharset)
	if err != nil {
		logger.Error("printer charset", slog.Any("error", err))
		os.Exit(1)
	}
	surfaces := report.NewSurfaces(reportClient, report.PrinterSurface{Type: cfg.PrinterType, Addr: cfg.PrinterAddr, Encoder: encoder})

	receiptService := receipt.NewService(receipt.NewRepository(dbpool), templateService, renderer, surfaces, receipt.Options{
		Location:        cfg.Location(),
		DefaultMarginMm: cfg.PrintMarginMm,
		Recorder:        metrics,
		Logger:          logger,
	})

	redisOpts := cfg.RedisOptions().Asynq()
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	receiptHandler := receipthttp.NewHandler(logger, receiptService, jobClient, authMW)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		Auth:            authMW,
		Metrics:         metrics,
		TemplateHandler: templateHandler,
		DesignerHandler: designerHandler,
		ReceiptHandler:  receiptHandler,
		ReportHandler:   reportHandler,
		JobHandler:      jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
