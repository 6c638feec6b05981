package receipt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/rxdesk/rxdesk/internal/jobs"
	"github.com/rxdesk/rxdesk/internal/platform/httpx"
	"github.com/rxdesk/rxdesk/internal/printing/layout"
	"github.com/rxdesk/rxdesk/jobs"
	"github.com/rxdesk/rxdesk/report"
)

// Printer is the part of Service the worker uses.
type Printer interface {
	PrintSale(ctx context.Context, req PrintRequest) (Printed, error)
}

// JobConfig wires dependencies required by the worker job.
type JobConfig struct {
	Service    Printer
	StorageDir string
	// SendToPrinter sends the receipt to the network printer and stores what was sent.
	SendToPrinter bool
	Retention     time.Duration
	Metrics       *jobmetrics.Metrics
	Logger        *slog.Logger
}

// Job processes receipt print requests coming from the queue.
type Job struct {
	service       Printer
	storageDir    string
	sendToPrinter bool
	retention     time.Duration
	metrics       *jobmetrics.Metrics
	logger        *slog.Logger
	now           func() time.Time
}

// NewJob constructs a Job handler.
func NewJob(cfg JobConfig) *Job {
	return &Job{
		service:       cfg.Service,
		storageDir:    cfg.StorageDir,
		sendToPrinter: cfg.SendToPrinter,
		retention:     cfg.Retention,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
		now:           time.Now,
	}
}

// Handle fulfils the asynq.HandlerFunc contract for receipt:print.
func (j *Job) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.service == nil {
		return fmt.Errorf("receipt job not configured")
	}
	payload, err := jobs.DecodeReceiptPrint(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	tracker := j.metrics.Track(jobs.TaskReceiptPrint)
	return tracker.End(j.print(ctx, payload))
}

func (j *Job) print(ctx context.Context, payload jobs.ReceiptPrintPayload) error {
	format := report.FormatPDF
	if j.sendToPrinter {
		format = report.FormatPrinter
	}
	margin := -1.0
	if payload.MarginMm != nil {
		margin = *payload.MarginMm
	}
	out, err := j.service.PrintSale(ctx, PrintRequest{
		BranchID: payload.BranchID,
		SaleID:   payload.SaleID,
		Paper:    layout.Paper(payload.Paper),
		MarginMm: margin,
		Format:   format,
	})
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) || errors.Is(err, httpx.ErrValidation) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	path, err := j.save(payload.SaleID, out.Artifact)
	if err != nil {
		return err
	}
	j.metrics.AddStored(1)
	if j.logger != nil {
		j.logger.Info("receipt stored",
			slog.String("sale_id", payload.SaleID),
			slog.String("file", path),
			slog.String("printer", out.Artifact.Destination),
		)
	}
	return nil
}

func (j *Job) dir() string {
	if strings.TrimSpace(j.storageDir) == "" {
		return filepath.Join(os.TempDir(), "receipts")
	}
	return j.storageDir
}

func (j *Job) save(saleID string, art report.Artifact) (string, error) {
	dir := j.dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	ext := filepath.Ext(art.Filename)
	if ext == "" {
		ext = ".pdf"
	}
	name := fmt.Sprintf("receipt-%s%s", filepath.Base(saleID), ext)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, art.Body, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Purge fulfils the asynq.HandlerFunc contract for receipt:purge. It removes
// stored receipts older than the retention window.
func (j *Job) Purge(_ context.Context, _ *asynq.Task) error {
	if j == nil || j.retention <= 0 {
		return nil
	}
	tracker := j.metrics.Track(jobs.TaskReceiptPurge)
	entries, err := os.ReadDir(j.dir())
	if errors.Is(err, os.ErrNotExist) {
		return tracker.End(nil)
	}
	if err != nil {
		return tracker.End(err)
	}
	cutoff := j.now().Add(-j.retention)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "receipt-") {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(j.dir(), entry.Name())); err != nil {
			return tracker.End(err)
		}
		removed++
	}
	if j.logger != nil && removed > 0 {
		j.logger.Info("receipts purged", slog.Int("count", removed))
	}
	return tracker.End(nil)
}
