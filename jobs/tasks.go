package jobs

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReceiptPrint renders and stores a sale receipt after checkout.
	TaskReceiptPrint = "receipt:print"
	// TaskReceiptPurge removes stored receipts past their retention.
	TaskReceiptPurge = "receipt:purge"

	receiptDedupWindow = 24 * time.Hour
)

// ReceiptPrintPayload identifies the sale to print. A nil MarginMm selects the
// template margin; zero prints edge to edge.
type ReceiptPrintPayload struct {
	BranchID string   `json:"branch_id"`
	SaleID   string   `json:"sale_id"`
	Paper    string   `json:"paper,omitempty"`
	MarginMm *float64 `json:"margin_mm,omitempty"`
}

// Validate reports whether the payload can be processed.
func (p ReceiptPrintPayload) Validate() error {
	if strings.TrimSpace(p.BranchID) == "" || strings.TrimSpace(p.SaleID) == "" {
		return fmt.Errorf("receipt payload: branch_id and sale_id are required")
	}
	if p.MarginMm != nil && *p.MarginMm < 0 {
		return fmt.Errorf("receipt payload: margin_mm must not be negative")
	}
	return nil
}

// ReceiptTaskID is the queue identity of a sale's print task. A sale is
// auto-printed at most once while its task is retained.
func ReceiptTaskID(branchID, saleID string) string {
	return fmt.Sprintf("receipt:%s:%s", branchID, saleID)
}

// NewReceiptPrintTask builds a receipt task. Print jobs are never retried.
func NewReceiptPrintTask(payload ReceiptPrintPayload) (*asynq.Task, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReceiptPrint, body,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(0),
		asynq.TaskID(ReceiptTaskID(payload.BranchID, payload.SaleID)),
		asynq.Retention(receiptDedupWindow),
	), nil
}

// DecodeReceiptPrint parses a receipt task payload.
func DecodeReceiptPrint(t *asynq.Task) (ReceiptPrintPayload, error) {
	var payload ReceiptPrintPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return ReceiptPrintPayload{}, err
	}
	return payload, payload.Validate()
}

// NewReceiptPurgeTask builds the retention sweep task.
func NewReceiptPurgeTask() *asynq.Task {
	return asynq.NewTask(TaskReceiptPurge, nil, asynq.Queue(QueueDefault), asynq.MaxRetry(1))
}
