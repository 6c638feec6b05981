package jobs

import (
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

func TestReceiptPrintTaskRoundTrip(t *testing.T) {
	margin := 3.0
	task, err := NewReceiptPrintTask(ReceiptPrintPayload{BranchID: "b1", SaleID: "s1", Paper: "58", MarginMm: &margin})
	require.NoError(t, err)
	require.Equal(t, TaskReceiptPrint, task.Type())

	got, err := DecodeReceiptPrint(task)
	require.NoError(t, err)
	require.Equal(t, "s1", got.SaleID)
	require.NotNil(t, got.MarginMm)
	require.Equal(t, 3.0, *got.MarginMm)
	require.Equal(t, "receipt:b1:s1", ReceiptTaskID(got.BranchID, got.SaleID))
}

func TestReceiptPrintTaskRejectsMissingIDs(t *testing.T) {
	_, err := NewReceiptPrintTask(ReceiptPrintPayload{SaleID: "s1"})
	require.Error(t, err)

	_, err = DecodeReceiptPrint(asynq.NewTask(TaskReceiptPrint, []byte(`{"sale_id":`)))
	require.Error(t, err)
}

func TestReceiptPrintTaskMarginPresence(t *testing.T) {
	task, err := NewReceiptPrintTask(ReceiptPrintPayload{BranchID: "b1", SaleID: "s1"})
	require.NoError(t, err)
	require.NotContains(t, string(task.Payload()), "margin_mm")
	got, err := DecodeReceiptPrint(task)
	require.NoError(t, err)
	require.Nil(t, got.MarginMm)

	got, err = DecodeReceiptPrint(asynq.NewTask(TaskReceiptPrint, []byte(`{"branch_id":"b1","sale_id":"s1","margin_mm":0}`)))
	require.NoError(t, err)
	require.NotNil(t, got.MarginMm)
	require.Zero(t, *got.MarginMm)

	negative := -2.0
	_, err = NewReceiptPrintTask(ReceiptPrintPayload{BranchID: "b1", SaleID: "s1", MarginMm: &negative})
	require.Error(t, err)
}
