package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	require.NoError(t, m.Track("receipt:print").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("receipt:print").End(boom), boom)
	m.AddStored(1)

	require.Equal(t, 1.0, counterValue(t, reg, "rxdesk_jobs_total", map[string]string{"job": "receipt:print", "status": "success"}))
	require.Equal(t, 1.0, counterValue(t, reg, "rxdesk_jobs_failures_total", map[string]string{"job": "receipt:print"}))
	require.Equal(t, 1.0, counterValue(t, reg, "rxdesk_receipts_stored_total", nil))
}

func TestNilMetricsTrackerIsNoop(t *testing.T) {
	var m *Metrics
	require.NoError(t, m.Track("x").End(nil))
	m.AddStored(3)
}
