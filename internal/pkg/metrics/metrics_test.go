package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncTransition("승인")
	m.IncTransition("승인")
	m.IncLtvRejection()
	m.IncAccountCreated("staff")
	m.AddSweepFlips(3)
	m.AddSweepFlips(0)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.StatusTransitions.WithLabelValues("승인")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.LtvRejections))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.AccountsCreated.WithLabelValues("staff")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.UrgencySweepFlips))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 4)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncTransition("승인")
		m.IncLtvRejection()
		m.IncAccountCreated("staff")
		m.AddSweepFlips(1)
	})
}
