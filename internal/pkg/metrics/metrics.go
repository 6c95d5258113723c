package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the case workflow counters. A nil *Metrics is a no-op.
type Metrics struct {
	StatusTransitions *prometheus.CounterVec
	LtvRejections     prometheus.Counter
	AccountsCreated   *prometheus.CounterVec
	UrgencySweepFlips prometheus.Counter
}

// New registers the counters on reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		StatusTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "loanhub_case_status_transitions_total",
			Help: "Case status changes by target status",
		}, []string{"to_status"}),

		LtvRejections: f.NewCounter(prometheus.CounterOpts{
			Name: "loanhub_ltv_rejections_total",
			Help: "Prior loan writes rejected by the LTV ceiling",
		}),

		AccountsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "loanhub_accounts_created_total",
			Help: "Accounts created by role",
		}, []string{"role"}),

		UrgencySweepFlips: f.NewCounter(prometheus.CounterOpts{
			Name: "loanhub_urgency_sweep_flips_total",
			Help: "Cases marked urgent by the nightly sweep",
		}),
	}
}

// IncTransition records a status change
func (m *Metrics) IncTransition(toStatus string) {
	if m != nil {
		m.StatusTransitions.WithLabelValues(toStatus).Inc()
	}
}

// IncLtvRejection records a rejected prior loan write
func (m *Metrics) IncLtvRejection() {
	if m != nil {
		m.LtvRejections.Inc()
	}
}

// IncAccountCreated records a new account
func (m *Metrics) IncAccountCreated(role string) {
	if m != nil {
		m.AccountsCreated.WithLabelValues(role).Inc()
	}
}

// AddSweepFlips records cases flipped urgent by a sweep run
func (m *Metrics) AddSweepFlips(n int) {
	if m != nil && n > 0 {
		m.UrgencySweepFlips.Add(float64(n))
	}
}
