package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	TrialStageEvaluate = "evaluate"
	TrialStageWrite    = "write"
	TrialStageNotify   = "notify"
	TrialStageInvalid  = "invalid_record"
)

// TrialMetrics captures trial lifecycle run health signals.
type TrialMetrics struct {
	serviceName string
	environment string

	runs          *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	transitions   *prometheus.CounterVec
	notifications *prometheus.CounterVec
	tenantErrors  *prometheus.CounterVec
	casConflicts  *prometheus.CounterVec
}

var (
	trialMetricsOnce sync.Once
	trialMetrics     *TrialMetrics
)

// Trial returns the singleton trial metrics registry.
func Trial() *TrialMetrics {
	return TrialWithConfig(Config{})
}

// TrialWithConfig returns the singleton trial metrics registry using config labels.
func TrialWithConfig(cfg Config) *TrialMetrics {
	trialMetricsOnce.Do(func() {
		trialMetrics = newTrialMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return trialMetrics
}

// ResetTrialMetricsForTest resets the trial metrics singleton for tests.
func ResetTrialMetricsForTest() {
	trialMetricsOnce = sync.Once{}
	trialMetrics = nil
}

func newTrialMetrics(registerer prometheus.Registerer, cfg Config) *TrialMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "campushq"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	m := &TrialMetrics{
		serviceName: serviceName,
		environment: environment,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campushq_trial_runs_total",
			Help: "Trial lifecycle check runs by trigger.",
		}, []string{"service", "env", "trigger"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "campushq_trial_run_duration_seconds",
			Help:    "Trial lifecycle run duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"service", "env", "trigger"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campushq_trial_transitions_total",
			Help: "Trial state transitions applied, by from/to state.",
		}, []string{"service", "env", "from", "to"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campushq_trial_notifications_total",
			Help: "Trial notifications dispatched by event kind.",
		}, []string{"service", "env", "kind"}),
		tenantErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campushq_trial_tenant_errors_total",
			Help: "Per-tenant errors recorded during trial runs, by stage.",
		}, []string{"service", "env", "stage"}),
		casConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campushq_trial_cas_conflicts_total",
			Help: "Conditional state writes lost to a concurrent run.",
		}, []string{"service", "env"}),
	}

	registerer.MustRegister(
		m.runs,
		m.runDuration,
		m.transitions,
		m.notifications,
		m.tenantErrors,
		m.casConflicts,
	)
	return m
}

func (m *TrialMetrics) IncRun(trigger string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(m.serviceName, m.environment, trigger).Inc()
}

func (m *TrialMetrics) ObserveRunDuration(trigger string, d time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.WithLabelValues(m.serviceName, m.environment, trigger).Observe(d.Seconds())
}

func (m *TrialMetrics) IncTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(m.serviceName, m.environment, from, to).Inc()
}

func (m *TrialMetrics) IncNotification(kind string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(m.serviceName, m.environment, kind).Inc()
}

func (m *TrialMetrics) IncTenantError(stage string) {
	if m == nil {
		return
	}
	m.tenantErrors.WithLabelValues(m.serviceName, m.environment, stage).Inc()
}

func (m *TrialMetrics) IncCASConflict() {
	if m == nil {
		return
	}
	m.casConflicts.WithLabelValues(m.serviceName, m.environment).Inc()
}
