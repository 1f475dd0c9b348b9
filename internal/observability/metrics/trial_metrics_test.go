package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func swapPrometheusRegistry(registry *prometheus.Registry) func() {
	oldRegisterer := prometheus.DefaultRegisterer
	oldGatherer := prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
	return func() {
		prometheus.DefaultRegisterer = oldRegisterer
		prometheus.DefaultGatherer = oldGatherer
		ResetTrialMetricsForTest()
	}
}

func getCounterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metricFamilies {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if !labelsMatch(metric, labels) {
				continue
			}
			if metric.Counter == nil {
				t.Fatalf("metric %s is not a counter", name)
			}
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}

func TestTrialMetricsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	defer restore()
	ResetTrialMetricsForTest()

	m := TrialWithConfig(Config{ServiceName: "campushq", Environment: "test"})

	m.IncRun("scheduler")
	m.IncRun("scheduler")
	m.IncTransition("TRIALING", "WARNED_7D")
	m.IncNotification("trial.warning.first")
	m.IncTenantError(TrialStageNotify)
	m.IncCASConflict()
	m.ObserveRunDuration("scheduler", 250*time.Millisecond)

	base := map[string]string{"service": "campushq", "env": "test"}

	runs := getCounterValue(t, registry, "campushq_trial_runs_total",
		merge(base, map[string]string{"trigger": "scheduler"}))
	if runs != 2 {
		t.Fatalf("expected 2 runs, got %v", runs)
	}

	transitions := getCounterValue(t, registry, "campushq_trial_transitions_total",
		merge(base, map[string]string{"from": "TRIALING", "to": "WARNED_7D"}))
	if transitions != 1 {
		t.Fatalf("expected 1 transition, got %v", transitions)
	}

	notifications := getCounterValue(t, registry, "campushq_trial_notifications_total",
		merge(base, map[string]string{"kind": "trial.warning.first"}))
	if notifications != 1 {
		t.Fatalf("expected 1 notification, got %v", notifications)
	}

	tenantErrors := getCounterValue(t, registry, "campushq_trial_tenant_errors_total",
		merge(base, map[string]string{"stage": TrialStageNotify}))
	if tenantErrors != 1 {
		t.Fatalf("expected 1 tenant error, got %v", tenantErrors)
	}

	conflicts := getCounterValue(t, registry, "campushq_trial_cas_conflicts_total", base)
	if conflicts != 1 {
		t.Fatalf("expected 1 conflict, got %v", conflicts)
	}
}

func TestTrialMetricsNilReceiverIsSafe(t *testing.T) {
	var m *TrialMetrics
	m.IncRun("scheduler")
	m.IncTransition("a", "b")
	m.IncNotification("kind")
	m.IncTenantError("stage")
	m.IncCASConflict()
	m.ObserveRunDuration("scheduler", time.Second)
}

func merge(a, b map[string]string) map[string]string {
	out := make(map[string]string, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
