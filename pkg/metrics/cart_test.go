package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCartEngineMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCartEngineMetrics(reg)
	m.IncMutation("update", "authenticated", OutcomeFailure)
	m.IncMutation("update", "authenticated", OutcomeFailure)
	m.IncRollback("update")
	m.AddMergeLines(OutcomeSuccess, 3)
	m.AddMergeLines(OutcomeFailure, 0)
	m.ObserveRemote("fetch", 20*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "cart_engine_mutations_total", map[string]string{"op": "update", "mode": "authenticated", "outcome": OutcomeFailure}); err != nil {
		t.Fatalf("fetch mutations: %v", err)
	} else if got != 2 {
		t.Fatalf("expected mutations=2, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "cart_engine_rollbacks_total", map[string]string{"op": "update"}); err != nil {
		t.Fatalf("fetch rollbacks: %v", err)
	} else if got != 1 {
		t.Fatalf("expected rollbacks=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "cart_engine_merge_lines_total", map[string]string{"outcome": OutcomeSuccess}); err != nil {
		t.Fatalf("fetch merge lines: %v", err)
	} else if got != 3 {
		t.Fatalf("expected merge lines=3, got %f", got)
	}
	if _, err := fetchCounterValue(mfs, "cart_engine_merge_lines_total", map[string]string{"outcome": OutcomeFailure}); err == nil {
		t.Fatalf("expected zero-line failure series to be absent")
	}
	if got, err := fetchHistogramSum(mfs, "cart_engine_remote_duration_seconds", map[string]string{"op": "fetch"}); err != nil {
		t.Fatalf("fetch remote duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestCartServiceMetricsObserveOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCartServiceMetrics(reg)
	started := time.Now().Add(-10 * time.Millisecond)
	m.Observe("add", started, nil)
	m.Observe("add", started, errors.New("boom"))
	m.Observe("", started, nil)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, tc := range []struct {
		labels map[string]string
		want   float64
	}{
		{map[string]string{"op": "add", "outcome": OutcomeSuccess}, 1},
		{map[string]string{"op": "add", "outcome": OutcomeFailure}, 1},
		{map[string]string{"op": "unknown", "outcome": OutcomeSuccess}, 1},
	} {
		got, err := fetchCounterValue(mfs, "cart_service_operations_total", tc.labels)
		if err != nil {
			t.Fatalf("fetch %v: %v", tc.labels, err)
		}
		if got != tc.want {
			t.Fatalf("expected %v=%f, got %f", tc.labels, tc.want, got)
		}
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var engine *CartEngineMetrics
	engine.IncMutation("add", "anonymous", OutcomeSuccess)
	engine.IncRollback("remove")
	engine.AddMergeLines(OutcomeSuccess, 1)
	engine.ObserveRemote("add", time.Second)

	var service *CartServiceMetrics
	service.Observe("add", time.Now(), nil)

	NewCartEngineMetrics(nil).IncMutation("add", "anonymous", OutcomeSuccess)
	NewCartServiceMetrics(nil).Observe("add", time.Now(), nil)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if value, ok := want[pair.GetName()]; ok {
			if value != pair.GetValue() {
				return false
			}
			matched++
		}
	}
	return matched == len(want)
}
