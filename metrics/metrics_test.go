package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.Submissions.WithLabelValues(ResultOK).Inc()
	c.Submissions.WithLabelValues(ResultOK).Inc()
	c.Submissions.WithLabelValues(ResultNetworkError).Inc()
	c.CatalogLoadFailures.Inc()
	c.CurrentEstimate.Set(240.0)

	if got := testutil.ToFloat64(c.Submissions.WithLabelValues(ResultOK)); got != 2 {
		t.Errorf("Expected 2 ok submissions, got %f", got)
	}
	if got := testutil.ToFloat64(c.Submissions.WithLabelValues(ResultNetworkError)); got != 1 {
		t.Errorf("Expected 1 network_error submission, got %f", got)
	}
	if got := testutil.ToFloat64(c.Submissions.WithLabelValues(ResultRejected)); got != 0 {
		t.Errorf("Expected 0 rejected submissions, got %f", got)
	}
	if got := testutil.ToFloat64(c.CatalogLoadFailures); got != 1 {
		t.Errorf("Expected 1 load failure, got %f", got)
	}
	if got := testutil.ToFloat64(c.CurrentEstimate); got != 240.0 {
		t.Errorf("Expected estimate gauge 240.0, got %f", got)
	}
}

func TestCollectorRegistersOnSeparateRegistries(t *testing.T) {
	// 同名指标在不同 Registry 上注册不应 panic
	_ = NewCollector(prometheus.NewRegistry())
	_ = NewCollector(prometheus.NewRegistry())
}
