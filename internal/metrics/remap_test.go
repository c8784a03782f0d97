package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRemap(t *testing.T) {
	before := testutil.ToFloat64(RemapTotal.WithLabelValues("metrics_test", OutcomeRolledBack))
	ObserveRemap("metrics_test", OutcomeRolledBack, 2*time.Second)

	after := testutil.ToFloat64(RemapTotal.WithLabelValues("metrics_test", OutcomeRolledBack))
	if after-before != 1 {
		t.Errorf("remap_total delta = %f, want 1", after-before)
	}
	if testutil.CollectAndCount(RemapDuration) == 0 {
		t.Error("expected remap_duration_seconds observations")
	}
}

func TestRegisterRemapMetrics_Idempotent(t *testing.T) {
	RegisterRemapMetrics()
	RegisterRemapMetrics()
}
