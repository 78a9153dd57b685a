package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterEngineMetrics_Idempotent(t *testing.T) {
	RegisterEngineMetrics()
	RegisterEngineMetrics() // second call must not panic

	EngineQueriesTotal.WithLabelValues("woeplanet", "200").Inc()
	if val := testutil.ToFloat64(EngineQueriesTotal.WithLabelValues("woeplanet", "200")); val < 1 {
		t.Errorf("expected counter to record, got %f", val)
	}
}
