package es

import (
	"context"
	"strconv"
	"time"

	"github.com/woeplanet/woeplanet-www-spelunker/internal/metrics"
)

// InstrumentedEngine wraps an Engine with Prometheus observability. The
// worker client stays metrics-free; this layer owns the counters.
type InstrumentedEngine struct {
	inner Engine
}

var _ Engine = (*InstrumentedEngine)(nil)

// NewInstrumented wraps an engine with query metrics.
func NewInstrumented(inner Engine) *InstrumentedEngine {
	return &InstrumentedEngine{inner: inner}
}

// Search delegates to the inner engine and records per-index query count
// and duration.
func (e *InstrumentedEngine) Search(ctx context.Context, index string, body any) (*Response, error) {
	start := time.Now()

	rsp, err := e.inner.Search(ctx, index, body)

	metrics.EngineQueryDuration.WithLabelValues(index).Observe(time.Since(start).Seconds())

	status := "error"
	if err == nil && rsp != nil {
		status = strconv.Itoa(rsp.Status)
	}
	metrics.EngineQueriesTotal.WithLabelValues(index, status).Inc()

	return rsp, err
}

// Ping delegates to the inner engine.
func (e *InstrumentedEngine) Ping(ctx context.Context) error {
	return e.inner.Ping(ctx)
}
