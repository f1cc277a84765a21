package middleware

import (
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// installRecorder routes the global tracer provider to an in-memory
// recorder for the duration of the test.
func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(t.Context())
	})
	return recorder
}

func spanNamed(spans []sdktrace.ReadOnlySpan, name string) sdktrace.ReadOnlySpan {
	for _, s := range spans {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

func hasEvent(span sdktrace.ReadOnlySpan, name string) bool {
	for _, e := range span.Events() {
		if e.Name == name {
			return true
		}
	}
	return false
}

// recordingMetrics is an in-memory ports.MetricsCollector.
type recordingMetrics struct {
	mu        sync.Mutex
	latencies []metricSample
	counters  []metricSample
	gauges    []metricSample
}

type metricSample struct {
	name   string
	value  float64
	labels map[string]string
}

func (r *recordingMetrics) RecordLatency(op string, d time.Duration, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latencies = append(r.latencies, metricSample{op, d.Seconds(), labels})
}

func (r *recordingMetrics) RecordCounter(name string, v float64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters = append(r.counters, metricSample{name, v, labels})
}

func (r *recordingMetrics) RecordGauge(name string, v float64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gauges = append(r.gauges, metricSample{name, v, labels})
}

func (r *recordingMetrics) RecordHistogram(string, float64, map[string]string) {}

func (r *recordingMetrics) counter(name string) []metricSample {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []metricSample
	for _, c := range r.counters {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}
