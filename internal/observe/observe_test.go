package observe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func attr(set attribute.Set, key string) string {
	v, _ := set.Value(attribute.Key(key))
	return v.AsString()
}

func TestRecordProvider(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordProvider(ctx, "openai", "llm", time.Now(), nil)
	m.RecordProvider(ctx, "openai", "llm", time.Now(), nil)
	m.RecordProvider(ctx, "gemini", "llm", time.Now(), errors.New("boom"))

	rm := collect(t, reader)
	met := findMetric(rm, "provider.requests")
	require.NotNil(t, met)

	sum, ok := met.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	counts := map[string]int64{}
	for _, dp := range sum.DataPoints {
		counts[attr(dp.Attributes, "provider")+"/"+attr(dp.Attributes, "status")] = dp.Value
	}
	assert.Equal(t, int64(2), counts["openai/ok"])
	assert.Equal(t, int64(1), counts["gemini/error"])

	require.NotNil(t, findMetric(rm, "provider.duration"))
}

func TestRecordAssessment(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.RecordAssessment(context.Background(), "en-US")

	met := findMetric(collect(t, reader), "assessments.completed")
	require.NotNil(t, met)
	sum := met.Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, "en-US", attr(sum.DataPoints[0].Attributes, "language"))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordProvider(context.Background(), "x", "y", time.Now(), nil)
		m.RecordAssessment(context.Background(), "en-US")
	})
	assert.NotNil(t, NewNopMetrics())
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	m, reader := newTestMetrics(t)

	r := chi.NewRouter()
	r.Use(Middleware(m))
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, path := range []string{"/items/1", "/items/2", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	met := findMetric(collect(t, reader), "http.server.request.duration")
	require.NotNil(t, met)
	hist, ok := met.Data.(metricdata.Histogram[float64])
	require.True(t, ok)

	counts := map[string]uint64{}
	for _, dp := range hist.DataPoints {
		counts[attr(dp.Attributes, "route")+" "+attr(dp.Attributes, "status")] = dp.Count
	}
	assert.Equal(t, uint64(2), counts["/items/{id} 418"])
	assert.Equal(t, uint64(1), counts["unmatched 404"])
}
