package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestHandler_RecordsServerSpan(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp := newProvider(exp, resource.Empty(), 1.0)
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	h := Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), "weather-api")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cities", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	require.NoError(t, tp.ForceFlush(context.Background()))
	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "weather-api", spans[0].Name)
}

func TestNewProvider_ZeroRatioSamplesNothing(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp := newProvider(exp, resource.Empty(), 0)

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	span.End()

	require.NoError(t, tp.ForceFlush(context.Background()))
	assert.Empty(t, exp.GetSpans())
}
