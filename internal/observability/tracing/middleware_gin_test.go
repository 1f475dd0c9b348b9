package tracing

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func newTestEngine(t *testing.T) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("request_id", "req-123")
		c.Next()
	})
	r.Use(GinMiddleware())
	return r, recorder
}

func spanAttributes(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	return attrs
}

func TestGinMiddlewareRecordsServerSpan(t *testing.T) {
	r, recorder := newTestEngine(t)
	r.GET("/v1/trials", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": []string{}})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/trials", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "HTTP GET /v1/trials", span.Name())

	attrs := spanAttributes(span)
	assert.Equal(t, "/v1/trials", attrs["http.route"].AsString())
	assert.Equal(t, int64(http.StatusOK), attrs["http.status_code"].AsInt64())
	assert.Equal(t, "req-123", attrs["request_id"].AsString())
	assert.Equal(t, codes.Unset, span.Status().Code)
}

func TestGinMiddlewareMarksServerErrors(t *testing.T) {
	r, recorder := newTestEngine(t)
	r.POST("/v1/trial-runs", func(c *gin.Context) {
		_ = c.Error(errors.New("store unavailable"))
		c.JSON(http.StatusInternalServerError, gin.H{})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/trial-runs", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, codes.Error, span.Status().Code)

	attrs := spanAttributes(span)
	assert.Equal(t, int64(http.StatusInternalServerError), attrs["http.status_code"].AsInt64())
	require.NotEmpty(t, span.Events())
}

func TestNewProviderDisabledUsesNoop(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	provider, err := NewProvider(nil, Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, provider)
	assert.Equal(t, provider, otel.GetTracerProvider())
}
