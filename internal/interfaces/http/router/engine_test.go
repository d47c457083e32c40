package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lousydropout/invoice-me-sub000/internal/interfaces/http/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func newTestEngine(t *testing.T, cfg EngineConfig) *gin.Engine {
	t.Helper()
	engine, err := NewEngine(cfg, zap.NewNop())
	require.NoError(t, err)

	// services are never reached by the requests below
	Mount(engine, handler.NewHealthHandler("invoice-ledger", "test"), handler.NewInvoiceHandler(nil, nil), nil)
	engine.GET("/panic", func(c *gin.Context) { panic("boom") })
	return engine
}

func TestNewEngine_MiddlewareStack(t *testing.T) {
	engine := newTestEngine(t, EngineConfig{ServiceName: "invoice-ledger", MaxBodySize: 64})

	t.Run("health is mounted at the root", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	})

	t.Run("api routes carry the request id into errors", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices/not-a-uuid", nil)
		req.Header.Set("X-Request-ID", "req-42")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
		assert.Contains(t, w.Body.String(), `"request_id":"req-42"`)
	})

	t.Run("oversized bodies are rejected", func(t *testing.T) {
		body := `{"notes":"` + strings.Repeat("x", 100) + `"}`
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/invoices", strings.NewReader(body)))

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("panics become 500", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_INTERNAL")
	})
}

func TestNewEngine_CORS(t *testing.T) {
	engine := newTestEngine(t, EngineConfig{CORSAllowOrigins: []string{"https://billing.example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/invoices", nil)
	req.Header.Set("Origin", "https://billing.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://billing.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestNewEngine_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	engine := newTestEngine(t, EngineConfig{Meter: mp.Meter("http.server")})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/customers/abc/statement", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var routes []string
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "http_server_request_total" {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				route, _ := dp.Attributes.Value("http.route")
				routes = append(routes, route.AsString())
			}
		}
	}
	assert.Equal(t, []string{"/api/v1/customers/:id/statement"}, routes)
}
