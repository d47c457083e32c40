package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.NotNil(t, r)
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)
}

func TestRouterWithAPIVersion(t *testing.T) {
	r := NewRouter(gin.New(), WithAPIVersion("v2"))

	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v2"))

	group := NewDomainGroup("test", "/test")
	group.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	r.Register(group).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/test/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestDomainGroup(t *testing.T) {
	t.Run("creates group with name and prefix", func(t *testing.T) {
		g := NewDomainGroup("invoices", "/invoices")
		assert.Equal(t, "invoices", g.Name())
		assert.Equal(t, "/invoices", g.Prefix())
	})

	t.Run("registers chained routes", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("test", "/test")
		g.GET("/a", func(c *gin.Context) { c.String(http.StatusOK, "a") }).
			POST("/b", func(c *gin.Context) { c.String(http.StatusCreated, "b") }).
			PUT("/c/:id", func(c *gin.Context) { c.String(http.StatusOK, c.Param("id")) })

		g.RegisterRoutes(engine.Group("/api/v1"))

		tests := []struct {
			method string
			path   string
			status int
			body   string
		}{
			{http.MethodGet, "/api/v1/test/a", http.StatusOK, "a"},
			{http.MethodPost, "/api/v1/test/b", http.StatusCreated, "b"},
			{http.MethodPut, "/api/v1/test/c/42", http.StatusOK, "42"},
		}
		for _, tt := range tests {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, w.Code, "%s %s", tt.method, tt.path)
			assert.Equal(t, tt.body, w.Body.String())
		}
	})

	t.Run("applies middleware", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("test", "/test").Use(func(c *gin.Context) {
			c.Header("X-Test-Middleware", "applied")
			c.Next()
		})
		g.GET("/items", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		g.RegisterRoutes(engine.Group("/api/v1"))

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/test/items", nil))

		assert.Equal(t, "applied", w.Header().Get("X-Test-Middleware"))
	})
}

func TestInvoiceRoutes(t *testing.T) {
	g := InvoiceRoutes(nil)
	assert.Equal(t, "/invoices", g.Prefix())

	var routes []string
	for _, r := range g.routes {
		routes = append(routes, r.method+" "+r.path)
	}
	assert.ElementsMatch(t, []string{
		"POST ",
		"GET ",
		"GET /overdue",
		"GET /number/:number",
		"GET /:id",
		"GET /:id/summary",
		"PUT /:id/line-items",
		"PUT /:id/due-date",
		"PUT /:id/tax-rate",
		"PUT /:id/notes",
		"POST /:id/send",
		"POST /:id/payments",
	}, routes)

	customers := CustomerRoutes(nil)
	assert.Len(t, customers.routes, 1)
	assert.True(t, strings.HasSuffix(customers.routes[0].path, "/statement"))
}

func TestOutboxRoutes(t *testing.T) {
	g := OutboxRoutes(nil)
	assert.Equal(t, "/admin/outbox", g.Prefix())

	var routes []string
	for _, r := range g.routes {
		routes = append(routes, r.method+" "+r.path)
	}
	assert.ElementsMatch(t, []string{
		"GET /stats",
		"GET /dead",
		"POST /retry-dead",
		"GET /:id",
		"POST /:id/retry",
	}, routes)
}
