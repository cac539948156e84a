package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/utilitybill/backend/internal/infrastructure/logger"
	"github.com/utilitybill/backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type pingRegistrar struct {
	prefix string
}

func (p pingRegistrar) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET(p.prefix+"/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	rg.POST(p.prefix+"/echo", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.JSON(http.StatusOK, body)
	})
	rg.GET(p.prefix+"/panic", func(c *gin.Context) {
		panic("boom")
	})
}

func TestNewRouter(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

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
	NewRouter(engine, WithAPIVersion("v1")).
		Register(pingRegistrar{prefix: "/billing"}).
		Register(pingRegistrar{prefix: "/other"}).
		Setup()

	for _, path := range []string{"/api/v1/billing/ping", "/api/v1/other/ping"} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "pong", w.Body.String())
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/billing/ping", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func newTestEngine(t *testing.T, cfg EngineConfig) *gin.Engine {
	t.Helper()
	engine, err := NewEngine(cfg)
	require.NoError(t, err)
	NewRouter(engine).Register(pingRegistrar{prefix: "/billing"}).Setup()
	return engine
}

func TestNewEngine_Chain(t *testing.T) {
	engine := newTestEngine(t, EngineConfig{
		ServiceName:      "utilitybill-test",
		RequestTimeout:   time.Second,
		MaxBodySize:      64,
		CORSAllowOrigins: []string{"https://ops.example.com"},
	})

	t.Run("request id and security headers", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/billing/ping", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get(logger.RequestIDHeader))
		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	})

	t.Run("configured origin gets CORS headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/billing/ping", nil)
		req.Header.Set("Origin", "https://ops.example.com")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://ops.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("oversized body rejected", func(t *testing.T) {
		body := `{"note":"` + strings.Repeat("x", 128) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/echo", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("panic recovered", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/billing/panic", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestNewEngine_InvalidTrustedProxy(t *testing.T) {
	_, err := NewEngine(EngineConfig{TrustedProxies: []string{"not-an-ip"}})
	assert.Error(t, err)
}

func TestNewEngine_RateLimiter(t *testing.T) {
	limiter := middleware.NewRateLimiter(1, time.Hour)
	defer limiter.Stop()

	engine, err := NewEngine(EngineConfig{RateLimiter: limiter})
	require.NoError(t, err)
	r := NewRouter(engine)
	r.Register(pingRegistrar{prefix: "/billing"})
	r.Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/billing/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/billing/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
