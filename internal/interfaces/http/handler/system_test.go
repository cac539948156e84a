package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/utilitybill/backend/tests/testutil"
)

func newSystemEngine(h *SystemHandler) *gin.Engine {
	engine := gin.New()
	h.RegisterRoutes(engine)
	return engine
}

func TestSystemHandler_Info(t *testing.T) {
	h := NewSystemHandler("utilitybill", "1.2.3")
	w := testutil.PerformRequest(t, newSystemEngine(h), http.MethodGet, "/system/info", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	info := testutil.DecodeData[SystemInfoResponse](t, w)
	assert.Equal(t, "utilitybill", info.Name)
	assert.Equal(t, "1.2.3", info.Version)
	assert.NotEmpty(t, info.GoVersion)
}

func TestSystemHandler_Live(t *testing.T) {
	h := NewSystemHandler("utilitybill", "dev")
	w := testutil.PerformRequest(t, newSystemEngine(h), http.MethodGet, "/health/live", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSystemHandler_Ready(t *testing.T) {
	t.Run("all checks pass", func(t *testing.T) {
		h := NewSystemHandler("utilitybill", "dev").
			WithCheck("database", func(context.Context) error { return nil })

		w := testutil.PerformRequest(t, newSystemEngine(h), http.MethodGet, "/health/ready", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)

		ready := testutil.DecodeData[ReadinessResponse](t, w)
		assert.Equal(t, "ok", ready.Status)
		assert.Equal(t, "ok", ready.Checks["database"])
	})

	t.Run("failing check answers 503", func(t *testing.T) {
		h := NewSystemHandler("utilitybill", "dev").
			WithCheck("database", func(context.Context) error { return nil }).
			WithCheck("redis", func(context.Context) error { return errors.New("connection refused") })

		w := testutil.PerformRequest(t, newSystemEngine(h), http.MethodGet, "/health/ready", nil, nil)
		require.Equal(t, http.StatusServiceUnavailable, w.Code)

		resp := testutil.DecodeResponse(t, w)
		assert.False(t, resp.Success)
		assert.Contains(t, string(resp.Data), "connection refused")
	})

	t.Run("checks see a deadline", func(t *testing.T) {
		var hasDeadline bool
		h := NewSystemHandler("utilitybill", "dev").
			WithCheck("database", func(ctx context.Context) error {
				_, hasDeadline = ctx.Deadline()
				return nil
			})

		testutil.PerformRequest(t, newSystemEngine(h), http.MethodGet, "/health/ready", nil, nil)
		assert.True(t, hasDeadline)
	})
}
