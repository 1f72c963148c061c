package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestTracing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestTracing())
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("requestID"))
	})

	t.Run("沒有識別碼時應配發一個新的", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodGet, "/ping", nil)
		router.ServeHTTP(recorder, request)

		requestID := recorder.Header().Get("X-Request-ID")
		_, err := uuid.Parse(requestID)
		require.NoError(t, err)
		assert.Equal(t, requestID, recorder.Body.String())
	})

	t.Run("呼叫端帶來的識別碼應被沿用", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodGet, "/ping", nil)
		request.Header.Set("X-Request-ID", "trace-123")
		router.ServeHTTP(recorder, request)

		assert.Equal(t, "trace-123", recorder.Header().Get("X-Request-ID"))
		assert.Equal(t, "trace-123", recorder.Body.String())
	})
}
