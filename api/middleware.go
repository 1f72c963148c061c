package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestTracing 為每個請求配發追蹤識別碼並寫回回應標頭，
// 呼叫端帶來的識別碼會被沿用，方便跨服務串起同一筆請求的日誌
func RequestTracing() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("requestID", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}
