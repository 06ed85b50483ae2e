package middleware

import (
	"net/http"

	"github.com/fruitstand/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Default body limits. Stripe webhook payloads are small, so the webhook
// route gets a much tighter limit than the rest of the API.
const (
	DefaultBodyLimit = 1 << 20
	WebhookBodyLimit = 64 << 10
)

// BodyLimit rejects requests whose declared length exceeds maxBytes with a
// 413 and caps the body reader for requests that declare no length.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRequestTooLarge,
				"Request body exceeds maximum allowed size",
				GetRequestID(c),
			))
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
