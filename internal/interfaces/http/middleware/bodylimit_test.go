package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// echoLength reports how many body bytes the handler could read
func echoLength(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.String(http.StatusBadRequest, "read failed after %d bytes", len(body))
		return
	}
	c.String(http.StatusOK, "%d", len(body))
}

func TestBodyLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		limit      int64
		method     string
		body       string
		chunked    bool
		wantStatus int
		wantBody   string
	}{
		{name: "webhook payload under limit", limit: WebhookBodyLimit, method: http.MethodPost,
			body: `{"type":"payment_intent.succeeded"}`, wantStatus: http.StatusOK, wantBody: "35"},
		{name: "declared length over limit", limit: 100, method: http.MethodPost,
			body: strings.Repeat("x", 200), wantStatus: http.StatusRequestEntityTooLarge, wantBody: `"code":"ERR_REQUEST_TOO_LARGE"`},
		{name: "body exactly at limit", limit: 10, method: http.MethodPost,
			body: strings.Repeat("x", 10), wantStatus: http.StatusOK, wantBody: "10"},
		{name: "chunked body over limit fails on read", limit: 50, method: http.MethodPost,
			body: strings.Repeat("x", 100), chunked: true, wantStatus: http.StatusBadRequest, wantBody: "read failed"},
		{name: "get without body", limit: 10, method: http.MethodGet, wantStatus: http.StatusOK, wantBody: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(BodyLimit(tt.limit))
			router.Handle(tt.method, "/upload", echoLength)

			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, "/upload", body)
			if tt.chunked {
				req.ContentLength = -1
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}
