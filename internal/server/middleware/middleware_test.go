package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/mamadbah2/xchicks/internal/domain/models"
)

func newEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Logger(zaptest.NewLogger(t)), Actor())
	r.GET("/open", func(c *gin.Context) {
		c.String(http.StatusOK, ActorFrom(c).ID)
	})
	r.POST("/decide", Require(models.CapDecideRequest), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestActorAndRequire(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		id     string
		role   string
		status int
	}{
		{"no identity", http.MethodGet, "/open", "", "", http.StatusUnauthorized},
		{"unknown role", http.MethodGet, "/open", "u1", "farmer", http.StatusUnauthorized},
		{"agent reads", http.MethodGet, "/open", "agent-1", "sales_agent", http.StatusOK},
		{"role is case insensitive", http.MethodGet, "/open", "agent-1", "Sales_Agent", http.StatusOK},
		{"agent cannot decide", http.MethodPost, "/decide", "agent-1", "sales_agent", http.StatusForbidden},
		{"manager decides", http.MethodPost, "/decide", "manager-1", "manager", http.StatusNoContent},
	}
	r := newEngine(t)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.id != "" {
				req.Header.Set(HeaderActorID, tc.id)
				req.Header.Set(HeaderActorRole, tc.role)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tc.status, w.Body.String())
			}
		})
	}
}
