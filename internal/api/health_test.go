package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHealthRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		checks   map[string]HealthCheck
		wantCode int
		wantBody string
	}{
		{
			name:     "no dependencies",
			checks:   nil,
			wantCode: http.StatusOK,
			wantBody: "ok",
		},
		{
			name: "all healthy",
			checks: map[string]HealthCheck{
				"storage": func(context.Context) error { return nil },
			},
			wantCode: http.StatusOK,
			wantBody: "ok",
		},
		{
			name: "redis down",
			checks: map[string]HealthCheck{
				"storage":  func(context.Context) error { return nil },
				"sessions": func(context.Context) error { return errors.New("connection refused") },
			},
			wantCode: http.StatusServiceUnavailable,
			wantBody: "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewHealthRouter(tt.checks, zap.NewNop())

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			router.ServeHTTP(rec, req)

			require.Equal(t, tt.wantCode, rec.Code)

			var body struct {
				Status string            `json:"status"`
				Checks map[string]string `json:"checks"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Equal(t, tt.wantBody, body.Status)
			require.Len(t, body.Checks, len(tt.checks))
		})
	}
}
