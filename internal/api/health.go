package telegram

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthCheck проверка одной зависимости
type HealthCheck func(ctx context.Context) error

const healthCheckTimeout = 2 * time.Second

// NewHealthRouter собирает служебный HTTP-роутер с /health.
func NewHealthRouter(checks map[string]HealthCheck, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		statuses := make(map[string]string, len(names))
		healthy := true
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				healthy = false
				statuses[name] = err.Error()
				logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
				continue
			}
			statuses[name] = "ok"
		}

		code, status := http.StatusOK, "ok"
		if !healthy {
			code, status = http.StatusServiceUnavailable, "degraded"
		}
		c.JSON(code, gin.H{"status": status, "checks": statuses})
	})

	return router
}
