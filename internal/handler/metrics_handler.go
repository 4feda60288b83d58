package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sardorbek21324/Kairos-team/internal/dto"
	"github.com/sardorbek21324/Kairos-team/internal/service"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck probes one dependency. A nil error means healthy.
type HealthCheck struct {
	Name  string
	Probe func(ctx context.Context) error
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	checks  []HealthCheck
}

// NewMetricsHandler constructs a metrics handler. Checks run on every
// health request.
func NewMetricsHandler(metrics *service.MetricsService, checks ...HealthCheck) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, checks: checks}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health reports "ok" when every check passes and "degraded" with the failing
// checks otherwise. The process is alive either way, so the status code is
// always 200.
// @Summary Liveness probe
// @Tags system
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Router /health [get]
func (h *MetricsHandler) Health(c *gin.Context) {
	resp := dto.HealthResponse{Status: "ok"}
	if len(h.checks) > 0 {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()
		for _, check := range h.checks {
			if check.Probe == nil {
				continue
			}
			if err := check.Probe(ctx); err != nil {
				if resp.Checks == nil {
					resp.Checks = make(map[string]string)
				}
				resp.Checks[check.Name] = err.Error()
				resp.Status = "degraded"
			}
		}
	}
	c.JSON(http.StatusOK, resp)
}
