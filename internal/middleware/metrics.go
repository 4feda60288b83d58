package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sardorbek21324/Kairos-team/internal/service"
)

// unmatchedRoute labels requests that hit no registered route so arbitrary
// paths cannot grow the label set.
const unmatchedRoute = "unmatched"

// Metrics records duration and status of every request except those to the
// skipped routes, typically the probe and scrape endpoints.
func Metrics(metricsSvc *service.MetricsService, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		if _, ok := skipped[route]; ok {
			return
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
