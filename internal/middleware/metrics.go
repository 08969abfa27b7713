package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/accounts/pkg/metrics"
)

// unmatchedRoute labels requests that hit no registered route, so arbitrary URLs do not
// create new series.
const unmatchedRoute = "unmatched"

// Metrics tracks in-flight requests and observes latency per method, route template and status.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.APIInFlight.Inc()
		start := time.Now()
		defer func() {
			metrics.APIInFlight.Dec()

			route := c.FullPath()
			if route == "" {
				route = unmatchedRoute
			}
			metrics.APILatency.
				WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
				Observe(time.Since(start).Seconds())
		}()

		c.Next()
	}
}
