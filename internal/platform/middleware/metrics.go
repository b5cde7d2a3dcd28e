package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/carehub/carehub/internal/platform/metrics"
)

// Metrics returns middleware that records request counts and latency into
// the Prometheus registry. The route label uses the matched Echo route
// pattern (e.g. /api/v1/patients/:id) rather than the raw path so that
// cardinality stays bounded.
func Metrics(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			status := strconv.Itoa(c.Response().Status)
			m.ObserveRequest(c.Request().Method, status, route, time.Since(start).Seconds())

			return err
		}
	}
}
