package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"vividly/internal/metrics"

	"github.com/labstack/echo/v4"
)

// Metrics records request counts and latency keyed by the route template,
// so /api/projects/:id stays a single series.
func Metrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		path := c.Path()
		if path == "" {
			path = "unmatched"
		}
		status := c.Response().Status
		if err != nil {
			status = http.StatusInternalServerError
			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				status = httpErr.Code
			}
		}
		method := c.Request().Method
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		return err
	}
}
