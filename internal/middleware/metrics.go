// Package middleware provides the Gin HTTP middleware of the signup service.
// Everything here is registered in internal/api/router.go ahead of the route
// handlers so every request is covered.
package middleware

import (
	"slices"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mergington/activity-signup/internal/telemetry"
)

// noRoute labels requests that matched no route so random URLs cannot blow up
// label cardinality.
const noRoute = "<no-route>"

// MetricsMiddleware returns a Gin handler recording http_requests_total and
// http_request_duration_seconds for every request.
//
// The path label is the matched route template from c.FullPath(), so a signup
// is recorded as /activities/:name/signup no matter which activity was named.
// Route templates listed in skip (typically the probe endpoints) are not
// recorded at all.
//
// Register it after gin.Recovery() and RequestIDMiddleware so statuses written
// by error handlers are captured.
func MetricsMiddleware(skip ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = noRoute
		}
		if slices.Contains(skip, path) {
			return
		}

		method := c.Request.Method
		telemetry.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		telemetry.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
