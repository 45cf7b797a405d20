package middleware

import (
	"net/http"
	"time"
)

// HTTPMetrics receives one observation per completed request.
type HTTPMetrics interface {
	RecordHTTPRequest(route, method string, status int, duration time.Duration)
}

// MetricsMiddleware reports each request under the fixed route label, never
// the raw URL path, to keep label cardinality bounded.
func MetricsMiddleware(m HTTPMetrics, route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			tw := wrapWriter(w)
			next.ServeHTTP(tw, r)
			m.RecordHTTPRequest(route, r.Method, tw.status, time.Since(start))
		})
	}
}
