package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/vinatravel/discovery/pkg/metrics"
)

// metricsMiddleware wraps a handler to record request count and latency.
func metricsMiddleware(next http.HandlerFunc, endpoint string, m *metrics.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		m.RecordHTTPRequest(endpoint, r.Method,
			strconv.Itoa(wrapped.statusCode),
			float64(time.Since(start).Milliseconds()),
		)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
