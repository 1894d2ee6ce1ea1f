package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/fxnewsbot/backend/pkg/metrics"
)

// Metrics measures execution time and status for HTTP handlers, reporting
// them to Prometheus. The route label uses the ServeMux pattern when
// available so cardinality stays bounded.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}

		metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(recorder.status), time.Since(start))
	})
}
