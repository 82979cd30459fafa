package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/alanyoungcy/bondtrader/internal/telemetry"
)

// Metrics records request durations. The route pattern, not the raw path,
// is used as the label so product ids do not explode cardinality.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := wrap(w)
		next.ServeHTTP(rw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		telemetry.HTTPRequestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).
			Observe(time.Since(start).Seconds())
	})
}
