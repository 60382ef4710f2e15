package middleware

import (
	"net"
	"net/http"
	"strconv"

	"github.com/sakif/skillshare/internal/metrics"
	"github.com/sakif/skillshare/internal/ratelimit"
)

// RateLimit rejects clients that exceed limiter's budget with 429. Clients are
// keyed by remote IP, so chi's RealIP must run first when behind a proxy.
func RateLimit(limiter *ratelimit.Limiter, name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(r.Context(), clientIP(r)) {
				metrics.RateLimited.WithLabelValues(name).Inc()
				w.Header().Set("Retry-After", strconv.Itoa(int(limiter.Window().Seconds())))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate_limited","message":"too many requests, slow down"}` + "\n"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
