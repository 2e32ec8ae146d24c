package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/kamala96/email-service/internal/ratelimit"
)

// RateLimit returns middleware that applies the per-IP limiter to every
// request, answering 429 when the caller's bucket is empty.
func RateLimit(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := CallerIP(r)
			if !limiter.Allow(ip) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]any{
					"success": false,
					"code":    1002,
					"message": "too many requests",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CallerIP returns the caller's apparent IP: the first entry of
// X-Forwarded-For when a proxy set it, else the direct connection address.
func CallerIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
