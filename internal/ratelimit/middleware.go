package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// ClientKey identifies the caller by remote host, ignoring the port.
func ClientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return r.RemoteAddr
	}
	return "ip:" + host
}

// Middleware rejects requests over the limit with 429. Each client gets a
// separate bucket per path. Limiter errors let the request through and are
// logged.
func Middleware(l Limiter, cfg Config, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if cfg.Limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := l.Allow(r.Context(), ClientKey(r)+":"+r.URL.Path)
			if err != nil {
				logger.Warnw("rate limiter unavailable", "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				w.Header().Set("Retry-After", strconv.FormatInt(int64(cfg.Window.Seconds()), 10))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "too many attempts"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
