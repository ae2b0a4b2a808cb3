package router

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/savemedha/outreach-api/internal/callback"
	"github.com/savemedha/outreach-api/internal/contact"
	"github.com/savemedha/outreach-api/internal/newsletter"
	"github.com/savemedha/outreach-api/internal/ratelimit"
	"github.com/savemedha/outreach-api/internal/session"
	"github.com/savemedha/outreach-api/internal/user"
	"github.com/savemedha/outreach-api/pkg/utilities"
)

const DefaultAddr = "0.0.0.0:8431"

// Config holds HTTP settings read from HTTP_ADDR and CORS_ORIGIN.
type Config struct {
	Addr       string
	CORSOrigin string
}

func ConfigFromEnv() Config {
	cfg := Config{Addr: os.Getenv("HTTP_ADDR"), CORSOrigin: os.Getenv("CORS_ORIGIN")}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}
	return cfg
}

// Deps are the handlers and collaborators mounted by RegisterRoutes.
type Deps struct {
	Logger      *zap.SugaredLogger
	Auth        *session.Authority
	Users       *user.Handler
	Newsletter  *newsletter.Handler
	Contact     *contact.Handler
	Callback    *callback.Handler
	Limiter     ratelimit.Limiter
	LimitConfig ratelimit.Config
	Registry    *prometheus.Registry
	Config      Config
}

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

func (lrw *loggingResponseWriter) code() int {
	if lrw.status == 0 {
		return http.StatusOK
	}
	return lrw.status
}

// LoggingMiddleware tags each request with a ksuid request id (kept if the
// caller sent X-Request-ID) and logs it at debug level.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = utilities.NewKSUID()
			}
			w.Header().Set("X-Request-ID", id)
			r = r.WithContext(utilities.WithRequestID(r.Context(), id))

			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			logger.Debugw("http request",
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", lrw.code(),
				"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
			}
			// HSTS only over TLS; 30 days.
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware allows origin to call the API and answers preflight requests.
func CORSMiddleware(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			if origin != "*" {
				h.Add("Vary", "Origin")
			}
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Metrics counts requests and observes latency per matched route pattern.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outreach",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "outreach",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

// Middleware must wrap the ServeMux directly so the matched pattern is visible.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w}
		next.ServeHTTP(lrw, r)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(lrw.code())).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// RegisterRoutes mounts HTTP handlers on the standard library's http.ServeMux.
func RegisterRoutes(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	reg := d.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	limiter := d.Limiter
	if limiter == nil {
		limiter = ratelimit.NewMemoryLimiter(d.LimitConfig.Limit, d.LimitConfig.Window)
	}

	mux := http.NewServeMux()
	auth := session.Middleware(d.Auth, logger)
	protect := func(h http.HandlerFunc) http.Handler { return auth(h) }
	throttle := ratelimit.Middleware(limiter, d.LimitConfig, logger)

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	// users
	mux.Handle("POST /api/users/register", throttle(http.HandlerFunc(d.Users.Register)))
	mux.Handle("POST /api/users/login", throttle(http.HandlerFunc(d.Users.Login)))
	mux.Handle("GET /api/users", protect(d.Users.List))
	mux.Handle("GET /api/users/{id}", protect(d.Users.Get))
	mux.Handle("PUT /api/users/{id}", protect(d.Users.Update))

	// newsletter
	mux.HandleFunc("POST /api/newsletter", d.Newsletter.Subscribe)
	mux.Handle("GET /api/newsletter", protect(d.Newsletter.List))
	mux.Handle("GET /api/newsletter/{id}", protect(d.Newsletter.Get))
	mux.Handle("PUT /api/newsletter/{id}", protect(d.Newsletter.Update))
	mux.Handle("DELETE /api/newsletter/{id}", protect(d.Newsletter.Delete))

	// contact form
	mux.HandleFunc("POST /api/contact", d.Contact.Submit)
	mux.Handle("GET /api/contact", protect(d.Contact.List))
	mux.Handle("GET /api/contact/{id}", protect(d.Contact.Get))
	mux.Handle("PUT /api/contact/{id}", protect(d.Contact.Update))
	mux.Handle("DELETE /api/contact/{id}", protect(d.Contact.Delete))

	// callback requests
	mux.HandleFunc("POST /api/callbacks", d.Callback.Create)
	mux.Handle("GET /api/callbacks", protect(d.Callback.List))
	mux.Handle("GET /api/callbacks/{id}", protect(d.Callback.Get))
	mux.Handle("PUT /api/callbacks/{id}", protect(d.Callback.Update))

	origin := d.Config.CORSOrigin
	if origin == "" {
		origin = "*"
	}
	metrics := NewMetrics(reg)
	return LoggingMiddleware(logger)(
		CORSMiddleware(origin)(
			SecurityHeadersMiddleware()(
				metrics.Middleware(mux))))
}
