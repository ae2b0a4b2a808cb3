package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/savemedha/outreach-api/pkg/utilities"
)

const bearerPrefix = "bearer "

type ctxKey struct{}

// WithAccountID returns a copy of ctx carrying the authenticated account id.
func WithAccountID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// AccountIDFromContext returns the id stored by Middleware.
func AccountIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// LogFields returns the request id and, on authenticated routes, the account id
// as zap key/value pairs, followed by kv.
func LogFields(r *http.Request, kv ...any) []any {
	fields := []any{"path", r.URL.Path, "request_id", utilities.RequestID(r.Context())}
	if id, ok := AccountIDFromContext(r.Context()); ok {
		fields = append(fields, "account_id", id)
	}
	return append(fields, kv...)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header value.
func BearerToken(header string) (string, error) {
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", ErrMissingToken
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", ErrMissingToken
	}
	return token, nil
}

// Middleware rejects requests without a currently valid bearer token and
// attaches the account id to the request context otherwise.
func Middleware(a *Authority, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := BearerToken(r.Header.Get("Authorization"))
			if err == nil {
				var id string
				id, err = a.Verify(r.Context(), token)
				if err == nil {
					next.ServeHTTP(w, r.WithContext(WithAccountID(r.Context(), id)))
					return
				}
			}

			status := http.StatusUnauthorized
			msg := PublicMessage(err)
			switch {
			case errors.Is(err, ErrUnauthorized):
				logger.Debugw("request not authenticated", LogFields(r, "err", err)...)
			case errors.Is(err, ErrTimeout):
				status, msg = http.StatusServiceUnavailable, "temporarily unavailable"
				logger.Warnw("token verification timed out", LogFields(r, "err", err)...)
			default:
				status, msg = http.StatusInternalServerError, "authentication failed"
				logger.Errorw("token verification failed", LogFields(r, "err", err)...)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
		})
	}
}
