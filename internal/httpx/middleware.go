package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ariefcatur/go-farm-market/internal/apperr"
	"github.com/ariefcatur/go-farm-market/internal/auth"
	"github.com/ariefcatur/go-farm-market/internal/orders"
	"github.com/go-chi/chi/v5/middleware"
)

// Authenticator resolves a bearer token into a caller.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Caller, error)
}

type callerKey struct{}

func withCaller(ctx context.Context, c auth.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

func callerFrom(ctx context.Context) (auth.Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(auth.Caller)
	return c, ok
}

func accessLog(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// traceRequest carries the request id into order event envelopes.
func traceRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			r = r.WithContext(orders.WithTraceID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func requireAuth(authn Authenticator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(h, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				writeError(w, r, log, apperr.Unauthenticated("missing bearer token"))
				return
			}
			c, err := authn.Authenticate(r.Context(), strings.TrimSpace(token))
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				writeError(w, r, log, apperr.Unauthenticated("token expired"))
				return
			case errors.Is(err, auth.ErrTokenInvalid):
				writeError(w, r, log, apperr.Unauthenticated("invalid token"))
				return
			case errors.Is(err, auth.ErrUnknownSubject):
				writeError(w, r, log, apperr.Unauthenticated("user no longer exists"))
				return
			case err != nil:
				writeError(w, r, log, apperr.Internal(err))
				return
			}
			next.ServeHTTP(w, r.WithContext(withCaller(r.Context(), c)))
		})
	}
}

// requireRole rejects callers of any other role with 403.
func requireRole(role auth.Role, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := callerFrom(r.Context())
			if !ok || c.Role() != role {
				writeError(w, r, log, apperr.Forbidden())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func farmerFrom(r *http.Request) (auth.Farmer, error) {
	c, _ := callerFrom(r.Context())
	f, ok := c.(auth.Farmer)
	if !ok {
		return auth.Farmer{}, apperr.Forbidden()
	}
	return f, nil
}

func consumerFrom(r *http.Request) (auth.Consumer, error) {
	c, _ := callerFrom(r.Context())
	cons, ok := c.(auth.Consumer)
	if !ok {
		return auth.Consumer{}, apperr.Forbidden()
	}
	return cons, nil
}
