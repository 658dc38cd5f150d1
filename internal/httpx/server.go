package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Deps struct {
	Log     *slog.Logger
	Authn   Authenticator
	Users   UserService
	Catalog CatalogService
	Orders  OrderService
	Idem    Idempotency
	Timeout time.Duration
	// Ready holds dependency checks reported by /readyz, keyed by name.
	Ready map[string]func(context.Context) error
}

func NewRouter(d Deps) *chi.Mux {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Timeout <= 0 {
		d.Timeout = 15 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, accessLog(d.Log), middleware.Recoverer)
	r.Use(middleware.Timeout(d.Timeout))
	r.Use(traceRequest)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Get("/readyz", readyz(d.Ready, d.Log))

	uh := &UsersHandler{Svc: d.Users, Log: d.Log}
	ch := &CatalogHandler{Svc: d.Catalog, Log: d.Log}
	oh := &OrdersHandler{Svc: d.Orders, Idem: d.Idem, Log: d.Log}

	r.Route("/auth", uh.AuthRoutes)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth(d.Authn, d.Log))
		r.Route("/me", uh.MeRoutes)
		r.Route("/products", ch.ProductRoutes)
		r.Route("/catalog", ch.BrowseRoutes)
		r.Route("/certifications", ch.CertificationRoutes)
		r.Route("/orders", oh.Routes)
	})
	return r
}

func readyz(checks map[string]func(context.Context) error, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		out := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				log.Warn("readiness check failed", "check", name, "error", err)
				out[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			out[name] = "up"
		}
		writeJSON(w, status, out)
	}
}
