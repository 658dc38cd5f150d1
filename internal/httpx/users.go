package httpx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ariefcatur/go-farm-market/internal/apperr"
	"github.com/ariefcatur/go-farm-market/internal/auth"
	"github.com/ariefcatur/go-farm-market/internal/users"
	"github.com/go-chi/chi/v5"
)

type UserService interface {
	Register(ctx context.Context, in users.RegisterInput) (*users.Session, error)
	Login(ctx context.Context, in users.LoginInput) (*users.Session, error)
	Me(ctx context.Context, caller auth.Caller) (*users.User, error)
	Update(ctx context.Context, caller auth.Caller, in users.UpdateInput) (*users.User, error)
	ChangePassword(ctx context.Context, caller auth.Caller, in users.ChangePasswordInput) error
}

type UsersHandler struct {
	Svc UserService
	Log *slog.Logger
}

// AuthRoutes are public.
func (h *UsersHandler) AuthRoutes(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)
}

func (h *UsersHandler) MeRoutes(r chi.Router) {
	r.Get("/", h.me)
	r.Put("/", h.update)
	r.Put("/password", h.changePassword)
}

func (h *UsersHandler) register(w http.ResponseWriter, r *http.Request) {
	var in users.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	sess, err := h.Svc.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *UsersHandler) login(w http.ResponseWriter, r *http.Request) {
	var in users.LoginInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	sess, err := h.Svc.Login(r.Context(), in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *UsersHandler) caller(w http.ResponseWriter, r *http.Request) (auth.Caller, bool) {
	c, ok := callerFrom(r.Context())
	if !ok {
		writeError(w, r, h.Log, apperr.Unauthenticated("missing bearer token"))
	}
	return c, ok
}

func (h *UsersHandler) me(w http.ResponseWriter, r *http.Request) {
	c, ok := h.caller(w, r)
	if !ok {
		return
	}
	u, err := h.Svc.Me(r.Context(), c)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UsersHandler) update(w http.ResponseWriter, r *http.Request) {
	c, ok := h.caller(w, r)
	if !ok {
		return
	}
	var in users.UpdateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	u, err := h.Svc.Update(r.Context(), c, in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UsersHandler) changePassword(w http.ResponseWriter, r *http.Request) {
	c, ok := h.caller(w, r)
	if !ok {
		return
	}
	var in users.ChangePasswordInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if err := h.Svc.ChangePassword(r.Context(), c, in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
