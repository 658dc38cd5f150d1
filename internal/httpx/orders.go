package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ariefcatur/go-farm-market/internal/apperr"
	"github.com/ariefcatur/go-farm-market/internal/auth"
	"github.com/ariefcatur/go-farm-market/internal/orders"
	"github.com/go-chi/chi/v5"
)

type OrderService interface {
	Create(ctx context.Context, consumer auth.Consumer, in orders.CreateInput) (*orders.Order, error)
	ListMine(ctx context.Context, consumer auth.Consumer, status *orders.Status) ([]orders.Order, error)
	ListInbox(ctx context.Context, farmer auth.Farmer, status *orders.Status) ([]orders.Order, error)
	Get(ctx context.Context, caller auth.Caller, id string) (*orders.Order, error)
	SetStatus(ctx context.Context, farmer auth.Farmer, id string, to orders.Status) (*orders.Order, error)
}

type OrdersHandler struct {
	Svc  OrderService
	Idem Idempotency // nil disables Idempotency-Key handling
	Log  *slog.Logger
}

func (h *OrdersHandler) Routes(r chi.Router) {
	r.With(requireRole(auth.RoleConsumer, h.Log)).Post("/", h.create)
	r.With(requireRole(auth.RoleConsumer, h.Log)).Get("/mine", h.mine)
	r.With(requireRole(auth.RoleFarmer, h.Log)).Get("/inbox", h.inbox)
	r.Get("/{id}", h.get)
	r.With(requireRole(auth.RoleFarmer, h.Log)).Patch("/{id}/status", h.setStatus)
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	consumer, err := consumerFrom(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	var in orders.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" && h.Idem != nil {
		orderID, ok, err := h.Idem.Lookup(r.Context(), consumer.ID(), key)
		if err != nil {
			h.Log.Warn("idempotency lookup failed", "error", err)
		}
		if ok {
			o, err := h.Svc.Get(r.Context(), consumer, orderID)
			if err != nil {
				writeError(w, r, h.Log, err)
				return
			}
			writeJSON(w, http.StatusOK, o)
			return
		}
	}

	o, err := h.Svc.Create(r.Context(), consumer, in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if key != "" && h.Idem != nil {
		if err := h.Idem.Remember(r.Context(), consumer.ID(), key, o.ID); err != nil {
			h.Log.Warn("idempotency remember failed", "order_id", o.ID, "error", err)
		}
	}
	writeJSON(w, http.StatusCreated, o)
}

func statusQuery(r *http.Request) (*orders.Status, error) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return nil, nil
	}
	st, err := orders.ParseStatus(raw)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (h *OrdersHandler) mine(w http.ResponseWriter, r *http.Request) {
	consumer, err := consumerFrom(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	st, err := statusQuery(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	out, err := h.Svc.ListMine(r.Context(), consumer, st)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) inbox(w http.ResponseWriter, r *http.Request) {
	farmer, err := farmerFrom(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	st, err := statusQuery(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	out, err := h.Svc.ListInbox(r.Context(), farmer, st)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r.Context())
	if !ok {
		writeError(w, r, h.Log, apperr.Unauthenticated("missing bearer token"))
		return
	}
	o, err := h.Svc.Get(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type statusReq struct {
	Status string `json:"status"`
}

func (h *OrdersHandler) setStatus(w http.ResponseWriter, r *http.Request) {
	farmer, err := farmerFrom(r)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	var req statusReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	to, err := orders.ParseStatus(req.Status)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	o, err := h.Svc.SetStatus(r.Context(), farmer, chi.URLParam(r, "id"), to)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
