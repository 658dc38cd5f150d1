package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ariefcatur/go-farm-market/internal/apperr"
	"github.com/ariefcatur/go-farm-market/internal/auth"
	"github.com/ariefcatur/go-farm-market/internal/validate"
	"github.com/google/uuid"
)

// Service creates orders, lists them per owner and moves them through the
// status machine. It holds no state between calls.
type Service struct {
	store  Store
	events Publisher
	log    *slog.Logger
	now    func() time.Time
	newID  func() string
}

// NewService wires the service. A nil publisher disables events.
func NewService(store Store, events Publisher, log *slog.Logger) *Service {
	if events == nil {
		events = nopPublisher{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:  store,
		events: events,
		log:    log,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Create validates the cart against current catalog state and records a
// PENDING order. Stock is only compared, never decremented.
func (s *Service) Create(ctx context.Context, consumer auth.Consumer, in CreateInput) (*Order, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	// dedup; the last quantity given for an id wins
	qtyByID := make(map[string]int, len(in.Items))
	ids := make([]string, 0, len(in.Items))
	for _, it := range in.Items {
		if _, seen := qtyByID[it.ProductID]; !seen {
			ids = append(ids, it.ProductID)
		}
		qtyByID[it.ProductID] = it.Qty
	}

	products, err := s.store.ActiveProducts(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("load products: %w", err))
	}
	byID := make(map[string]Product, len(products))
	for _, p := range products {
		if _, ok := qtyByID[p.ID]; ok {
			byID[p.ID] = p
		}
	}
	if len(byID) != len(ids) {
		return nil, apperr.Validation("one or more products are invalid/inactive")
	}

	farmerID := byID[ids[0]].FarmerID
	for _, p := range byID {
		if p.FarmerID != farmerID {
			return nil, apperr.Validation("order must contain products from only one farmer")
		}
	}

	items := make([]Item, 0, len(ids))
	subtotal := 0
	for _, id := range ids {
		p, qty := byID[id], qtyByID[id]
		if qty > p.StockQty {
			return nil, apperr.ValidationDetails(
				fmt.Sprintf("insufficient stock for product: %s", p.Name),
				Shortfall{ProductID: p.ID, Available: p.StockQty, Requested: qty},
			)
		}
		line := p.PriceCents * qty
		items = append(items, Item{
			ID:             s.newID(),
			ProductID:      p.ID,
			ProductName:    p.Name,
			UnitPriceCents: p.PriceCents,
			Qty:            qty,
			LineTotalCents: line,
		})
		subtotal += line
	}

	now := s.now().UTC()
	o := &Order{
		ID:             s.newID(),
		ConsumerID:     consumer.ID(),
		FarmerID:       farmerID,
		DeliveryMethod: in.DeliveryMethod,
		Status:         StatusPending,
		SubtotalCents:  subtotal,
		Note:           in.Note,
		CreatedAt:      now,
		UpdatedAt:      now,
		Items:          items,
	}
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
	}
	if err := s.store.CreateOrder(ctx, o); err != nil {
		return nil, apperr.Internal(fmt.Errorf("create order: %w", err))
	}

	created, err := s.store.GetOrder(ctx, o.ID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("reload order %s: %w", o.ID, err))
	}
	s.publish(ctx, createdEvent(created))
	return created, nil
}

// ListMine returns the consumer's orders, newest first.
func (s *Service) ListMine(ctx context.Context, consumer auth.Consumer, status *Status) ([]Order, error) {
	return s.list(ctx, ListFilter{ConsumerID: consumer.ID(), Status: status})
}

// ListInbox returns the orders placed with the farmer, newest first.
func (s *Service) ListInbox(ctx context.Context, farmer auth.Farmer, status *Status) ([]Order, error) {
	return s.list(ctx, ListFilter{FarmerID: farmer.ID(), Status: status})
}

// list never returns a nil slice so empty results encode as [].
func (s *Service) list(ctx context.Context, f ListFilter) ([]Order, error) {
	out, err := s.store.ListOrders(ctx, f)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list orders: %w", err))
	}
	if out == nil {
		out = []Order{}
	}
	return out, nil
}

// Get returns the order if caller is its consumer or its farmer.
func (s *Service) Get(ctx context.Context, caller auth.Caller, id string) (*Order, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.ConsumerID != caller.ID() && o.FarmerID != caller.ID() {
		return nil, apperr.Forbidden()
	}
	return o, nil
}

// SetStatus applies a farmer-requested transition.
func (s *Service) SetStatus(ctx context.Context, farmer auth.Farmer, id string, to Status) (*Order, error) {
	if _, known := validNext[to]; !known {
		return nil, apperr.Validation(fmt.Sprintf("invalid status %q", to))
	}
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.FarmerID != farmer.ID() {
		return nil, apperr.Forbidden()
	}
	id, from := o.ID, o.Status
	if err := checkTransition(from, to); err != nil {
		return nil, err
	}

	err = s.store.UpdateStatus(ctx, id, from, to, s.now().UTC())
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, apperr.NotFound("order not found")
	case errors.Is(err, ErrStatusChanged):
		return nil, apperr.InvalidTransition("order status changed concurrently, reload and retry")
	case err != nil:
		return nil, apperr.Internal(fmt.Errorf("update status: %w", err))
	}

	updated, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("reload order %s: %w", id, err))
	}
	s.publish(ctx, statusChangedEvent(updated, from))
	return updated, nil
}

// load looks the order up by its canonical id. Uppercase, braced and urn
// forms all resolve to the same lowercase id so cache keys agree.
func (s *Service) load(ctx context.Context, raw string) (*Order, error) {
	u, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.Validation("invalid order id")
	}
	id := u.String()
	o, err := s.store.GetOrder(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("order not found")
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("get order %s: %w", id, err))
	}
	return o, nil
}

// publish never fails the request: the write is already committed.
func (s *Service) publish(ctx context.Context, ev Event) {
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("publish order event", "type", ev.Type, "order_id", ev.OrderID, "error", err)
	}
}
