package orders

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("order not found")
	ErrStatusChanged = errors.New("order status changed concurrently")
)

// Store is the persistence contract of the order service.
type Store interface {
	// ActiveProducts returns the active products among ids. Unknown and
	// inactive ids are simply absent from the result.
	ActiveProducts(ctx context.Context, ids []string) ([]Product, error)

	// CreateOrder writes the order and all of its items atomically.
	CreateOrder(ctx context.Context, o *Order) error

	// GetOrder returns the order with items and both party summaries, or
	// ErrNotFound.
	GetOrder(ctx context.Context, id string) (*Order, error)

	// ListOrders returns orders newest first; equal creation times keep
	// insertion order.
	ListOrders(ctx context.Context, f ListFilter) ([]Order, error)

	// UpdateStatus moves the order from -> to. It returns ErrNotFound when
	// the order is gone and ErrStatusChanged when its status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to Status, at time.Time) error
}
