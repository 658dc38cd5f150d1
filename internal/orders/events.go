package orders

import (
	"context"
	"encoding/json"
	"time"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type ItemPrice struct {
	ProductID  string `json:"product_id"`
	Qty        int    `json:"qty"`
	PriceCents int    `json:"price_cents"`
}

type OrderCreatedPayload struct {
	OrderID        string      `json:"order_id"`
	ConsumerID     string      `json:"consumer_id"`
	FarmerID       string      `json:"farmer_id"`
	DeliveryMethod string      `json:"delivery_method"`
	Items          []ItemPrice `json:"items"`
	SubtotalCents  int         `json:"subtotal_cents"`
}

type OrderStatusChangedPayload struct {
	OrderID    string `json:"order_id"`
	ConsumerID string `json:"consumer_id"`
	FarmerID   string `json:"farmer_id"`
	From       string `json:"from"`
	To         string `json:"to"`
}

// Event is what the service hands to a Publisher after a successful write.
type Event struct {
	Type    string
	OrderID string
	Payload any
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) error { return nil }

func createdEvent(o *Order) Event {
	items := make([]ItemPrice, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ItemPrice{ProductID: it.ProductID, Qty: it.Qty, PriceCents: it.UnitPriceCents})
	}
	return Event{
		Type:    EventOrderCreated,
		OrderID: o.ID,
		Payload: OrderCreatedPayload{
			OrderID:        o.ID,
			ConsumerID:     o.ConsumerID,
			FarmerID:       o.FarmerID,
			DeliveryMethod: string(o.DeliveryMethod),
			Items:          items,
			SubtotalCents:  o.SubtotalCents,
		},
	}
}

func statusChangedEvent(o *Order, from Status) Event {
	return Event{
		Type:    EventOrderStatusChanged,
		OrderID: o.ID,
		Payload: OrderStatusChangedPayload{
			OrderID:    o.ID,
			ConsumerID: o.ConsumerID,
			FarmerID:   o.FarmerID,
			From:       string(from),
			To:         string(o.Status),
		},
	}
}
