package orders

import "time"

type DeliveryMethod string

const (
	DeliveryMethodDelivery DeliveryMethod = "DELIVERY"
	DeliveryMethodPickup   DeliveryMethod = "PICKUP"
)

// Product is the order-side view of an active catalog product at
// validation time.
type Product struct {
	ID         string
	FarmerID   string
	Name       string
	PriceCents int
	StockQty   int
}

type Order struct {
	ID             string           `json:"id"`
	ConsumerID     string           `json:"consumerId"`
	FarmerID       string           `json:"farmerId"`
	DeliveryMethod DeliveryMethod   `json:"deliveryMethod"`
	Status         Status           `json:"status"`
	SubtotalCents  int              `json:"subtotalCents"`
	Note           *string          `json:"note"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
	Items          []Item           `json:"items"`
	Farmer         *FarmerSummary   `json:"farmer,omitempty"`
	Consumer       *ConsumerSummary `json:"consumer,omitempty"`
}

// Item is a snapshot taken at checkout; later product edits do not touch it.
type Item struct {
	ID             string `json:"id"`
	OrderID        string `json:"orderId"`
	ProductID      string `json:"productId"`
	ProductName    string `json:"productName"`
	UnitPriceCents int    `json:"unitPriceCents"`
	Qty            int    `json:"qty"`
	LineTotalCents int    `json:"lineTotalCents"`
}

type FarmerSummary struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Phone        string  `json:"phone"`
	City         string  `json:"city"`
	PropertyName *string `json:"propertyName"`
	Address      *string `json:"address"`
}

type ConsumerSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	City  string `json:"city"`
}

type ItemInput struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Qty       int    `json:"qty" validate:"min=1,max=999"`
}

type CreateInput struct {
	DeliveryMethod DeliveryMethod `json:"deliveryMethod" validate:"required,oneof=DELIVERY PICKUP"`
	Note           *string        `json:"note" validate:"omitempty,max=500"`
	Items          []ItemInput    `json:"items" validate:"required,min=1,dive"`
}

// Shortfall is attached to the insufficient-stock validation error.
type Shortfall struct {
	ProductID string `json:"productId"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
}

// ListFilter selects orders by exactly one owner column.
type ListFilter struct {
	ConsumerID string
	FarmerID   string
	Status     *Status
}
