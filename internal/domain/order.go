package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrEmptyCart is returned when an order is placed from a cart with no items.
var ErrEmptyCart = errors.New("cart is empty")

// ReadyForCheckout returns ErrEmptyCart when c has no items to order.
func (c *Cart) ReadyForCheckout() error {
	if c.IsEmpty() {
		return ErrEmptyCart
	}
	return nil
}

// DeliveryMode selects how an order reaches the customer.
type DeliveryMode string

const (
	DeliveryModeDelivery DeliveryMode = "delivery"
	DeliveryModePickup   DeliveryMode = "pickup"
)

// ParseDeliveryMode converts a raw string into a DeliveryMode. An empty
// string selects home delivery.
func ParseDeliveryMode(raw string) (DeliveryMode, error) {
	switch DeliveryMode(raw) {
	case "", DeliveryModeDelivery:
		return DeliveryModeDelivery, nil
	case DeliveryModePickup:
		return DeliveryModePickup, nil
	}
	return "", fmt.Errorf("unknown delivery mode %q", raw)
}

// PricingPolicy holds the checkout constants applied on top of the cart total.
type PricingPolicy struct {
	DeliveryFee decimal.Decimal
	TaxRate     decimal.Decimal
}

// DefaultPricingPolicy is a flat 4.99 delivery fee and 8% tax.
func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		DeliveryFee: decimal.RequireFromString("4.99"),
		TaxRate:     decimal.RequireFromString("0.08"),
	}
}

// SplitPreview describes how one vendor's items would be fulfilled.
type SplitPreview struct {
	SourceGroup
	SourceType  string `json:"source_type"`
	Fulfillment string `json:"fulfillment"`
}

// Quote is the final charge for a cart.
type Quote struct {
	Mode        DeliveryMode    `json:"mode"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
	TotalItems  int             `json:"total_items"`
	Currency    string          `json:"currency"`
	Split       []SplitPreview  `json:"split"`
}

// NewQuote prices the cart under the policy. Pickup orders carry no delivery
// fee. Tax is rounded to cents.
func NewQuote(c *Cart, mode DeliveryMode, policy PricingPolicy) Quote {
	fee := policy.DeliveryFee
	if mode == DeliveryModePickup {
		fee = decimal.Zero
	}
	tax := c.TotalPrice.Mul(policy.TaxRate).Round(2)

	groups := c.SourceGroups()
	split := make([]SplitPreview, 0, len(groups))
	for _, g := range groups {
		kind, route := Fulfillment(g.Source)
		split = append(split, SplitPreview{SourceGroup: g, SourceType: kind, Fulfillment: route})
	}

	return Quote{
		Mode:        mode,
		Subtotal:    c.TotalPrice,
		DeliveryFee: fee,
		Tax:         tax,
		Total:       c.TotalPrice.Add(fee).Add(tax),
		TotalItems:  c.TotalItems,
		Currency:    c.Currency,
		Split:       split,
	}
}

// Fulfillment returns the source type and delivery route shown in the order
// split preview.
func Fulfillment(s Source) (sourceType, route string) {
	switch s {
	case SourceNeoMart:
		return "In-house", "NeoMart driver"
	case SourceLocal:
		return "Local On-Demand", "3PL delivery (Uber-like)"
	default:
		return "Partner", fmt.Sprintf("%s store + NeoMart/3PL delivery", s)
	}
}

// Address is the delivery destination.
type Address struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Phone      string `json:"phone,omitempty"`
}

// OrderStatus is the lifecycle state of a placed order.
type OrderStatus string

const OrderStatusConfirmed OrderStatus = "confirmed"

// OrderLine is a snapshot of one cart item at placement time.
type OrderLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Source    Source          `json:"source"`
	Unit      string          `json:"unit"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Order is the client-facing record of a simulated order.
type Order struct {
	ID             string          `json:"id"`
	Number         string          `json:"number"`
	SessionID      string          `json:"session_id"`
	Status         OrderStatus     `json:"status"`
	Mode           DeliveryMode    `json:"mode"`
	Lines          []OrderLine     `json:"lines"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DeliveryFee    decimal.Decimal `json:"delivery_fee"`
	Tax            decimal.Decimal `json:"tax"`
	Total          decimal.Decimal `json:"total"`
	Currency       string          `json:"currency"`
	Address        *Address        `json:"address,omitempty"`
	DeliveryWindow string          `json:"delivery_window,omitempty"`
	PlacedAt       time.Time       `json:"placed_at"`
}

// NewOrder snapshots the cart and its quote into an order.
func NewOrder(id string, c *Cart, q Quote, placedAt time.Time) *Order {
	lines := make([]OrderLine, 0, len(c.Items))
	for _, item := range c.Items {
		lines = append(lines, OrderLine{
			ProductID: item.Product.ID,
			Name:      item.Product.Name,
			Source:    item.Product.Source,
			Unit:      item.Product.Unit,
			Price:     item.Product.Price,
			Quantity:  item.Quantity,
			Subtotal:  item.LineTotal(),
		})
	}

	return &Order{
		ID:          id,
		Number:      fmt.Sprintf("ORD%d", placedAt.UnixMilli()),
		SessionID:   c.SessionID,
		Status:      OrderStatusConfirmed,
		Mode:        q.Mode,
		Lines:       lines,
		Subtotal:    q.Subtotal,
		DeliveryFee: q.DeliveryFee,
		Tax:         q.Tax,
		Total:       q.Total,
		Currency:    q.Currency,
		PlacedAt:    placedAt,
	}
}

// TrackingStep is one stage of the order tracking timeline.
type TrackingStep struct {
	Status    string `json:"status"`
	Completed bool   `json:"completed"`
}

// Tracking returns the tracking timeline. Fulfilment is simulated, so a
// confirmed order always shows confirmation and picking as done.
func (o *Order) Tracking() []TrackingStep {
	return []TrackingStep{
		{Status: "Confirmed", Completed: true},
		{Status: "Picking", Completed: true},
		{Status: "Substitutions", Completed: false},
		{Status: "Out for delivery", Completed: false},
		{Status: "Delivered", Completed: false},
	}
}
