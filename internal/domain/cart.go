package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidQuantity is returned when a non-positive quantity is added.
var ErrInvalidQuantity = errors.New("quantity must be a positive integer")

// DefaultCurrency is the currency every cart is priced in.
const DefaultCurrency = "USD"

// CartItem pairs a product with the quantity held in the cart.
type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// LineTotal returns price × quantity for the item.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the per-session shopping cart. Items holds at most one entry per
// product id and every entry has a quantity of at least one. TotalItems and
// TotalPrice are recomputed by every mutating method and are never stale.
type Cart struct {
	ID         string          `json:"id"`
	SessionID  string          `json:"session_id"`
	Items      []CartItem      `json:"items"`
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Currency   string          `json:"currency"`
	Version    int             `json:"version"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	ExpiresAt  time.Time       `json:"expires_at"`
}

// NewCart returns an empty cart for the session.
func NewCart(id, sessionID string, now time.Time, ttl time.Duration) *Cart {
	return &Cart{
		ID:         id,
		SessionID:  sessionID,
		Items:      []CartItem{},
		TotalPrice: decimal.Zero,
		Currency:   DefaultCurrency,
		CreatedAt:  now,
		UpdatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
}

// AddItem adds quantity units of p. An existing line for p.ID is merged by
// increasing its quantity; otherwise a new line is appended.
func (c *Cart) AddItem(p Product, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	if i := c.indexOf(p.ID); i >= 0 {
		c.Items[i].Quantity += quantity
	} else {
		c.Items = append(c.Items, CartItem{Product: p, Quantity: quantity})
	}

	c.recalculate()
	return nil
}

// RemoveItem deletes the line for productID. It reports whether a line was
// removed; an absent id leaves the cart untouched.
func (c *Cart) RemoveItem(productID string) bool {
	i := c.indexOf(productID)
	if i < 0 {
		return false
	}

	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	c.recalculate()
	return true
}

// UpdateQuantity sets the quantity of the line for productID. A quantity of
// zero or less removes the line. It reports whether a line was found.
func (c *Cart) UpdateQuantity(productID string, quantity int) bool {
	if quantity <= 0 {
		return c.RemoveItem(productID)
	}

	i := c.indexOf(productID)
	if i < 0 {
		return false
	}

	c.Items[i].Quantity = quantity
	c.recalculate()
	return true
}

// Clear empties the cart and zeroes its totals.
func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.TotalItems = 0
	c.TotalPrice = decimal.Zero
}

// Clone returns a deep copy of the cart. Products are shared because they
// are never mutated.
func (c *Cart) Clone() *Cart {
	out := *c
	out.Items = make([]CartItem, len(c.Items))
	copy(out.Items, c.Items)
	return &out
}

// Item returns the line for productID, if present.
func (c *Cart) Item(productID string) (CartItem, bool) {
	if i := c.indexOf(productID); i >= 0 {
		return c.Items[i], true
	}
	return CartItem{}, false
}

// IsEmpty reports whether the cart holds no items.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// GroupBySource partitions the items by vendor source. Within each group the
// items keep their order in the cart. The cart is not modified.
func (c *Cart) GroupBySource() map[Source][]CartItem {
	groups := make(map[Source][]CartItem)
	for _, item := range c.Items {
		src := item.Product.Source
		groups[src] = append(groups[src], item)
	}
	return groups
}

// SourceGroup is one vendor's share of the cart.
type SourceGroup struct {
	Source    Source          `json:"source"`
	Items     []CartItem      `json:"items"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// SourceGroups returns the same partition as GroupBySource, ordered by the
// first appearance of each source in the cart.
func (c *Cart) SourceGroups() []SourceGroup {
	index := make(map[Source]int)
	var groups []SourceGroup

	for _, item := range c.Items {
		src := item.Product.Source
		i, ok := index[src]
		if !ok {
			i = len(groups)
			index[src] = i
			groups = append(groups, SourceGroup{Source: src, Subtotal: decimal.Zero})
		}
		g := &groups[i]
		g.Items = append(g.Items, item)
		g.ItemCount += item.Quantity
		g.Subtotal = g.Subtotal.Add(item.LineTotal())
	}

	if groups == nil {
		groups = []SourceGroup{}
	}
	return groups
}

func (c *Cart) indexOf(productID string) int {
	for i := range c.Items {
		if c.Items[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

// recalculate folds the item collection into TotalItems and TotalPrice.
func (c *Cart) recalculate() {
	count := 0
	total := decimal.Zero
	for _, item := range c.Items {
		count += item.Quantity
		total = total.Add(item.LineTotal())
	}
	c.TotalItems = count
	c.TotalPrice = total
}
