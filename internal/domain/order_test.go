package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeliveryMode(t *testing.T) {
	mode, err := ParseDeliveryMode("")
	require.NoError(t, err)
	assert.Equal(t, DeliveryModeDelivery, mode)

	mode, err = ParseDeliveryMode("pickup")
	require.NoError(t, err)
	assert.Equal(t, DeliveryModePickup, mode)

	_, err = ParseDeliveryMode("drone")
	assert.Error(t, err)
}

func TestNewQuote_Delivery(t *testing.T) {
	c := newTestCart()
	require.NoError(t, c.AddItem(product("p1", "10.00", SourceNeoMart), 2))
	require.NoError(t, c.AddItem(product("p2", "5.00", SourceLocal), 1))

	q := NewQuote(c, DeliveryModeDelivery, DefaultPricingPolicy())

	assertDecimal(t, "25.00", q.Subtotal)
	assertDecimal(t, "4.99", q.DeliveryFee)
	assertDecimal(t, "2.00", q.Tax)
	assertDecimal(t, "31.99", q.Total)
	assert.Equal(t, 3, q.TotalItems)
	assert.Equal(t, "USD", q.Currency)
}

func TestNewQuote_PickupIsFree(t *testing.T) {
	c := newTestCart()
	require.NoError(t, c.AddItem(product("p1", "10.00", SourceNeoMart), 1))

	q := NewQuote(c, DeliveryModePickup, DefaultPricingPolicy())

	assertDecimal(t, "0", q.DeliveryFee)
	assertDecimal(t, "10.80", q.Total)
}

func TestNewQuote_TaxRoundedToCents(t *testing.T) {
	c := newTestCart()
	require.NoError(t, c.AddItem(product("p1", "3.33", SourceNeoMart), 1))

	q := NewQuote(c, DeliveryModePickup, DefaultPricingPolicy())

	// 3.33 * 0.08 = 0.2664
	assertDecimal(t, "0.27", q.Tax)
	assertDecimal(t, "3.60", q.Total)
}

func TestNewQuote_CustomPolicy(t *testing.T) {
	c := newTestCart()
	require.NoError(t, c.AddItem(product("p1", "100", SourceNeoMart), 1))

	policy := PricingPolicy{
		DeliveryFee: decimal.RequireFromString("2.50"),
		TaxRate:     decimal.RequireFromString("0.1"),
	}
	q := NewQuote(c, DeliveryModeDelivery, policy)

	assertDecimal(t, "112.50", q.Total)
}

func TestNewQuote_SplitPreview(t *testing.T) {
	c := newTestCart()
	require.NoError(t, c.AddItem(product("p1", "1.00", SourceNeoMart), 1))
	require.NoError(t, c.AddItem(product("p2", "1.00", SourcePatel), 1))
	require.NoError(t, c.AddItem(product("p3", "1.00", SourceLocal), 1))

	q := NewQuote(c, DeliveryModeDelivery, DefaultPricingPolicy())

	require.Len(t, q.Split, 3)
	assert.Equal(t, "In-house", q.Split[0].SourceType)
	assert.Equal(t, "NeoMart driver", q.Split[0].Fulfillment)
	assert.Equal(t, "Partner", q.Split[1].SourceType)
	assert.Equal(t, "patel store + NeoMart/3PL delivery", q.Split[1].Fulfillment)
	assert.Equal(t, "Local On-Demand", q.Split[2].SourceType)
	assert.Equal(t, "3PL delivery (Uber-like)", q.Split[2].Fulfillment)
}

func TestNewQuote_EmptyCart(t *testing.T) {
	q := NewQuote(newTestCart(), DeliveryModeDelivery, DefaultPricingPolicy())

	assertDecimal(t, "0", q.Subtotal)
	assertDecimal(t, "4.99", q.Total)
	assert.NotNil(t, q.Split)
	assert.Empty(t, q.Split)
}

func TestNewOrder_SnapshotsCart(t *testing.T) {
	c := newTestCart()
	require.NoError(t, c.AddItem(product("p1", "2.50", SourceNeoMart), 2))
	q := NewQuote(c, DeliveryModeDelivery, DefaultPricingPolicy())
	placed := time.UnixMilli(1700000000123).UTC()

	o := NewOrder("order-1", c, q, placed)

	assert.Equal(t, "order-1", o.ID)
	assert.Equal(t, "ORD1700000000123", o.Number)
	assert.Equal(t, c.SessionID, o.SessionID)
	assert.Equal(t, OrderStatusConfirmed, o.Status)
	require.Len(t, o.Lines, 1)
	assert.Equal(t, "p1", o.Lines[0].ProductID)
	assertDecimal(t, "5.00", o.Lines[0].Subtotal)
	assert.True(t, q.Total.Equal(o.Total))

	// Clearing the cart afterwards must not affect the snapshot.
	c.Clear()
	assert.Len(t, o.Lines, 1)
}

func TestReadyForCheckout(t *testing.T) {
	c := newTestCart()
	assert.ErrorIs(t, c.ReadyForCheckout(), ErrEmptyCart)

	require.NoError(t, c.AddItem(product("p1", "2.50", SourceNeoMart), 1))
	assert.NoError(t, c.ReadyForCheckout())

	c.Clear()
	assert.ErrorIs(t, c.ReadyForCheckout(), ErrEmptyCart)
}

func TestOrder_Tracking(t *testing.T) {
	o := &Order{Status: OrderStatusConfirmed}
	steps := o.Tracking()

	require.Len(t, steps, 5)
	assert.True(t, steps[0].Completed)
	assert.True(t, steps[1].Completed)
	assert.False(t, steps[2].Completed)
	assert.Equal(t, "Delivered", steps[4].Status)
}
