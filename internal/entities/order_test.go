package entities_test

import (
	"testing"

	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/entities"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestOrder_Recalculate(t *testing.T) {
	o := entities.Order{
		Subtotal:          dec("100.00"),
		ShippingAmount:    dec("10.00"),
		ShippingTaxAmount: dec("2.00"),
		TaxAmount:         dec("20.00"),
		DiscountAmount:    dec("15.00"),
	}
	o.Recalculate()

	assert.True(t, o.Total.Equal(dec("117.00")), "got %s", o.Total)
}

func TestOrderLineItem_Recalculate(t *testing.T) {
	li := entities.OrderLineItem{
		Quantity:       3,
		UnitPrice:      dec("9.99"),
		DiscountAmount: dec("2.00"),
		TaxAmount:      dec("1.50"),
	}
	li.Recalculate()

	assert.True(t, li.Subtotal.Equal(dec("29.97")))
	assert.True(t, li.Total.Equal(dec("29.47")))
}

func TestOrder_ApplyItemDelta(t *testing.T) {
	o := entities.Order{
		Subtotal:       dec("50.00"),
		DiscountAmount: dec("5.00"),
		TaxAmount:      dec("4.00"),
		ShippingAmount: dec("7.00"),
	}
	o.Recalculate()

	old := &entities.OrderLineItem{Subtotal: dec("20.00"), DiscountAmount: dec("5.00"), TaxAmount: dec("1.00")}
	updated := &entities.OrderLineItem{Subtotal: dec("40.00"), DiscountAmount: dec("0"), TaxAmount: dec("2.00")}

	o.ApplyItemDelta(old, updated)

	assert.True(t, o.Subtotal.Equal(dec("70.00")))
	assert.True(t, o.DiscountAmount.Equal(dec("0.00")))
	assert.True(t, o.TaxAmount.Equal(dec("5.00")))
	// total = 70 + 7 + 0 + 5 - 0
	assert.True(t, o.Total.Equal(dec("82.00")), "got %s", o.Total)

	// Удаление строки: updated == nil.
	o.ApplyItemDelta(&entities.OrderLineItem{Subtotal: dec("40.00"), TaxAmount: dec("2.00")}, nil)
	assert.True(t, o.Subtotal.Equal(dec("30.00")))
	assert.True(t, o.Total.Equal(dec("40.00")), "got %s", o.Total)
}

func TestOrder_FulfillmentHelpers(t *testing.T) {
	o := entities.Order{Items: []entities.OrderLineItem{
		{Quantity: 3, FulfilledQuantity: 3},
		{Quantity: 2, FulfilledQuantity: 1},
	}}

	require.False(t, o.FullyFulfilled())
	assert.True(t, o.AnyFulfilled())
	assert.Equal(t, 1, o.Items[1].Remaining())

	o.Items[1].FulfilledQuantity = 2
	assert.True(t, o.FullyFulfilled())

	empty := entities.Order{}
	assert.False(t, empty.FullyFulfilled())
}
