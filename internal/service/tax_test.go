package service

import (
	"context"
	"testing"

	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/entities"
	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaxService_CalculateTaxes(t *testing.T) {
	ctx := context.Background()

	setup := func() (*fakeStore, *fakeRates, entities.Order) {
		store := newStore()
		store.variants["v-1"] = entities.Variant{ID: "v-1", Price: dec("10.00"), TaxabilityCode: "general"}
		store.variants["v-2"] = entities.Variant{ID: "v-2", Price: dec("20.00"), TaxabilityCode: "clothing"}

		rates := &fakeRates{rates: map[string]gateway.TaxRate{
			"general":  {Name: "CA sales tax", Rate: dec("0.10"), Jurisdiction: "CA"},
			"clothing": {Name: "CA sales tax", Rate: dec("0.05"), Jurisdiction: "CA"},
			"shipping": {Name: "CA shipping tax", Rate: dec("0.02"), Jurisdiction: "CA"},
		}}

		first := testItem("v-1", 3, "10.00")
		first.DiscountAmount = dec("5.00")
		first.Recalculate()
		second := testItem("v-2", 1, "20.00")

		order := testOrder(entities.OrderStatusPending, entities.PaymentStatusPending, first, second)
		order.ShippingAmount = dec("8.00")
		order.Recalculate()
		store.addOrder(order)
		return store, rates, order
	}

	t.Run("recomputes line and order taxes", func(t *testing.T) {
		store, rates, order := setup()
		svc := NewTaxService(testLogger(), noopManager{}, store, store, rates)

		got, err := svc.CalculateTaxes(ctx, order.ID, "tester")
		require.NoError(t, err)

		// (30 - 5) * 0.10 = 2.50, 20 * 0.05 = 1.00
		assert.True(t, got.TaxAmount.Equal(dec("3.50")), "tax = %s", got.TaxAmount)
		// 8 * 0.02 = 0.16
		assert.True(t, got.ShippingTaxAmount.Equal(dec("0.16")), "shipping tax = %s", got.ShippingTaxAmount)
		// 50 + 8 + 0.16 + 3.50 - 5
		assert.True(t, got.Total.Equal(dec("56.66")), "total = %s", got.Total)

		taxes, err := svc.ListTaxes(ctx, order.ID)
		require.NoError(t, err)
		assert.Len(t, taxes, 3)

		stored, err := store.GetOrder(ctx, order.ID)
		require.NoError(t, err)
		assert.True(t, stored.Items[0].TaxAmount.Equal(dec("2.50")))
		assert.True(t, stored.Items[0].TaxRate.Equal(dec("0.10")))
		assert.True(t, stored.Items[1].TaxAmount.Equal(dec("1.00")))
	})

	t.Run("recalculation does not accumulate", func(t *testing.T) {
		store, rates, order := setup()
		svc := NewTaxService(testLogger(), noopManager{}, store, store, rates)

		first, err := svc.CalculateTaxes(ctx, order.ID, "tester")
		require.NoError(t, err)
		second, err := svc.CalculateTaxes(ctx, order.ID, "tester")
		require.NoError(t, err)

		assert.True(t, first.TaxAmount.Equal(second.TaxAmount))
		assert.True(t, first.Total.Equal(second.Total))

		taxes, err := svc.ListTaxes(ctx, order.ID)
		require.NoError(t, err)
		assert.Len(t, taxes, 3)
	})

	t.Run("shipped order is frozen", func(t *testing.T) {
		store, rates, _ := setup()
		order := testOrder(entities.OrderStatusShipped, entities.PaymentStatusPaid, testItem("v-1", 1, "10.00"))
		store.addOrder(order)

		svc := NewTaxService(testLogger(), noopManager{}, store, store, rates)
		_, err := svc.CalculateTaxes(ctx, order.ID, "tester")
		assert.True(t, entities.IsInvalidTransition(err), "got %v", err)
	})

	t.Run("shipping country required", func(t *testing.T) {
		store, rates, _ := setup()
		order := testOrder(entities.OrderStatusDraft, entities.PaymentStatusPending, testItem("v-1", 1, "10.00"))
		order.ShippingCountry = ""
		store.addOrder(order)

		svc := NewTaxService(testLogger(), noopManager{}, store, store, rates)
		_, err := svc.CalculateTaxes(ctx, order.ID, "tester")
		assert.True(t, entities.IsValidation(err), "got %v", err)
	})

	t.Run("rate lookup failure aborts", func(t *testing.T) {
		store, rates, order := setup()
		rates.err = &entities.ExternalServiceError{Service: "tax rate lookup", Err: context.DeadlineExceeded}

		svc := NewTaxService(testLogger(), noopManager{}, store, store, rates)
		_, err := svc.CalculateTaxes(ctx, order.ID, "tester")
		require.Error(t, err)
		assert.True(t, entities.IsRetryable(err), "got %v", err)
	})
}
