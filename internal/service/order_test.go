package service

import (
	"context"
	"errors"
	"testing"

	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/entities"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrderService(store *fakeStore, publisher *fakePublisher) *orderService {
	return NewOrderService(testLogger(), noopManager{}, store, store, store, publisher)
}

func TestOrderService_CreateOrder(t *testing.T) {
	ctx := context.Background()

	store := newStore()
	store.variants["v-1"] = entities.Variant{ID: "v-1", Title: "mug", Price: dec("10.00"), TaxabilityCode: "general"}
	store.variants["v-2"] = entities.Variant{ID: "v-2", Title: "shirt", Price: dec("25.50"), TaxabilityCode: "clothing"}

	svc := newOrderService(store, &fakePublisher{})

	t.Run("computes totals", func(t *testing.T) {
		order, err := svc.CreateOrder(ctx, CreateOrderInput{
			CustomerID:     "cust-1",
			Currency:       "USD",
			ShippingAmount: dec("5.00"),
			Items: []LineItemInput{
				{VariantID: "v-1", Quantity: 3, DiscountAmount: dec("2.00")},
				{VariantID: "v-2", Quantity: 2},
			},
			Actor: "tester",
		})
		require.NoError(t, err)

		assert.Equal(t, entities.OrderStatusDraft, order.Status)
		assert.Equal(t, entities.PaymentStatusPending, order.PaymentStatus)
		assert.True(t, order.Subtotal.Equal(dec("81.00")), "subtotal = %s", order.Subtotal)
		assert.True(t, order.Total.Equal(dec("84.00")), "total = %s", order.Total)
		assert.Len(t, order.Items, 2)
		assert.NotEmpty(t, order.OrderNumber)

		history, err := svc.ListHistory(ctx, order.ID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, "order created", history[0].Note)
	})

	t.Run("unknown variant", func(t *testing.T) {
		_, err := svc.CreateOrder(ctx, CreateOrderInput{
			CustomerID: "cust-1",
			Currency:   "USD",
			Items:      []LineItemInput{{VariantID: "missing", Quantity: 1}},
		})
		assert.True(t, entities.IsValidation(err), "got %v", err)
	})

	t.Run("missing customer", func(t *testing.T) {
		_, err := svc.CreateOrder(ctx, CreateOrderInput{Currency: "USD"})
		assert.True(t, entities.IsValidation(err))
	})

	t.Run("negative shipping", func(t *testing.T) {
		_, err := svc.CreateOrder(ctx, CreateOrderInput{
			CustomerID:     "cust-1",
			Currency:       "USD",
			ShippingAmount: dec("-1"),
		})
		assert.True(t, entities.IsValidation(err))
	})
}

func TestOrderService_SubmitOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("draft becomes pending", func(t *testing.T) {
		store := newStore()
		publisher := &fakePublisher{}
		order := testOrder(entities.OrderStatusDraft, entities.PaymentStatusPending, testItem("v-1", 1, "10.00"))
		store.addOrder(order)

		svc := newOrderService(store, publisher)
		got, err := svc.SubmitOrder(ctx, order.ID, "tester")
		require.NoError(t, err)

		assert.Equal(t, entities.OrderStatusPending, got.Status)
		require.Len(t, publisher.statusChanges, 1)
		assert.Equal(t, entities.OrderStatusDraft, publisher.statusChanges[0].from)
		assert.Equal(t, entities.OrderStatusPending, publisher.statusChanges[0].to)
	})

	t.Run("empty order", func(t *testing.T) {
		store := newStore()
		order := testOrder(entities.OrderStatusDraft, entities.PaymentStatusPending)
		store.addOrder(order)

		svc := newOrderService(store, &fakePublisher{})
		_, err := svc.SubmitOrder(ctx, order.ID, "tester")
		assert.True(t, entities.IsValidation(err), "got %v", err)
	})

	t.Run("already submitted", func(t *testing.T) {
		store := newStore()
		order := testOrder(entities.OrderStatusPending, entities.PaymentStatusPending, testItem("v-1", 1, "10.00"))
		store.addOrder(order)

		svc := newOrderService(store, &fakePublisher{})
		_, err := svc.SubmitOrder(ctx, order.ID, "tester")
		assert.True(t, entities.IsInvalidTransition(err), "got %v", err)
	})
}

func TestOrderService_CancelOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("releases unfulfilled remainders", func(t *testing.T) {
		store := newStore()
		publisher := &fakePublisher{}

		first := testItem("v-1", 5, "10.00")
		first.FulfilledQuantity = 3
		second := testItem("v-2", 2, "4.00")
		order := testOrder(entities.OrderStatusPartiallyShipped, entities.PaymentStatusPaid, first, second)
		store.addOrder(order)

		svc := newOrderService(store, publisher)
		got, err := svc.CancelOrder(ctx, order.ID, "customer request", "tester")
		require.NoError(t, err)
		assert.Equal(t, entities.OrderStatusCancelled, got.Status)

		require.Len(t, publisher.releases, 1)
		release := publisher.releases[0]
		assert.Equal(t, order.ID, release.orderID)
		require.Len(t, release.items, 2)
		assert.Equal(t, "v-1", release.items[0].VariantID)
		assert.Equal(t, 2, release.items[0].Quantity)
		assert.Equal(t, "v-2", release.items[1].VariantID)
		assert.Equal(t, 2, release.items[1].Quantity)

		history, err := svc.ListHistory(ctx, order.ID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Contains(t, history[0].Note, "customer request")
	})

	t.Run("shipped order is not cancellable", func(t *testing.T) {
		store := newStore()
		order := testOrder(entities.OrderStatusShipped, entities.PaymentStatusPaid, testItem("v-1", 1, "10.00"))
		store.addOrder(order)

		svc := newOrderService(store, &fakePublisher{})
		_, err := svc.CancelOrder(ctx, order.ID, "", "tester")
		assert.True(t, entities.IsInvalidTransition(err), "got %v", err)
	})
}

func TestOrderService_UpdateOrderItem(t *testing.T) {
	ctx := context.Background()

	t.Run("quantity change recalculates totals", func(t *testing.T) {
		store := newStore()
		item := testItem("v-1", 2, "10.00")
		order := testOrder(entities.OrderStatusDraft, entities.PaymentStatusPending, item)
		store.addOrder(order)

		svc := newOrderService(store, &fakePublisher{})
		qty := 5
		got, err := svc.UpdateOrderItem(ctx, order.ID, item.ID, LineItemPatch{Quantity: &qty}, "tester")
		require.NoError(t, err)

		assert.True(t, got.Subtotal.Equal(dec("50.00")), "subtotal = %s", got.Subtotal)
		assert.True(t, got.Total.Equal(dec("50.00")), "total = %s", got.Total)
	})

	t.Run("fulfilled quantity locks the item", func(t *testing.T) {
		store := newStore()
		item := testItem("v-1", 2, "10.00")
		item.FulfilledQuantity = 1
		order := testOrder(entities.OrderStatusPending, entities.PaymentStatusPending, item)
		store.addOrder(order)

		svc := newOrderService(store, &fakePublisher{})
		qty := 5
		_, err := svc.UpdateOrderItem(ctx, order.ID, item.ID, LineItemPatch{Quantity: &qty}, "tester")
		assert.True(t, entities.IsValidation(err), "got %v", err)
	})

	t.Run("discount change allowed for fulfilled item", func(t *testing.T) {
		store := newStore()
		item := testItem("v-1", 2, "10.00")
		item.FulfilledQuantity = 1
		order := testOrder(entities.OrderStatusPending, entities.PaymentStatusPending, item)
		store.addOrder(order)

		svc := newOrderService(store, &fakePublisher{})
		discount := dec("3.00")
		got, err := svc.UpdateOrderItem(ctx, order.ID, item.ID, LineItemPatch{DiscountAmount: &discount}, "tester")
		require.NoError(t, err)
		assert.True(t, got.Total.Equal(dec("17.00")), "total = %s", got.Total)
	})

	t.Run("paid order is not editable", func(t *testing.T) {
		store := newStore()
		item := testItem("v-1", 2, "10.00")
		order := testOrder(entities.OrderStatusPaid, entities.PaymentStatusPaid, item)
		store.addOrder(order)

		svc := newOrderService(store, &fakePublisher{})
		qty := 1
		_, err := svc.UpdateOrderItem(ctx, order.ID, item.ID, LineItemPatch{Quantity: &qty}, "tester")
		assert.True(t, entities.IsInvalidTransition(err), "got %v", err)
	})
}

func TestOrderService_AddAndRemoveItem(t *testing.T) {
	ctx := context.Background()

	store := newStore()
	store.variants["v-2"] = entities.Variant{ID: "v-2", Price: dec("7.00")}

	item := testItem("v-1", 1, "10.00")
	order := testOrder(entities.OrderStatusDraft, entities.PaymentStatusPending, item)
	store.addOrder(order)

	svc := newOrderService(store, &fakePublisher{})

	got, err := svc.AddOrderItem(ctx, order.ID, LineItemInput{VariantID: "v-2", Quantity: 2}, "tester")
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.True(t, got.Subtotal.Equal(dec("24.00")), "subtotal = %s", got.Subtotal)

	got, err = svc.RemoveOrderItem(ctx, order.ID, item.ID, "tester")
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.True(t, got.Subtotal.Equal(dec("14.00")), "subtotal = %s", got.Subtotal)
	assert.True(t, got.Total.Equal(dec("14.00")), "total = %s", got.Total)
}

func TestOrderService_RemoveFulfilledItem(t *testing.T) {
	store := newStore()
	item := testItem("v-1", 2, "10.00")
	item.FulfilledQuantity = 2
	order := testOrder(entities.OrderStatusPending, entities.PaymentStatusPending, item)
	store.addOrder(order)

	svc := newOrderService(store, &fakePublisher{})
	_, err := svc.RemoveOrderItem(context.Background(), order.ID, item.ID, "tester")
	assert.True(t, entities.IsValidation(err), "got %v", err)
}

func TestOrderService_RemoveItemDropsTaxRows(t *testing.T) {
	ctx := context.Background()

	store := newStore()
	store.variants["v-1"] = entities.Variant{ID: "v-1", Price: dec("10.00"), TaxabilityCode: "general"}
	store.variants["v-2"] = entities.Variant{ID: "v-2", Price: dec("20.00"), TaxabilityCode: "general"}

	order := testOrder(entities.OrderStatusPending, entities.PaymentStatusPending,
		testItem("v-1", 2, "10.00"), testItem("v-2", 1, "20.00"))
	store.addOrder(order)

	// Ставка по умолчанию 0.20: по 4.00 налога на каждую позицию.
	taxSvc := NewTaxService(testLogger(), noopManager{}, store, store, &fakeRates{})
	_, err := taxSvc.CalculateTaxes(ctx, order.ID, "tester")
	require.NoError(t, err)

	svc := newOrderService(store, &fakePublisher{})
	removedID := order.Items[0].ID
	got, err := svc.RemoveOrderItem(ctx, order.ID, removedID, "tester")
	require.NoError(t, err)
	assert.True(t, got.TaxAmount.Equal(dec("4.00")), "tax = %s", got.TaxAmount)

	taxes, err := store.ListTaxesByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, taxes, 1)

	sum := decimal.Zero
	for _, tax := range taxes {
		require.NotNil(t, tax.OrderLineItemID)
		assert.NotEqual(t, removedID, *tax.OrderLineItemID)
		sum = sum.Add(tax.Amount)
	}
	assert.True(t, sum.Equal(got.TaxAmount.Add(got.ShippingTaxAmount)),
		"tax rows sum %s, order taxes %s", sum, got.TaxAmount.Add(got.ShippingTaxAmount))
}

func TestOrderService_SoftDeleteOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("draft only", func(t *testing.T) {
		store := newStore()
		order := testOrder(entities.OrderStatusDraft, entities.PaymentStatusPending)
		store.addOrder(order)

		svc := newOrderService(store, &fakePublisher{})
		require.NoError(t, svc.SoftDeleteOrder(ctx, order.ID, "tester"))

		_, err := svc.GetOrder(ctx, order.ID)
		assert.True(t, errors.Is(err, entities.ErrOrderNotFound))
	})

	t.Run("submitted order survives", func(t *testing.T) {
		store := newStore()
		order := testOrder(entities.OrderStatusPending, entities.PaymentStatusPending, testItem("v-1", 1, "10.00"))
		store.addOrder(order)

		svc := newOrderService(store, &fakePublisher{})
		err := svc.SoftDeleteOrder(ctx, order.ID, "tester")
		assert.True(t, entities.IsInvalidTransition(err), "got %v", err)

		_, err = svc.GetOrder(ctx, order.ID)
		assert.NoError(t, err)
	})
}

func TestOrderService_VersionConflict(t *testing.T) {
	store := newStore()
	order := testOrder(entities.OrderStatusDraft, entities.PaymentStatusPending, testItem("v-1", 1, "10.00"))
	order.Version = 3
	store.addOrder(order)

	// Параллельное изменение: версия в хранилище ушла вперёд.
	stored := store.orders[order.ID]
	stored.Version = 4
	store.orders[order.ID] = stored

	conflicting := cloneOrder(order)
	err := store.UpdateOrder(context.Background(), conflicting)
	assert.True(t, errors.Is(err, entities.ErrVersionConflict))
	assert.True(t, entities.IsRetryable(err))
}
