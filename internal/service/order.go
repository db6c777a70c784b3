package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/entities"
	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/events"
	"github.com/SergeyBogomolovv/order-lifecycle-service/pkg/trm"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LineItemInput struct {
	VariantID      string
	Quantity       int
	DiscountAmount decimal.Decimal
}

// LineItemPatch - явная структура частичного обновления: применяются
// только заполненные поля, инварианты проверяются после применения всех.
type LineItemPatch struct {
	Quantity       *int
	DiscountAmount *decimal.Decimal
}

type CreateOrderInput struct {
	CustomerID string
	Currency   string

	BillingAddressID  string
	ShippingAddressID string
	Email             string
	Phone             string

	ShippingCountry    string
	ShippingPostalCode string
	ShippingAmount     decimal.Decimal

	Metadata map[string]string
	Items    []LineItemInput
	Actor    string
}

type orderService struct {
	logger    *slog.Logger
	txManager trm.Manager
	orders    OrderRepo
	taxes     TaxRepo
	history   HistoryRepo
	publisher EventPublisher
}

func NewOrderService(logger *slog.Logger, txManager trm.Manager, orders OrderRepo, taxes TaxRepo, history HistoryRepo, publisher EventPublisher) *orderService {
	return &orderService{
		logger:    logger.With(slog.String("service", "order")),
		txManager: txManager,
		orders:    orders,
		taxes:     taxes,
		history:   history,
		publisher: publisher,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, in CreateOrderInput) (entities.Order, error) {
	if in.CustomerID == "" {
		return entities.Order{}, entities.NewValidationError("customer_id", "is required")
	}
	if in.Currency == "" {
		return entities.Order{}, entities.NewValidationError("currency", "is required")
	}
	if in.ShippingAmount.IsNegative() {
		return entities.Order{}, entities.NewValidationError("shipping_amount", "must not be negative")
	}

	now := time.Now()
	order := entities.Order{
		ID:                 uuid.New(),
		OrderNumber:        newOrderNumber(),
		CustomerID:         in.CustomerID,
		Currency:           in.Currency,
		Status:             entities.OrderStatusDraft,
		PaymentStatus:      entities.PaymentStatusPending,
		ShippingAmount:     in.ShippingAmount,
		BillingAddressID:   in.BillingAddressID,
		ShippingAddressID:  in.ShippingAddressID,
		Email:              in.Email,
		Phone:              in.Phone,
		ShippingCountry:    in.ShippingCountry,
		ShippingPostalCode: in.ShippingPostalCode,
		Metadata:           in.Metadata,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		for _, itemIn := range in.Items {
			li, err := s.buildLineItem(ctx, order.ID, itemIn)
			if err != nil {
				return err
			}
			order.Items = append(order.Items, li)
			order.Subtotal = order.Subtotal.Add(li.Subtotal)
			order.DiscountAmount = order.DiscountAmount.Add(li.DiscountAmount)
		}
		order.Recalculate()

		if err := s.orders.SaveOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to save order: %w", err)
		}

		return s.history.SaveHistory(ctx, entities.OrderHistory{
			ID:        uuid.New(),
			OrderID:   order.ID,
			Status:    entities.OrderStatusDraft,
			OldStatus: entities.OrderStatusDraft,
			Note:      "order created",
			Actor:     in.Actor,
			CreatedAt: now,
		})
	})
	if err != nil {
		return entities.Order{}, err
	}

	s.logger.Debug("order created", "order_id", order.ID, "order_number", order.OrderNumber)
	return order, nil
}

func (s *orderService) buildLineItem(ctx context.Context, orderID uuid.UUID, in LineItemInput) (entities.OrderLineItem, error) {
	if in.Quantity <= 0 {
		return entities.OrderLineItem{}, entities.NewValidationError("quantity", "must be positive, got %d", in.Quantity)
	}
	if in.DiscountAmount.IsNegative() {
		return entities.OrderLineItem{}, entities.NewValidationError("discount_amount", "must not be negative")
	}

	variant, err := s.orders.GetVariant(ctx, in.VariantID)
	if err != nil {
		if errors.Is(err, entities.ErrVariantNotFound) {
			return entities.OrderLineItem{}, entities.NewValidationError("variant_id", "unknown variant %q", in.VariantID)
		}
		return entities.OrderLineItem{}, err
	}

	now := time.Now()
	li := entities.OrderLineItem{
		ID:             uuid.New(),
		OrderID:        orderID,
		VariantID:      variant.ID,
		Quantity:       in.Quantity,
		UnitPrice:      variant.Price,
		DiscountAmount: in.DiscountAmount,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	li.Recalculate()
	return li, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID uuid.UUID) (entities.Order, error) {
	return s.orders.GetOrder(ctx, orderID)
}

// SubmitOrder переводит черновик в pending. Пустой заказ отправить нельзя.
func (s *orderService) SubmitOrder(ctx context.Context, orderID uuid.UUID, actor string) (entities.Order, error) {
	var order entities.Order
	var old entities.OrderStatus

	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		old = order.Status

		if len(order.Items) == 0 {
			return entities.NewValidationError("items", "cannot submit an empty order")
		}

		record, err := transitionOrder(&order, entities.OrderStatusPending, "order submitted", actor)
		if err != nil {
			return err
		}
		if err := s.orders.UpdateOrder(ctx, order); err != nil {
			return err
		}
		return s.history.SaveHistory(ctx, record)
	})
	if err != nil {
		return entities.Order{}, err
	}

	s.publisher.OrderStatusChanged(ctx, order, old)
	return order, nil
}

// CancelOrder разрешён из pending и partially_shipped. Захваченные платежи
// не возвращаются автоматически, но невыполненные остатки освобождаются
// для склада.
func (s *orderService) CancelOrder(ctx context.Context, orderID uuid.UUID, reason, actor string) (entities.Order, error) {
	var order entities.Order
	var old entities.OrderStatus
	var releases []events.ReleaseItem

	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		old = order.Status

		if old != entities.OrderStatusPending && old != entities.OrderStatusPartiallyShipped {
			return entities.NewInvalidTransition("order", old, entities.OrderStatusCancelled)
		}

		releases = releases[:0]
		for _, li := range order.Items {
			if remaining := li.Remaining(); remaining > 0 {
				releases = append(releases, events.ReleaseItem{VariantID: li.VariantID, Quantity: remaining})
			}
		}

		note := "order cancelled"
		if reason != "" {
			note = "order cancelled: " + reason
		}
		record, err := transitionOrder(&order, entities.OrderStatusCancelled, note, actor)
		if err != nil {
			return err
		}
		if err := s.orders.UpdateOrder(ctx, order); err != nil {
			return err
		}
		return s.history.SaveHistory(ctx, record)
	})
	if err != nil {
		return entities.Order{}, err
	}

	s.publisher.InventoryRelease(ctx, order.ID, releases)
	s.publisher.OrderStatusChanged(ctx, order, old)
	return order, nil
}

func (s *orderService) AddOrderItem(ctx context.Context, orderID uuid.UUID, in LineItemInput, actor string) (entities.Order, error) {
	var order entities.Order

	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.Status.Editable() {
			return entities.NewInvalidTransition("order", order.Status, order.Status)
		}

		li, err := s.buildLineItem(ctx, order.ID, in)
		if err != nil {
			return err
		}
		if err := s.orders.InsertLineItem(ctx, li); err != nil {
			return err
		}

		order.Items = append(order.Items, li)
		order.ApplyItemDelta(nil, &li)
		return s.orders.UpdateOrder(ctx, order)
	})
	if err != nil {
		return entities.Order{}, err
	}
	return order, nil
}

func (s *orderService) UpdateOrderItem(ctx context.Context, orderID, itemID uuid.UUID, patch LineItemPatch, actor string) (entities.Order, error) {
	var order entities.Order

	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.Status.Editable() {
			return entities.NewInvalidTransition("order", order.Status, order.Status)
		}

		li := order.Item(itemID)
		if li == nil {
			return entities.ErrLineItemNotFound
		}
		old := *li

		if patch.Quantity != nil {
			if li.FulfilledQuantity > 0 {
				return entities.NewValidationError("quantity",
					"line item %s is referenced by a fulfillment and cannot change quantity", li.ID)
			}
			if *patch.Quantity <= 0 {
				return entities.NewValidationError("quantity", "must be positive, got %d", *patch.Quantity)
			}
			li.Quantity = *patch.Quantity
		}
		if patch.DiscountAmount != nil {
			if patch.DiscountAmount.IsNegative() {
				return entities.NewValidationError("discount_amount", "must not be negative")
			}
			li.DiscountAmount = *patch.DiscountAmount
		}
		li.Recalculate()

		if err := s.orders.UpdateLineItem(ctx, *li); err != nil {
			return err
		}
		order.ApplyItemDelta(&old, li)
		return s.orders.UpdateOrder(ctx, order)
	})
	if err != nil {
		return entities.Order{}, err
	}
	return order, nil
}

func (s *orderService) RemoveOrderItem(ctx context.Context, orderID, itemID uuid.UUID, actor string) (entities.Order, error) {
	var order entities.Order

	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.Status.Editable() {
			return entities.NewInvalidTransition("order", order.Status, order.Status)
		}

		li := order.Item(itemID)
		if li == nil {
			return entities.ErrLineItemNotFound
		}
		if li.FulfilledQuantity > 0 {
			return entities.NewValidationError("item_id",
				"line item %s is referenced by a fulfillment and cannot be removed", li.ID)
		}
		old := *li

		if err := s.orders.DeleteLineItem(ctx, itemID); err != nil {
			return err
		}
		// Налоговые строки позиции уходят вместе с ней, иначе их сумма
		// разойдётся с tax_amount заказа.
		if err := s.taxes.DeleteTaxesByLineItem(ctx, itemID); err != nil {
			return err
		}

		items := order.Items[:0]
		for _, it := range order.Items {
			if it.ID != itemID {
				items = append(items, it)
			}
		}
		order.Items = items
		order.ApplyItemDelta(&old, nil)
		return s.orders.UpdateOrder(ctx, order)
	})
	if err != nil {
		return entities.Order{}, err
	}
	return order, nil
}

// SoftDeleteOrder - тумбстоун, физически строки не удаляются.
func (s *orderService) SoftDeleteOrder(ctx context.Context, orderID uuid.UUID, actor string) error {
	return s.txManager.Do(ctx, func(ctx context.Context) error {
		order, err := s.orders.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != entities.OrderStatusDraft {
			return entities.NewInvalidTransition("order", order.Status, order.Status)
		}
		return s.orders.SoftDeleteOrder(ctx, orderID, actor)
	})
}

func (s *orderService) ListHistory(ctx context.Context, orderID uuid.UUID) ([]entities.OrderHistory, error) {
	if _, err := s.orders.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.history.ListHistoryByOrder(ctx, orderID)
}
