package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/entities"
	"github.com/SergeyBogomolovv/order-lifecycle-service/pkg/trm"
	"github.com/google/uuid"
)

type FulfillmentItemInput struct {
	LineItemID uuid.UUID
	Quantity   int
}

type CreateFulfillmentInput struct {
	OrderID uuid.UUID
	Items   []FulfillmentItemInput

	Carrier        string
	TrackingNumber string
	TrackingURL    string

	Actor string
}

type fulfillmentService struct {
	logger       *slog.Logger
	txManager    trm.Manager
	orders       OrderRepo
	fulfillments FulfillmentRepo
	history      HistoryRepo
	publisher    EventPublisher
}

func NewFulfillmentService(logger *slog.Logger, txManager trm.Manager, orders OrderRepo, fulfillments FulfillmentRepo, history HistoryRepo, publisher EventPublisher) *fulfillmentService {
	return &fulfillmentService{
		logger:       logger.With(slog.String("service", "fulfillment")),
		txManager:    txManager,
		orders:       orders,
		fulfillments: fulfillments,
		history:      history,
		publisher:    publisher,
	}
}

// CreateFulfillment резервирует количества позиций под одну отгрузку.
// Главный инвариант всей системы: fulfilled_quantity никогда не превышает
// quantity, иначе двойная отгрузка - прямая финансовая дыра.
func (s *fulfillmentService) CreateFulfillment(ctx context.Context, in CreateFulfillmentInput) (entities.FulfillmentOrder, error) {
	if len(in.Items) == 0 {
		return entities.FulfillmentOrder{}, entities.NewValidationError("items", "at least one item is required")
	}

	var fulfillment entities.FulfillmentOrder
	var order entities.Order
	var old entities.OrderStatus

	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.GetOrderForUpdate(ctx, in.OrderID)
		if err != nil {
			return err
		}
		old = order.Status

		if old != entities.OrderStatusPending && old != entities.OrderStatusPartiallyShipped {
			return entities.NewInvalidTransition("order", old, entities.OrderStatusPartiallyShipped)
		}

		now := time.Now()
		fulfillment = entities.FulfillmentOrder{
			ID:             uuid.New(),
			OrderID:        order.ID,
			Status:         entities.FulfillmentStatusPending,
			Carrier:        in.Carrier,
			TrackingNumber: in.TrackingNumber,
			TrackingURL:    in.TrackingURL,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		for _, itemIn := range in.Items {
			if itemIn.Quantity <= 0 {
				return entities.NewValidationError("quantity", "must be positive, got %d", itemIn.Quantity)
			}

			li := order.Item(itemIn.LineItemID)
			if li == nil {
				return entities.ErrLineItemNotFound
			}
			if remaining := li.Remaining(); itemIn.Quantity > remaining {
				return entities.NewValidationError("items",
					"line item %s: requested %d exceeds remaining %d by %d",
					li.ID, itemIn.Quantity, remaining, itemIn.Quantity-remaining)
			}

			li.FulfilledQuantity += itemIn.Quantity
			if err := s.orders.UpdateLineItem(ctx, *li); err != nil {
				return err
			}

			fulfillment.Items = append(fulfillment.Items, entities.FulfillmentLineItem{
				ID:              uuid.New(),
				FulfillmentID:   fulfillment.ID,
				OrderLineItemID: li.ID,
				Quantity:        itemIn.Quantity,
			})
		}

		if err := s.fulfillments.SaveFulfillment(ctx, fulfillment); err != nil {
			return err
		}

		return s.recomputeOrderStatus(ctx, &order, in.Actor, "fulfillment created")
	})
	if err != nil {
		return entities.FulfillmentOrder{}, err
	}

	if order.Status != old {
		s.publisher.OrderStatusChanged(ctx, order, old)
	}
	s.logger.Debug("fulfillment created", "fulfillment_id", fulfillment.ID, "order_id", order.ID)
	return fulfillment, nil
}

// ShipFulfillment требует непустой трек-номер: отгрузка без ссылки на
// перевозчика не отслеживается.
func (s *fulfillmentService) ShipFulfillment(ctx context.Context, fulfillmentID uuid.UUID, trackingNumber, actor string) (entities.FulfillmentOrder, error) {
	var fulfillment entities.FulfillmentOrder
	var order entities.Order
	var old entities.OrderStatus

	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		var err error
		fulfillment, err = s.fulfillments.GetFulfillment(ctx, fulfillmentID)
		if err != nil {
			return err
		}
		if fulfillment.Status != entities.FulfillmentStatusPending {
			return entities.NewInvalidTransition("fulfillment", fulfillment.Status, entities.FulfillmentStatusShipped)
		}

		if trackingNumber != "" {
			fulfillment.TrackingNumber = trackingNumber
		}
		if fulfillment.TrackingNumber == "" {
			return entities.NewValidationError("tracking_number", "is required to ship")
		}

		order, err = s.orders.GetOrderForUpdate(ctx, fulfillment.OrderID)
		if err != nil {
			return err
		}
		old = order.Status

		fulfillment.Status = entities.FulfillmentStatusShipped
		if err := s.fulfillments.UpdateFulfillment(ctx, fulfillment); err != nil {
			return err
		}

		all, err := s.fulfillments.ListFulfillmentsByOrder(ctx, order.ID)
		if err != nil {
			return err
		}
		for _, f := range all {
			if f.Active() && f.Status != entities.FulfillmentStatusShipped {
				return nil
			}
		}

		// Все активные исполнения отгружены
		if order.Status != entities.OrderStatusShipped {
			record, err := transitionOrder(&order, entities.OrderStatusShipped, "all fulfillments shipped", actor)
			if err != nil {
				return err
			}
			if err := s.orders.UpdateOrder(ctx, order); err != nil {
				return err
			}
			return s.history.SaveHistory(ctx, record)
		}
		return nil
	})
	if err != nil {
		return entities.FulfillmentOrder{}, err
	}

	if order.Status != old {
		s.publisher.OrderStatusChanged(ctx, order, old)
	}
	return fulfillment, nil
}

// CancelFulfillment точно откатывает вклад отгрузки в fulfilled_quantity.
func (s *fulfillmentService) CancelFulfillment(ctx context.Context, fulfillmentID uuid.UUID, actor string) (entities.FulfillmentOrder, error) {
	var fulfillment entities.FulfillmentOrder
	var order entities.Order
	var old entities.OrderStatus

	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		var err error
		fulfillment, order, old, err = s.reverseFulfillment(ctx, fulfillmentID, actor, "fulfillment cancelled")
		if err != nil {
			return err
		}

		fulfillment.Status = entities.FulfillmentStatusCancelled
		return s.fulfillments.UpdateFulfillment(ctx, fulfillment)
	})
	if err != nil {
		return entities.FulfillmentOrder{}, err
	}

	if order.Status != old {
		s.publisher.OrderStatusChanged(ctx, order, old)
	}
	return fulfillment, nil
}

// DeleteFulfillment разрешён только для pending и физически удаляет запись.
func (s *fulfillmentService) DeleteFulfillment(ctx context.Context, fulfillmentID uuid.UUID, actor string) error {
	var order entities.Order
	var old entities.OrderStatus

	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		fulfillment, err := s.fulfillments.GetFulfillment(ctx, fulfillmentID)
		if err != nil {
			return err
		}
		if fulfillment.Status != entities.FulfillmentStatusPending {
			return entities.NewInvalidTransition("fulfillment", fulfillment.Status, entities.FulfillmentStatusCancelled)
		}

		_, order, old, err = s.reverseFulfillment(ctx, fulfillmentID, actor, "fulfillment deleted")
		if err != nil {
			return err
		}
		return s.fulfillments.DeleteFulfillment(ctx, fulfillmentID)
	})
	if err != nil {
		return err
	}

	if order.Status != old {
		s.publisher.OrderStatusChanged(ctx, order, old)
	}
	return nil
}

// reverseFulfillment снимает вклад исполнения с позиций заказа и пересчитывает
// статус заказа. Вызывается под блокировкой строки заказа.
func (s *fulfillmentService) reverseFulfillment(ctx context.Context, fulfillmentID uuid.UUID, actor, note string) (entities.FulfillmentOrder, entities.Order, entities.OrderStatus, error) {
	fulfillment, err := s.fulfillments.GetFulfillment(ctx, fulfillmentID)
	if err != nil {
		return entities.FulfillmentOrder{}, entities.Order{}, "", err
	}
	if fulfillment.Status != entities.FulfillmentStatusPending && fulfillment.Status != entities.FulfillmentStatusProcessing {
		return entities.FulfillmentOrder{}, entities.Order{}, "",
			entities.NewInvalidTransition("fulfillment", fulfillment.Status, entities.FulfillmentStatusCancelled)
	}

	order, err := s.orders.GetOrderForUpdate(ctx, fulfillment.OrderID)
	if err != nil {
		return entities.FulfillmentOrder{}, entities.Order{}, "", err
	}
	old := order.Status

	for _, fi := range fulfillment.Items {
		li := order.Item(fi.OrderLineItemID)
		if li == nil {
			return entities.FulfillmentOrder{}, entities.Order{}, "", entities.ErrLineItemNotFound
		}
		li.FulfilledQuantity -= fi.Quantity
		if li.FulfilledQuantity < 0 {
			li.FulfilledQuantity = 0
		}
		if err := s.orders.UpdateLineItem(ctx, *li); err != nil {
			return entities.FulfillmentOrder{}, entities.Order{}, "", err
		}
	}

	if err := s.recomputeOrderStatus(ctx, &order, actor, note); err != nil {
		return entities.FulfillmentOrder{}, entities.Order{}, "", err
	}
	return fulfillment, order, old, nil
}

// recomputeOrderStatus выводит статус заказа из фактических остатков:
// shipped / partially_shipped / pending.
func (s *fulfillmentService) recomputeOrderStatus(ctx context.Context, order *entities.Order, actor, note string) error {
	var target entities.OrderStatus
	switch {
	case order.FullyFulfilled():
		target = entities.OrderStatusShipped
	case order.AnyFulfilled():
		target = entities.OrderStatusPartiallyShipped
	default:
		target = entities.OrderStatusPending
	}

	if target == order.Status {
		return s.orders.UpdateOrder(ctx, *order)
	}

	record, err := transitionOrder(order, target, note, actor)
	if err != nil {
		return err
	}
	if err := s.orders.UpdateOrder(ctx, *order); err != nil {
		return err
	}
	return s.history.SaveHistory(ctx, record)
}

func (s *fulfillmentService) GetFulfillment(ctx context.Context, fulfillmentID uuid.UUID) (entities.FulfillmentOrder, error) {
	return s.fulfillments.GetFulfillment(ctx, fulfillmentID)
}

func (s *fulfillmentService) ListFulfillments(ctx context.Context, orderID uuid.UUID) ([]entities.FulfillmentOrder, error) {
	if _, err := s.orders.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.fulfillments.ListFulfillmentsByOrder(ctx, orderID)
}
