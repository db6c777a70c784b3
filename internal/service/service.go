package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/entities"
	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/events"
	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/gateway"
	"github.com/google/uuid"
)

type OrderRepo interface {
	GetOrder(ctx context.Context, orderID uuid.UUID) (entities.Order, error)

	// GetOrderForUpdate блокирует строку заказа до конца транзакции,
	// параллельные мутации одного заказа сериализуются здесь.
	GetOrderForUpdate(ctx context.Context, orderID uuid.UUID) (entities.Order, error)
	SaveOrder(ctx context.Context, o entities.Order) error
	UpdateOrder(ctx context.Context, o entities.Order) error
	SoftDeleteOrder(ctx context.Context, orderID uuid.UUID, actor string) error

	InsertLineItem(ctx context.Context, li entities.OrderLineItem) error
	UpdateLineItem(ctx context.Context, li entities.OrderLineItem) error
	DeleteLineItem(ctx context.Context, itemID uuid.UUID) error

	GetVariant(ctx context.Context, variantID string) (entities.Variant, error)
}

type FulfillmentRepo interface {
	SaveFulfillment(ctx context.Context, f entities.FulfillmentOrder) error
	GetFulfillment(ctx context.Context, fulfillmentID uuid.UUID) (entities.FulfillmentOrder, error)
	ListFulfillmentsByOrder(ctx context.Context, orderID uuid.UUID) ([]entities.FulfillmentOrder, error)
	UpdateFulfillment(ctx context.Context, f entities.FulfillmentOrder) error
	DeleteFulfillment(ctx context.Context, fulfillmentID uuid.UUID) error
}

type PaymentRepo interface {
	SaveTransaction(ctx context.Context, t entities.PaymentTransaction) error
	GetTransaction(ctx context.Context, transactionID uuid.UUID) (entities.PaymentTransaction, error)
	ListTransactionsByOrder(ctx context.Context, orderID uuid.UUID) ([]entities.PaymentTransaction, error)
	UpdateTransaction(ctx context.Context, t entities.PaymentTransaction) error

	SaveRefund(ctx context.Context, r entities.Refund) error
	GetRefund(ctx context.Context, refundID uuid.UUID) (entities.Refund, error)
	ListRefundsByOrder(ctx context.Context, orderID uuid.UUID) ([]entities.Refund, error)
	UpdateRefund(ctx context.Context, r entities.Refund) error
}

type TaxRepo interface {
	DeleteTaxesByOrder(ctx context.Context, orderID uuid.UUID) error
	DeleteTaxesByLineItem(ctx context.Context, itemID uuid.UUID) error
	SaveTaxes(ctx context.Context, taxes []entities.Tax) error
	ListTaxesByOrder(ctx context.Context, orderID uuid.UUID) ([]entities.Tax, error)
}

type HistoryRepo interface {
	SaveHistory(ctx context.Context, h entities.OrderHistory) error
	ListHistoryByOrder(ctx context.Context, orderID uuid.UUID) ([]entities.OrderHistory, error)

	SaveNote(ctx context.Context, n entities.OrderNote) error
	GetNote(ctx context.Context, noteID uuid.UUID) (entities.OrderNote, error)
	UpdateNote(ctx context.Context, n entities.OrderNote) error
	DeleteNote(ctx context.Context, noteID uuid.UUID) error
	ListNotesByOrder(ctx context.Context, orderID uuid.UUID) ([]entities.OrderNote, error)
}

type EventPublisher interface {
	OrderStatusChanged(ctx context.Context, order entities.Order, old entities.OrderStatus)
	InventoryRelease(ctx context.Context, orderID uuid.UUID, items []events.ReleaseItem)
}

type PaymentGateway interface {
	Authorize(ctx context.Context, req gateway.PaymentRequest) (gateway.PaymentResult, error)
	Capture(ctx context.Context, req gateway.PaymentRequest) (gateway.PaymentResult, error)
	Void(ctx context.Context, req gateway.PaymentRequest) (gateway.PaymentResult, error)
	Refund(ctx context.Context, req gateway.PaymentRequest) (gateway.PaymentResult, error)
}

// transitionOrder проверяет переход по таблице, меняет статус и возвращает
// запись журнала. Журнал пишется в той же транзакции: откат мутации
// откатывает и запись.
func transitionOrder(o *entities.Order, to entities.OrderStatus, note, actor string) (entities.OrderHistory, error) {
	if !o.Status.CanTransition(to) {
		return entities.OrderHistory{}, entities.NewInvalidTransition("order", o.Status, to)
	}
	old := o.Status
	o.Status = to
	return entities.OrderHistory{
		ID:        uuid.New(),
		OrderID:   o.ID,
		Status:    to,
		OldStatus: old,
		Note:      note,
		Actor:     actor,
		CreatedAt: time.Now(),
	}, nil
}

func newOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	return fmt.Sprintf("ORD-%s-%s", time.Now().UTC().Format("20060102"), suffix)
}
