package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/entities"
	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/gateway"
	"github.com/SergeyBogomolovv/order-lifecycle-service/pkg/trm"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AuthorizePaymentInput struct {
	OrderID uuid.UUID
	// Ноль - авторизуем полную сумму заказа.
	Amount decimal.Decimal
	Method string
	Actor  string
}

type CreateRefundInput struct {
	OrderID       uuid.UUID
	Amount        decimal.Decimal
	Reason        string
	TransactionID *uuid.UUID
	Actor         string
}

type paymentService struct {
	logger    *slog.Logger
	txManager trm.Manager
	orders    OrderRepo
	payments  PaymentRepo
	history   HistoryRepo
	gateway   PaymentGateway
	publisher EventPublisher
}

func NewPaymentService(logger *slog.Logger, txManager trm.Manager, orders OrderRepo, payments PaymentRepo, history HistoryRepo, gw PaymentGateway, publisher EventPublisher) *paymentService {
	return &paymentService{
		logger:    logger.With(slog.String("service", "payment")),
		txManager: txManager,
		orders:    orders,
		payments:  payments,
		history:   history,
		gateway:   gw,
		publisher: publisher,
	}
}

func (s *paymentService) AuthorizePayment(ctx context.Context, in AuthorizePaymentInput) (entities.PaymentTransaction, error) {
	if in.Method == "" {
		return entities.PaymentTransaction{}, entities.NewValidationError("method", "is required")
	}

	var transaction entities.PaymentTransaction

	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		order, err := s.orders.GetOrderForUpdate(ctx, in.OrderID)
		if err != nil {
			return err
		}
		if order.Status != entities.OrderStatusPending {
			return entities.NewInvalidTransition("order", order.Status, order.Status)
		}
		if order.PaymentStatus != entities.PaymentStatusPending {
			return entities.NewValidationError("payment_status",
				"payment already processed, current status %s", order.PaymentStatus)
		}

		amount := in.Amount
		if amount.IsZero() {
			amount = order.Total
		}
		if !amount.IsPositive() {
			return entities.NewValidationError("amount", "must be positive")
		}

		now := time.Now()
		transaction = entities.PaymentTransaction{
			ID:        uuid.New(),
			OrderID:   order.ID,
			Method:    in.Method,
			Amount:    amount,
			Currency:  order.Currency,
			Status:    entities.TransactionStatusAuthorized,
			CreatedAt: now,
			UpdatedAt: now,
		}

		result, err := s.gateway.Authorize(ctx, gateway.PaymentRequest{
			IdempotencyKey: transaction.ID.String(),
			Amount:         amount,
			Currency:       order.Currency,
			Method:         in.Method,
		})
		if err != nil {
			return err
		}
		transaction.ExternalID = result.ExternalID
		transaction.GatewayResponse = result.Response

		if err := s.payments.SaveTransaction(ctx, transaction); err != nil {
			return err
		}

		if !order.PaymentStatus.CanTransition(entities.PaymentStatusAuthorized) {
			return entities.NewInvalidTransition("payment", order.PaymentStatus, entities.PaymentStatusAuthorized)
		}
		order.PaymentStatus = entities.PaymentStatusAuthorized
		return s.orders.UpdateOrder(ctx, order)
	})
	if err != nil {
		return entities.PaymentTransaction{}, err
	}

	s.logger.Debug("payment authorized", "transaction_id", transaction.ID, "order_id", in.OrderID)
	return transaction, nil
}

// CapturePayment списывает авторизованные средства. Сумма по умолчанию равна
// авторизованной и не может её превысить.
func (s *paymentService) CapturePayment(ctx context.Context, transactionID uuid.UUID, amount *decimal.Decimal, actor string) (entities.PaymentTransaction, error) {
	var transaction entities.PaymentTransaction

	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		var err error
		transaction, err = s.payments.GetTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if transaction.Status != entities.TransactionStatusAuthorized {
			return entities.NewInvalidTransition("transaction", transaction.Status, entities.TransactionStatusPaid)
		}

		captureAmount := transaction.Amount
		if amount != nil {
			captureAmount = *amount
		}
		if !captureAmount.IsPositive() {
			return entities.NewValidationError("amount", "must be positive")
		}
		if captureAmount.GreaterThan(transaction.Amount) {
			return entities.NewValidationError("amount",
				"capture amount %s exceeds authorized %s", captureAmount, transaction.Amount)
		}

		order, err := s.orders.GetOrderForUpdate(ctx, transaction.OrderID)
		if err != nil {
			return err
		}

		result, err := s.gateway.Capture(ctx, gateway.PaymentRequest{
			IdempotencyKey: transaction.ID.String(),
			ExternalID:     transaction.ExternalID,
			Amount:         captureAmount,
			Currency:       transaction.Currency,
		})
		if err != nil {
			return err
		}

		transaction.Status = entities.TransactionStatusPaid
		transaction.Amount = captureAmount
		transaction.GatewayResponse = result.Response
		if err := s.payments.UpdateTransaction(ctx, transaction); err != nil {
			return err
		}

		if !order.PaymentStatus.CanTransition(entities.PaymentStatusPaid) {
			return entities.NewInvalidTransition("payment", order.PaymentStatus, entities.PaymentStatusPaid)
		}
		order.PaymentStatus = entities.PaymentStatusPaid
		return s.orders.UpdateOrder(ctx, order)
	})
	if err != nil {
		return entities.PaymentTransaction{}, err
	}
	return transaction, nil
}

// VoidPayment снимает авторизацию без списания.
func (s *paymentService) VoidPayment(ctx context.Context, transactionID uuid.UUID, actor string) (entities.PaymentTransaction, error) {
	var transaction entities.PaymentTransaction

	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		var err error
		transaction, err = s.payments.GetTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if transaction.Status != entities.TransactionStatusAuthorized {
			return entities.NewInvalidTransition("transaction", transaction.Status, entities.TransactionStatusVoided)
		}

		order, err := s.orders.GetOrderForUpdate(ctx, transaction.OrderID)
		if err != nil {
			return err
		}

		result, err := s.gateway.Void(ctx, gateway.PaymentRequest{
			IdempotencyKey: transaction.ID.String(),
			ExternalID:     transaction.ExternalID,
			Amount:         transaction.Amount,
			Currency:       transaction.Currency,
		})
		if err != nil {
			return err
		}

		transaction.Status = entities.TransactionStatusVoided
		transaction.GatewayResponse = result.Response
		if err := s.payments.UpdateTransaction(ctx, transaction); err != nil {
			return err
		}

		if !order.PaymentStatus.CanTransition(entities.PaymentStatusCancelled) {
			return entities.NewInvalidTransition("payment", order.PaymentStatus, entities.PaymentStatusCancelled)
		}
		order.PaymentStatus = entities.PaymentStatusCancelled
		return s.orders.UpdateOrder(ctx, order)
	})
	if err != nil {
		return entities.PaymentTransaction{}, err
	}
	return transaction, nil
}

// CreateRefund создаёт возврат в pending. Pending и processing возвраты
// резервируют лимит: сумма всех возвратов не превышает ни total заказа,
// ни фактически списанное.
func (s *paymentService) CreateRefund(ctx context.Context, in CreateRefundInput) (entities.Refund, error) {
	if !in.Amount.IsPositive() {
		return entities.Refund{}, entities.NewValidationError("amount", "must be positive")
	}

	var refund entities.Refund
	var order entities.Order
	var old entities.OrderStatus

	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.GetOrderForUpdate(ctx, in.OrderID)
		if err != nil {
			return err
		}
		old = order.Status

		// Полностью возвращённый заказ проходит проверку статуса: лишнюю
		// сумму отсечёт лимит ниже, это ошибка данных, а не перехода.
		switch old {
		case entities.OrderStatusShipped, entities.OrderStatusDelivered,
			entities.OrderStatusPartiallyRefunded, entities.OrderStatusRefunded:
		default:
			return entities.NewInvalidTransition("order", old, entities.OrderStatusPartiallyRefunded)
		}
		switch order.PaymentStatus {
		case entities.PaymentStatusPaid, entities.PaymentStatusPartiallyRefunded, entities.PaymentStatusRefunded:
		default:
			return entities.NewValidationError("payment_status",
				"order is not paid, current status %s", order.PaymentStatus)
		}

		if in.TransactionID != nil {
			t, err := s.payments.GetTransaction(ctx, *in.TransactionID)
			if err != nil {
				return err
			}
			if t.OrderID != order.ID {
				return entities.NewValidationError("transaction_id",
					"transaction %s does not belong to order %s", t.ID, order.ID)
			}
		}

		refunded, err := s.refundedTotal(ctx, order.ID)
		if err != nil {
			return err
		}
		newSum := refunded.Add(in.Amount)
		if newSum.GreaterThan(order.Total) {
			return entities.NewValidationError("amount",
				"refund %s plus existing refunds %s exceeds order total %s", in.Amount, refunded, order.Total)
		}

		captured, err := s.capturedTotal(ctx, order.ID)
		if err != nil {
			return err
		}
		if newSum.GreaterThan(captured) {
			return entities.NewValidationError("amount",
				"refund %s plus existing refunds %s exceeds captured %s", in.Amount, refunded, captured)
		}

		now := time.Now()
		refund = entities.Refund{
			ID:            uuid.New(),
			OrderID:       order.ID,
			TransactionID: in.TransactionID,
			Amount:        in.Amount,
			Status:        entities.RefundStatusPending,
			Reason:        in.Reason,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.payments.SaveRefund(ctx, refund); err != nil {
			return err
		}

		paymentTarget := entities.PaymentStatusPartiallyRefunded
		orderTarget := entities.OrderStatusPartiallyRefunded
		if newSum.Equal(order.Total) {
			paymentTarget = entities.PaymentStatusRefunded
			orderTarget = entities.OrderStatusRefunded
		}

		if order.PaymentStatus != paymentTarget {
			if !order.PaymentStatus.CanTransition(paymentTarget) {
				return entities.NewInvalidTransition("payment", order.PaymentStatus, paymentTarget)
			}
			order.PaymentStatus = paymentTarget
		}

		if order.Status != orderTarget {
			record, err := transitionOrder(&order, orderTarget, "refund of "+in.Amount.String()+" created", in.Actor)
			if err != nil {
				return err
			}
			if err := s.history.SaveHistory(ctx, record); err != nil {
				return err
			}
		}
		return s.orders.UpdateOrder(ctx, order)
	})
	if err != nil {
		return entities.Refund{}, err
	}

	if order.Status != old {
		s.publisher.OrderStatusChanged(ctx, order, old)
	}
	s.logger.Debug("refund created", "refund_id", refund.ID, "order_id", in.OrderID)
	return refund, nil
}

// ProcessRefund делегирует возврат шлюзу и фиксирует его внешний идентификатор.
func (s *paymentService) ProcessRefund(ctx context.Context, refundID uuid.UUID, actor string) (entities.Refund, error) {
	var refund entities.Refund

	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		var err error
		refund, err = s.payments.GetRefund(ctx, refundID)
		if err != nil {
			return err
		}
		if refund.Status != entities.RefundStatusPending {
			return entities.NewInvalidTransition("refund", refund.Status, entities.RefundStatusCompleted)
		}

		result, err := s.gateway.Refund(ctx, gateway.PaymentRequest{
			IdempotencyKey: refund.ID.String(),
			Amount:         refund.Amount,
		})
		if err != nil {
			return err
		}

		refund.Status = entities.RefundStatusCompleted
		refund.ExternalID = result.ExternalID
		return s.payments.UpdateRefund(ctx, refund)
	})
	if err != nil {
		return entities.Refund{}, err
	}
	return refund, nil
}

func (s *paymentService) ListRefunds(ctx context.Context, orderID uuid.UUID) ([]entities.Refund, error) {
	if _, err := s.orders.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.payments.ListRefundsByOrder(ctx, orderID)
}

func (s *paymentService) refundedTotal(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error) {
	refunds, err := s.payments.ListRefundsByOrder(ctx, orderID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, r := range refunds {
		if r.CountsTowardLimit() {
			total = total.Add(r.Amount)
		}
	}
	return total, nil
}

func (s *paymentService) capturedTotal(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error) {
	transactions, err := s.payments.ListTransactionsByOrder(ctx, orderID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, t := range transactions {
		if t.Status == entities.TransactionStatusPaid {
			total = total.Add(t.Amount)
		}
	}
	return total, nil
}
