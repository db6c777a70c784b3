package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/entities"
	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/service"
	"github.com/SergeyBogomolovv/order-lifecycle-service/pkg/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderService interface {
	CreateOrder(ctx context.Context, in service.CreateOrderInput) (entities.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (entities.Order, error)
	SubmitOrder(ctx context.Context, orderID uuid.UUID, actor string) (entities.Order, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID, reason, actor string) (entities.Order, error)
	AddOrderItem(ctx context.Context, orderID uuid.UUID, in service.LineItemInput, actor string) (entities.Order, error)
	UpdateOrderItem(ctx context.Context, orderID, itemID uuid.UUID, patch service.LineItemPatch, actor string) (entities.Order, error)
	RemoveOrderItem(ctx context.Context, orderID, itemID uuid.UUID, actor string) (entities.Order, error)
	SoftDeleteOrder(ctx context.Context, orderID uuid.UUID, actor string) error
	ListHistory(ctx context.Context, orderID uuid.UUID) ([]entities.OrderHistory, error)
}

type FulfillmentService interface {
	CreateFulfillment(ctx context.Context, in service.CreateFulfillmentInput) (entities.FulfillmentOrder, error)
	ShipFulfillment(ctx context.Context, fulfillmentID uuid.UUID, trackingNumber, actor string) (entities.FulfillmentOrder, error)
	CancelFulfillment(ctx context.Context, fulfillmentID uuid.UUID, actor string) (entities.FulfillmentOrder, error)
	DeleteFulfillment(ctx context.Context, fulfillmentID uuid.UUID, actor string) error
	GetFulfillment(ctx context.Context, fulfillmentID uuid.UUID) (entities.FulfillmentOrder, error)
	ListFulfillments(ctx context.Context, orderID uuid.UUID) ([]entities.FulfillmentOrder, error)
}

type PaymentService interface {
	AuthorizePayment(ctx context.Context, in service.AuthorizePaymentInput) (entities.PaymentTransaction, error)
	CapturePayment(ctx context.Context, transactionID uuid.UUID, amount *decimal.Decimal, actor string) (entities.PaymentTransaction, error)
	VoidPayment(ctx context.Context, transactionID uuid.UUID, actor string) (entities.PaymentTransaction, error)
	CreateRefund(ctx context.Context, in service.CreateRefundInput) (entities.Refund, error)
	ProcessRefund(ctx context.Context, refundID uuid.UUID, actor string) (entities.Refund, error)
	ListRefunds(ctx context.Context, orderID uuid.UUID) ([]entities.Refund, error)
}

type TaxService interface {
	CalculateTaxes(ctx context.Context, orderID uuid.UUID, actor string) (entities.Order, error)
	ListTaxes(ctx context.Context, orderID uuid.UUID) ([]entities.Tax, error)
}

type NoteService interface {
	AddNote(ctx context.Context, in service.AddNoteInput) (entities.OrderNote, error)
	UpdateNote(ctx context.Context, noteID uuid.UUID, text, actor string) (entities.OrderNote, error)
	DeleteNote(ctx context.Context, noteID uuid.UUID, actor string) error
	ListNotes(ctx context.Context, orderID uuid.UUID) ([]entities.OrderNote, error)
}

type HTTPHandler struct {
	logger   *slog.Logger
	validate *validator.Validate

	orders       OrderService
	fulfillments FulfillmentService
	payments     PaymentService
	taxes        TaxService
	notes        NoteService
}

func NewHTTPHandler(logger *slog.Logger, orders OrderService, fulfillments FulfillmentService, payments PaymentService, taxes TaxService, notes NoteService) *HTTPHandler {
	return &HTTPHandler{
		logger:       logger.With(slog.String("handler", "http")),
		validate:     validator.New(),
		orders:       orders,
		fulfillments: fulfillments,
		payments:     payments,
		taxes:        taxes,
		notes:        notes,
	}
}

func (h *HTTPHandler) Init(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.CreateOrder)

		r.Route("/{order_id}", func(r chi.Router) {
			r.Get("/", h.GetOrder)
			r.Delete("/", h.DeleteOrder)
			r.Post("/submit", h.SubmitOrder)
			r.Post("/cancel", h.CancelOrder)

			r.Post("/items", h.AddOrderItem)
			r.Patch("/items/{item_id}", h.UpdateOrderItem)
			r.Delete("/items/{item_id}", h.RemoveOrderItem)

			r.Get("/history", h.ListHistory)

			r.Post("/fulfillments", h.CreateFulfillment)
			r.Get("/fulfillments", h.ListFulfillments)

			r.Post("/payments", h.AuthorizePayment)
			r.Post("/refunds", h.CreateRefund)
			r.Get("/refunds", h.ListRefunds)

			r.Post("/taxes/calculate", h.CalculateTaxes)
			r.Get("/taxes", h.ListTaxes)

			r.Post("/notes", h.AddNote)
			r.Get("/notes", h.ListNotes)
		})
	})

	r.Route("/fulfillments/{fulfillment_id}", func(r chi.Router) {
		r.Get("/", h.GetFulfillment)
		r.Delete("/", h.DeleteFulfillment)
		r.Post("/ship", h.ShipFulfillment)
		r.Post("/cancel", h.CancelFulfillment)
	})

	r.Route("/payments/{transaction_id}", func(r chi.Router) {
		r.Post("/capture", h.CapturePayment)
		r.Post("/void", h.VoidPayment)
	})

	r.Post("/refunds/{refund_id}/process", h.ProcessRefund)

	r.Route("/notes/{note_id}", func(r chi.Router) {
		r.Patch("/", h.UpdateNote)
		r.Delete("/", h.DeleteNote)
	})
}

// actor извлекает инициатора операции для журнала.
func actor(r *http.Request) string {
	if v := r.Header.Get("X-Actor-ID"); v != "" {
		return v
	}
	return "system"
}

func (h *HTTPHandler) pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		utils.WriteError(w, param+" must be a valid uuid", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError отображает таксономию доменных ошибок в HTTP-статусы.
// Конфликт версий - 409: вызывающая сторона решает, повторять ли.
func (h *HTTPHandler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, op string) {
	switch {
	case entities.IsValidation(err):
		utils.WriteError(w, err.Error(), http.StatusBadRequest)
	case entities.IsNotFound(err):
		utils.WriteError(w, err.Error(), http.StatusNotFound)
	case entities.IsInvalidTransition(err), errors.Is(err, entities.ErrVersionConflict):
		utils.WriteError(w, err.Error(), http.StatusConflict)
	case entities.IsRetryable(err):
		gatewayErrors.Inc()
		h.logger.ErrorContext(ctx, "external service failed", slog.String("op", op), slog.Any("error", err))
		utils.WriteError(w, "external service unavailable", http.StatusBadGateway)
	default:
		h.logger.ErrorContext(ctx, "operation failed", slog.String("op", op), slog.Any("error", err))
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
	}
}
