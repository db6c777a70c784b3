package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/entities"
	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/handler"
	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Стабы переопределяют только нужные методы, остальные вызовы - ошибка теста.
type stubOrders struct {
	handler.OrderService
	getOrder    func(ctx context.Context, orderID uuid.UUID) (entities.Order, error)
	createOrder func(ctx context.Context, in service.CreateOrderInput) (entities.Order, error)
	submitOrder func(ctx context.Context, orderID uuid.UUID, actor string) (entities.Order, error)
}

func (s *stubOrders) GetOrder(ctx context.Context, orderID uuid.UUID) (entities.Order, error) {
	return s.getOrder(ctx, orderID)
}

func (s *stubOrders) CreateOrder(ctx context.Context, in service.CreateOrderInput) (entities.Order, error) {
	return s.createOrder(ctx, in)
}

func (s *stubOrders) SubmitOrder(ctx context.Context, orderID uuid.UUID, actor string) (entities.Order, error) {
	return s.submitOrder(ctx, orderID, actor)
}

type stubFulfillments struct {
	handler.FulfillmentService
	create func(ctx context.Context, in service.CreateFulfillmentInput) (entities.FulfillmentOrder, error)
}

func (s *stubFulfillments) CreateFulfillment(ctx context.Context, in service.CreateFulfillmentInput) (entities.FulfillmentOrder, error) {
	return s.create(ctx, in)
}

type stubPayments struct {
	handler.PaymentService
	authorize func(ctx context.Context, in service.AuthorizePaymentInput) (entities.PaymentTransaction, error)
}

func (s *stubPayments) AuthorizePayment(ctx context.Context, in service.AuthorizePaymentInput) (entities.PaymentTransaction, error) {
	return s.authorize(ctx, in)
}

func newRouter(orders handler.OrderService, fulfillments handler.FulfillmentService, payments handler.PaymentService) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := handler.NewHTTPHandler(logger, orders, fulfillments, payments, nil, nil)

	r := chi.NewRouter()
	h.Init(r)
	return r
}

func TestHTTPHandler_GetOrder(t *testing.T) {
	orderID := uuid.New()
	order := entities.Order{
		ID:          orderID,
		OrderNumber: "ORD-20260101-ABCDEF1234",
		CustomerID:  "cust-1",
		Currency:    "USD",
		Status:      entities.OrderStatusDraft,
		Total:       decimal.RequireFromString("10.00"),
	}

	testCases := []struct {
		name       string
		path       string
		getOrder   func(ctx context.Context, id uuid.UUID) (entities.Order, error)
		wantStatus int
		wantBody   string
	}{
		{
			name: "success",
			path: "/orders/" + orderID.String(),
			getOrder: func(ctx context.Context, id uuid.UUID) (entities.Order, error) {
				return order, nil
			},
			wantStatus: http.StatusOK,
			wantBody:   `"order_number":"ORD-20260101-ABCDEF1234"`,
		},
		{
			name: "not found",
			path: "/orders/" + uuid.NewString(),
			getOrder: func(ctx context.Context, id uuid.UUID) (entities.Order, error) {
				return entities.Order{}, entities.ErrOrderNotFound
			},
			wantStatus: http.StatusNotFound,
			wantBody:   `"order not found"`,
		},
		{
			name:       "invalid uuid",
			path:       "/orders/not-a-uuid",
			wantStatus: http.StatusBadRequest,
			wantBody:   `"order_id must be a valid uuid"`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRouter(&stubOrders{getOrder: tc.getOrder}, nil, nil)

			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			res := rr.Result()
			defer res.Body.Close()
			body, err := io.ReadAll(res.Body)
			require.NoError(t, err)

			assert.Equal(t, tc.wantStatus, res.StatusCode)
			assert.Contains(t, string(body), tc.wantBody)
		})
	}
}

func TestHTTPHandler_CreateOrder(t *testing.T) {
	t.Run("passes actor header", func(t *testing.T) {
		var gotActor string
		orders := &stubOrders{createOrder: func(ctx context.Context, in service.CreateOrderInput) (entities.Order, error) {
			gotActor = in.Actor
			return entities.Order{ID: uuid.New(), Status: entities.OrderStatusDraft}, nil
		}}
		r := newRouter(orders, nil, nil)

		body := `{"customer_id":"cust-1","currency":"USD","items":[{"variant_id":"v-1","quantity":2}]}`
		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
		req.Header.Set("X-Actor-ID", "manager-7")
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, "manager-7", gotActor)
	})

	t.Run("missing required fields", func(t *testing.T) {
		r := newRouter(&stubOrders{}, nil, nil)

		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"currency":"USD"}`))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "CustomerID")
	})

	t.Run("invalid json", func(t *testing.T) {
		r := newRouter(&stubOrders{}, nil, nil)

		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{`))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestHTTPHandler_SubmitOrder(t *testing.T) {
	orderID := uuid.New()

	t.Run("invalid transition maps to conflict", func(t *testing.T) {
		orders := &stubOrders{submitOrder: func(ctx context.Context, id uuid.UUID, actor string) (entities.Order, error) {
			return entities.Order{}, entities.NewInvalidTransition("order", entities.OrderStatusPending, entities.OrderStatusPending)
		}}
		r := newRouter(orders, nil, nil)

		req := httptest.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/submit", nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Contains(t, rr.Body.String(), "illegal transition")
	})

	t.Run("version conflict maps to conflict", func(t *testing.T) {
		orders := &stubOrders{submitOrder: func(ctx context.Context, id uuid.UUID, actor string) (entities.Order, error) {
			return entities.Order{}, entities.ErrVersionConflict
		}}
		r := newRouter(orders, nil, nil)

		req := httptest.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/submit", nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}

func TestHTTPHandler_CreateFulfillment(t *testing.T) {
	orderID := uuid.New()
	lineItemID := uuid.New()

	t.Run("over-fulfillment maps to bad request", func(t *testing.T) {
		fulfillments := &stubFulfillments{create: func(ctx context.Context, in service.CreateFulfillmentInput) (entities.FulfillmentOrder, error) {
			return entities.FulfillmentOrder{}, entities.NewValidationError("items",
				"line item %s: requested 6 exceeds remaining 5 by 1", lineItemID)
		}}
		r := newRouter(nil, fulfillments, nil)

		body := `{"items":[{"line_item_id":"` + lineItemID.String() + `","quantity":6}]}`
		req := httptest.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/fulfillments", strings.NewReader(body))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "exceeds remaining")
	})

	t.Run("success", func(t *testing.T) {
		fulfillments := &stubFulfillments{create: func(ctx context.Context, in service.CreateFulfillmentInput) (entities.FulfillmentOrder, error) {
			require.Len(t, in.Items, 1)
			assert.Equal(t, lineItemID, in.Items[0].LineItemID)
			return entities.FulfillmentOrder{
				ID:      uuid.New(),
				OrderID: in.OrderID,
				Status:  entities.FulfillmentStatusPending,
			}, nil
		}}
		r := newRouter(nil, fulfillments, nil)

		body := `{"items":[{"line_item_id":"` + lineItemID.String() + `","quantity":2}],"carrier":"dhl"}`
		req := httptest.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/fulfillments", strings.NewReader(body))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Contains(t, rr.Body.String(), `"status":"pending"`)
	})
}

func TestHTTPHandler_AuthorizePayment(t *testing.T) {
	orderID := uuid.New()

	t.Run("gateway failure maps to bad gateway", func(t *testing.T) {
		payments := &stubPayments{authorize: func(ctx context.Context, in service.AuthorizePaymentInput) (entities.PaymentTransaction, error) {
			return entities.PaymentTransaction{}, &entities.ExternalServiceError{
				Service: "payment gateway",
				Err:     context.DeadlineExceeded,
			}
		}}
		r := newRouter(nil, nil, payments)

		body := `{"method":"card"}`
		req := httptest.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/payments", strings.NewReader(body))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadGateway, rr.Code)
		assert.Contains(t, rr.Body.String(), "external service unavailable")
	})
}
