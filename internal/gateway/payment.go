package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/entities"
	"github.com/shopspring/decimal"
)

// PaymentRequest - один вызов платёжного шлюза. IdempotencyKey - локальный
// id транзакции или возврата, шлюз дедуплицирует повторы по нему.
type PaymentRequest struct {
	IdempotencyKey string          `json:"idempotency_key"`
	ExternalID     string          `json:"external_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Method         string          `json:"method,omitempty"`
}

type PaymentResult struct {
	ExternalID string `json:"external_id"`
	Response   string `json:"response"`
}

type paymentClient struct {
	baseURL string
	http    *http.Client
}

func NewPaymentClient(baseURL string, timeout time.Duration) *paymentClient {
	return &paymentClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *paymentClient) Authorize(ctx context.Context, req PaymentRequest) (PaymentResult, error) {
	return c.call(ctx, "/authorize", req)
}

func (c *paymentClient) Capture(ctx context.Context, req PaymentRequest) (PaymentResult, error) {
	return c.call(ctx, "/capture", req)
}

func (c *paymentClient) Void(ctx context.Context, req PaymentRequest) (PaymentResult, error) {
	return c.call(ctx, "/void", req)
}

func (c *paymentClient) Refund(ctx context.Context, req PaymentRequest) (PaymentResult, error) {
	return c.call(ctx, "/refund", req)
}

// Любой сбой транспорта или не-2xx ответ превращается в ExternalServiceError:
// транзакция откатится, повтор безопасен благодаря ключу идемпотентности.
func (c *paymentClient) call(ctx context.Context, path string, req PaymentRequest) (PaymentResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return PaymentResult{}, fmt.Errorf("failed to marshal gateway request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return PaymentResult{}, fmt.Errorf("failed to build gateway request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return PaymentResult{}, &entities.ExternalServiceError{Service: "payment gateway", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return PaymentResult{}, &entities.ExternalServiceError{Service: "payment gateway", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return PaymentResult{}, &entities.ExternalServiceError{
			Service: "payment gateway",
			Err:     fmt.Errorf("status %d: %s", resp.StatusCode, data),
		}
	}

	var result PaymentResult
	if err := json.Unmarshal(data, &result); err != nil {
		return PaymentResult{}, &entities.ExternalServiceError{Service: "payment gateway", Err: err}
	}
	if result.Response == "" {
		result.Response = string(data)
	}
	return result, nil
}
