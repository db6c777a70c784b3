package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/entities"
	"github.com/SergeyBogomolovv/order-lifecycle-service/pkg/utils"
	"github.com/shopspring/decimal"
)

// TaxRate - ответ внешнего справочника ставок.
type TaxRate struct {
	Name         string          `json:"name"`
	Rate         decimal.Decimal `json:"rate"`
	Jurisdiction string          `json:"jurisdiction"`
}

type RateLookup interface {
	LookupRate(ctx context.Context, postalCode, country, taxability string) (TaxRate, error)
}

type rateLookupClient struct {
	baseURL string
	http    *http.Client
}

func NewRateLookupClient(baseURL string, timeout time.Duration) *rateLookupClient {
	return &rateLookupClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *rateLookupClient) LookupRate(ctx context.Context, postalCode, country, taxability string) (TaxRate, error) {
	q := url.Values{}
	q.Set("postal_code", postalCode)
	q.Set("country", country)
	q.Set("taxability", taxability)

	var rate TaxRate
	fn := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/rates?"+q.Encode(), nil)
		if err != nil {
			return fmt.Errorf("failed to build rate request: %w", err)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return &entities.ExternalServiceError{Service: "tax rate lookup", Err: err}
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return &entities.ExternalServiceError{Service: "tax rate lookup", Err: err}
		}
		if resp.StatusCode != http.StatusOK {
			return &entities.ExternalServiceError{
				Service: "tax rate lookup",
				Err:     fmt.Errorf("status %d: %s", resp.StatusCode, data),
			}
		}
		if err := json.Unmarshal(data, &rate); err != nil {
			return &entities.ExternalServiceError{Service: "tax rate lookup", Err: err}
		}
		return nil
	}

	// GET идемпотентен, пара быстрых повторов до отказа
	cfg := utils.RetryConfig{MaxAttempts: 2, InitialDelay: 50 * time.Millisecond}
	if err := utils.Retry(cfg, fn, context.Canceled, context.DeadlineExceeded); err != nil {
		return TaxRate{}, err
	}
	return rate, nil
}

type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
}

// cachedRateLookup снимает повторные походы за одной и той же ставкой:
// пересчёт налогов дергает справочник на каждую позицию.
type cachedRateLookup struct {
	next  RateLookup
	cache Cache
}

func NewCachedRateLookup(next RateLookup, cache Cache) *cachedRateLookup {
	return &cachedRateLookup{next: next, cache: cache}
}

func (c *cachedRateLookup) LookupRate(ctx context.Context, postalCode, country, taxability string) (TaxRate, error) {
	key := country + "/" + postalCode + "/" + taxability

	if data, ok := c.cache.Get(key); ok {
		var rate TaxRate
		if err := json.Unmarshal(data, &rate); err == nil {
			return rate, nil
		}
	}

	rate, err := c.next.LookupRate(ctx, postalCode, country, taxability)
	if err != nil {
		return TaxRate{}, err
	}

	if data, err := json.Marshal(rate); err == nil {
		c.cache.Set(key, data)
	}
	return rate, nil
}
