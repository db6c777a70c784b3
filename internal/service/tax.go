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
	"golang.org/x/sync/errgroup"
)

type taxService struct {
	logger    *slog.Logger
	txManager trm.Manager
	orders    OrderRepo
	taxes     TaxRepo
	rates     gateway.RateLookup
}

func NewTaxService(logger *slog.Logger, txManager trm.Manager, orders OrderRepo, taxes TaxRepo, rates gateway.RateLookup) *taxService {
	return &taxService{
		logger:    logger.With(slog.String("service", "tax")),
		txManager: txManager,
		orders:    orders,
		taxes:     taxes,
		rates:     rates,
	}
}

type lineRate struct {
	itemID uuid.UUID
	rate   gateway.TaxRate
}

// CalculateTaxes полностью пересобирает налоговые строки заказа.
// Старые строки удаляются, суммы выводятся только из новых - повторный
// вызов даёт тот же результат, накопления нет.
func (s *taxService) CalculateTaxes(ctx context.Context, orderID uuid.UUID, actor string) (entities.Order, error) {
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
		if order.ShippingCountry == "" {
			return entities.NewValidationError("shipping_country", "is required to calculate taxes")
		}

		rates, err := s.lookupLineRates(ctx, order)
		if err != nil {
			return err
		}

		if err := s.taxes.DeleteTaxesByOrder(ctx, order.ID); err != nil {
			return err
		}

		now := time.Now()
		taxes := make([]entities.Tax, 0, len(rates)+1)
		orderTax := decimal.Zero

		for _, lr := range rates {
			li := order.Item(lr.itemID)
			if li == nil {
				return entities.ErrLineItemNotFound
			}

			base := li.Subtotal.Sub(li.DiscountAmount)
			amount := base.Mul(lr.rate.Rate).Round(2)

			li.TaxAmount = amount
			li.TaxRate = lr.rate.Rate
			li.Recalculate()
			if err := s.orders.UpdateLineItem(ctx, *li); err != nil {
				return err
			}

			itemID := li.ID
			taxes = append(taxes, entities.Tax{
				ID:              uuid.New(),
				OrderID:         order.ID,
				OrderLineItemID: &itemID,
				Type:            entities.TaxTypeSales,
				Name:            lr.rate.Name,
				Rate:            lr.rate.Rate,
				Amount:          amount,
				Jurisdiction:    lr.rate.Jurisdiction,
				CreatedAt:       now,
			})
			orderTax = orderTax.Add(amount)
		}

		order.ShippingTaxAmount = decimal.Zero
		if order.ShippingAmount.IsPositive() {
			rate, err := s.rates.LookupRate(ctx, order.ShippingPostalCode, order.ShippingCountry, "shipping")
			if err != nil {
				return err
			}
			amount := order.ShippingAmount.Mul(rate.Rate).Round(2)
			taxes = append(taxes, entities.Tax{
				ID:           uuid.New(),
				OrderID:      order.ID,
				Type:         entities.TaxTypeShipping,
				Name:         rate.Name,
				Rate:         rate.Rate,
				Amount:       amount,
				Jurisdiction: rate.Jurisdiction,
				CreatedAt:    now,
			})
			order.ShippingTaxAmount = amount
		}

		if len(taxes) > 0 {
			if err := s.taxes.SaveTaxes(ctx, taxes); err != nil {
				return err
			}
		}

		order.TaxAmount = orderTax
		order.Recalculate()
		return s.orders.UpdateOrder(ctx, order)
	})
	if err != nil {
		return entities.Order{}, err
	}

	s.logger.Debug("taxes recalculated", "order_id", orderID, "tax_amount", order.TaxAmount)
	return order, nil
}

// lookupLineRates ходит в справочник параллельно по позициям, первая ошибка
// отменяет остальные запросы. Варианты читаются до запуска горутин:
// транзакционное соединение не переживает конкурентных запросов.
func (s *taxService) lookupLineRates(ctx context.Context, order entities.Order) ([]lineRate, error) {
	codes := make([]string, len(order.Items))
	for i, li := range order.Items {
		variant, err := s.orders.GetVariant(ctx, li.VariantID)
		if err != nil {
			return nil, err
		}
		codes[i] = variant.TaxabilityCode
	}

	g, ctx := errgroup.WithContext(ctx)
	rates := make([]lineRate, len(order.Items))

	for i := range order.Items {
		i := i
		g.Go(func() error {
			rate, err := s.rates.LookupRate(ctx, order.ShippingPostalCode, order.ShippingCountry, codes[i])
			if err != nil {
				return err
			}
			rates[i] = lineRate{itemID: order.Items[i].ID, rate: rate}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rates, nil
}

func (s *taxService) ListTaxes(ctx context.Context, orderID uuid.UUID) ([]entities.Tax, error) {
	if _, err := s.orders.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.taxes.ListTaxesByOrder(ctx, orderID)
}
