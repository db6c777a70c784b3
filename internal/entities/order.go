package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Order struct {
	ID          uuid.UUID
	OrderNumber string
	CustomerID  string
	Currency    string

	Status        OrderStatus
	PaymentStatus PaymentStatus

	Subtotal          decimal.Decimal
	ShippingAmount    decimal.Decimal
	ShippingTaxAmount decimal.Decimal
	DiscountAmount    decimal.Decimal
	TaxAmount         decimal.Decimal
	Total             decimal.Decimal

	BillingAddressID  string
	ShippingAddressID string
	Email             string
	Phone             string

	// Страна и индекс доставки нужны справочнику налоговых ставок.
	ShippingCountry    string
	ShippingPostalCode string

	Metadata map[string]string

	Items []OrderLineItem

	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time

	// Мягкое удаление разрешено только для черновиков.
	DeletedAt *time.Time
	DeletedBy string
}

type OrderLineItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	VariantID string

	Quantity          int
	FulfilledQuantity int

	UnitPrice      decimal.Decimal
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	TaxRate        decimal.Decimal
	Total          decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Variant - снимок цены товара на момент оформления. Каталог - внешняя система,
// здесь только чтение.
type Variant struct {
	ID             string
	Title          string
	Price          decimal.Decimal
	TaxabilityCode string
}

// Recalculate пересчитывает строку из количества и цены.
// total = subtotal - discount + tax.
func (li *OrderLineItem) Recalculate() {
	li.Subtotal = li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
	li.Total = li.Subtotal.Sub(li.DiscountAmount).Add(li.TaxAmount)
}

func (li *OrderLineItem) Remaining() int {
	return li.Quantity - li.FulfilledQuantity
}

func (li *OrderLineItem) FullyFulfilled() bool {
	return li.FulfilledQuantity >= li.Quantity
}

// Recalculate восстанавливает инвариант итога:
// total = subtotal + shipping + shipping_tax + tax - discount.
// Все пути записи total обязаны идти через этот метод.
func (o *Order) Recalculate() {
	o.Total = o.Subtotal.
		Add(o.ShippingAmount).
		Add(o.ShippingTaxAmount).
		Add(o.TaxAmount).
		Sub(o.DiscountAmount)
}

// ApplyItemDelta корректирует агрегатные суммы при изменении одной строки,
// не пересуммируя все позиции.
func (o *Order) ApplyItemDelta(old, updated *OrderLineItem) {
	if old != nil {
		o.Subtotal = o.Subtotal.Sub(old.Subtotal)
		o.DiscountAmount = o.DiscountAmount.Sub(old.DiscountAmount)
		o.TaxAmount = o.TaxAmount.Sub(old.TaxAmount)
	}
	if updated != nil {
		o.Subtotal = o.Subtotal.Add(updated.Subtotal)
		o.DiscountAmount = o.DiscountAmount.Add(updated.DiscountAmount)
		o.TaxAmount = o.TaxAmount.Add(updated.TaxAmount)
	}
	o.Recalculate()
}

func (o *Order) Item(itemID uuid.UUID) *OrderLineItem {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i]
		}
	}
	return nil
}

func (o *Order) FullyFulfilled() bool {
	if len(o.Items) == 0 {
		return false
	}
	for i := range o.Items {
		if !o.Items[i].FullyFulfilled() {
			return false
		}
	}
	return true
}

func (o *Order) AnyFulfilled() bool {
	for i := range o.Items {
		if o.Items[i].FulfilledQuantity > 0 {
			return true
		}
	}
	return false
}

func (o *Order) Deleted() bool {
	return o.DeletedAt != nil
}
