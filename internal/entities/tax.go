package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tax - одна налоговая строка заказа: по позиции или по доставке.
// Сумма всех строк обязана равняться tax_amount + shipping_tax_amount заказа.
type Tax struct {
	ID              uuid.UUID
	OrderID         uuid.UUID
	OrderLineItemID *uuid.UUID

	Type         TaxType
	Name         string
	Rate         decimal.Decimal
	Amount       decimal.Decimal
	Jurisdiction string

	CreatedAt time.Time
}
