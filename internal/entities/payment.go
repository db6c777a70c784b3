package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentTransaction - одно обращение к платёжному шлюзу (авторизация или списание).
// Живёт дольше заказа: после отмены записи сохраняются для аудита.
type PaymentTransaction struct {
	ID      uuid.UUID
	OrderID uuid.UUID

	ExternalID string
	Method     string
	Amount     decimal.Decimal
	Currency   string
	Status     TransactionStatus

	GatewayResponse string
	ErrorMessage    string

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Refund struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	TransactionID *uuid.UUID

	Amount decimal.Decimal
	Status RefundStatus
	Reason string

	// Идентификатор возврата на стороне шлюза, заполняется при обработке.
	ExternalID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CountsTowardLimit сообщает, резервирует ли возврат лимит заказа.
// Pending и processing учитываются, чтобы два параллельных возврата
// не превысили total после сериализации на строке заказа.
func (r *Refund) CountsTowardLimit() bool {
	return r.Status == RefundStatusPending ||
		r.Status == RefundStatusProcessing ||
		r.Status == RefundStatusCompleted
}
