package entities

import (
	"time"

	"github.com/google/uuid"
)

type FulfillmentOrder struct {
	ID      uuid.UUID
	OrderID uuid.UUID

	Status FulfillmentStatus

	// Перевозчик и трек-номер не валидируются, это сквозные ссылки.
	Carrier        string
	TrackingNumber string
	TrackingURL    string

	Items []FulfillmentLineItem

	CreatedAt time.Time
	UpdatedAt time.Time
}

type FulfillmentLineItem struct {
	ID              uuid.UUID
	FulfillmentID   uuid.UUID
	OrderLineItemID uuid.UUID
	Quantity        int
}

// Active сообщает, учитывается ли исполнение в fulfilled_quantity позиций.
func (f *FulfillmentOrder) Active() bool {
	return f.Status != FulfillmentStatusCancelled && f.Status != FulfillmentStatusFailed
}
