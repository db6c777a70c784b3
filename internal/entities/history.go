package entities

import (
	"time"

	"github.com/google/uuid"
)

// OrderHistory - append-only журнал смен статуса. Записи не изменяются и не удаляются.
type OrderHistory struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	Status    OrderStatus
	OldStatus OrderStatus
	Note      string
	Actor     string
	CreatedAt time.Time
}

type OrderNote struct {
	ID      uuid.UUID
	OrderID uuid.UUID

	Author          string
	Text            string
	CustomerVisible bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
