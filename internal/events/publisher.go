package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/config"
	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/entities"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type StatusChangedEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	OldStatus     string    `json:"old_status"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type InventoryReleaseEvent struct {
	OrderID    uuid.UUID     `json:"order_id"`
	Items      []ReleaseItem `json:"items"`
	OccurredAt time.Time     `json:"occurred_at"`
}

type ReleaseItem struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

type Publisher struct {
	writer         *kafka.Writer
	logger         *slog.Logger
	eventsTopic    string
	inventoryTopic string
}

func NewPublisher(logger *slog.Logger, cfg config.Kafka) *Publisher {
	return &Publisher{
		logger: logger.With(slog.String("component", "events")),
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: cfg.BatchTimeout,
		},
		eventsTopic:    cfg.EventsTopic,
		inventoryTopic: cfg.InventoryTopic,
	}
}

// OrderStatusChanged публикуется после коммита транзакции. Сбой публикации
// не влияет на уже сохранённое состояние, только логируется.
func (p *Publisher) OrderStatusChanged(ctx context.Context, order entities.Order, old entities.OrderStatus) {
	event := StatusChangedEvent{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		OldStatus:     string(old),
		Status:        string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		OccurredAt:    time.Now(),
	}

	if err := p.publish(ctx, p.eventsTopic, order.ID.String(), event); err != nil {
		p.logger.Error("failed to publish status change",
			slog.String("order_id", order.ID.String()), slog.Any("error", err))
	}
}

// InventoryRelease - fire-and-forget сигнал складу при отмене заказа.
// Подтверждения не ждём.
func (p *Publisher) InventoryRelease(ctx context.Context, orderID uuid.UUID, items []ReleaseItem) {
	if len(items) == 0 {
		return
	}

	event := InventoryReleaseEvent{OrderID: orderID, Items: items, OccurredAt: time.Now()}
	if err := p.publish(ctx, p.inventoryTopic, orderID.String(), event); err != nil {
		p.logger.Error("failed to publish inventory release",
			slog.String("order_id", orderID.String()), slog.Any("error", err))
	}
}

func (p *Publisher) publish(ctx context.Context, topic, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// В библиотеке уже есть retry
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
