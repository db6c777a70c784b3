package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/entities"
	"github.com/google/uuid"

	sq "github.com/Masterminds/squirrel"
)

var fulfillmentColumns = []string{
	"id", "order_id", "status", "carrier", "tracking_number", "tracking_url",
	"created_at", "updated_at",
}

func (r *postgresRepo) SaveFulfillment(ctx context.Context, f entities.FulfillmentOrder) error {
	query, args := r.qb.Insert("fulfillments").
		Columns(fulfillmentColumns...).
		Values(
			f.ID, f.OrderID, f.Status, nullString(f.Carrier),
			nullString(f.TrackingNumber), nullString(f.TrackingURL),
			f.CreatedAt, f.UpdatedAt,
		).
		MustSql()

	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save fulfillment: %w", err)
	}

	if len(f.Items) == 0 {
		return nil
	}

	q := r.qb.Insert("fulfillment_line_items").
		Columns("id", "fulfillment_id", "order_line_item_id", "quantity")
	for _, it := range f.Items {
		q = q.Values(it.ID, it.FulfillmentID, it.OrderLineItemID, it.Quantity)
	}

	query, args = q.MustSql()
	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save fulfillment items: %w", err)
	}
	return nil
}

func (r *postgresRepo) GetFulfillment(ctx context.Context, fulfillmentID uuid.UUID) (entities.FulfillmentOrder, error) {
	query, args := r.qb.Select(fulfillmentColumns...).
		From("fulfillments").
		Where(sq.Eq{"id": fulfillmentID}).
		Suffix("FOR UPDATE").
		MustSql()

	var f Fulfillment
	err := r.getContext(ctx, &f, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.FulfillmentOrder{}, entities.ErrFulfillmentNotFound
	}
	if err != nil {
		return entities.FulfillmentOrder{}, fmt.Errorf("failed to get fulfillment: %w", err)
	}

	query, args = r.qb.Select("id", "fulfillment_id", "order_line_item_id", "quantity").
		From("fulfillment_line_items").
		Where(sq.Eq{"fulfillment_id": fulfillmentID}).
		MustSql()

	var items []FulfillmentLineItem
	if err := r.selectContext(ctx, &items, query, args...); err != nil {
		return entities.FulfillmentOrder{}, fmt.Errorf("failed to get fulfillment items: %w", err)
	}

	return FulfillmentToEntity(f, items), nil
}

func (r *postgresRepo) ListFulfillmentsByOrder(ctx context.Context, orderID uuid.UUID) ([]entities.FulfillmentOrder, error) {
	query, args := r.qb.Select(fulfillmentColumns...).
		From("fulfillments").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("created_at").
		MustSql()

	var rows []Fulfillment
	if err := r.selectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select fulfillments: %w", err)
	}
	if len(rows) == 0 {
		return []entities.FulfillmentOrder{}, nil
	}

	ids := make([]uuid.UUID, len(rows))
	for i, f := range rows {
		ids[i] = f.ID
	}

	query, args = r.qb.Select("id", "fulfillment_id", "order_line_item_id", "quantity").
		From("fulfillment_line_items").
		Where(sq.Eq{"fulfillment_id": ids}).
		MustSql()

	var items []FulfillmentLineItem
	if err := r.selectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select fulfillment items: %w", err)
	}
	itemsMap := make(map[uuid.UUID][]FulfillmentLineItem, len(ids))
	for _, it := range items {
		itemsMap[it.FulfillmentID] = append(itemsMap[it.FulfillmentID], it)
	}

	result := make([]entities.FulfillmentOrder, 0, len(rows))
	for _, f := range rows {
		result = append(result, FulfillmentToEntity(f, itemsMap[f.ID]))
	}
	return result, nil
}

func (r *postgresRepo) UpdateFulfillment(ctx context.Context, f entities.FulfillmentOrder) error {
	query, args := r.qb.Update("fulfillments").
		Set("status", f.Status).
		Set("carrier", nullString(f.Carrier)).
		Set("tracking_number", nullString(f.TrackingNumber)).
		Set("tracking_url", nullString(f.TrackingURL)).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": f.ID}).
		MustSql()

	res, err := r.execContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update fulfillment: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return entities.ErrFulfillmentNotFound
	}
	return nil
}

// DeleteFulfillment физически удаляет запись и её строки. Разрешено только
// для pending, откат остатков делает сервис до вызова.
func (r *postgresRepo) DeleteFulfillment(ctx context.Context, fulfillmentID uuid.UUID) error {
	query, args := r.qb.Delete("fulfillment_line_items").
		Where(sq.Eq{"fulfillment_id": fulfillmentID}).
		MustSql()
	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete fulfillment items: %w", err)
	}

	query, args = r.qb.Delete("fulfillments").
		Where(sq.Eq{"id": fulfillmentID}).
		MustSql()
	res, err := r.execContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete fulfillment: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return entities.ErrFulfillmentNotFound
	}
	return nil
}
