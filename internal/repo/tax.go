package repo

import (
	"context"
	"fmt"

	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/entities"
	"github.com/google/uuid"

	sq "github.com/Masterminds/squirrel"
)

func (r *postgresRepo) DeleteTaxesByOrder(ctx context.Context, orderID uuid.UUID) error {
	query, args := r.qb.Delete("taxes").
		Where(sq.Eq{"order_id": orderID}).
		MustSql()

	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete taxes: %w", err)
	}
	return nil
}

func (r *postgresRepo) DeleteTaxesByLineItem(ctx context.Context, itemID uuid.UUID) error {
	query, args := r.qb.Delete("taxes").
		Where(sq.Eq{"order_line_item_id": itemID}).
		MustSql()

	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete line item taxes: %w", err)
	}
	return nil
}

func (r *postgresRepo) SaveTaxes(ctx context.Context, taxes []entities.Tax) error {
	if len(taxes) == 0 {
		return nil
	}

	q := r.qb.Insert("taxes").
		Columns("id", "order_id", "order_line_item_id", "type", "name", "rate",
			"amount", "jurisdiction", "created_at")
	for _, t := range taxes {
		q = q.Values(
			t.ID, t.OrderID, nullUUID(t.OrderLineItemID), t.Type, t.Name,
			t.Rate, t.Amount, nullString(t.Jurisdiction), t.CreatedAt,
		)
	}

	query, args := q.MustSql()
	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save taxes: %w", err)
	}
	return nil
}

func (r *postgresRepo) ListTaxesByOrder(ctx context.Context, orderID uuid.UUID) ([]entities.Tax, error) {
	query, args := r.qb.Select("id", "order_id", "order_line_item_id", "type",
		"name", "rate", "amount", "jurisdiction", "created_at").
		From("taxes").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("created_at").
		MustSql()

	var rows []Tax
	if err := r.selectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select taxes: %w", err)
	}

	result := make([]entities.Tax, 0, len(rows))
	for _, t := range rows {
		result = append(result, TaxToEntity(t))
	}
	return result, nil
}
