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

var orderColumns = []string{
	"id", "order_number", "customer_id", "currency", "status", "payment_status",
	"subtotal", "shipping_amount", "shipping_tax_amount", "discount_amount",
	"tax_amount", "total", "billing_address_id", "shipping_address_id",
	"email", "phone", "shipping_country", "shipping_postal_code",
	"metadata", "version", "created_at", "updated_at",
	"deleted_at", "deleted_by",
}

var lineItemColumns = []string{
	"id", "order_id", "variant_id", "quantity", "fulfilled_quantity",
	"unit_price", "subtotal", "discount_amount", "tax_amount", "tax_rate",
	"total", "created_at", "updated_at",
}

func (r *postgresRepo) getOrder(ctx context.Context, orderID uuid.UUID, forUpdate bool) (entities.Order, error) {
	b := r.qb.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"id": orderID, "deleted_at": nil})
	if forUpdate {
		// Блокируем строку заказа: все решения (статусы, суммы, остатки)
		// принимаются внутри той же транзакции.
		b = b.Suffix("FOR UPDATE")
	}
	query, args := b.MustSql()

	var order Order
	err := r.getContext(ctx, &order, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Order{}, entities.ErrOrderNotFound
	}
	if err != nil {
		return entities.Order{}, fmt.Errorf("failed to get order: %w", err)
	}

	query, args = r.qb.Select(lineItemColumns...).
		From("order_line_items").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("created_at").
		MustSql()

	var items []OrderLineItem
	if err := r.selectContext(ctx, &items, query, args...); err != nil {
		return entities.Order{}, fmt.Errorf("failed to get order items: %w", err)
	}

	return OrderToEntity(order, items), nil
}

func (r *postgresRepo) GetOrder(ctx context.Context, orderID uuid.UUID) (entities.Order, error) {
	return r.getOrder(ctx, orderID, false)
}

func (r *postgresRepo) GetOrderForUpdate(ctx context.Context, orderID uuid.UUID) (entities.Order, error) {
	return r.getOrder(ctx, orderID, true)
}

func (r *postgresRepo) SaveOrder(ctx context.Context, o entities.Order) error {
	query, args := r.qb.Insert("orders").
		Columns(
			"id", "order_number", "customer_id", "currency", "status", "payment_status",
			"subtotal", "shipping_amount", "shipping_tax_amount", "discount_amount",
			"tax_amount", "total", "billing_address_id", "shipping_address_id",
			"email", "phone", "shipping_country", "shipping_postal_code",
			"metadata", "version", "created_at", "updated_at",
		).
		Values(
			o.ID, o.OrderNumber, o.CustomerID, o.Currency, o.Status, o.PaymentStatus,
			o.Subtotal, o.ShippingAmount, o.ShippingTaxAmount, o.DiscountAmount,
			o.TaxAmount, o.Total, nullString(o.BillingAddressID), nullString(o.ShippingAddressID),
			nullString(o.Email), nullString(o.Phone), nullString(o.ShippingCountry),
			nullString(o.ShippingPostalCode), metadataToJSON(o.Metadata),
			o.Version, o.CreatedAt, o.UpdatedAt,
		).
		MustSql()

	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}

	for _, li := range o.Items {
		if err := r.InsertLineItem(ctx, li); err != nil {
			return err
		}
	}
	return nil
}

// UpdateOrder записывает агрегат с оптимистической проверкой версии.
// Ноль затронутых строк - параллельное изменение, ErrVersionConflict.
func (r *postgresRepo) UpdateOrder(ctx context.Context, o entities.Order) error {
	query, args := r.qb.Update("orders").
		Set("status", o.Status).
		Set("payment_status", o.PaymentStatus).
		Set("subtotal", o.Subtotal).
		Set("shipping_amount", o.ShippingAmount).
		Set("shipping_tax_amount", o.ShippingTaxAmount).
		Set("discount_amount", o.DiscountAmount).
		Set("tax_amount", o.TaxAmount).
		Set("total", o.Total).
		Set("metadata", metadataToJSON(o.Metadata)).
		Set("version", o.Version+1).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": o.ID, "version": o.Version}).
		MustSql()

	res, err := r.execContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	}
	if affected == 0 {
		return entities.ErrVersionConflict
	}
	return nil
}

func (r *postgresRepo) SoftDeleteOrder(ctx context.Context, orderID uuid.UUID, actor string) error {
	query, args := r.qb.Update("orders").
		Set("deleted_at", time.Now()).
		Set("deleted_by", actor).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": orderID, "deleted_at": nil}).
		MustSql()

	res, err := r.execContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to soft delete order: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return entities.ErrOrderNotFound
	}
	return nil
}

func (r *postgresRepo) InsertLineItem(ctx context.Context, li entities.OrderLineItem) error {
	query, args := r.qb.Insert("order_line_items").
		Columns(lineItemColumns...).
		Values(
			li.ID, li.OrderID, li.VariantID, li.Quantity, li.FulfilledQuantity,
			li.UnitPrice, li.Subtotal, li.DiscountAmount, li.TaxAmount, li.TaxRate,
			li.Total, li.CreatedAt, li.UpdatedAt,
		).
		MustSql()

	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save line item: %w", err)
	}
	return nil
}

func (r *postgresRepo) UpdateLineItem(ctx context.Context, li entities.OrderLineItem) error {
	query, args := r.qb.Update("order_line_items").
		Set("quantity", li.Quantity).
		Set("fulfilled_quantity", li.FulfilledQuantity).
		Set("unit_price", li.UnitPrice).
		Set("subtotal", li.Subtotal).
		Set("discount_amount", li.DiscountAmount).
		Set("tax_amount", li.TaxAmount).
		Set("tax_rate", li.TaxRate).
		Set("total", li.Total).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": li.ID}).
		MustSql()

	res, err := r.execContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update line item: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return entities.ErrLineItemNotFound
	}
	return nil
}

func (r *postgresRepo) DeleteLineItem(ctx context.Context, itemID uuid.UUID) error {
	query, args := r.qb.Delete("order_line_items").
		Where(sq.Eq{"id": itemID}).
		MustSql()

	res, err := r.execContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete line item: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return entities.ErrLineItemNotFound
	}
	return nil
}

func (r *postgresRepo) GetVariant(ctx context.Context, variantID string) (entities.Variant, error) {
	query, args := r.qb.Select("id", "title", "price", "taxability_code").
		From("product_variants").
		Where(sq.Eq{"id": variantID}).
		MustSql()

	var v Variant
	err := r.getContext(ctx, &v, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Variant{}, entities.ErrVariantNotFound
	}
	if err != nil {
		return entities.Variant{}, fmt.Errorf("failed to get variant: %w", err)
	}
	return VariantToEntity(v), nil
}
