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

var transactionColumns = []string{
	"id", "order_id", "external_id", "method", "amount", "currency", "status",
	"gateway_response", "error_message", "created_at", "updated_at",
}

var refundColumns = []string{
	"id", "order_id", "transaction_id", "amount", "status", "reason",
	"external_id", "created_at", "updated_at",
}

func (r *postgresRepo) SaveTransaction(ctx context.Context, t entities.PaymentTransaction) error {
	query, args := r.qb.Insert("payment_transactions").
		Columns(transactionColumns...).
		Values(
			t.ID, t.OrderID, nullString(t.ExternalID), t.Method, t.Amount,
			t.Currency, t.Status, nullString(t.GatewayResponse),
			nullString(t.ErrorMessage), t.CreatedAt, t.UpdatedAt,
		).
		MustSql()

	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	return nil
}

func (r *postgresRepo) GetTransaction(ctx context.Context, transactionID uuid.UUID) (entities.PaymentTransaction, error) {
	query, args := r.qb.Select(transactionColumns...).
		From("payment_transactions").
		Where(sq.Eq{"id": transactionID}).
		Suffix("FOR UPDATE").
		MustSql()

	var t PaymentTransaction
	err := r.getContext(ctx, &t, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.PaymentTransaction{}, entities.ErrTransactionNotFound
	}
	if err != nil {
		return entities.PaymentTransaction{}, fmt.Errorf("failed to get transaction: %w", err)
	}
	return TransactionToEntity(t), nil
}

func (r *postgresRepo) ListTransactionsByOrder(ctx context.Context, orderID uuid.UUID) ([]entities.PaymentTransaction, error) {
	query, args := r.qb.Select(transactionColumns...).
		From("payment_transactions").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("created_at").
		MustSql()

	var rows []PaymentTransaction
	if err := r.selectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select transactions: %w", err)
	}

	result := make([]entities.PaymentTransaction, 0, len(rows))
	for _, t := range rows {
		result = append(result, TransactionToEntity(t))
	}
	return result, nil
}

func (r *postgresRepo) UpdateTransaction(ctx context.Context, t entities.PaymentTransaction) error {
	query, args := r.qb.Update("payment_transactions").
		Set("external_id", nullString(t.ExternalID)).
		Set("amount", t.Amount).
		Set("status", t.Status).
		Set("gateway_response", nullString(t.GatewayResponse)).
		Set("error_message", nullString(t.ErrorMessage)).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": t.ID}).
		MustSql()

	res, err := r.execContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return entities.ErrTransactionNotFound
	}
	return nil
}

func (r *postgresRepo) SaveRefund(ctx context.Context, rf entities.Refund) error {
	query, args := r.qb.Insert("refunds").
		Columns(refundColumns...).
		Values(
			rf.ID, rf.OrderID, nullUUID(rf.TransactionID), rf.Amount, rf.Status,
			nullString(rf.Reason), nullString(rf.ExternalID), rf.CreatedAt, rf.UpdatedAt,
		).
		MustSql()

	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save refund: %w", err)
	}
	return nil
}

func (r *postgresRepo) GetRefund(ctx context.Context, refundID uuid.UUID) (entities.Refund, error) {
	query, args := r.qb.Select(refundColumns...).
		From("refunds").
		Where(sq.Eq{"id": refundID}).
		Suffix("FOR UPDATE").
		MustSql()

	var rf Refund
	err := r.getContext(ctx, &rf, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Refund{}, entities.ErrRefundNotFound
	}
	if err != nil {
		return entities.Refund{}, fmt.Errorf("failed to get refund: %w", err)
	}
	return RefundToEntity(rf), nil
}

func (r *postgresRepo) ListRefundsByOrder(ctx context.Context, orderID uuid.UUID) ([]entities.Refund, error) {
	query, args := r.qb.Select(refundColumns...).
		From("refunds").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("created_at").
		MustSql()

	var rows []Refund
	if err := r.selectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select refunds: %w", err)
	}

	result := make([]entities.Refund, 0, len(rows))
	for _, rf := range rows {
		result = append(result, RefundToEntity(rf))
	}
	return result, nil
}

func (r *postgresRepo) UpdateRefund(ctx context.Context, rf entities.Refund) error {
	query, args := r.qb.Update("refunds").
		Set("status", rf.Status).
		Set("external_id", nullString(rf.ExternalID)).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": rf.ID}).
		MustSql()

	res, err := r.execContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update refund: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return entities.ErrRefundNotFound
	}
	return nil
}
