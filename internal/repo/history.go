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

// SaveHistory только вставляет: журнал append-only, UPDATE и DELETE по нему
// в репозитории отсутствуют намеренно.
func (r *postgresRepo) SaveHistory(ctx context.Context, h entities.OrderHistory) error {
	query, args := r.qb.Insert("order_history").
		Columns("id", "order_id", "status", "old_status", "note", "actor", "created_at").
		Values(h.ID, h.OrderID, h.Status, h.OldStatus, nullString(h.Note), h.Actor, h.CreatedAt).
		MustSql()

	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}

func (r *postgresRepo) ListHistoryByOrder(ctx context.Context, orderID uuid.UUID) ([]entities.OrderHistory, error) {
	query, args := r.qb.Select("id", "order_id", "status", "old_status", "note", "actor", "created_at").
		From("order_history").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("created_at").
		MustSql()

	var rows []OrderHistory
	if err := r.selectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select history: %w", err)
	}

	result := make([]entities.OrderHistory, 0, len(rows))
	for _, h := range rows {
		result = append(result, HistoryToEntity(h))
	}
	return result, nil
}

func (r *postgresRepo) SaveNote(ctx context.Context, n entities.OrderNote) error {
	query, args := r.qb.Insert("order_notes").
		Columns("id", "order_id", "author", "text", "customer_visible", "created_at", "updated_at").
		Values(n.ID, n.OrderID, n.Author, n.Text, n.CustomerVisible, n.CreatedAt, n.UpdatedAt).
		MustSql()

	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save note: %w", err)
	}
	return nil
}

func (r *postgresRepo) GetNote(ctx context.Context, noteID uuid.UUID) (entities.OrderNote, error) {
	query, args := r.qb.Select("id", "order_id", "author", "text", "customer_visible", "created_at", "updated_at").
		From("order_notes").
		Where(sq.Eq{"id": noteID}).
		MustSql()

	var n OrderNote
	err := r.getContext(ctx, &n, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.OrderNote{}, entities.ErrNoteNotFound
	}
	if err != nil {
		return entities.OrderNote{}, fmt.Errorf("failed to get note: %w", err)
	}
	return NoteToEntity(n), nil
}

func (r *postgresRepo) UpdateNote(ctx context.Context, n entities.OrderNote) error {
	query, args := r.qb.Update("order_notes").
		Set("text", n.Text).
		Set("customer_visible", n.CustomerVisible).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": n.ID}).
		MustSql()

	res, err := r.execContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return entities.ErrNoteNotFound
	}
	return nil
}

func (r *postgresRepo) DeleteNote(ctx context.Context, noteID uuid.UUID) error {
	query, args := r.qb.Delete("order_notes").
		Where(sq.Eq{"id": noteID}).
		MustSql()

	res, err := r.execContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return entities.ErrNoteNotFound
	}
	return nil
}

func (r *postgresRepo) ListNotesByOrder(ctx context.Context, orderID uuid.UUID) ([]entities.OrderNote, error) {
	query, args := r.qb.Select("id", "order_id", "author", "text", "customer_visible", "created_at", "updated_at").
		From("order_notes").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("created_at").
		MustSql()

	var rows []OrderNote
	if err := r.selectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select notes: %w", err)
	}

	result := make([]entities.OrderNote, 0, len(rows))
	for _, n := range rows {
		result = append(result, NoteToEntity(n))
	}
	return result, nil
}
