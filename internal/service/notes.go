package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/entities"
	"github.com/SergeyBogomolovv/order-lifecycle-service/pkg/trm"
	"github.com/google/uuid"
)

type AddNoteInput struct {
	OrderID         uuid.UUID
	Author          string
	Text            string
	CustomerVisible bool
}

type noteService struct {
	logger    *slog.Logger
	txManager trm.Manager
	orders    OrderRepo
	history   HistoryRepo
}

func NewNoteService(logger *slog.Logger, txManager trm.Manager, orders OrderRepo, history HistoryRepo) *noteService {
	return &noteService{
		logger:    logger.With(slog.String("service", "note")),
		txManager: txManager,
		orders:    orders,
		history:   history,
	}
}

func (s *noteService) AddNote(ctx context.Context, in AddNoteInput) (entities.OrderNote, error) {
	if in.Text == "" {
		return entities.OrderNote{}, entities.NewValidationError("text", "is required")
	}
	if in.Author == "" {
		return entities.OrderNote{}, entities.NewValidationError("author", "is required")
	}

	var note entities.OrderNote
	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		if _, err := s.orders.GetOrder(ctx, in.OrderID); err != nil {
			return err
		}

		now := time.Now()
		note = entities.OrderNote{
			ID:              uuid.New(),
			OrderID:         in.OrderID,
			Author:          in.Author,
			Text:            in.Text,
			CustomerVisible: in.CustomerVisible,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		return s.history.SaveNote(ctx, note)
	})
	if err != nil {
		return entities.OrderNote{}, err
	}
	return note, nil
}

// UpdateNote разрешён только автору заметки.
func (s *noteService) UpdateNote(ctx context.Context, noteID uuid.UUID, text, actor string) (entities.OrderNote, error) {
	if text == "" {
		return entities.OrderNote{}, entities.NewValidationError("text", "is required")
	}

	var note entities.OrderNote
	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		var err error
		note, err = s.history.GetNote(ctx, noteID)
		if err != nil {
			return err
		}
		if note.Author != actor {
			return entities.NewValidationError("author", "note belongs to %s", note.Author)
		}

		note.Text = text
		note.UpdatedAt = time.Now()
		return s.history.UpdateNote(ctx, note)
	})
	if err != nil {
		return entities.OrderNote{}, err
	}
	return note, nil
}

func (s *noteService) DeleteNote(ctx context.Context, noteID uuid.UUID, actor string) error {
	return s.txManager.Do(ctx, func(ctx context.Context) error {
		note, err := s.history.GetNote(ctx, noteID)
		if err != nil {
			return err
		}
		if note.Author != actor {
			return entities.NewValidationError("author", "note belongs to %s", note.Author)
		}
		return s.history.DeleteNote(ctx, noteID)
	})
}

func (s *noteService) ListNotes(ctx context.Context, orderID uuid.UUID) ([]entities.OrderNote, error) {
	if _, err := s.orders.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.history.ListNotesByOrder(ctx, orderID)
}
