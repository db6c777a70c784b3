package handler

import (
	"net/http"

	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/service"
	"github.com/SergeyBogomolovv/order-lifecycle-service/pkg/utils"
)

// AddNote прикрепляет заметку к заказу. Автор берётся из X-Actor-ID.
// @Summary      Добавить заметку
// @Tags         notes
// @Param        order_id  path  string  true  "Идентификатор заказа"
// @Param        request   body  NoteRequest  true  "Текст заметки"
// @Success      201  {object}  Note
// @Router       /orders/{order_id}/notes [post]
func (h *HTTPHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, ok := h.pathID(w, r, "order_id")
	if !ok {
		return
	}

	var req NoteRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	note, err := h.notes.AddNote(ctx, service.AddNoteInput{
		OrderID:         orderID,
		Author:          actor(r),
		Text:            req.Text,
		CustomerVisible: req.CustomerVisible,
	})
	if err != nil {
		h.writeServiceError(ctx, w, err, "add note")
		return
	}
	utils.WriteJSON(w, NoteEntityToJSON(note), http.StatusCreated)
}

// UpdateNote меняет текст заметки. Разрешено только автору.
// @Summary      Изменить заметку
// @Tags         notes
// @Param        note_id  path  string  true  "Идентификатор заметки"
// @Param        request  body  NoteRequest  true  "Новый текст"
// @Success      200  {object}  Note
// @Failure      400  {object}  utils.ErrorResponse "Заметка принадлежит другому автору"
// @Router       /notes/{note_id} [patch]
func (h *HTTPHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	noteID, ok := h.pathID(w, r, "note_id")
	if !ok {
		return
	}

	var req NoteRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	note, err := h.notes.UpdateNote(ctx, noteID, req.Text, actor(r))
	if err != nil {
		h.writeServiceError(ctx, w, err, "update note")
		return
	}
	utils.WriteJSON(w, NoteEntityToJSON(note), http.StatusOK)
}

// DeleteNote удаляет заметку. Разрешено только автору.
// @Summary      Удалить заметку
// @Tags         notes
// @Param        note_id  path  string  true  "Идентификатор заметки"
// @Success      204
// @Router       /notes/{note_id} [delete]
func (h *HTTPHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	noteID, ok := h.pathID(w, r, "note_id")
	if !ok {
		return
	}

	if err := h.notes.DeleteNote(ctx, noteID, actor(r)); err != nil {
		h.writeServiceError(ctx, w, err, "delete note")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListNotes возвращает заметки заказа.
// @Summary      Заметки заказа
// @Tags         notes
// @Param        order_id  path  string  true  "Идентификатор заказа"
// @Success      200  {array}  Note
// @Router       /orders/{order_id}/notes [get]
func (h *HTTPHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, ok := h.pathID(w, r, "order_id")
	if !ok {
		return
	}

	notes, err := h.notes.ListNotes(ctx, orderID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "list notes")
		return
	}

	out := make([]Note, 0, len(notes))
	for _, n := range notes {
		out = append(out, NoteEntityToJSON(n))
	}
	utils.WriteJSON(w, out, http.StatusOK)
}
