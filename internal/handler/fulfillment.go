package handler

import (
	"net/http"

	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/service"
	"github.com/SergeyBogomolovv/order-lifecycle-service/pkg/utils"
	"github.com/google/uuid"
)

// CreateFulfillment резервирует количества позиций под отгрузку.
// @Summary      Создать отгрузку
// @Tags         fulfillments
// @Param        order_id  path  string  true  "Идентификатор заказа"
// @Param        request   body  CreateFulfillmentRequest  true  "Позиции отгрузки"
// @Success      201  {object}  Fulfillment
// @Failure      400  {object}  utils.ErrorResponse "Количество превышает остаток"
// @Router       /orders/{order_id}/fulfillments [post]
func (h *HTTPHandler) CreateFulfillment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, ok := h.pathID(w, r, "order_id")
	if !ok {
		return
	}

	var req CreateFulfillmentRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	in := service.CreateFulfillmentInput{
		OrderID:        orderID,
		Carrier:        req.Carrier,
		TrackingNumber: req.TrackingNumber,
		TrackingURL:    req.TrackingURL,
		Actor:          actor(r),
	}
	for _, it := range req.Items {
		lineItemID, err := uuid.Parse(it.LineItemID)
		if err != nil {
			utils.WriteError(w, "line_item_id must be a valid uuid", http.StatusBadRequest)
			return
		}
		in.Items = append(in.Items, service.FulfillmentItemInput{
			LineItemID: lineItemID,
			Quantity:   it.Quantity,
		})
	}

	fulfillment, err := h.fulfillments.CreateFulfillment(ctx, in)
	if err != nil {
		h.writeServiceError(ctx, w, err, "create fulfillment")
		return
	}

	fulfillmentsCreated.Inc()
	utils.WriteJSON(w, FulfillmentEntityToJSON(fulfillment), http.StatusCreated)
}

// GetFulfillment возвращает отгрузку.
// @Summary      Получить отгрузку
// @Tags         fulfillments
// @Param        fulfillment_id  path  string  true  "Идентификатор отгрузки"
// @Success      200  {object}  Fulfillment
// @Router       /fulfillments/{fulfillment_id} [get]
func (h *HTTPHandler) GetFulfillment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fulfillmentID, ok := h.pathID(w, r, "fulfillment_id")
	if !ok {
		return
	}

	fulfillment, err := h.fulfillments.GetFulfillment(ctx, fulfillmentID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "get fulfillment")
		return
	}
	utils.WriteJSON(w, FulfillmentEntityToJSON(fulfillment), http.StatusOK)
}

// ListFulfillments возвращает отгрузки заказа.
// @Summary      Отгрузки заказа
// @Tags         fulfillments
// @Param        order_id  path  string  true  "Идентификатор заказа"
// @Success      200  {array}  Fulfillment
// @Router       /orders/{order_id}/fulfillments [get]
func (h *HTTPHandler) ListFulfillments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, ok := h.pathID(w, r, "order_id")
	if !ok {
		return
	}

	fulfillments, err := h.fulfillments.ListFulfillments(ctx, orderID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "list fulfillments")
		return
	}

	out := make([]Fulfillment, 0, len(fulfillments))
	for _, f := range fulfillments {
		out = append(out, FulfillmentEntityToJSON(f))
	}
	utils.WriteJSON(w, out, http.StatusOK)
}

// ShipFulfillment помечает отгрузку отправленной.
// @Summary      Отгрузить
// @Tags         fulfillments
// @Param        fulfillment_id  path  string  true  "Идентификатор отгрузки"
// @Param        request         body  ShipFulfillmentRequest  false  "Трек-номер"
// @Success      200  {object}  Fulfillment
// @Failure      409  {object}  utils.ErrorResponse "Отгрузка не в статусе pending"
// @Router       /fulfillments/{fulfillment_id}/ship [post]
func (h *HTTPHandler) ShipFulfillment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fulfillmentID, ok := h.pathID(w, r, "fulfillment_id")
	if !ok {
		return
	}

	var req ShipFulfillmentRequest
	if r.ContentLength > 0 {
		if err := utils.DecodeBody(r, &req); err != nil {
			utils.WriteError(w, "invalid json body", http.StatusBadRequest)
			return
		}
	}

	fulfillment, err := h.fulfillments.ShipFulfillment(ctx, fulfillmentID, req.TrackingNumber, actor(r))
	if err != nil {
		h.writeServiceError(ctx, w, err, "ship fulfillment")
		return
	}
	utils.WriteJSON(w, FulfillmentEntityToJSON(fulfillment), http.StatusOK)
}

// CancelFulfillment откатывает вклад отгрузки в остатки.
// @Summary      Отменить отгрузку
// @Tags         fulfillments
// @Param        fulfillment_id  path  string  true  "Идентификатор отгрузки"
// @Success      200  {object}  Fulfillment
// @Failure      409  {object}  utils.ErrorResponse "Отгруженное исполнение не отменяется"
// @Router       /fulfillments/{fulfillment_id}/cancel [post]
func (h *HTTPHandler) CancelFulfillment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fulfillmentID, ok := h.pathID(w, r, "fulfillment_id")
	if !ok {
		return
	}

	fulfillment, err := h.fulfillments.CancelFulfillment(ctx, fulfillmentID, actor(r))
	if err != nil {
		h.writeServiceError(ctx, w, err, "cancel fulfillment")
		return
	}
	utils.WriteJSON(w, FulfillmentEntityToJSON(fulfillment), http.StatusOK)
}

// DeleteFulfillment удаляет неотправленную отгрузку.
// @Summary      Удалить отгрузку
// @Tags         fulfillments
// @Param        fulfillment_id  path  string  true  "Идентификатор отгрузки"
// @Success      204
// @Router       /fulfillments/{fulfillment_id} [delete]
func (h *HTTPHandler) DeleteFulfillment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fulfillmentID, ok := h.pathID(w, r, "fulfillment_id")
	if !ok {
		return
	}

	if err := h.fulfillments.DeleteFulfillment(ctx, fulfillmentID, actor(r)); err != nil {
		h.writeServiceError(ctx, w, err, "delete fulfillment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
