package handler

import (
	"net/http"

	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/service"
	"github.com/SergeyBogomolovv/order-lifecycle-service/pkg/utils"
)

// CreateOrder создаёт черновик заказа.
// @Summary      Создать заказ
// @Description  Создаёт заказ в статусе draft с позициями по ценам каталога
// @Tags         orders
// @Accept       json
// @Param        request  body  CreateOrderRequest  true  "Параметры заказа"
// @Success      201  {object}  Order
// @Failure      400  {object}  utils.ErrorResponse "Ошибка валидации"
// @Router       /orders [post]
func (h *HTTPHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateOrderRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	order, err := h.orders.CreateOrder(ctx, req.ToInput(actor(r)))
	if err != nil {
		h.writeServiceError(ctx, w, err, "create order")
		return
	}

	ordersCreated.Inc()
	utils.WriteJSON(w, OrderEntityToJSON(order), http.StatusCreated)
}

// GetOrder возвращает заказ со всеми позициями.
// @Summary      Получить заказ
// @Tags         orders
// @Param        order_id  path  string  true  "Идентификатор заказа"
// @Success      200  {object}  Order
// @Failure      404  {object}  utils.ErrorResponse "Заказ не найден"
// @Router       /orders/{order_id} [get]
func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, ok := h.pathID(w, r, "order_id")
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "get order")
		return
	}
	utils.WriteJSON(w, OrderEntityToJSON(order), http.StatusOK)
}

// SubmitOrder отправляет черновик в работу.
// @Summary      Отправить заказ
// @Tags         orders
// @Param        order_id  path  string  true  "Идентификатор заказа"
// @Success      200  {object}  Order
// @Failure      409  {object}  utils.ErrorResponse "Недопустимый переход статуса"
// @Router       /orders/{order_id}/submit [post]
func (h *HTTPHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, ok := h.pathID(w, r, "order_id")
	if !ok {
		return
	}

	order, err := h.orders.SubmitOrder(ctx, orderID, actor(r))
	if err != nil {
		h.writeServiceError(ctx, w, err, "submit order")
		return
	}
	utils.WriteJSON(w, OrderEntityToJSON(order), http.StatusOK)
}

// CancelOrder отменяет заказ и освобождает неотгруженные остатки.
// @Summary      Отменить заказ
// @Tags         orders
// @Param        order_id  path  string  true  "Идентификатор заказа"
// @Param        request   body  CancelOrderRequest  false  "Причина отмены"
// @Success      200  {object}  Order
// @Failure      409  {object}  utils.ErrorResponse "Недопустимый переход статуса"
// @Router       /orders/{order_id}/cancel [post]
func (h *HTTPHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, ok := h.pathID(w, r, "order_id")
	if !ok {
		return
	}

	var req CancelOrderRequest
	if r.ContentLength > 0 {
		if err := utils.DecodeBody(r, &req); err != nil {
			utils.WriteError(w, "invalid json body", http.StatusBadRequest)
			return
		}
	}

	order, err := h.orders.CancelOrder(ctx, orderID, req.Reason, actor(r))
	if err != nil {
		h.writeServiceError(ctx, w, err, "cancel order")
		return
	}

	ordersCancelled.Inc()
	utils.WriteJSON(w, OrderEntityToJSON(order), http.StatusOK)
}

// DeleteOrder мягко удаляет черновик.
// @Summary      Удалить заказ
// @Tags         orders
// @Param        order_id  path  string  true  "Идентификатор заказа"
// @Success      204
// @Failure      409  {object}  utils.ErrorResponse "Удалять можно только черновики"
// @Router       /orders/{order_id} [delete]
func (h *HTTPHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, ok := h.pathID(w, r, "order_id")
	if !ok {
		return
	}

	if err := h.orders.SoftDeleteOrder(ctx, orderID, actor(r)); err != nil {
		h.writeServiceError(ctx, w, err, "delete order")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddOrderItem добавляет позицию в редактируемый заказ.
// @Summary      Добавить позицию
// @Tags         orders
// @Param        order_id  path  string  true  "Идентификатор заказа"
// @Param        request   body  LineItemRequest  true  "Позиция"
// @Success      200  {object}  Order
// @Router       /orders/{order_id}/items [post]
func (h *HTTPHandler) AddOrderItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, ok := h.pathID(w, r, "order_id")
	if !ok {
		return
	}

	var req LineItemRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	order, err := h.orders.AddOrderItem(ctx, orderID, service.LineItemInput{
		VariantID:      req.VariantID,
		Quantity:       req.Quantity,
		DiscountAmount: req.DiscountAmount,
	}, actor(r))
	if err != nil {
		h.writeServiceError(ctx, w, err, "add order item")
		return
	}
	utils.WriteJSON(w, OrderEntityToJSON(order), http.StatusOK)
}

// UpdateOrderItem меняет количество или скидку позиции.
// @Summary      Обновить позицию
// @Tags         orders
// @Param        order_id  path  string  true  "Идентификатор заказа"
// @Param        item_id   path  string  true  "Идентификатор позиции"
// @Param        request   body  UpdateLineItemRequest  true  "Изменяемые поля"
// @Success      200  {object}  Order
// @Router       /orders/{order_id}/items/{item_id} [patch]
func (h *HTTPHandler) UpdateOrderItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, ok := h.pathID(w, r, "order_id")
	if !ok {
		return
	}
	itemID, ok := h.pathID(w, r, "item_id")
	if !ok {
		return
	}

	var req UpdateLineItemRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	order, err := h.orders.UpdateOrderItem(ctx, orderID, itemID, service.LineItemPatch{
		Quantity:       req.Quantity,
		DiscountAmount: req.DiscountAmount,
	}, actor(r))
	if err != nil {
		h.writeServiceError(ctx, w, err, "update order item")
		return
	}
	utils.WriteJSON(w, OrderEntityToJSON(order), http.StatusOK)
}

// RemoveOrderItem удаляет позицию из редактируемого заказа.
// @Summary      Удалить позицию
// @Tags         orders
// @Param        order_id  path  string  true  "Идентификатор заказа"
// @Param        item_id   path  string  true  "Идентификатор позиции"
// @Success      200  {object}  Order
// @Router       /orders/{order_id}/items/{item_id} [delete]
func (h *HTTPHandler) RemoveOrderItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, ok := h.pathID(w, r, "order_id")
	if !ok {
		return
	}
	itemID, ok := h.pathID(w, r, "item_id")
	if !ok {
		return
	}

	order, err := h.orders.RemoveOrderItem(ctx, orderID, itemID, actor(r))
	if err != nil {
		h.writeServiceError(ctx, w, err, "remove order item")
		return
	}
	utils.WriteJSON(w, OrderEntityToJSON(order), http.StatusOK)
}

// ListHistory возвращает журнал смен статуса.
// @Summary      История заказа
// @Tags         orders
// @Param        order_id  path  string  true  "Идентификатор заказа"
// @Success      200  {array}  HistoryRecord
// @Router       /orders/{order_id}/history [get]
func (h *HTTPHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, ok := h.pathID(w, r, "order_id")
	if !ok {
		return
	}

	history, err := h.orders.ListHistory(ctx, orderID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "list history")
		return
	}

	out := make([]HistoryRecord, 0, len(history))
	for _, record := range history {
		out = append(out, HistoryEntityToJSON(record))
	}
	utils.WriteJSON(w, out, http.StatusOK)
}

// CalculateTaxes пересчитывает налоги по внешнему справочнику ставок.
// @Summary      Пересчитать налоги
// @Tags         taxes
// @Param        order_id  path  string  true  "Идентификатор заказа"
// @Success      200  {object}  Order
// @Failure      502  {object}  utils.ErrorResponse "Справочник ставок недоступен"
// @Router       /orders/{order_id}/taxes/calculate [post]
func (h *HTTPHandler) CalculateTaxes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, ok := h.pathID(w, r, "order_id")
	if !ok {
		return
	}

	order, err := h.taxes.CalculateTaxes(ctx, orderID, actor(r))
	if err != nil {
		h.writeServiceError(ctx, w, err, "calculate taxes")
		return
	}
	utils.WriteJSON(w, OrderEntityToJSON(order), http.StatusOK)
}

// ListTaxes возвращает налоговые строки заказа.
// @Summary      Налоги заказа
// @Tags         taxes
// @Param        order_id  path  string  true  "Идентификатор заказа"
// @Success      200  {array}  Tax
// @Router       /orders/{order_id}/taxes [get]
func (h *HTTPHandler) ListTaxes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, ok := h.pathID(w, r, "order_id")
	if !ok {
		return
	}

	taxes, err := h.taxes.ListTaxes(ctx, orderID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "list taxes")
		return
	}

	out := make([]Tax, 0, len(taxes))
	for _, t := range taxes {
		out = append(out, TaxEntityToJSON(t))
	}
	utils.WriteJSON(w, out, http.StatusOK)
}
