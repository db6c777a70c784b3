package handler

import (
	"net/http"

	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/service"
	"github.com/SergeyBogomolovv/order-lifecycle-service/pkg/utils"
	"github.com/google/uuid"
)

// AuthorizePayment авторизует средства через платёжный шлюз.
// @Summary      Авторизовать платёж
// @Tags         payments
// @Param        order_id  path  string  true  "Идентификатор заказа"
// @Param        request   body  AuthorizePaymentRequest  true  "Параметры платежа"
// @Success      201  {object}  Transaction
// @Failure      502  {object}  utils.ErrorResponse "Шлюз недоступен"
// @Router       /orders/{order_id}/payments [post]
func (h *HTTPHandler) AuthorizePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, ok := h.pathID(w, r, "order_id")
	if !ok {
		return
	}

	var req AuthorizePaymentRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	transaction, err := h.payments.AuthorizePayment(ctx, service.AuthorizePaymentInput{
		OrderID: orderID,
		Amount:  req.Amount,
		Method:  req.Method,
		Actor:   actor(r),
	})
	if err != nil {
		h.writeServiceError(ctx, w, err, "authorize payment")
		return
	}
	utils.WriteJSON(w, TransactionEntityToJSON(transaction), http.StatusCreated)
}

// CapturePayment списывает авторизованные средства.
// @Summary      Списать платёж
// @Tags         payments
// @Param        transaction_id  path  string  true  "Идентификатор транзакции"
// @Param        request         body  CapturePaymentRequest  false  "Сумма списания"
// @Success      200  {object}  Transaction
// @Failure      409  {object}  utils.ErrorResponse "Транзакция не авторизована"
// @Router       /payments/{transaction_id}/capture [post]
func (h *HTTPHandler) CapturePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	transactionID, ok := h.pathID(w, r, "transaction_id")
	if !ok {
		return
	}

	var req CapturePaymentRequest
	if r.ContentLength > 0 {
		if err := utils.DecodeBody(r, &req); err != nil {
			utils.WriteError(w, "invalid json body", http.StatusBadRequest)
			return
		}
	}

	transaction, err := h.payments.CapturePayment(ctx, transactionID, req.Amount, actor(r))
	if err != nil {
		h.writeServiceError(ctx, w, err, "capture payment")
		return
	}
	utils.WriteJSON(w, TransactionEntityToJSON(transaction), http.StatusOK)
}

// VoidPayment снимает авторизацию без списания.
// @Summary      Отменить авторизацию
// @Tags         payments
// @Param        transaction_id  path  string  true  "Идентификатор транзакции"
// @Success      200  {object}  Transaction
// @Router       /payments/{transaction_id}/void [post]
func (h *HTTPHandler) VoidPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	transactionID, ok := h.pathID(w, r, "transaction_id")
	if !ok {
		return
	}

	transaction, err := h.payments.VoidPayment(ctx, transactionID, actor(r))
	if err != nil {
		h.writeServiceError(ctx, w, err, "void payment")
		return
	}
	utils.WriteJSON(w, TransactionEntityToJSON(transaction), http.StatusOK)
}

// CreateRefund создаёт возврат в пределах лимита заказа.
// @Summary      Создать возврат
// @Tags         refunds
// @Param        order_id  path  string  true  "Идентификатор заказа"
// @Param        request   body  CreateRefundRequest  true  "Сумма и причина"
// @Success      201  {object}  Refund
// @Failure      400  {object}  utils.ErrorResponse "Сумма превышает лимит"
// @Router       /orders/{order_id}/refunds [post]
func (h *HTTPHandler) CreateRefund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, ok := h.pathID(w, r, "order_id")
	if !ok {
		return
	}

	var req CreateRefundRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	in := service.CreateRefundInput{
		OrderID: orderID,
		Amount:  req.Amount,
		Reason:  req.Reason,
		Actor:   actor(r),
	}
	if req.TransactionID != "" {
		transactionID, err := uuid.Parse(req.TransactionID)
		if err != nil {
			utils.WriteError(w, "transaction_id must be a valid uuid", http.StatusBadRequest)
			return
		}
		in.TransactionID = &transactionID
	}

	refund, err := h.payments.CreateRefund(ctx, in)
	if err != nil {
		h.writeServiceError(ctx, w, err, "create refund")
		return
	}

	refundsCreated.Inc()
	utils.WriteJSON(w, RefundEntityToJSON(refund), http.StatusCreated)
}

// ProcessRefund проводит возврат через шлюз.
// @Summary      Обработать возврат
// @Tags         refunds
// @Param        refund_id  path  string  true  "Идентификатор возврата"
// @Success      200  {object}  Refund
// @Failure      502  {object}  utils.ErrorResponse "Шлюз недоступен"
// @Router       /refunds/{refund_id}/process [post]
func (h *HTTPHandler) ProcessRefund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	refundID, ok := h.pathID(w, r, "refund_id")
	if !ok {
		return
	}

	refund, err := h.payments.ProcessRefund(ctx, refundID, actor(r))
	if err != nil {
		h.writeServiceError(ctx, w, err, "process refund")
		return
	}
	utils.WriteJSON(w, RefundEntityToJSON(refund), http.StatusOK)
}

// ListRefunds возвращает возвраты заказа.
// @Summary      Возвраты заказа
// @Tags         refunds
// @Param        order_id  path  string  true  "Идентификатор заказа"
// @Success      200  {array}  Refund
// @Router       /orders/{order_id}/refunds [get]
func (h *HTTPHandler) ListRefunds(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, ok := h.pathID(w, r, "order_id")
	if !ok {
		return
	}

	refunds, err := h.payments.ListRefunds(ctx, orderID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "list refunds")
		return
	}

	out := make([]Refund, 0, len(refunds))
	for _, refund := range refunds {
		out = append(out, RefundEntityToJSON(refund))
	}
	utils.WriteJSON(w, out, http.StatusOK)
}
