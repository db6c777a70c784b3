package entities

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrLineItemNotFound    = errors.New("order line item not found")
	ErrFulfillmentNotFound = errors.New("fulfillment not found")
	ErrTransactionNotFound = errors.New("payment transaction not found")
	ErrRefundNotFound      = errors.New("refund not found")
	ErrNoteNotFound        = errors.New("order note not found")
	ErrVariantNotFound     = errors.New("product variant not found")

	// ErrVersionConflict означает, что заказ изменили параллельно. Можно повторить.
	ErrVersionConflict = errors.New("order was modified concurrently")
)

// ValidationError - ошибка данных вызывающей стороны, не ретраится.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InvalidTransitionError - операция не разрешена из текущего статуса.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: illegal transition %s -> %s", e.Entity, e.From, e.To)
}

func NewInvalidTransition[S ~string](entity string, from, to S) *InvalidTransitionError {
	return &InvalidTransitionError{Entity: entity, From: string(from), To: string(to)}
}

// ExternalServiceError - сбой или таймаут внешней зависимости, транзакция откатывается.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// IsRetryable сообщает, безопасно ли повторить операцию: ничего не было закоммичено.
func IsRetryable(err error) bool {
	var ese *ExternalServiceError
	return errors.Is(err, ErrVersionConflict) || errors.As(err, &ese)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsInvalidTransition(err error) bool {
	var ite *InvalidTransitionError
	return errors.As(err, &ite)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrLineItemNotFound) ||
		errors.Is(err, ErrFulfillmentNotFound) ||
		errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrRefundNotFound) ||
		errors.Is(err, ErrNoteNotFound) ||
		errors.Is(err, ErrVariantNotFound)
}
