package entities

type OrderStatus string

const (
	OrderStatusDraft             OrderStatus = "draft"
	OrderStatusPending           OrderStatus = "pending"
	OrderStatusPaid              OrderStatus = "paid"
	OrderStatusProcessing        OrderStatus = "processing"
	OrderStatusShipped           OrderStatus = "shipped"
	OrderStatusPartiallyShipped  OrderStatus = "partially_shipped"
	OrderStatusDelivered         OrderStatus = "delivered"
	OrderStatusCompleted         OrderStatus = "completed"
	OrderStatusCancelled         OrderStatus = "cancelled"
	OrderStatusRefunded          OrderStatus = "refunded"
	OrderStatusPartiallyRefunded OrderStatus = "partially_refunded"
	OrderStatusFailed            OrderStatus = "failed"
	OrderStatusExpired           OrderStatus = "expired"
)

// orderTransitions описывает разрешённые переходы статуса заказа.
// Обратные рёбра shipped/partially_shipped -> pending нужны для отмены отгрузки.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusDraft: {OrderStatusPending},
	OrderStatusPending: {
		OrderStatusPaid, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusPartiallyShipped,
		OrderStatusCancelled, OrderStatusFailed, OrderStatusExpired,
	},
	OrderStatusPaid: {
		OrderStatusProcessing, OrderStatusShipped, OrderStatusPartiallyShipped,
		OrderStatusCancelled,
	},
	OrderStatusProcessing: {
		OrderStatusShipped, OrderStatusPartiallyShipped, OrderStatusCancelled,
	},
	OrderStatusPartiallyShipped: {
		OrderStatusShipped, OrderStatusPending, OrderStatusCancelled,
		OrderStatusPartiallyRefunded, OrderStatusRefunded,
	},
	OrderStatusShipped: {
		OrderStatusDelivered, OrderStatusPartiallyShipped, OrderStatusPending,
		OrderStatusRefunded, OrderStatusPartiallyRefunded,
	},
	OrderStatusDelivered: {
		OrderStatusCompleted, OrderStatusRefunded, OrderStatusPartiallyRefunded,
	},
	OrderStatusPartiallyRefunded: {OrderStatusRefunded},
	OrderStatusCompleted:         {},
	OrderStatusCancelled:         {},
	OrderStatusRefunded:          {},
	OrderStatusFailed:            {},
	OrderStatusExpired:           {},
}

func (s OrderStatus) CanTransition(to OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Editable сообщает, можно ли менять состав заказа (позиции, удаление).
func (s OrderStatus) Editable() bool {
	return s == OrderStatusDraft || s == OrderStatusPending
}

type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusAuthorized        PaymentStatus = "authorized"
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusPartiallyPaid     PaymentStatus = "partially_paid"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusExpired           PaymentStatus = "expired"
	PaymentStatusCancelled         PaymentStatus = "cancelled"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {
		PaymentStatusAuthorized, PaymentStatusFailed,
		PaymentStatusExpired, PaymentStatusCancelled,
	},
	PaymentStatusAuthorized: {
		PaymentStatusPaid, PaymentStatusPartiallyPaid,
		PaymentStatusFailed, PaymentStatusExpired, PaymentStatusCancelled,
	},
	PaymentStatusPaid: {
		PaymentStatusRefunded, PaymentStatusPartiallyRefunded,
	},
	PaymentStatusPartiallyPaid: {
		PaymentStatusPaid, PaymentStatusRefunded, PaymentStatusPartiallyRefunded,
	},
	PaymentStatusPartiallyRefunded: {PaymentStatusRefunded},
	PaymentStatusRefunded:          {},
	PaymentStatusFailed:            {},
	PaymentStatusExpired:           {},
	PaymentStatusCancelled:         {},
}

func (s PaymentStatus) CanTransition(to PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

type FulfillmentStatus string

const (
	FulfillmentStatusPending    FulfillmentStatus = "pending"
	FulfillmentStatusProcessing FulfillmentStatus = "processing"
	FulfillmentStatusShipped    FulfillmentStatus = "shipped"
	FulfillmentStatusDelivered  FulfillmentStatus = "delivered"
	FulfillmentStatusCompleted  FulfillmentStatus = "completed"
	FulfillmentStatusCancelled  FulfillmentStatus = "cancelled"
	FulfillmentStatusFailed     FulfillmentStatus = "failed"
)

// Отгруженное исполнение отменить нельзя, только возврат.
var fulfillmentTransitions = map[FulfillmentStatus][]FulfillmentStatus{
	FulfillmentStatusPending: {
		FulfillmentStatusProcessing, FulfillmentStatusShipped,
		FulfillmentStatusCancelled, FulfillmentStatusFailed,
	},
	FulfillmentStatusProcessing: {
		FulfillmentStatusShipped, FulfillmentStatusCancelled, FulfillmentStatusFailed,
	},
	FulfillmentStatusShipped:   {FulfillmentStatusDelivered},
	FulfillmentStatusDelivered: {FulfillmentStatusCompleted},
	FulfillmentStatusCompleted: {},
	FulfillmentStatusCancelled: {},
	FulfillmentStatusFailed:    {},
}

func (s FulfillmentStatus) CanTransition(to FulfillmentStatus) bool {
	for _, allowed := range fulfillmentTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

type RefundStatus string

const (
	RefundStatusPending    RefundStatus = "pending"
	RefundStatusProcessing RefundStatus = "processing"
	RefundStatusCompleted  RefundStatus = "completed"
	RefundStatusFailed     RefundStatus = "failed"
	RefundStatusCancelled  RefundStatus = "cancelled"
)

var refundTransitions = map[RefundStatus][]RefundStatus{
	RefundStatusPending: {
		RefundStatusProcessing, RefundStatusCompleted,
		RefundStatusFailed, RefundStatusCancelled,
	},
	RefundStatusProcessing: {
		RefundStatusCompleted, RefundStatusFailed, RefundStatusCancelled,
	},
	RefundStatusCompleted: {},
	RefundStatusFailed:    {},
	RefundStatusCancelled: {},
}

func (s RefundStatus) CanTransition(to RefundStatus) bool {
	for _, allowed := range refundTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

type TransactionStatus string

const (
	TransactionStatusAuthorized TransactionStatus = "authorized"
	TransactionStatusPaid       TransactionStatus = "paid"
	TransactionStatusVoided     TransactionStatus = "voided"
	TransactionStatusFailed     TransactionStatus = "failed"
)

type TaxType string

const (
	TaxTypeSales    TaxType = "sales"
	TaxTypeShipping TaxType = "shipping"
)
