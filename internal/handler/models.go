package handler

import (
	"time"

	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/entities"
	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/service"
	"github.com/shopspring/decimal"
)

// CreateOrderRequest - тело создания заказа
type CreateOrderRequest struct {
	CustomerID string `json:"customer_id" validate:"required"`
	Currency   string `json:"currency" validate:"required,iso4217"`

	BillingAddressID  string `json:"billing_address_id,omitempty"`
	ShippingAddressID string `json:"shipping_address_id,omitempty"`
	Email             string `json:"email,omitempty" validate:"omitempty,email"`
	Phone             string `json:"phone,omitempty"`

	ShippingCountry    string          `json:"shipping_country,omitempty" validate:"omitempty,iso3166_1_alpha2"`
	ShippingPostalCode string          `json:"shipping_postal_code,omitempty"`
	ShippingAmount     decimal.Decimal `json:"shipping_amount"`

	Metadata map[string]string `json:"metadata,omitempty"`
	Items    []LineItemRequest `json:"items,omitempty" validate:"dive"`
}

// LineItemRequest - позиция при создании или добавлении
type LineItemRequest struct {
	VariantID      string          `json:"variant_id" validate:"required"`
	Quantity       int             `json:"quantity" validate:"required,gt=0"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

// UpdateLineItemRequest - частичное обновление позиции
type UpdateLineItemRequest struct {
	Quantity       *int             `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	DiscountAmount *decimal.Decimal `json:"discount_amount,omitempty"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason,omitempty"`
}

type CreateFulfillmentRequest struct {
	Items []FulfillmentItemRequest `json:"items" validate:"required,min=1,dive"`

	Carrier        string `json:"carrier,omitempty"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	TrackingURL    string `json:"tracking_url,omitempty" validate:"omitempty,url"`
}

type FulfillmentItemRequest struct {
	LineItemID string `json:"line_item_id" validate:"required,uuid"`
	Quantity   int    `json:"quantity" validate:"required,gt=0"`
}

type ShipFulfillmentRequest struct {
	TrackingNumber string `json:"tracking_number,omitempty"`
}

type AuthorizePaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method" validate:"required"`
}

type CapturePaymentRequest struct {
	Amount *decimal.Decimal `json:"amount,omitempty"`
}

type CreateRefundRequest struct {
	Amount        decimal.Decimal `json:"amount" validate:"required"`
	Reason        string          `json:"reason,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty" validate:"omitempty,uuid"`
}

type NoteRequest struct {
	Text            string `json:"text" validate:"required"`
	CustomerVisible bool   `json:"customer_visible"`
}

// Order представляет заказ в ответах API
type Order struct {
	ID            string `json:"id"`
	OrderNumber   string `json:"order_number"`
	CustomerID    string `json:"customer_id"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`

	Subtotal          decimal.Decimal `json:"subtotal"`
	ShippingAmount    decimal.Decimal `json:"shipping_amount"`
	ShippingTaxAmount decimal.Decimal `json:"shipping_tax_amount"`
	DiscountAmount    decimal.Decimal `json:"discount_amount"`
	TaxAmount         decimal.Decimal `json:"tax_amount"`
	Total             decimal.Decimal `json:"total"`

	BillingAddressID  string `json:"billing_address_id,omitempty"`
	ShippingAddressID string `json:"shipping_address_id,omitempty"`
	Email             string `json:"email,omitempty"`
	Phone             string `json:"phone,omitempty"`

	ShippingCountry    string `json:"shipping_country,omitempty"`
	ShippingPostalCode string `json:"shipping_postal_code,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
	Items    []LineItem        `json:"items"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type LineItem struct {
	ID        string `json:"id"`
	VariantID string `json:"variant_id"`

	Quantity          int `json:"quantity"`
	FulfilledQuantity int `json:"fulfilled_quantity"`

	UnitPrice      decimal.Decimal `json:"unit_price"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	Total          decimal.Decimal `json:"total"`
}

type Fulfillment struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Status  string `json:"status"`

	Carrier        string `json:"carrier,omitempty"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	TrackingURL    string `json:"tracking_url,omitempty"`

	Items []FulfillmentItem `json:"items"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type FulfillmentItem struct {
	LineItemID string `json:"line_item_id"`
	Quantity   int    `json:"quantity"`
}

type Transaction struct {
	ID         string          `json:"id"`
	OrderID    string          `json:"order_id"`
	ExternalID string          `json:"external_id,omitempty"`
	Method     string          `json:"method"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
}

type Refund struct {
	ID            string          `json:"id"`
	OrderID       string          `json:"order_id"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	Reason        string          `json:"reason,omitempty"`
	ExternalID    string          `json:"external_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type Tax struct {
	ID           string          `json:"id"`
	LineItemID   string          `json:"line_item_id,omitempty"`
	Type         string          `json:"type"`
	Name         string          `json:"name"`
	Rate         decimal.Decimal `json:"rate"`
	Amount       decimal.Decimal `json:"amount"`
	Jurisdiction string          `json:"jurisdiction,omitempty"`
}

type HistoryRecord struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	OldStatus string    `json:"old_status"`
	Note      string    `json:"note,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Note struct {
	ID              string    `json:"id"`
	OrderID         string    `json:"order_id"`
	Author          string    `json:"author"`
	Text            string    `json:"text"`
	CustomerVisible bool      `json:"customer_visible"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func LineItemEntityToJSON(li entities.OrderLineItem) LineItem {
	return LineItem{
		ID:                li.ID.String(),
		VariantID:         li.VariantID,
		Quantity:          li.Quantity,
		FulfilledQuantity: li.FulfilledQuantity,
		UnitPrice:         li.UnitPrice,
		Subtotal:          li.Subtotal,
		DiscountAmount:    li.DiscountAmount,
		TaxAmount:         li.TaxAmount,
		TaxRate:           li.TaxRate,
		Total:             li.Total,
	}
}

func OrderEntityToJSON(o entities.Order) Order {
	items := make([]LineItem, 0, len(o.Items))
	for _, li := range o.Items {
		items = append(items, LineItemEntityToJSON(li))
	}

	return Order{
		ID:                 o.ID.String(),
		OrderNumber:        o.OrderNumber,
		CustomerID:         o.CustomerID,
		Currency:           o.Currency,
		Status:             string(o.Status),
		PaymentStatus:      string(o.PaymentStatus),
		Subtotal:           o.Subtotal,
		ShippingAmount:     o.ShippingAmount,
		ShippingTaxAmount:  o.ShippingTaxAmount,
		DiscountAmount:     o.DiscountAmount,
		TaxAmount:          o.TaxAmount,
		Total:              o.Total,
		BillingAddressID:   o.BillingAddressID,
		ShippingAddressID:  o.ShippingAddressID,
		Email:              o.Email,
		Phone:              o.Phone,
		ShippingCountry:    o.ShippingCountry,
		ShippingPostalCode: o.ShippingPostalCode,
		Metadata:           o.Metadata,
		Items:              items,
		Version:            o.Version,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

func FulfillmentEntityToJSON(f entities.FulfillmentOrder) Fulfillment {
	items := make([]FulfillmentItem, 0, len(f.Items))
	for _, fi := range f.Items {
		items = append(items, FulfillmentItem{
			LineItemID: fi.OrderLineItemID.String(),
			Quantity:   fi.Quantity,
		})
	}

	return Fulfillment{
		ID:             f.ID.String(),
		OrderID:        f.OrderID.String(),
		Status:         string(f.Status),
		Carrier:        f.Carrier,
		TrackingNumber: f.TrackingNumber,
		TrackingURL:    f.TrackingURL,
		Items:          items,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

func TransactionEntityToJSON(t entities.PaymentTransaction) Transaction {
	return Transaction{
		ID:         t.ID.String(),
		OrderID:    t.OrderID.String(),
		ExternalID: t.ExternalID,
		Method:     t.Method,
		Amount:     t.Amount,
		Currency:   t.Currency,
		Status:     string(t.Status),
		CreatedAt:  t.CreatedAt,
	}
}

func RefundEntityToJSON(r entities.Refund) Refund {
	out := Refund{
		ID:         r.ID.String(),
		OrderID:    r.OrderID.String(),
		Amount:     r.Amount,
		Status:     string(r.Status),
		Reason:     r.Reason,
		ExternalID: r.ExternalID,
		CreatedAt:  r.CreatedAt,
	}
	if r.TransactionID != nil {
		out.TransactionID = r.TransactionID.String()
	}
	return out
}

func TaxEntityToJSON(t entities.Tax) Tax {
	out := Tax{
		ID:           t.ID.String(),
		Type:         string(t.Type),
		Name:         t.Name,
		Rate:         t.Rate,
		Amount:       t.Amount,
		Jurisdiction: t.Jurisdiction,
	}
	if t.OrderLineItemID != nil {
		out.LineItemID = t.OrderLineItemID.String()
	}
	return out
}

func HistoryEntityToJSON(h entities.OrderHistory) HistoryRecord {
	return HistoryRecord{
		ID:        h.ID.String(),
		Status:    string(h.Status),
		OldStatus: string(h.OldStatus),
		Note:      h.Note,
		Actor:     h.Actor,
		CreatedAt: h.CreatedAt,
	}
}

func NoteEntityToJSON(n entities.OrderNote) Note {
	return Note{
		ID:              n.ID.String(),
		OrderID:         n.OrderID.String(),
		Author:          n.Author,
		Text:            n.Text,
		CustomerVisible: n.CustomerVisible,
		CreatedAt:       n.CreatedAt,
		UpdatedAt:       n.UpdatedAt,
	}
}

func (r CreateOrderRequest) ToInput(actor string) service.CreateOrderInput {
	items := make([]service.LineItemInput, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, service.LineItemInput{
			VariantID:      it.VariantID,
			Quantity:       it.Quantity,
			DiscountAmount: it.DiscountAmount,
		})
	}

	return service.CreateOrderInput{
		CustomerID:         r.CustomerID,
		Currency:           r.Currency,
		BillingAddressID:   r.BillingAddressID,
		ShippingAddressID:  r.ShippingAddressID,
		Email:              r.Email,
		Phone:              r.Phone,
		ShippingCountry:    r.ShippingCountry,
		ShippingPostalCode: r.ShippingPostalCode,
		ShippingAmount:     r.ShippingAmount,
		Metadata:           r.Metadata,
		Items:              items,
		Actor:              actor,
	}
}
