package repo

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/entities"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Order struct {
	ID                uuid.UUID       `db:"id"`
	OrderNumber       string          `db:"order_number"`
	CustomerID        string          `db:"customer_id"`
	Currency          string          `db:"currency"`
	Status            string          `db:"status"`
	PaymentStatus     string          `db:"payment_status"`
	Subtotal          decimal.Decimal `db:"subtotal"`
	ShippingAmount    decimal.Decimal `db:"shipping_amount"`
	ShippingTaxAmount decimal.Decimal `db:"shipping_tax_amount"`
	DiscountAmount    decimal.Decimal `db:"discount_amount"`
	TaxAmount         decimal.Decimal `db:"tax_amount"`
	Total             decimal.Decimal `db:"total"`
	BillingAddressID  sql.NullString  `db:"billing_address_id"`
	ShippingAddressID sql.NullString  `db:"shipping_address_id"`
	Email             sql.NullString  `db:"email"`
	Phone             sql.NullString  `db:"phone"`
	ShippingCountry   sql.NullString  `db:"shipping_country"`
	ShippingPostal    sql.NullString  `db:"shipping_postal_code"`
	Metadata          []byte          `db:"metadata"`
	Version           int             `db:"version"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
	DeletedAt         sql.NullTime    `db:"deleted_at"`
	DeletedBy         sql.NullString  `db:"deleted_by"`
}

type OrderLineItem struct {
	ID                uuid.UUID       `db:"id"`
	OrderID           uuid.UUID       `db:"order_id"`
	VariantID         string          `db:"variant_id"`
	Quantity          int             `db:"quantity"`
	FulfilledQuantity int             `db:"fulfilled_quantity"`
	UnitPrice         decimal.Decimal `db:"unit_price"`
	Subtotal          decimal.Decimal `db:"subtotal"`
	DiscountAmount    decimal.Decimal `db:"discount_amount"`
	TaxAmount         decimal.Decimal `db:"tax_amount"`
	TaxRate           decimal.Decimal `db:"tax_rate"`
	Total             decimal.Decimal `db:"total"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

type Fulfillment struct {
	ID             uuid.UUID      `db:"id"`
	OrderID        uuid.UUID      `db:"order_id"`
	Status         string         `db:"status"`
	Carrier        sql.NullString `db:"carrier"`
	TrackingNumber sql.NullString `db:"tracking_number"`
	TrackingURL    sql.NullString `db:"tracking_url"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

type FulfillmentLineItem struct {
	ID              uuid.UUID `db:"id"`
	FulfillmentID   uuid.UUID `db:"fulfillment_id"`
	OrderLineItemID uuid.UUID `db:"order_line_item_id"`
	Quantity        int       `db:"quantity"`
}

type PaymentTransaction struct {
	ID              uuid.UUID       `db:"id"`
	OrderID         uuid.UUID       `db:"order_id"`
	ExternalID      sql.NullString  `db:"external_id"`
	Method          string          `db:"method"`
	Amount          decimal.Decimal `db:"amount"`
	Currency        string          `db:"currency"`
	Status          string          `db:"status"`
	GatewayResponse sql.NullString  `db:"gateway_response"`
	ErrorMessage    sql.NullString  `db:"error_message"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

type Refund struct {
	ID            uuid.UUID       `db:"id"`
	OrderID       uuid.UUID       `db:"order_id"`
	TransactionID uuid.NullUUID   `db:"transaction_id"`
	Amount        decimal.Decimal `db:"amount"`
	Status        string          `db:"status"`
	Reason        sql.NullString  `db:"reason"`
	ExternalID    sql.NullString  `db:"external_id"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

type Tax struct {
	ID              uuid.UUID       `db:"id"`
	OrderID         uuid.UUID       `db:"order_id"`
	OrderLineItemID uuid.NullUUID   `db:"order_line_item_id"`
	Type            string          `db:"type"`
	Name            string          `db:"name"`
	Rate            decimal.Decimal `db:"rate"`
	Amount          decimal.Decimal `db:"amount"`
	Jurisdiction    sql.NullString  `db:"jurisdiction"`
	CreatedAt       time.Time       `db:"created_at"`
}

type OrderHistory struct {
	ID        uuid.UUID      `db:"id"`
	OrderID   uuid.UUID      `db:"order_id"`
	Status    string         `db:"status"`
	OldStatus string         `db:"old_status"`
	Note      sql.NullString `db:"note"`
	Actor     string         `db:"actor"`
	CreatedAt time.Time      `db:"created_at"`
}

type OrderNote struct {
	ID              uuid.UUID `db:"id"`
	OrderID         uuid.UUID `db:"order_id"`
	Author          string    `db:"author"`
	Text            string    `db:"text"`
	CustomerVisible bool      `db:"customer_visible"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

type Variant struct {
	ID             string          `db:"id"`
	Title          string          `db:"title"`
	Price          decimal.Decimal `db:"price"`
	TaxabilityCode sql.NullString  `db:"taxability_code"`
}

func OrderToEntity(o Order, items []OrderLineItem) entities.Order {
	var metadata map[string]string
	if len(o.Metadata) > 0 {
		// Метаданные свободной формы, битый json просто игнорируем
		_ = json.Unmarshal(o.Metadata, &metadata)
	}

	order := entities.Order{
		ID:                 o.ID,
		OrderNumber:        o.OrderNumber,
		CustomerID:         o.CustomerID,
		Currency:           o.Currency,
		Status:             entities.OrderStatus(o.Status),
		PaymentStatus:      entities.PaymentStatus(o.PaymentStatus),
		Subtotal:           o.Subtotal,
		ShippingAmount:     o.ShippingAmount,
		ShippingTaxAmount:  o.ShippingTaxAmount,
		DiscountAmount:     o.DiscountAmount,
		TaxAmount:          o.TaxAmount,
		Total:              o.Total,
		BillingAddressID:   nullStringToString(o.BillingAddressID),
		ShippingAddressID:  nullStringToString(o.ShippingAddressID),
		Email:              nullStringToString(o.Email),
		Phone:              nullStringToString(o.Phone),
		ShippingCountry:    nullStringToString(o.ShippingCountry),
		ShippingPostalCode: nullStringToString(o.ShippingPostal),
		Metadata:           metadata,
		Version:            o.Version,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
		DeletedBy:          nullStringToString(o.DeletedBy),
	}
	if o.DeletedAt.Valid {
		t := o.DeletedAt.Time
		order.DeletedAt = &t
	}

	if len(items) > 0 {
		order.Items = make([]entities.OrderLineItem, 0, len(items))
		for _, it := range items {
			order.Items = append(order.Items, LineItemToEntity(it))
		}
	}

	return order
}

func LineItemToEntity(li OrderLineItem) entities.OrderLineItem {
	return entities.OrderLineItem{
		ID:                li.ID,
		OrderID:           li.OrderID,
		VariantID:         li.VariantID,
		Quantity:          li.Quantity,
		FulfilledQuantity: li.FulfilledQuantity,
		UnitPrice:         li.UnitPrice,
		Subtotal:          li.Subtotal,
		DiscountAmount:    li.DiscountAmount,
		TaxAmount:         li.TaxAmount,
		TaxRate:           li.TaxRate,
		Total:             li.Total,
		CreatedAt:         li.CreatedAt,
		UpdatedAt:         li.UpdatedAt,
	}
}

func FulfillmentToEntity(f Fulfillment, items []FulfillmentLineItem) entities.FulfillmentOrder {
	out := entities.FulfillmentOrder{
		ID:             f.ID,
		OrderID:        f.OrderID,
		Status:         entities.FulfillmentStatus(f.Status),
		Carrier:        nullStringToString(f.Carrier),
		TrackingNumber: nullStringToString(f.TrackingNumber),
		TrackingURL:    nullStringToString(f.TrackingURL),
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
	for _, it := range items {
		out.Items = append(out.Items, entities.FulfillmentLineItem{
			ID:              it.ID,
			FulfillmentID:   it.FulfillmentID,
			OrderLineItemID: it.OrderLineItemID,
			Quantity:        it.Quantity,
		})
	}
	return out
}

func TransactionToEntity(t PaymentTransaction) entities.PaymentTransaction {
	return entities.PaymentTransaction{
		ID:              t.ID,
		OrderID:         t.OrderID,
		ExternalID:      nullStringToString(t.ExternalID),
		Method:          t.Method,
		Amount:          t.Amount,
		Currency:        t.Currency,
		Status:          entities.TransactionStatus(t.Status),
		GatewayResponse: nullStringToString(t.GatewayResponse),
		ErrorMessage:    nullStringToString(t.ErrorMessage),
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func RefundToEntity(r Refund) entities.Refund {
	out := entities.Refund{
		ID:         r.ID,
		OrderID:    r.OrderID,
		Amount:     r.Amount,
		Status:     entities.RefundStatus(r.Status),
		Reason:     nullStringToString(r.Reason),
		ExternalID: nullStringToString(r.ExternalID),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.TransactionID.Valid {
		id := r.TransactionID.UUID
		out.TransactionID = &id
	}
	return out
}

func TaxToEntity(t Tax) entities.Tax {
	out := entities.Tax{
		ID:           t.ID,
		OrderID:      t.OrderID,
		Type:         entities.TaxType(t.Type),
		Name:         t.Name,
		Rate:         t.Rate,
		Amount:       t.Amount,
		Jurisdiction: nullStringToString(t.Jurisdiction),
		CreatedAt:    t.CreatedAt,
	}
	if t.OrderLineItemID.Valid {
		id := t.OrderLineItemID.UUID
		out.OrderLineItemID = &id
	}
	return out
}

func HistoryToEntity(h OrderHistory) entities.OrderHistory {
	return entities.OrderHistory{
		ID:        h.ID,
		OrderID:   h.OrderID,
		Status:    entities.OrderStatus(h.Status),
		OldStatus: entities.OrderStatus(h.OldStatus),
		Note:      nullStringToString(h.Note),
		Actor:     h.Actor,
		CreatedAt: h.CreatedAt,
	}
}

func NoteToEntity(n OrderNote) entities.OrderNote {
	return entities.OrderNote{
		ID:              n.ID,
		OrderID:         n.OrderID,
		Author:          n.Author,
		Text:            n.Text,
		CustomerVisible: n.CustomerVisible,
		CreatedAt:       n.CreatedAt,
		UpdatedAt:       n.UpdatedAt,
	}
}

func VariantToEntity(v Variant) entities.Variant {
	return entities.Variant{
		ID:             v.ID,
		Title:          v.Title,
		Price:          v.Price,
		TaxabilityCode: nullStringToString(v.TaxabilityCode),
	}
}

func metadataToJSON(m map[string]string) []byte {
	if len(m) == 0 {
		return nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return data
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
