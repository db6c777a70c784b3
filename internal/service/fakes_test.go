package service

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/entities"
	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/events"
	"github.com/SergeyBogomolovv/order-lifecycle-service/internal/gateway"
	"github.com/SergeyBogomolovv/order-lifecycle-service/pkg/trm"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// noopManager выполняет callback без транзакции: фейковое хранилище
// живёт в памяти и откатов не требует.
type noopManager struct{}

func (noopManager) BeginTx(ctx context.Context) (context.Context, trm.Transaction, error) {
	return ctx, noopTx{}, nil
}

func (noopManager) Do(ctx context.Context, callback func(ctx context.Context) error) error {
	return callback(ctx)
}

type noopTx struct{}

func (noopTx) Commit() error   { return nil }
func (noopTx) Rollback() error { return nil }

type fakeStore struct {
	orders       map[uuid.UUID]entities.Order
	variants     map[string]entities.Variant
	fulfillments map[uuid.UUID]entities.FulfillmentOrder
	transactions map[uuid.UUID]entities.PaymentTransaction
	refunds      map[uuid.UUID]entities.Refund
	taxes        []entities.Tax
	history      []entities.OrderHistory
	notes        map[uuid.UUID]entities.OrderNote
}

func newStore() *fakeStore {
	return &fakeStore{
		orders:       make(map[uuid.UUID]entities.Order),
		variants:     make(map[string]entities.Variant),
		fulfillments: make(map[uuid.UUID]entities.FulfillmentOrder),
		transactions: make(map[uuid.UUID]entities.PaymentTransaction),
		refunds:      make(map[uuid.UUID]entities.Refund),
		notes:        make(map[uuid.UUID]entities.OrderNote),
	}
}

func cloneOrder(o entities.Order) entities.Order {
	o.Items = append([]entities.OrderLineItem(nil), o.Items...)
	return o
}

func cloneFulfillment(f entities.FulfillmentOrder) entities.FulfillmentOrder {
	f.Items = append([]entities.FulfillmentLineItem(nil), f.Items...)
	return f
}

func (f *fakeStore) addOrder(o entities.Order) {
	f.orders[o.ID] = cloneOrder(o)
}

func (f *fakeStore) GetOrder(_ context.Context, orderID uuid.UUID) (entities.Order, error) {
	o, ok := f.orders[orderID]
	if !ok || o.Deleted() {
		return entities.Order{}, entities.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (f *fakeStore) GetOrderForUpdate(ctx context.Context, orderID uuid.UUID) (entities.Order, error) {
	return f.GetOrder(ctx, orderID)
}

func (f *fakeStore) SaveOrder(_ context.Context, o entities.Order) error {
	f.orders[o.ID] = cloneOrder(o)
	return nil
}

func (f *fakeStore) UpdateOrder(_ context.Context, o entities.Order) error {
	stored, ok := f.orders[o.ID]
	if !ok {
		return entities.ErrOrderNotFound
	}
	if stored.Version != o.Version {
		return entities.ErrVersionConflict
	}
	o.Version++
	f.orders[o.ID] = cloneOrder(o)
	return nil
}

func (f *fakeStore) SoftDeleteOrder(_ context.Context, orderID uuid.UUID, actor string) error {
	o, ok := f.orders[orderID]
	if !ok || o.Deleted() {
		return entities.ErrOrderNotFound
	}
	now := o.UpdatedAt
	o.DeletedAt = &now
	o.DeletedBy = actor
	f.orders[orderID] = o
	return nil
}

func (f *fakeStore) InsertLineItem(_ context.Context, li entities.OrderLineItem) error {
	o, ok := f.orders[li.OrderID]
	if !ok {
		return entities.ErrOrderNotFound
	}
	o.Items = append(o.Items, li)
	f.orders[li.OrderID] = o
	return nil
}

func (f *fakeStore) UpdateLineItem(_ context.Context, li entities.OrderLineItem) error {
	o, ok := f.orders[li.OrderID]
	if !ok {
		return entities.ErrOrderNotFound
	}
	for i := range o.Items {
		if o.Items[i].ID == li.ID {
			o.Items[i] = li
			f.orders[li.OrderID] = o
			return nil
		}
	}
	return entities.ErrLineItemNotFound
}

func (f *fakeStore) DeleteLineItem(_ context.Context, itemID uuid.UUID) error {
	for id, o := range f.orders {
		for i := range o.Items {
			if o.Items[i].ID == itemID {
				o.Items = append(o.Items[:i], o.Items[i+1:]...)
				f.orders[id] = o
				return nil
			}
		}
	}
	return entities.ErrLineItemNotFound
}

func (f *fakeStore) GetVariant(_ context.Context, variantID string) (entities.Variant, error) {
	v, ok := f.variants[variantID]
	if !ok {
		return entities.Variant{}, entities.ErrVariantNotFound
	}
	return v, nil
}

func (f *fakeStore) SaveFulfillment(_ context.Context, ff entities.FulfillmentOrder) error {
	f.fulfillments[ff.ID] = cloneFulfillment(ff)
	return nil
}

func (f *fakeStore) GetFulfillment(_ context.Context, fulfillmentID uuid.UUID) (entities.FulfillmentOrder, error) {
	ff, ok := f.fulfillments[fulfillmentID]
	if !ok {
		return entities.FulfillmentOrder{}, entities.ErrFulfillmentNotFound
	}
	return cloneFulfillment(ff), nil
}

func (f *fakeStore) ListFulfillmentsByOrder(_ context.Context, orderID uuid.UUID) ([]entities.FulfillmentOrder, error) {
	var out []entities.FulfillmentOrder
	for _, ff := range f.fulfillments {
		if ff.OrderID == orderID {
			out = append(out, cloneFulfillment(ff))
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateFulfillment(_ context.Context, ff entities.FulfillmentOrder) error {
	if _, ok := f.fulfillments[ff.ID]; !ok {
		return entities.ErrFulfillmentNotFound
	}
	f.fulfillments[ff.ID] = cloneFulfillment(ff)
	return nil
}

func (f *fakeStore) DeleteFulfillment(_ context.Context, fulfillmentID uuid.UUID) error {
	if _, ok := f.fulfillments[fulfillmentID]; !ok {
		return entities.ErrFulfillmentNotFound
	}
	delete(f.fulfillments, fulfillmentID)
	return nil
}

func (f *fakeStore) SaveTransaction(_ context.Context, t entities.PaymentTransaction) error {
	f.transactions[t.ID] = t
	return nil
}

func (f *fakeStore) GetTransaction(_ context.Context, transactionID uuid.UUID) (entities.PaymentTransaction, error) {
	t, ok := f.transactions[transactionID]
	if !ok {
		return entities.PaymentTransaction{}, entities.ErrTransactionNotFound
	}
	return t, nil
}

func (f *fakeStore) ListTransactionsByOrder(_ context.Context, orderID uuid.UUID) ([]entities.PaymentTransaction, error) {
	var out []entities.PaymentTransaction
	for _, t := range f.transactions {
		if t.OrderID == orderID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateTransaction(_ context.Context, t entities.PaymentTransaction) error {
	if _, ok := f.transactions[t.ID]; !ok {
		return entities.ErrTransactionNotFound
	}
	f.transactions[t.ID] = t
	return nil
}

func (f *fakeStore) SaveRefund(_ context.Context, r entities.Refund) error {
	f.refunds[r.ID] = r
	return nil
}

func (f *fakeStore) GetRefund(_ context.Context, refundID uuid.UUID) (entities.Refund, error) {
	r, ok := f.refunds[refundID]
	if !ok {
		return entities.Refund{}, entities.ErrRefundNotFound
	}
	return r, nil
}

func (f *fakeStore) ListRefundsByOrder(_ context.Context, orderID uuid.UUID) ([]entities.Refund, error) {
	var out []entities.Refund
	for _, r := range f.refunds {
		if r.OrderID == orderID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateRefund(_ context.Context, r entities.Refund) error {
	if _, ok := f.refunds[r.ID]; !ok {
		return entities.ErrRefundNotFound
	}
	f.refunds[r.ID] = r
	return nil
}

func (f *fakeStore) DeleteTaxesByOrder(_ context.Context, orderID uuid.UUID) error {
	kept := f.taxes[:0]
	for _, t := range f.taxes {
		if t.OrderID != orderID {
			kept = append(kept, t)
		}
	}
	f.taxes = kept
	return nil
}

func (f *fakeStore) DeleteTaxesByLineItem(_ context.Context, itemID uuid.UUID) error {
	kept := f.taxes[:0]
	for _, t := range f.taxes {
		if t.OrderLineItemID == nil || *t.OrderLineItemID != itemID {
			kept = append(kept, t)
		}
	}
	f.taxes = kept
	return nil
}

func (f *fakeStore) SaveTaxes(_ context.Context, taxes []entities.Tax) error {
	f.taxes = append(f.taxes, taxes...)
	return nil
}

func (f *fakeStore) ListTaxesByOrder(_ context.Context, orderID uuid.UUID) ([]entities.Tax, error) {
	var out []entities.Tax
	for _, t := range f.taxes {
		if t.OrderID == orderID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) SaveHistory(_ context.Context, h entities.OrderHistory) error {
	f.history = append(f.history, h)
	return nil
}

func (f *fakeStore) ListHistoryByOrder(_ context.Context, orderID uuid.UUID) ([]entities.OrderHistory, error) {
	var out []entities.OrderHistory
	for _, h := range f.history {
		if h.OrderID == orderID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeStore) SaveNote(_ context.Context, n entities.OrderNote) error {
	f.notes[n.ID] = n
	return nil
}

func (f *fakeStore) GetNote(_ context.Context, noteID uuid.UUID) (entities.OrderNote, error) {
	n, ok := f.notes[noteID]
	if !ok {
		return entities.OrderNote{}, entities.ErrNoteNotFound
	}
	return n, nil
}

func (f *fakeStore) UpdateNote(_ context.Context, n entities.OrderNote) error {
	if _, ok := f.notes[n.ID]; !ok {
		return entities.ErrNoteNotFound
	}
	f.notes[n.ID] = n
	return nil
}

func (f *fakeStore) DeleteNote(_ context.Context, noteID uuid.UUID) error {
	if _, ok := f.notes[noteID]; !ok {
		return entities.ErrNoteNotFound
	}
	delete(f.notes, noteID)
	return nil
}

func (f *fakeStore) ListNotesByOrder(_ context.Context, orderID uuid.UUID) ([]entities.OrderNote, error) {
	var out []entities.OrderNote
	for _, n := range f.notes {
		if n.OrderID == orderID {
			out = append(out, n)
		}
	}
	return out, nil
}

type statusChange struct {
	orderID uuid.UUID
	from    entities.OrderStatus
	to      entities.OrderStatus
}

type releaseEvent struct {
	orderID uuid.UUID
	items   []events.ReleaseItem
}

type fakePublisher struct {
	statusChanges []statusChange
	releases      []releaseEvent
}

func (p *fakePublisher) OrderStatusChanged(_ context.Context, order entities.Order, old entities.OrderStatus) {
	p.statusChanges = append(p.statusChanges, statusChange{orderID: order.ID, from: old, to: order.Status})
}

func (p *fakePublisher) InventoryRelease(_ context.Context, orderID uuid.UUID, items []events.ReleaseItem) {
	p.releases = append(p.releases, releaseEvent{orderID: orderID, items: items})
}

type fakeGateway struct {
	calls  []string
	failOn map[string]error
}

func (g *fakeGateway) do(op string, req gateway.PaymentRequest) (gateway.PaymentResult, error) {
	g.calls = append(g.calls, op)
	if err := g.failOn[op]; err != nil {
		return gateway.PaymentResult{}, err
	}
	return gateway.PaymentResult{
		ExternalID: "ext-" + op + "-" + req.IdempotencyKey,
		Response:   `{"status":"ok"}`,
	}, nil
}

func (g *fakeGateway) Authorize(_ context.Context, req gateway.PaymentRequest) (gateway.PaymentResult, error) {
	return g.do("authorize", req)
}

func (g *fakeGateway) Capture(_ context.Context, req gateway.PaymentRequest) (gateway.PaymentResult, error) {
	return g.do("capture", req)
}

func (g *fakeGateway) Void(_ context.Context, req gateway.PaymentRequest) (gateway.PaymentResult, error) {
	return g.do("void", req)
}

func (g *fakeGateway) Refund(_ context.Context, req gateway.PaymentRequest) (gateway.PaymentResult, error) {
	return g.do("refund", req)
}

// fakeRates потокобезопасен: пересчёт налогов ходит за ставками из горутин.
type fakeRates struct {
	mu    sync.Mutex
	rates map[string]gateway.TaxRate
	err   error
	calls int
}

func (f *fakeRates) LookupRate(_ context.Context, _, country, taxability string) (gateway.TaxRate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return gateway.TaxRate{}, f.err
	}
	if r, ok := f.rates[taxability]; ok {
		return r, nil
	}
	return gateway.TaxRate{Name: "VAT", Rate: dec("0.20"), Jurisdiction: country}, nil
}

func testItem(variantID string, qty int, price string) entities.OrderLineItem {
	li := entities.OrderLineItem{
		ID:        uuid.New(),
		VariantID: variantID,
		Quantity:  qty,
		UnitPrice: dec(price),
	}
	li.Recalculate()
	return li
}

func testOrder(status entities.OrderStatus, payment entities.PaymentStatus, items ...entities.OrderLineItem) entities.Order {
	o := entities.Order{
		ID:                 uuid.New(),
		OrderNumber:        "ORD-20260101-TEST",
		CustomerID:         "cust-1",
		Currency:           "USD",
		Status:             status,
		PaymentStatus:      payment,
		ShippingCountry:    "US",
		ShippingPostalCode: "94107",
		Items:              items,
	}
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
		o.Subtotal = o.Subtotal.Add(o.Items[i].Subtotal)
		o.DiscountAmount = o.DiscountAmount.Add(o.Items[i].DiscountAmount)
		o.TaxAmount = o.TaxAmount.Add(o.Items[i].TaxAmount)
	}
	o.Recalculate()
	return o
}
