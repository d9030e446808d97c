package orchestrator_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joaodurante/order-saga/internal/domain"
	"github.com/joaodurante/order-saga/internal/inventory"
	"github.com/joaodurante/order-saga/internal/orchestrator"
	"github.com/joaodurante/order-saga/internal/participant"
	"github.com/joaodurante/order-saga/internal/payment"
	"github.com/joaodurante/order-saga/internal/productvalidation"
	"github.com/joaodurante/order-saga/internal/saga"
)

// memBus queues publications and pumps them through topic handlers, standing
// in for the broker so a whole saga can run inside one test.
type memBus struct {
	queue    []busMessage
	handlers map[string]func(ctx context.Context, payload []byte) error
	final    *saga.Event
}

type busMessage struct {
	topic   string
	payload []byte
}

func (b *memBus) Publish(_ context.Context, topic string, payload []byte, _ string) error {
	b.queue = append(b.queue, busMessage{topic: topic, payload: payload})
	return nil
}

func (b *memBus) pump(ctx context.Context, t *testing.T) {
	t.Helper()
	for steps := 0; len(b.queue) > 0; steps++ {
		if steps > 50 {
			t.Fatalf("saga did not terminate")
		}
		msg := b.queue[0]
		b.queue = b.queue[1:]
		if msg.topic == saga.TopicNotifyEnding {
			event, err := saga.Unmarshal(msg.payload)
			if err != nil {
				t.Fatalf("unmarshal final event: %v", err)
			}
			b.final = &event
			continue
		}
		handler, ok := b.handlers[msg.topic]
		if !ok {
			t.Fatalf("no handler for topic %s", msg.topic)
		}
		if err := handler(ctx, msg.payload); err != nil {
			t.Fatalf("handle %s: %v", msg.topic, err)
		}
	}
}

type memInventoryStore struct {
	stock  map[string]int
	ledger map[string][]domain.OrderInventory
}

func ledgerKey(orderID, transactionID string) string {
	return orderID + "|" + transactionID
}

func (m *memInventoryStore) FindByProductCode(_ context.Context, code string) (domain.Inventory, error) {
	qty, ok := m.stock[code]
	if !ok {
		return domain.Inventory{}, domain.ErrNotFound
	}
	return domain.Inventory{ProductCode: code, AvailableQuantity: qty}, nil
}

func (m *memInventoryStore) ExistsReservation(_ context.Context, orderID, transactionID string) (bool, error) {
	_, ok := m.ledger[ledgerKey(orderID, transactionID)]
	return ok, nil
}

func (m *memInventoryStore) Reserve(_ context.Context, reservations []domain.OrderInventory) error {
	if len(reservations) == 0 {
		return nil
	}
	k := ledgerKey(reservations[0].OrderID, reservations[0].TransactionID)
	if _, ok := m.ledger[k]; ok {
		return domain.ErrDuplicateTransaction
	}
	m.ledger[k] = reservations
	for _, r := range reservations {
		m.stock[r.ProductCode] = r.NewQuantity
	}
	return nil
}

func (m *memInventoryStore) Revert(_ context.Context, orderID, transactionID string) ([]domain.OrderInventory, error) {
	rows := m.ledger[ledgerKey(orderID, transactionID)]
	reverted := make([]domain.OrderInventory, 0, len(rows))
	for _, r := range rows {
		if r.Reverted {
			continue
		}
		m.stock[r.ProductCode] = r.OldQuantity
		r.Reverted = true
		reverted = append(reverted, r)
	}
	m.ledger[ledgerKey(orderID, transactionID)] = rows
	return reverted, nil
}

type memPaymentStore struct {
	payments map[string]domain.Payment
}

func (m *memPaymentStore) Exists(_ context.Context, orderID, transactionID string) (bool, error) {
	_, ok := m.payments[ledgerKey(orderID, transactionID)]
	return ok, nil
}

func (m *memPaymentStore) Create(_ context.Context, p domain.Payment) error {
	k := ledgerKey(p.OrderID, p.TransactionID)
	if _, ok := m.payments[k]; ok {
		return domain.ErrDuplicateTransaction
	}
	m.payments[k] = p
	return nil
}

func (m *memPaymentStore) FindByOrderAndTransaction(_ context.Context, orderID, transactionID string) (domain.Payment, error) {
	p, ok := m.payments[ledgerKey(orderID, transactionID)]
	if !ok {
		return domain.Payment{}, domain.ErrNotFound
	}
	return p, nil
}

func (m *memPaymentStore) UpdateStatus(_ context.Context, orderID, transactionID string, status domain.PaymentStatus) error {
	k := ledgerKey(orderID, transactionID)
	p, ok := m.payments[k]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = status
	m.payments[k] = p
	return nil
}

type memValidationStore struct {
	catalog     map[string]bool
	validations map[string]domain.Validation
}

func (m *memValidationStore) ProductExists(_ context.Context, code string) (bool, error) {
	return m.catalog[code], nil
}

func (m *memValidationStore) ExistsValidation(_ context.Context, orderID, transactionID string) (bool, error) {
	_, ok := m.validations[ledgerKey(orderID, transactionID)]
	return ok, nil
}

func (m *memValidationStore) Save(_ context.Context, v domain.Validation) error {
	m.validations[ledgerKey(v.OrderID, v.TransactionID)] = v
	return nil
}

func (m *memValidationStore) FindByOrderAndTransaction(_ context.Context, orderID, transactionID string) (domain.Validation, error) {
	v, ok := m.validations[ledgerKey(orderID, transactionID)]
	if !ok {
		return domain.Validation{}, domain.ErrNotFound
	}
	return v, nil
}

type sagaWorld struct {
	bus         *memBus
	inventories *memInventoryStore
	payments    *memPaymentStore
	validations *memValidationStore
}

func newSagaWorld(t *testing.T) *sagaWorld {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := &memBus{handlers: make(map[string]func(ctx context.Context, payload []byte) error)}

	routing, err := saga.NewRoutingTable(saga.DefaultRules())
	if err != nil {
		t.Fatalf("build routing table: %v", err)
	}
	orch := orchestrator.NewService(logger, routing, bus)

	inventories := &memInventoryStore{
		stock:  map[string]int{"BOOKS": 5, "MOVIES": 3},
		ledger: make(map[string][]domain.OrderInventory),
	}
	payments := &memPaymentStore{payments: make(map[string]domain.Payment)}
	validations := &memValidationStore{
		catalog:     map[string]bool{"BOOKS": true, "MOVIES": true},
		validations: make(map[string]domain.Validation),
	}

	invSvc := inventory.NewService(logger, inventories)
	invPart := participant.New(logger, participant.Config{
		Source:          saga.SourceInventory,
		SuccessMessage:  "Inventory updated successfully.",
		FailureMessage:  "Fail to update inventory.",
		RollbackMessage: "Rollback executed for inventory.",
	}, invSvc, invSvc, bus)

	paySvc := payment.NewService(logger, payments)
	payPart := participant.New(logger, participant.Config{
		Source:          saga.SourcePayment,
		SuccessMessage:  "Payment realized successfully.",
		FailureMessage:  "Fail to realize payment.",
		RollbackMessage: "Refund realized successfully.",
	}, paySvc, paySvc, bus)

	valSvc := productvalidation.NewService(logger, validations)
	valPart := participant.New(logger, participant.Config{
		Source:          saga.SourceProductValidation,
		SuccessMessage:  "Products validated successfully.",
		FailureMessage:  "Fail to validate products.",
		RollbackMessage: "Rollback executed on product validation.",
	}, valSvc, valSvc, bus)

	bus.handlers[saga.TopicStartSaga] = orch.HandleStartSaga
	bus.handlers[saga.TopicOrchestrator] = orch.HandleContinueSaga
	bus.handlers[saga.TopicFinishSuccess] = orch.HandleFinishSuccess
	bus.handlers[saga.TopicFinishFail] = orch.HandleFinishFail
	bus.handlers[saga.TopicProductValidationOK] = valPart.HandleProcess
	bus.handlers[saga.TopicProductValidationFail] = valPart.HandleRollback
	bus.handlers[saga.TopicPaymentOK] = payPart.HandleProcess
	bus.handlers[saga.TopicPaymentFail] = payPart.HandleRollback
	bus.handlers[saga.TopicInventoryOK] = invPart.HandleProcess
	bus.handlers[saga.TopicInventoryFail] = invPart.HandleRollback

	return &sagaWorld{bus: bus, inventories: inventories, payments: payments, validations: validations}
}

func (w *sagaWorld) start(t *testing.T, event saga.Event) saga.Event {
	t.Helper()
	raw, err := saga.Marshal(event)
	if err != nil {
		t.Fatalf("marshal start event: %v", err)
	}
	_ = w.bus.Publish(context.Background(), saga.TopicStartSaga, raw, event.OrderID)
	w.bus.final = nil
	w.bus.pump(context.Background(), t)
	if w.bus.final == nil {
		t.Fatalf("saga never reached %s", saga.TopicNotifyEnding)
	}
	return *w.bus.final
}

func newStartEvent(lines ...saga.OrderProduct) saga.Event {
	now := time.Now().UTC()
	order := saga.Order{
		ID:            uuid.NewString(),
		TransactionID: uuid.NewString(),
		Products:      lines,
		CreatedAt:     now,
	}
	return saga.NewEvent(order, now)
}

func historySources(event saga.Event) []saga.Source {
	sources := make([]saga.Source, 0, len(event.History))
	for _, h := range event.History {
		sources = append(sources, h.Source)
	}
	return sources
}

func TestSagaHappyPath(t *testing.T) {
	t.Parallel()

	world := newSagaWorld(t)
	final := world.start(t, newStartEvent(
		saga.OrderProduct{Product: saga.Product{Code: "BOOKS", UnitValue: 9.9}, Quantity: 2},
	))

	if final.Status != saga.StatusSuccess {
		t.Fatalf("got final status %s, want %s", final.Status, saga.StatusSuccess)
	}
	want := []saga.Source{
		saga.SourceOrchestrator,
		saga.SourceProductValidation,
		saga.SourcePayment,
		saga.SourceInventory,
		saga.SourceOrchestrator,
	}
	got := historySources(final)
	if len(got) != len(want) {
		t.Fatalf("history sources %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("history sources %v, want %v", got, want)
		}
	}
	if final.Payload.TotalAmount != 19.8 || final.Payload.TotalItems != 2 {
		t.Fatalf("payment totals missing from payload: %+v", final.Payload)
	}
	if world.inventories.stock["BOOKS"] != 3 {
		t.Fatalf("stock not reserved: %d", world.inventories.stock["BOOKS"])
	}
	p, err := world.payments.FindByOrderAndTransaction(context.Background(), final.OrderID, final.TransactionID)
	if err != nil {
		t.Fatalf("find payment: %v", err)
	}
	if p.Status != domain.PaymentSuccess {
		t.Fatalf("payment status %s, want %s", p.Status, domain.PaymentSuccess)
	}
}

func TestSagaRollsBackWhenInventoryRejects(t *testing.T) {
	t.Parallel()

	world := newSagaWorld(t)
	final := world.start(t, newStartEvent(
		saga.OrderProduct{Product: saga.Product{Code: "MOVIES", UnitValue: 19.9}, Quantity: 10},
	))

	if final.Status != saga.StatusFail {
		t.Fatalf("got final status %s, want %s", final.Status, saga.StatusFail)
	}
	if world.inventories.stock["MOVIES"] != 3 {
		t.Fatalf("stock must stay untouched after rollback: %d", world.inventories.stock["MOVIES"])
	}
	p, err := world.payments.FindByOrderAndTransaction(context.Background(), final.OrderID, final.TransactionID)
	if err != nil {
		t.Fatalf("find payment: %v", err)
	}
	if p.Status != domain.PaymentRefund {
		t.Fatalf("payment status %s, want %s", p.Status, domain.PaymentRefund)
	}
	v, err := world.validations.FindByOrderAndTransaction(context.Background(), final.OrderID, final.TransactionID)
	if err != nil {
		t.Fatalf("find validation: %v", err)
	}
	if v.Success {
		t.Fatalf("validation must be reverted to unsuccessful")
	}

	sawRollbackPending := false
	for _, h := range final.History {
		if h.Source == saga.SourceInventory && h.Status == saga.StatusRollbackPending {
			sawRollbackPending = true
		}
	}
	if !sawRollbackPending {
		t.Fatalf("history must show the inventory rejection: %+v", final.History)
	}
}

func TestSagaRedeliveryDoesNotDoubleApply(t *testing.T) {
	t.Parallel()

	world := newSagaWorld(t)
	start := newStartEvent(
		saga.OrderProduct{Product: saga.Product{Code: "BOOKS", UnitValue: 9.9}, Quantity: 2},
	)

	first := world.start(t, start)
	if first.Status != saga.StatusSuccess {
		t.Fatalf("first delivery should succeed, got %s", first.Status)
	}

	second := world.start(t, start)
	if second.Status != saga.StatusFail {
		t.Fatalf("redelivery must terminate as a failed saga, got %s", second.Status)
	}
	if world.inventories.stock["BOOKS"] != 3 {
		t.Fatalf("redelivery must not reserve twice: %d", world.inventories.stock["BOOKS"])
	}
	p, err := world.payments.FindByOrderAndTransaction(context.Background(), start.OrderID, start.TransactionID)
	if err != nil {
		t.Fatalf("find payment: %v", err)
	}
	if p.Status != domain.PaymentSuccess {
		t.Fatalf("redelivery must not touch the settled payment, got %s", p.Status)
	}
}
