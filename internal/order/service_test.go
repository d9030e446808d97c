package order

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joaodurante/order-saga/internal/domain"
	"github.com/joaodurante/order-saga/internal/ports"
	"github.com/joaodurante/order-saga/internal/saga"
)

type fakeOrderRepo struct {
	orders []domain.Order
}

func (f *fakeOrderRepo) Create(_ context.Context, order domain.Order) error {
	f.orders = append(f.orders, order)
	return nil
}

type fakeEventRepo struct {
	events map[string]saga.Event
	saves  int
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: make(map[string]saga.Event)}
}

func (f *fakeEventRepo) Save(_ context.Context, event saga.Event) error {
	f.saves++
	f.events[event.ID] = event
	return nil
}

func (f *fakeEventRepo) FindLatestByOrderID(_ context.Context, orderID string) (saga.Event, error) {
	for _, e := range f.events {
		if e.OrderID == orderID {
			return e, nil
		}
	}
	return saga.Event{}, domain.ErrNotFound
}

func (f *fakeEventRepo) FindLatestByTransactionID(_ context.Context, transactionID string) (saga.Event, error) {
	for _, e := range f.events {
		if e.TransactionID == transactionID {
			return e, nil
		}
	}
	return saga.Event{}, domain.ErrNotFound
}

func (f *fakeEventRepo) FindAll(_ context.Context) ([]saga.Event, error) {
	all := make([]saga.Event, 0, len(f.events))
	for _, e := range f.events {
		all = append(all, e)
	}
	return all, nil
}

type fakeOutbox struct {
	staged []ports.OutboxEvent
}

func (f *fakeOutbox) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	f.staged = append(f.staged, event)
	return nil
}

func (f *fakeOutbox) FetchUnpublished(context.Context, int) ([]ports.OutboxRecord, error) {
	return nil, nil
}

func (f *fakeOutbox) MarkPublished(context.Context, uuid.UUID, time.Time) error { return nil }

func (f *fakeOutbox) MarkFailed(context.Context, uuid.UUID, string, time.Time) error { return nil }

type fakeCache struct {
	entries map[string]string
	deletes []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]string)}
}

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	return f.entries[key], nil
}

func (f *fakeCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	f.entries[key] = value
	return nil
}

func (f *fakeCache) Delete(_ context.Context, key string) error {
	f.deletes = append(f.deletes, key)
	delete(f.entries, key)
	return nil
}

type fixture struct {
	service *Service
	orders  *fakeOrderRepo
	events  *fakeEventRepo
	outbox  *fakeOutbox
	cache   *fakeCache
}

func newFixture() *fixture {
	orders := &fakeOrderRepo{}
	events := newFakeEventRepo()
	outbox := &fakeOutbox{}
	cache := newFakeCache()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{
		service: NewService(logger, orders, events, outbox, cache, time.Minute),
		orders:  orders,
		events:  events,
		outbox:  outbox,
		cache:   cache,
	}
}

func TestCreateOrderStagesStartSaga(t *testing.T) {
	t.Parallel()

	f := newFixture()
	event, err := f.service.CreateOrder(context.Background(), CreateOrderRequest{
		Products: []CreateOrderProduct{{Code: "BOOKS", UnitValue: 9.9, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if event.OrderID == "" || event.TransactionID == "" {
		t.Fatalf("event missing identity: %+v", event)
	}
	if !strings.Contains(event.TransactionID, "_") {
		t.Fatalf("transaction id must carry the millisecond prefix: %q", event.TransactionID)
	}
	if len(f.orders.orders) != 1 {
		t.Fatalf("order not persisted")
	}
	if f.events.saves != 1 {
		t.Fatalf("initial envelope not persisted")
	}
	if len(f.outbox.staged) != 1 {
		t.Fatalf("start saga not staged on the outbox")
	}
	staged := f.outbox.staged[0]
	if staged.Topic != saga.TopicStartSaga {
		t.Fatalf("staged topic %s, want %s", staged.Topic, saga.TopicStartSaga)
	}
	if staged.Key != event.OrderID {
		t.Fatalf("staged key %q, want order id", staged.Key)
	}
	back, err := saga.Unmarshal(staged.Payload)
	if err != nil {
		t.Fatalf("staged payload: %v", err)
	}
	if back.Payload.Products[0].Product.Code != "BOOKS" {
		t.Fatalf("staged payload lost products: %+v", back.Payload)
	}
}

func TestCreateOrderValidatesProducts(t *testing.T) {
	t.Parallel()

	f := newFixture()
	if _, err := f.service.CreateOrder(context.Background(), CreateOrderRequest{}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for empty products, got %v", err)
	}
	_, err := f.service.CreateOrder(context.Background(), CreateOrderRequest{
		Products: []CreateOrderProduct{{Code: "BOOKS", Quantity: 0}},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for zero quantity, got %v", err)
	}
	if len(f.outbox.staged) != 0 {
		t.Fatalf("rejected orders must not stage publications")
	}
}

func TestFindByFiltersPrefersOrderIDAndCaches(t *testing.T) {
	t.Parallel()

	f := newFixture()
	created, err := f.service.CreateOrder(context.Background(), CreateOrderRequest{
		Products: []CreateOrderProduct{{Code: "BOOKS", UnitValue: 9.9, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	found, err := f.service.FindByFilters(context.Background(), created.OrderID, "")
	if err != nil {
		t.Fatalf("find by order id: %v", err)
	}
	if found.ID != created.ID {
		t.Fatalf("found wrong event: %s", found.ID)
	}
	if len(f.cache.entries) != 1 {
		t.Fatalf("first read must populate the cache")
	}

	// Second read must come from the cache even if the store is emptied.
	f.events.events = map[string]saga.Event{}
	again, err := f.service.FindByFilters(context.Background(), created.OrderID, "")
	if err != nil {
		t.Fatalf("cached find: %v", err)
	}
	if again.ID != created.ID {
		t.Fatalf("cached read returned wrong event: %s", again.ID)
	}
}

func TestFindByFiltersByTransactionID(t *testing.T) {
	t.Parallel()

	f := newFixture()
	created, err := f.service.CreateOrder(context.Background(), CreateOrderRequest{
		Products: []CreateOrderProduct{{Code: "BOOKS", UnitValue: 9.9, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	found, err := f.service.FindByFilters(context.Background(), "", created.TransactionID)
	if err != nil {
		t.Fatalf("find by transaction id: %v", err)
	}
	if found.ID != created.ID {
		t.Fatalf("found wrong event: %s", found.ID)
	}
}

func TestFindByFiltersRequiresAFilter(t *testing.T) {
	t.Parallel()

	f := newFixture()
	if _, err := f.service.FindByFilters(context.Background(), "", ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNotifyEndingSavesAndInvalidatesCache(t *testing.T) {
	t.Parallel()

	f := newFixture()
	event := saga.NewEvent(saga.Order{ID: "order-1", TransactionID: "tx-1"}, time.Now().UTC())
	event.Record(saga.SourceOrchestrator, saga.StatusSuccess, "Saga finished successfully.", time.Now().UTC())

	raw, err := saga.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := f.service.HandleNotifyEnding(context.Background(), raw); err != nil {
		t.Fatalf("notify ending: %v", err)
	}
	if f.events.saves != 1 {
		t.Fatalf("terminal envelope not persisted")
	}
	if len(f.cache.deletes) != 1 || !strings.HasSuffix(f.cache.deletes[0], "order-1") {
		t.Fatalf("cache entry not invalidated: %v", f.cache.deletes)
	}
}
