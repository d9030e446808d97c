// Package order is the saga's client-facing edge: it creates orders, starts
// the saga through a transactional outbox, stores every envelope version it
// sees and answers history queries by order or transaction.
package order

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/joaodurante/order-saga/internal/domain"
	"github.com/joaodurante/order-saga/internal/ports"
	"github.com/joaodurante/order-saga/internal/saga"
)

type Service struct {
	logger   *slog.Logger
	orders   ports.OrderRepository
	events   ports.EventRepository
	outbox   ports.OutboxRepository
	cache    ports.Cache
	cacheTTL time.Duration
	nowFn    func() time.Time
}

func NewService(logger *slog.Logger, orders ports.OrderRepository, events ports.EventRepository, outbox ports.OutboxRepository, cache ports.Cache, cacheTTL time.Duration) *Service {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Service{
		logger:   logger,
		orders:   orders,
		events:   events,
		outbox:   outbox,
		cache:    cache,
		cacheTTL: cacheTTL,
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}

type CreateOrderProduct struct {
	Code      string  `json:"code"`
	UnitValue float64 `json:"unitValue"`
	Quantity  int     `json:"quantity"`
}

type CreateOrderRequest struct {
	Products []CreateOrderProduct `json:"products"`
}

// CreateOrder persists the order, builds the initial envelope with a fresh
// transaction id and stages the start-saga publication on the outbox.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (saga.Event, error) {
	if len(req.Products) == 0 {
		return saga.Event{}, fmt.Errorf("%w: products must be informed", domain.ErrValidation)
	}
	for _, p := range req.Products {
		if p.Code == "" || p.Quantity <= 0 {
			return saga.Event{}, fmt.Errorf("%w: every product needs a code and a positive quantity", domain.ErrValidation)
		}
	}

	now := s.nowFn()
	payload := saga.Order{
		ID:            uuid.NewString(),
		TransactionID: fmt.Sprintf("%d_%s", now.UnixMilli(), uuid.NewString()),
		CreatedAt:     now,
	}
	for _, p := range req.Products {
		payload.Products = append(payload.Products, saga.OrderProduct{
			Product:  saga.Product{Code: p.Code, UnitValue: p.UnitValue},
			Quantity: p.Quantity,
		})
	}

	if err := s.orders.Create(ctx, domain.Order{
		ID:            payload.ID,
		TransactionID: payload.TransactionID,
		CreatedAt:     now,
	}); err != nil {
		return saga.Event{}, fmt.Errorf("create order: %w", err)
	}

	event := saga.NewEvent(payload, now)
	if err := s.events.Save(ctx, event); err != nil {
		return saga.Event{}, fmt.Errorf("save event: %w", err)
	}

	raw, err := saga.Marshal(event)
	if err != nil {
		return saga.Event{}, err
	}
	if err := s.outbox.Enqueue(ctx, ports.OutboxEvent{
		EventID:    uuid.New(),
		Topic:      saga.TopicStartSaga,
		Key:        event.OrderID,
		Payload:    raw,
		OccurredAt: now,
	}); err != nil {
		return saga.Event{}, fmt.Errorf("enqueue start saga: %w", err)
	}

	s.logger.InfoContext(ctx, "order created",
		"order_id", event.OrderID,
		"transaction_id", event.TransactionID,
		"event_id", event.ID,
	)
	return event, nil
}

// FindByFilters returns the most recent envelope matching the order id or,
// failing that, the transaction id. The order id path reads through the cache.
func (s *Service) FindByFilters(ctx context.Context, orderID, transactionID string) (saga.Event, error) {
	if orderID == "" && transactionID == "" {
		return saga.Event{}, fmt.Errorf("%w: order id or transaction id must be informed", domain.ErrValidation)
	}
	if orderID != "" {
		return s.findByOrderID(ctx, orderID)
	}
	event, err := s.events.FindLatestByTransactionID(ctx, transactionID)
	if err != nil {
		return saga.Event{}, fmt.Errorf("event by transaction %s: %w", transactionID, err)
	}
	return event, nil
}

func (s *Service) findByOrderID(ctx context.Context, orderID string) (saga.Event, error) {
	key := cacheKey(orderID)
	if cached, err := s.cache.Get(ctx, key); err == nil && cached != "" {
		if event, err := saga.Unmarshal([]byte(cached)); err == nil {
			return event, nil
		}
	}
	event, err := s.events.FindLatestByOrderID(ctx, orderID)
	if err != nil {
		return saga.Event{}, fmt.Errorf("event by order %s: %w", orderID, err)
	}
	if raw, err := saga.Marshal(event); err == nil {
		if err := s.cache.Set(ctx, key, string(raw), s.cacheTTL); err != nil {
			s.logger.WarnContext(ctx, "event cache write failed", "order_id", orderID, "error", err)
		}
	}
	return event, nil
}

// FindAll returns every stored envelope, newest first.
func (s *Service) FindAll(ctx context.Context) ([]saga.Event, error) {
	return s.events.FindAll(ctx)
}

// NotifyEnding persists the terminal envelope, refreshing the payload
// timestamp, and drops the stale cache entry for the order.
func (s *Service) NotifyEnding(ctx context.Context, event saga.Event) error {
	event.Payload.CreatedAt = s.nowFn()
	if err := s.events.Save(ctx, event); err != nil {
		return fmt.Errorf("save ending event: %w", err)
	}
	if err := s.cache.Delete(ctx, cacheKey(event.OrderID)); err != nil {
		s.logger.WarnContext(ctx, "event cache invalidation failed", "order_id", event.OrderID, "error", err)
	}
	s.logger.InfoContext(ctx, "saga notified",
		"order_id", event.OrderID,
		"transaction_id", event.TransactionID,
		"status", event.Status,
	)
	return nil
}

// HandleNotifyEnding adapts NotifyEnding to a raw bus payload.
func (s *Service) HandleNotifyEnding(ctx context.Context, payload []byte) error {
	event, err := saga.Unmarshal(payload)
	if err != nil {
		return err
	}
	return s.NotifyEnding(ctx, event)
}

func cacheKey(orderID string) string {
	return "order-saga:events:" + orderID
}
