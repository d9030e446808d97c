// Package orchestrator routes saga envelopes. It owns the routing table and
// the saga's start and finish transitions; it never touches the payload or
// any participant ledger.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joaodurante/order-saga/internal/ports"
	"github.com/joaodurante/order-saga/internal/saga"
)

type Service struct {
	logger    *slog.Logger
	routing   *saga.RoutingTable
	publisher ports.EventPublisher
	nowFn     func() time.Time
}

func NewService(logger *slog.Logger, routing *saga.RoutingTable, publisher ports.EventPublisher) *Service {
	return &Service{
		logger:    logger,
		routing:   routing,
		publisher: publisher,
		nowFn:     func() time.Time { return time.Now().UTC() },
	}
}

// StartSaga stamps the orchestrator as the first source, opens the history
// trail and publishes to the first participant topic.
func (s *Service) StartSaga(ctx context.Context, event saga.Event) error {
	event.Record(saga.SourceOrchestrator, saga.StatusSuccess, "Saga started.", s.nowFn())
	topic, err := s.routing.NextTopic(event)
	if err != nil {
		return err
	}
	s.logSaga(ctx, event, topic, "saga started")
	return s.publish(ctx, topic, event)
}

// ContinueSaga republishes an intermediate hop as received; the participant
// already stamped its own outcome.
func (s *Service) ContinueSaga(ctx context.Context, event saga.Event) error {
	topic, err := s.routing.NextTopic(event)
	if err != nil {
		return err
	}
	s.logSaga(ctx, event, topic, "saga continuing")
	return s.publish(ctx, topic, event)
}

// FinishSagaSuccess closes the trail and publishes to the terminal
// notification topic, which is not part of the routing table.
func (s *Service) FinishSagaSuccess(ctx context.Context, event saga.Event) error {
	event.Record(saga.SourceOrchestrator, saga.StatusSuccess, "Saga finished successfully.", s.nowFn())
	s.logSaga(ctx, event, saga.TopicNotifyEnding, "saga finished successfully")
	return s.publish(ctx, saga.TopicNotifyEnding, event)
}

// FinishSagaFail closes the trail with the terminal failure status.
func (s *Service) FinishSagaFail(ctx context.Context, event saga.Event) error {
	event.Record(saga.SourceOrchestrator, saga.StatusFail, "Saga finished unsuccessfully.", s.nowFn())
	s.logSaga(ctx, event, saga.TopicNotifyEnding, "saga finished unsuccessfully")
	return s.publish(ctx, saga.TopicNotifyEnding, event)
}

// HandleStartSaga adapts StartSaga to a raw bus payload.
func (s *Service) HandleStartSaga(ctx context.Context, payload []byte) error {
	event, err := saga.Unmarshal(payload)
	if err != nil {
		return err
	}
	return s.StartSaga(ctx, event)
}

// HandleContinueSaga adapts ContinueSaga to a raw bus payload.
func (s *Service) HandleContinueSaga(ctx context.Context, payload []byte) error {
	event, err := saga.Unmarshal(payload)
	if err != nil {
		return err
	}
	return s.ContinueSaga(ctx, event)
}

// HandleFinishSuccess adapts FinishSagaSuccess to a raw bus payload.
func (s *Service) HandleFinishSuccess(ctx context.Context, payload []byte) error {
	event, err := saga.Unmarshal(payload)
	if err != nil {
		return err
	}
	return s.FinishSagaSuccess(ctx, event)
}

// HandleFinishFail adapts FinishSagaFail to a raw bus payload.
func (s *Service) HandleFinishFail(ctx context.Context, payload []byte) error {
	event, err := saga.Unmarshal(payload)
	if err != nil {
		return err
	}
	return s.FinishSagaFail(ctx, event)
}

func (s *Service) publish(ctx context.Context, topic string, event saga.Event) error {
	raw, err := saga.Marshal(event)
	if err != nil {
		return err
	}
	if err := s.publisher.Publish(ctx, topic, raw, event.OrderID); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (s *Service) logSaga(ctx context.Context, event saga.Event, topic, message string) {
	s.logger.InfoContext(ctx, message,
		"source", event.Source,
		"status", event.Status,
		"next_topic", topic,
		"order_id", event.OrderID,
		"transaction_id", event.TransactionID,
		"event_id", event.ID,
	)
}
