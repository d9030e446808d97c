package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/joaodurante/order-saga/internal/ports"
)

// HandlerFunc processes one raw envelope consumed from a topic.
type HandlerFunc func(ctx context.Context, payload []byte) error

// ConsumerWorker polls the bus and dispatches each message to the handler
// registered for its topic. Handler errors are logged and the message is
// still consumed; the saga communicates failure through envelopes, not
// through the bus.
type ConsumerWorker struct {
	logger   *slog.Logger
	consumer ports.Consumer
	handlers map[string]HandlerFunc
	interval time.Duration
}

func NewConsumerWorker(logger *slog.Logger, consumer ports.Consumer, handlers map[string]HandlerFunc, interval time.Duration) *ConsumerWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &ConsumerWorker{
		logger:   logger,
		consumer: consumer,
		handlers: handlers,
		interval: interval,
	}
}

func (w *ConsumerWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.processOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "consumer iteration failed",
				"module", "events.consumer_worker",
				"operation", "process_once",
				"outcome", "failure",
				"error", err,
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *ConsumerWorker) processOnce(ctx context.Context) error {
	msgs, err := w.consumer.Poll(ctx, 50)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		handler, ok := w.handlers[msg.Topic]
		if !ok {
			w.logger.WarnContext(ctx, "message on unhandled topic", "topic", msg.Topic)
			continue
		}
		if err := handler(ctx, msg.Payload); err != nil {
			w.logger.WarnContext(ctx, "message handling failed", "topic", msg.Topic, "error", err)
		}
	}
	return nil
}
