package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventPublisher sends one serialized envelope to a topic. Key is the
// partitioning key; every saga message is keyed by order ID so all hops of
// one transaction stay ordered on a single partition.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, payload []byte, key string) error
}

// Message is one consumed bus record.
type Message struct {
	Topic   string
	Payload []byte
}

// Consumer polls subscribed topics for up to max messages.
type Consumer interface {
	Poll(ctx context.Context, max int) ([]Message, error)
}

// OutboxEvent is a publication staged alongside a business write and drained
// asynchronously by the outbox worker.
type OutboxEvent struct {
	EventID    uuid.UUID
	Topic      string
	Key        string
	Payload    []byte
	OccurredAt time.Time
}

// OutboxRecord is a staged publication as read back by the worker.
type OutboxRecord struct {
	OutboxID    uuid.UUID
	Topic       string
	Key         string
	Payload     []byte
	RetryCount  int
	PublishedAt *time.Time
	LastError   *string
	LastErrorAt *time.Time
	CreatedAt   time.Time
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	FetchUnpublished(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, errMsg string, at time.Time) error
}
