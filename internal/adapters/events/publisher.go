package events

import (
	"context"
	"log/slog"
)

// LoggingPublisher stands in for Kafka when no brokers are configured, so a
// service still starts in local setups.
type LoggingPublisher struct {
	logger *slog.Logger
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) Publish(ctx context.Context, topic string, payload []byte, key string) error {
	p.logger.InfoContext(ctx, "event published",
		"module", "events.publisher",
		"operation", "publish",
		"outcome", "success",
		"topic", topic,
		"key", key,
		"payload_bytes", len(payload),
	)
	return nil
}
