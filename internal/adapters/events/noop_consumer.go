package events

import (
	"context"

	"github.com/joaodurante/order-saga/internal/ports"
)

type NoopConsumer struct{}

func NewNoopConsumer() *NoopConsumer {
	return &NoopConsumer{}
}

func (n *NoopConsumer) Poll(_ context.Context, _ int) ([]ports.Message, error) {
	return nil, nil
}
