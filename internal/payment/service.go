// Package payment creates the payment for an order, filling the computed
// totals back into the envelope payload. Compensation marks the payment
// refunded; the ledger row itself stays for the audit trail.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/joaodurante/order-saga/internal/domain"
	"github.com/joaodurante/order-saga/internal/ports"
	"github.com/joaodurante/order-saga/internal/saga"
)

// Orders below this total are rejected.
const minimumAmount = 0.1

type Service struct {
	logger *slog.Logger
	store  ports.PaymentStore
	nowFn  func() time.Time
}

func NewService(logger *slog.Logger, store ports.PaymentStore) *Service {
	return &Service{
		logger: logger,
		store:  store,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// Exists implements the participant guard over the payment ledger.
func (s *Service) Exists(ctx context.Context, orderID, transactionID string) (bool, error) {
	return s.store.Exists(ctx, orderID, transactionID)
}

// Act computes the order totals, persists the payment and writes the totals
// back into the payload for the steps downstream.
func (s *Service) Act(ctx context.Context, event *saga.Event) error {
	totalItems := 0
	totalAmount := 0.0
	for _, line := range event.Payload.Products {
		totalItems += line.Quantity
		totalAmount += float64(line.Quantity) * line.Product.UnitValue
	}

	now := s.nowFn()
	record := domain.Payment{
		ID:            uuid.NewString(),
		OrderID:       event.OrderID,
		TransactionID: event.TransactionID,
		TotalAmount:   totalAmount,
		TotalItems:    totalItems,
		Status:        domain.PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Create(ctx, record); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	event.Payload.TotalAmount = totalAmount
	event.Payload.TotalItems = totalItems

	if totalAmount < minimumAmount {
		return fmt.Errorf("%w: total amount must be at least %.2f", domain.ErrBusinessRule, minimumAmount)
	}
	if err := s.store.UpdateStatus(ctx, event.OrderID, event.TransactionID, domain.PaymentSuccess); err != nil {
		return fmt.Errorf("confirm payment: %w", err)
	}
	return nil
}

// Reverse marks the payment refunded. A transaction that never created a
// payment has nothing to refund and succeeds as a no-op.
func (s *Service) Reverse(ctx context.Context, event *saga.Event) error {
	err := s.store.UpdateStatus(ctx, event.OrderID, event.TransactionID, domain.PaymentRefund)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("refund payment: %w", err)
	}
	s.logger.InfoContext(ctx, "payment refunded",
		"order_id", event.OrderID,
		"transaction_id", event.TransactionID,
	)
	return nil
}
