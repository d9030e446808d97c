// Package productvalidation checks that every product on the order exists in
// the catalog. Its ledger is a success flag; compensation flips it to false,
// creating the record first when the forward step never got that far.
package productvalidation

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

type Service struct {
	logger *slog.Logger
	store  ports.ValidationStore
	nowFn  func() time.Time
}

func NewService(logger *slog.Logger, store ports.ValidationStore) *Service {
	return &Service{
		logger: logger,
		store:  store,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// Exists implements the participant guard over the validation ledger.
func (s *Service) Exists(ctx context.Context, orderID, transactionID string) (bool, error) {
	return s.store.ExistsValidation(ctx, orderID, transactionID)
}

// Act validates the product list against the catalog and records the
// successful validation.
func (s *Service) Act(ctx context.Context, event *saga.Event) error {
	if len(event.Payload.Products) == 0 {
		return fmt.Errorf("%w: the product list is empty", domain.ErrValidation)
	}
	for _, line := range event.Payload.Products {
		if line.Product.Code == "" {
			return fmt.Errorf("%w: product code must be informed", domain.ErrValidation)
		}
		exists, err := s.store.ProductExists(ctx, line.Product.Code)
		if err != nil {
			return fmt.Errorf("check product %s: %w", line.Product.Code, err)
		}
		if !exists {
			return fmt.Errorf("%w: product %s does not exist", domain.ErrBusinessRule, line.Product.Code)
		}
	}
	now := s.nowFn()
	return s.store.Save(ctx, domain.Validation{
		ID:            uuid.NewString(),
		OrderID:       event.OrderID,
		TransactionID: event.TransactionID,
		Success:       true,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}

// Reverse flips the validation record to unsuccessful, creating it when the
// forward step never wrote one.
func (s *Service) Reverse(ctx context.Context, event *saga.Event) error {
	now := s.nowFn()
	existing, err := s.store.FindByOrderAndTransaction(ctx, event.OrderID, event.TransactionID)
	if errors.Is(err, domain.ErrNotFound) {
		return s.store.Save(ctx, domain.Validation{
			ID:            uuid.NewString(),
			OrderID:       event.OrderID,
			TransactionID: event.TransactionID,
			Success:       false,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}
	if err != nil {
		return fmt.Errorf("find validation: %w", err)
	}
	existing.Success = false
	existing.UpdatedAt = now
	if err := s.store.Save(ctx, existing); err != nil {
		return fmt.Errorf("update validation: %w", err)
	}
	s.logger.InfoContext(ctx, "validation reverted",
		"order_id", event.OrderID,
		"transaction_id", event.TransactionID,
	)
	return nil
}
