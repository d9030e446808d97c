// Package inventory reserves stock for an order and can hand it back. The
// order-inventory ledger keeps the before and after quantity of every line,
// which is both the idempotency key and the data compensation restores from.
package inventory

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
	logger *slog.Logger
	store  ports.InventoryStore
	nowFn  func() time.Time
}

func NewService(logger *slog.Logger, store ports.InventoryStore) *Service {
	return &Service{
		logger: logger,
		store:  store,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// Exists implements the participant guard over the reservation ledger.
func (s *Service) Exists(ctx context.Context, orderID, transactionID string) (bool, error) {
	return s.store.ExistsReservation(ctx, orderID, transactionID)
}

// Act reserves stock for every product line. The ledger rows and the
// quantity updates land in a single store transaction.
func (s *Service) Act(ctx context.Context, event *saga.Event) error {
	if len(event.Payload.Products) == 0 {
		return fmt.Errorf("%w: the product list is empty", domain.ErrValidation)
	}

	now := s.nowFn()
	reservations := make([]domain.OrderInventory, 0, len(event.Payload.Products))
	for _, line := range event.Payload.Products {
		stock, err := s.store.FindByProductCode(ctx, line.Product.Code)
		if err != nil {
			return fmt.Errorf("find inventory for product %s: %w", line.Product.Code, err)
		}
		if stock.AvailableQuantity < line.Quantity {
			return fmt.Errorf("%w: product %s is out of stock", domain.ErrBusinessRule, line.Product.Code)
		}
		reservations = append(reservations, domain.OrderInventory{
			ID:            uuid.NewString(),
			OrderID:       event.OrderID,
			TransactionID: event.TransactionID,
			ProductCode:   line.Product.Code,
			OrderQuantity: line.Quantity,
			OldQuantity:   stock.AvailableQuantity,
			NewQuantity:   stock.AvailableQuantity - line.Quantity,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}
	if err := s.store.Reserve(ctx, reservations); err != nil {
		return fmt.Errorf("reserve inventory: %w", err)
	}
	return nil
}

// Reverse restores the quantities the ledger recorded before reservation.
// A transaction with no ledger rows reverts nothing and still succeeds.
func (s *Service) Reverse(ctx context.Context, event *saga.Event) error {
	reverted, err := s.store.Revert(ctx, event.OrderID, event.TransactionID)
	if err != nil {
		return fmt.Errorf("revert inventory: %w", err)
	}
	for _, row := range reverted {
		s.logger.InfoContext(ctx, "inventory restored",
			"order_id", row.OrderID,
			"product_code", row.ProductCode,
			"from", row.NewQuantity,
			"to", row.OldQuantity,
		)
	}
	return nil
}
