package ports

import (
	"context"

	"github.com/joaodurante/order-saga/internal/domain"
	"github.com/joaodurante/order-saga/internal/saga"
)

// InventoryStore owns product stock and the order-inventory ledger. Reserve
// and Revert run the ledger write and the stock mutation in one transaction:
// a crash between them can never leave one without the other.
type InventoryStore interface {
	FindByProductCode(ctx context.Context, code string) (domain.Inventory, error)
	ExistsReservation(ctx context.Context, orderID, transactionID string) (bool, error)
	// Reserve inserts the ledger rows and applies the new quantities
	// atomically. A redelivered reservation hits the ledger's unique key and
	// returns domain.ErrDuplicateTransaction.
	Reserve(ctx context.Context, reservations []domain.OrderInventory) error
	// Revert restores the old quantities recorded by the ledger rows of one
	// transaction and marks them reverted. Missing rows revert nothing.
	Revert(ctx context.Context, orderID, transactionID string) ([]domain.OrderInventory, error)
}

// PaymentStore owns the payment ledger.
type PaymentStore interface {
	Exists(ctx context.Context, orderID, transactionID string) (bool, error)
	Create(ctx context.Context, payment domain.Payment) error
	FindByOrderAndTransaction(ctx context.Context, orderID, transactionID string) (domain.Payment, error)
	UpdateStatus(ctx context.Context, orderID, transactionID string, status domain.PaymentStatus) error
}

// ValidationStore owns the product catalog checks and the validation ledger.
type ValidationStore interface {
	ProductExists(ctx context.Context, code string) (bool, error)
	ExistsValidation(ctx context.Context, orderID, transactionID string) (bool, error)
	Save(ctx context.Context, validation domain.Validation) error
	FindByOrderAndTransaction(ctx context.Context, orderID, transactionID string) (domain.Validation, error)
}

// OrderRepository owns the order documents created at the saga's edge.
type OrderRepository interface {
	Create(ctx context.Context, order domain.Order) error
}

// EventRepository stores every envelope version the order service sees,
// queryable by order or transaction.
type EventRepository interface {
	Save(ctx context.Context, event saga.Event) error
	FindLatestByOrderID(ctx context.Context, orderID string) (saga.Event, error)
	FindLatestByTransactionID(ctx context.Context, transactionID string) (saga.Event, error)
	FindAll(ctx context.Context) ([]saga.Event, error)
}
