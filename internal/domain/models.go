package domain

import "time"

// Product is one catalog entry the validation step checks orders against.
type Product struct {
	Code      string
	UnitValue float64
	CreatedAt time.Time
}

// Inventory is the available stock for one product.
type Inventory struct {
	ID                int
	ProductCode       string
	AvailableQuantity int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// OrderInventory is the inventory participant's ledger record: the before and
// after quantity of one product line, keyed by order and transaction so a
// redelivered message can never reserve twice. Reverted flips on compensation;
// the row itself is never deleted.
type OrderInventory struct {
	ID            string
	OrderID       string
	TransactionID string
	ProductCode   string
	OrderQuantity int
	OldQuantity   int
	NewQuantity   int
	Reverted      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PaymentStatus is the lifecycle of a payment ledger record.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentSuccess PaymentStatus = "SUCCESS"
	PaymentRefund  PaymentStatus = "REFUND"
)

// Payment is the payment participant's ledger record.
type Payment struct {
	ID            string
	OrderID       string
	TransactionID string
	TotalAmount   float64
	TotalItems    int
	Status        PaymentStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Validation is the product validation participant's ledger record. It has no
// numeric effect to reverse, so compensation just flips Success.
type Validation struct {
	ID            string
	OrderID       string
	TransactionID string
	Success       bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Order is the stored order document owned by the order service.
type Order struct {
	ID            string
	TransactionID string
	TotalAmount   float64
	TotalItems    int
	CreatedAt     time.Time
}
