package postgres

import (
	"time"

	"github.com/google/uuid"
)

type productModel struct {
	ProductCode string    `gorm:"column:product_code;primaryKey"`
	UnitValue   float64   `gorm:"column:unit_value"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (productModel) TableName() string { return "products" }

type inventoryModel struct {
	ID                int       `gorm:"column:id;primaryKey;autoIncrement"`
	ProductCode       string    `gorm:"column:product_code"`
	AvailableQuantity int       `gorm:"column:available_quantity"`
	CreatedAt         time.Time `gorm:"column:created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at"`
}

func (inventoryModel) TableName() string { return "inventories" }

type orderInventoryModel struct {
	ID            string    `gorm:"column:id;type:uuid;primaryKey"`
	OrderID       string    `gorm:"column:order_id"`
	TransactionID string    `gorm:"column:transaction_id"`
	ProductCode   string    `gorm:"column:product_code"`
	OrderQuantity int       `gorm:"column:order_quantity"`
	OldQuantity   int       `gorm:"column:old_quantity"`
	NewQuantity   int       `gorm:"column:new_quantity"`
	Reverted      bool      `gorm:"column:reverted"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (orderInventoryModel) TableName() string { return "order_inventories" }

type paymentModel struct {
	ID            string    `gorm:"column:id;type:uuid;primaryKey"`
	OrderID       string    `gorm:"column:order_id"`
	TransactionID string    `gorm:"column:transaction_id"`
	TotalAmount   float64   `gorm:"column:total_amount"`
	TotalItems    int       `gorm:"column:total_items"`
	Status        string    `gorm:"column:status"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (paymentModel) TableName() string { return "payments" }

type validationModel struct {
	ID            string    `gorm:"column:id;type:uuid;primaryKey"`
	OrderID       string    `gorm:"column:order_id"`
	TransactionID string    `gorm:"column:transaction_id"`
	Success       bool      `gorm:"column:success"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (validationModel) TableName() string { return "validations" }

type orderModel struct {
	ID            string    `gorm:"column:id;type:uuid;primaryKey"`
	TransactionID string    `gorm:"column:transaction_id"`
	TotalAmount   float64   `gorm:"column:total_amount"`
	TotalItems    int       `gorm:"column:total_items"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (orderModel) TableName() string { return "orders" }

type sagaEventModel struct {
	EventID       string    `gorm:"column:event_id;type:uuid;primaryKey"`
	OrderID       string    `gorm:"column:order_id"`
	TransactionID string    `gorm:"column:transaction_id"`
	Source        string    `gorm:"column:source"`
	Status        string    `gorm:"column:status"`
	Payload       string    `gorm:"column:payload"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (sagaEventModel) TableName() string { return "saga_events" }

type outboxModel struct {
	OutboxID    uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	Topic       string     `gorm:"column:topic"`
	Key         string     `gorm:"column:key"`
	Payload     string     `gorm:"column:payload"`
	RetryCount  int        `gorm:"column:retry_count"`
	PublishedAt *time.Time `gorm:"column:published_at"`
	LastError   *string    `gorm:"column:last_error"`
	LastErrorAt *time.Time `gorm:"column:last_error_at"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
}

func (outboxModel) TableName() string { return "saga_outbox" }
