package postgres

import (
	"github.com/joaodurante/order-saga/internal/ports"
	"gorm.io/gorm"
)

type Repositories struct {
	Inventory   ports.InventoryStore
	Payments    ports.PaymentStore
	Validations ports.ValidationStore
	Orders      ports.OrderRepository
	Events      ports.EventRepository
	Outbox      ports.OutboxRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Inventory:   &inventoryStore{db: db},
		Payments:    &paymentStore{db: db},
		Validations: &validationStore{db: db},
		Orders:      &orderRepository{db: db},
		Events:      &eventRepository{db: db},
		Outbox:      &outboxRepository{db: db},
	}
}
