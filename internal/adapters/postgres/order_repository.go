package postgres

import (
	"context"

	"github.com/joaodurante/order-saga/internal/domain"
	"github.com/joaodurante/order-saga/internal/ports"
	"gorm.io/gorm"
)

type orderRepository struct {
	db *gorm.DB
}

func (r *orderRepository) Create(ctx context.Context, order domain.Order) error {
	row := orderModel{
		ID:            order.ID,
		TransactionID: order.TransactionID,
		TotalAmount:   order.TotalAmount,
		TotalItems:    order.TotalItems,
		CreatedAt:     order.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

var _ ports.OrderRepository = (*orderRepository)(nil)
