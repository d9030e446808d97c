package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joaodurante/order-saga/internal/domain"
	"github.com/joaodurante/order-saga/internal/ports"
	"gorm.io/gorm"
)

type paymentStore struct {
	db *gorm.DB
}

func (s *paymentStore) Exists(ctx context.Context, orderID, transactionID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&paymentModel{}).
		Where("order_id = ? AND transaction_id = ?", orderID, transactionID).
		Count(&count).Error
	return count > 0, err
}

func (s *paymentStore) Create(ctx context.Context, payment domain.Payment) error {
	row := paymentModel{
		ID:            payment.ID,
		OrderID:       payment.OrderID,
		TransactionID: payment.TransactionID,
		TotalAmount:   payment.TotalAmount,
		TotalItems:    payment.TotalItems,
		Status:        string(payment.Status),
		CreatedAt:     payment.CreatedAt,
		UpdatedAt:     payment.UpdatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: payment for order %s transaction %s", domain.ErrDuplicateTransaction, payment.OrderID, payment.TransactionID)
		}
		return err
	}
	return nil
}

func (s *paymentStore) FindByOrderAndTransaction(ctx context.Context, orderID, transactionID string) (domain.Payment, error) {
	var row paymentModel
	err := s.db.WithContext(ctx).
		Where("order_id = ? AND transaction_id = ?", orderID, transactionID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Payment{}, fmt.Errorf("%w: payment for order %s", domain.ErrNotFound, orderID)
	}
	if err != nil {
		return domain.Payment{}, err
	}
	return domain.Payment{
		ID:            row.ID,
		OrderID:       row.OrderID,
		TransactionID: row.TransactionID,
		TotalAmount:   row.TotalAmount,
		TotalItems:    row.TotalItems,
		Status:        domain.PaymentStatus(row.Status),
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}, nil
}

func (s *paymentStore) UpdateStatus(ctx context.Context, orderID, transactionID string, status domain.PaymentStatus) error {
	result := s.db.WithContext(ctx).Model(&paymentModel{}).
		Where("order_id = ? AND transaction_id = ?", orderID, transactionID).
		Updates(map[string]any{
			"status":     string(status),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: payment for order %s transaction %s", domain.ErrNotFound, orderID, transactionID)
	}
	return nil
}

var _ ports.PaymentStore = (*paymentStore)(nil)
