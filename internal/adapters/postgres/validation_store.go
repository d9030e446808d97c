package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/joaodurante/order-saga/internal/domain"
	"github.com/joaodurante/order-saga/internal/ports"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type validationStore struct {
	db *gorm.DB
}

func (s *validationStore) ProductExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&productModel{}).
		Where("product_code = ?", code).
		Count(&count).Error
	return count > 0, err
}

func (s *validationStore) ExistsValidation(ctx context.Context, orderID, transactionID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&validationModel{}).
		Where("order_id = ? AND transaction_id = ?", orderID, transactionID).
		Count(&count).Error
	return count > 0, err
}

// Save upserts on the (order, transaction) key so compensation can flip an
// existing record without racing a concurrent insert.
func (s *validationStore) Save(ctx context.Context, validation domain.Validation) error {
	row := validationModel{
		ID:            validation.ID,
		OrderID:       validation.OrderID,
		TransactionID: validation.TransactionID,
		Success:       validation.Success,
		CreatedAt:     validation.CreatedAt,
		UpdatedAt:     validation.UpdatedAt,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}, {Name: "transaction_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"success", "updated_at"}),
	}).Create(&row).Error
}

func (s *validationStore) FindByOrderAndTransaction(ctx context.Context, orderID, transactionID string) (domain.Validation, error) {
	var row validationModel
	err := s.db.WithContext(ctx).
		Where("order_id = ? AND transaction_id = ?", orderID, transactionID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Validation{}, fmt.Errorf("%w: validation for order %s", domain.ErrNotFound, orderID)
	}
	if err != nil {
		return domain.Validation{}, err
	}
	return domain.Validation{
		ID:            row.ID,
		OrderID:       row.OrderID,
		TransactionID: row.TransactionID,
		Success:       row.Success,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}, nil
}

var _ ports.ValidationStore = (*validationStore)(nil)
