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

type inventoryStore struct {
	db *gorm.DB
}

func (s *inventoryStore) FindByProductCode(ctx context.Context, code string) (domain.Inventory, error) {
	var row inventoryModel
	err := s.db.WithContext(ctx).Where("product_code = ?", code).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Inventory{}, fmt.Errorf("%w: inventory for product %s", domain.ErrNotFound, code)
	}
	if err != nil {
		return domain.Inventory{}, err
	}
	return domain.Inventory{
		ID:                row.ID,
		ProductCode:       row.ProductCode,
		AvailableQuantity: row.AvailableQuantity,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}, nil
}

func (s *inventoryStore) ExistsReservation(ctx context.Context, orderID, transactionID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&orderInventoryModel{}).
		Where("order_id = ? AND transaction_id = ?", orderID, transactionID).
		Count(&count).Error
	return count > 0, err
}

// Reserve writes the ledger rows and the decremented quantities in one
// transaction. The ledger's unique key turns a concurrent duplicate delivery
// into domain.ErrDuplicateTransaction instead of a double reservation.
func (s *inventoryStore) Reserve(ctx context.Context, reservations []domain.OrderInventory) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, r := range reservations {
			row := orderInventoryModel{
				ID:            r.ID,
				OrderID:       r.OrderID,
				TransactionID: r.TransactionID,
				ProductCode:   r.ProductCode,
				OrderQuantity: r.OrderQuantity,
				OldQuantity:   r.OldQuantity,
				NewQuantity:   r.NewQuantity,
				CreatedAt:     r.CreatedAt,
				UpdatedAt:     r.UpdatedAt,
			}
			if err := tx.Create(&row).Error; err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("%w: reservation for order %s transaction %s", domain.ErrDuplicateTransaction, r.OrderID, r.TransactionID)
				}
				return err
			}
			if err := tx.Model(&inventoryModel{}).
				Where("product_code = ?", r.ProductCode).
				Updates(map[string]any{
					"available_quantity": r.NewQuantity,
					"updated_at":         r.UpdatedAt,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Revert restores the old quantities and flags the ledger rows reverted,
// again in one transaction. Rows already reverted are left alone.
func (s *inventoryStore) Revert(ctx context.Context, orderID, transactionID string) ([]domain.OrderInventory, error) {
	var reverted []domain.OrderInventory
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []orderInventoryModel
		if err := tx.Where("order_id = ? AND transaction_id = ? AND reverted = false", orderID, transactionID).
			Find(&rows).Error; err != nil {
			return err
		}
		now := time.Now().UTC()
		for _, row := range rows {
			if err := tx.Model(&inventoryModel{}).
				Where("product_code = ?", row.ProductCode).
				Updates(map[string]any{
					"available_quantity": row.OldQuantity,
					"updated_at":         now,
				}).Error; err != nil {
				return err
			}
			if err := tx.Model(&orderInventoryModel{}).
				Where("id = ?", row.ID).
				Updates(map[string]any{"reverted": true, "updated_at": now}).Error; err != nil {
				return err
			}
			reverted = append(reverted, domain.OrderInventory{
				ID:            row.ID,
				OrderID:       row.OrderID,
				TransactionID: row.TransactionID,
				ProductCode:   row.ProductCode,
				OrderQuantity: row.OrderQuantity,
				OldQuantity:   row.OldQuantity,
				NewQuantity:   row.NewQuantity,
				Reverted:      true,
				CreatedAt:     row.CreatedAt,
				UpdatedAt:     now,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reverted, nil
}

var _ ports.InventoryStore = (*inventoryStore)(nil)
