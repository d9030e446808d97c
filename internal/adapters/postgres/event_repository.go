package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joaodurante/order-saga/internal/domain"
	"github.com/joaodurante/order-saga/internal/ports"
	"github.com/joaodurante/order-saga/internal/saga"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type eventRepository struct {
	db *gorm.DB
}

// Save upserts by event id: the same envelope comes back at the end of the
// saga with more history, and the stored copy must follow it.
func (r *eventRepository) Save(ctx context.Context, event saga.Event) error {
	raw, err := saga.Marshal(event)
	if err != nil {
		return err
	}
	row := sagaEventModel{
		EventID:       event.ID,
		OrderID:       event.OrderID,
		TransactionID: event.TransactionID,
		Source:        string(event.Source),
		Status:        string(event.Status),
		Payload:       string(raw),
		CreatedAt:     event.CreatedAt,
		UpdatedAt:     time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"source", "status", "payload", "updated_at"}),
	}).Create(&row).Error
}

func (r *eventRepository) FindLatestByOrderID(ctx context.Context, orderID string) (saga.Event, error) {
	return r.findLatest(ctx, "order_id = ?", orderID)
}

func (r *eventRepository) FindLatestByTransactionID(ctx context.Context, transactionID string) (saga.Event, error) {
	return r.findLatest(ctx, "transaction_id = ?", transactionID)
}

func (r *eventRepository) findLatest(ctx context.Context, query string, arg string) (saga.Event, error) {
	var row sagaEventModel
	err := r.db.WithContext(ctx).
		Where(query, arg).
		Order("created_at desc").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return saga.Event{}, fmt.Errorf("%w: saga event", domain.ErrNotFound)
	}
	if err != nil {
		return saga.Event{}, err
	}
	return saga.Unmarshal([]byte(row.Payload))
}

func (r *eventRepository) FindAll(ctx context.Context) ([]saga.Event, error) {
	var rows []sagaEventModel
	if err := r.db.WithContext(ctx).Order("created_at desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]saga.Event, 0, len(rows))
	for _, row := range rows {
		event, err := saga.Unmarshal([]byte(row.Payload))
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	return out, nil
}

var _ ports.EventRepository = (*eventRepository)(nil)
