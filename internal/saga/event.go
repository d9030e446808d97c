package saga

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the saga outcome stamped on an envelope by the service that
// last processed it.
type Status string

const (
	// StatusSuccess means the current step succeeded and the saga moves forward.
	StatusSuccess Status = "SUCCESS"
	// StatusRollbackPending means the current step failed and must undo its
	// own local state before the saga walks backward.
	StatusRollbackPending Status = "ROLLBACK_PENDING"
	// StatusFail means the current step has already compensated; the rollback
	// propagates to the previous step.
	StatusFail Status = "FAIL"
)

// Source identifies the service that produced the current version of an envelope.
type Source string

const (
	SourceOrchestrator      Source = "ORCHESTRATOR"
	SourceProductValidation Source = "PRODUCT_VALIDATION_SERVICE"
	SourcePayment           Source = "PAYMENT_SERVICE"
	SourceInventory         Source = "INVENTORY_SERVICE"
)

type Product struct {
	Code      string  `json:"code"`
	UnitValue float64 `json:"unitValue"`
}

type OrderProduct struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Order is the envelope payload: the order snapshot participants mutate in
// place as the saga crosses their step.
type Order struct {
	ID            string         `json:"id"`
	Products      []OrderProduct `json:"products"`
	TotalAmount   float64        `json:"totalAmount"`
	TotalItems    int            `json:"totalItems"`
	CreatedAt     time.Time      `json:"createdAt"`
	TransactionID string         `json:"transactionId"`
}

// History is one immutable entry of the envelope's audit trail.
type History struct {
	Source    Source    `json:"source"`
	Status    Status    `json:"status"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Event is the envelope traveling between services on the bus. OrderID and
// TransactionID together identify one saga attempt; History accumulates one
// entry per processing hop and is never reordered or truncated.
type Event struct {
	ID            string    `json:"id"`
	OrderID       string    `json:"orderId"`
	TransactionID string    `json:"transactionId"`
	Payload       Order     `json:"payload"`
	Source        Source    `json:"source"`
	Status        Status    `json:"status"`
	History       []History `json:"history"`
	CreatedAt     time.Time `json:"createdAt"`
}

// NewEvent builds a fresh envelope around an order snapshot.
func NewEvent(order Order, now time.Time) Event {
	return Event{
		ID:            uuid.NewString(),
		OrderID:       order.ID,
		TransactionID: order.TransactionID,
		Payload:       order,
		CreatedAt:     now,
	}
}

// AppendHistory appends one entry to the audit trail. It never fails and
// never reorders existing entries.
func (e *Event) AppendHistory(entry History) {
	e.History = append(e.History, entry)
}

// Record stamps source and status on the envelope and appends the matching
// history entry in the same call. Every status change goes through here so
// the trail cannot drift from the control fields.
func (e *Event) Record(source Source, status Status, message string, at time.Time) {
	e.Source = source
	e.Status = status
	e.AppendHistory(History{
		Source:    source,
		Status:    status,
		Message:   message,
		CreatedAt: at,
	})
}

// Marshal serializes the envelope for the bus.
func Marshal(event Event) ([]byte, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal saga event: %w", err)
	}
	return raw, nil
}

// Unmarshal parses an envelope received from the bus.
func Unmarshal(raw []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		return Event{}, fmt.Errorf("unmarshal saga event: %w", err)
	}
	return event, nil
}
