package domain

import "errors"

var (
	// ErrValidation marks malformed or missing required fields. Never retried;
	// participants convert it into ROLLBACK_PENDING.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateTransaction is the idempotency guard tripping on a redelivered
	// message. Handled like a validation failure, not a crash.
	ErrDuplicateTransaction = errors.New("duplicate transaction")
	// ErrBusinessRule marks a domain rule violation such as insufficient stock.
	ErrBusinessRule = errors.New("business rule violated")
	// ErrRouting means no saga table row matches an event. A configuration
	// defect, surfaced to the caller instead of encoded into the envelope.
	ErrRouting = errors.New("saga route not found")
	// ErrCompensation marks a failed rollback of local state. Recorded in the
	// event history; never blocks envelope emission.
	ErrCompensation = errors.New("compensation failed")
	// ErrNotFound is returned by lookups with no matching record.
	ErrNotFound = errors.New("resource not found")
)
