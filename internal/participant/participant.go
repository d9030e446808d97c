// Package participant implements the state machine every saga participant
// runs: guard against duplicates, act and record a ledger entry, stamp the
// outcome, and always hand the envelope back to the orchestrator. The three
// participant services differ only in the Action they plug in.
package participant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joaodurante/order-saga/internal/domain"
	"github.com/joaodurante/order-saga/internal/ports"
	"github.com/joaodurante/order-saga/internal/saga"
)

// Action is a participant's local step. Act performs the forward action
// against owned state, writing the ledger record as part of the same
// transaction, and may mutate the envelope payload. Reverse undoes the
// recorded effect using the ledger; a missing ledger record is a no-op,
// not an error.
type Action interface {
	Act(ctx context.Context, event *saga.Event) error
	Reverse(ctx context.Context, event *saga.Event) error
}

// Guard answers whether this participant already holds a ledger record for
// the transaction. Tripping it rejects a redelivered message before any
// side effect runs.
type Guard interface {
	Exists(ctx context.Context, orderID, transactionID string) (bool, error)
}

// Config names the participant and fixes the history messages it writes.
type Config struct {
	Source          saga.Source
	ReplyTopic      string
	SuccessMessage  string
	FailureMessage  string
	RollbackMessage string
}

// Participant executes the shared protocol around one Action.
type Participant struct {
	logger    *slog.Logger
	cfg       Config
	action    Action
	guard     Guard
	publisher ports.EventPublisher
	nowFn     func() time.Time
}

func New(logger *slog.Logger, cfg Config, action Action, guard Guard, publisher ports.EventPublisher) *Participant {
	if cfg.ReplyTopic == "" {
		cfg.ReplyTopic = saga.TopicOrchestrator
	}
	return &Participant{
		logger:    logger,
		cfg:       cfg,
		action:    action,
		guard:     guard,
		publisher: publisher,
		nowFn:     func() time.Time { return time.Now().UTC() },
	}
}

// Process runs the forward path. Every failure is converted into a
// ROLLBACK_PENDING envelope with the reason in history; the only error this
// returns is a failed publish, which the bus redelivers.
func (p *Participant) Process(ctx context.Context, event saga.Event) error {
	if err := p.execute(ctx, &event); err != nil {
		level := slog.LevelError
		if IsRejection(err) {
			level = slog.LevelWarn
		}
		p.logger.Log(ctx, level, "participant step failed",
			"source", p.cfg.Source,
			"order_id", event.OrderID,
			"transaction_id", event.TransactionID,
			"error", err,
		)
		event.Record(p.cfg.Source, saga.StatusRollbackPending,
			fmt.Sprintf("%s %s", p.cfg.FailureMessage, err.Error()), p.nowFn())
	} else {
		event.Record(p.cfg.Source, saga.StatusSuccess, p.cfg.SuccessMessage, p.nowFn())
	}
	return p.publish(ctx, event)
}

func (p *Participant) execute(ctx context.Context, event *saga.Event) error {
	if event.OrderID == "" || event.TransactionID == "" {
		return fmt.Errorf("%w: order id and transaction id must be informed", domain.ErrValidation)
	}
	exists, err := p.guard.Exists(ctx, event.OrderID, event.TransactionID)
	if err != nil {
		return fmt.Errorf("check existing transaction: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: order %s transaction %s was already processed",
			domain.ErrDuplicateTransaction, event.OrderID, event.TransactionID)
	}
	return p.action.Act(ctx, event)
}

// Rollback runs the compensation path. The envelope always comes out stamped
// FAIL and is always published, even when the reversal itself failed; a saga
// that cannot fully compensate must still terminate visibly.
func (p *Participant) Rollback(ctx context.Context, event saga.Event) error {
	if err := p.action.Reverse(ctx, &event); err != nil {
		p.logger.ErrorContext(ctx, "participant rollback failed",
			"source", p.cfg.Source,
			"order_id", event.OrderID,
			"transaction_id", event.TransactionID,
			"error", err,
		)
		event.Record(p.cfg.Source, saga.StatusFail,
			fmt.Sprintf("%s: %s", domain.ErrCompensation.Error(), err.Error()), p.nowFn())
	} else {
		event.Record(p.cfg.Source, saga.StatusFail, p.cfg.RollbackMessage, p.nowFn())
	}
	return p.publish(ctx, event)
}

// HandleProcess adapts Process to a raw bus payload.
func (p *Participant) HandleProcess(ctx context.Context, payload []byte) error {
	event, err := saga.Unmarshal(payload)
	if err != nil {
		return err
	}
	return p.Process(ctx, event)
}

// HandleRollback adapts Rollback to a raw bus payload.
func (p *Participant) HandleRollback(ctx context.Context, payload []byte) error {
	event, err := saga.Unmarshal(payload)
	if err != nil {
		return err
	}
	return p.Rollback(ctx, event)
}

func (p *Participant) publish(ctx context.Context, event saga.Event) error {
	raw, err := saga.Marshal(event)
	if err != nil {
		return err
	}
	if err := p.publisher.Publish(ctx, p.cfg.ReplyTopic, raw, event.OrderID); err != nil {
		return fmt.Errorf("publish to %s: %w", p.cfg.ReplyTopic, err)
	}
	p.logger.InfoContext(ctx, "saga step published",
		"source", p.cfg.Source,
		"status", event.Status,
		"order_id", event.OrderID,
		"transaction_id", event.TransactionID,
		"event_id", event.ID,
	)
	return nil
}

// IsRejection reports whether an error belongs to the class a participant
// converts into a rollback rather than crashing on.
func IsRejection(err error) bool {
	return errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrDuplicateTransaction) ||
		errors.Is(err, domain.ErrBusinessRule)
}
