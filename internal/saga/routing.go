package saga

import (
	"fmt"

	"github.com/joaodurante/order-saga/internal/domain"
)

// Rule is one row of the saga graph: events stamped (Source, Status) travel
// to Topic next.
type Rule struct {
	Source Source
	Status Status
	Topic  string
}

type routeKey struct {
	source Source
	status Status
}

// RoutingTable resolves the next topic for an envelope from its control
// fields. It fully encodes the saga's step graph; changing the saga's shape
// means changing only the rules, never participant code.
type RoutingTable struct {
	next map[routeKey]string
}

// DefaultRules declares the order saga: validation, then payment, then
// inventory, with the mirrored compensation path walking backward.
func DefaultRules() []Rule {
	return []Rule{
		{SourceOrchestrator, StatusSuccess, TopicProductValidationOK},
		{SourceOrchestrator, StatusFail, TopicFinishFail},

		{SourceProductValidation, StatusRollbackPending, TopicProductValidationFail},
		{SourceProductValidation, StatusFail, TopicFinishFail},
		{SourceProductValidation, StatusSuccess, TopicPaymentOK},

		{SourcePayment, StatusRollbackPending, TopicPaymentFail},
		{SourcePayment, StatusFail, TopicProductValidationFail},
		{SourcePayment, StatusSuccess, TopicInventoryOK},

		{SourceInventory, StatusRollbackPending, TopicInventoryFail},
		{SourceInventory, StatusFail, TopicPaymentFail},
		{SourceInventory, StatusSuccess, TopicFinishSuccess},
	}
}

// NewRoutingTable validates the rules and builds the lookup table. Duplicate
// (source, status) pairs and unknown topics are configuration defects and
// refuse to start.
func NewRoutingTable(rules []Rule) (*RoutingTable, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("%w: no rules declared", domain.ErrRouting)
	}
	known := make(map[string]struct{}, len(Topics()))
	for _, topic := range Topics() {
		known[topic] = struct{}{}
	}
	next := make(map[routeKey]string, len(rules))
	for _, rule := range rules {
		if rule.Source == "" || rule.Status == "" || rule.Topic == "" {
			return nil, fmt.Errorf("%w: incomplete rule %+v", domain.ErrRouting, rule)
		}
		if _, ok := known[rule.Topic]; !ok {
			return nil, fmt.Errorf("%w: rule targets unknown topic %q", domain.ErrRouting, rule.Topic)
		}
		key := routeKey{source: rule.Source, status: rule.Status}
		if _, exists := next[key]; exists {
			return nil, fmt.Errorf("%w: duplicate rule for source %s status %s", domain.ErrRouting, rule.Source, rule.Status)
		}
		next[key] = rule.Topic
	}
	return &RoutingTable{next: next}, nil
}

// NextTopic resolves the destination for an event by exact match on its
// source and status.
func (t *RoutingTable) NextTopic(event Event) (string, error) {
	if event.Source == "" || event.Status == "" {
		return "", fmt.Errorf("%w: source and status must be informed", domain.ErrRouting)
	}
	topic, ok := t.next[routeKey{source: event.Source, status: event.Status}]
	if !ok {
		return "", fmt.Errorf("%w: no rule for source %s status %s", domain.ErrRouting, event.Source, event.Status)
	}
	return topic, nil
}
