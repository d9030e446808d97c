package saga

import (
	"errors"
	"testing"

	"github.com/joaodurante/order-saga/internal/domain"
)

func TestDefaultRulesCoverEveryReachableState(t *testing.T) {
	t.Parallel()

	table, err := NewRoutingTable(DefaultRules())
	if err != nil {
		t.Fatalf("build routing table: %v", err)
	}

	// The orchestrator only ever stamps SUCCESS at start and FAIL when an
	// envelope arrives already broken. Participants can stamp all three.
	cases := []struct {
		source Source
		status Status
		topic  string
	}{
		{SourceOrchestrator, StatusSuccess, TopicProductValidationOK},
		{SourceOrchestrator, StatusFail, TopicFinishFail},
		{SourceProductValidation, StatusSuccess, TopicPaymentOK},
		{SourceProductValidation, StatusRollbackPending, TopicProductValidationFail},
		{SourceProductValidation, StatusFail, TopicFinishFail},
		{SourcePayment, StatusSuccess, TopicInventoryOK},
		{SourcePayment, StatusRollbackPending, TopicPaymentFail},
		{SourcePayment, StatusFail, TopicProductValidationFail},
		{SourceInventory, StatusSuccess, TopicFinishSuccess},
		{SourceInventory, StatusRollbackPending, TopicInventoryFail},
		{SourceInventory, StatusFail, TopicPaymentFail},
	}
	for _, tc := range cases {
		got, err := table.NextTopic(Event{Source: tc.source, Status: tc.status})
		if err != nil {
			t.Fatalf("route %s/%s: %v", tc.source, tc.status, err)
		}
		if got != tc.topic {
			t.Fatalf("route %s/%s: got %s, want %s", tc.source, tc.status, got, tc.topic)
		}
	}
}

func TestNewRoutingTableRejectsBadRules(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		rules []Rule
	}{
		{"empty", nil},
		{"incomplete", []Rule{{Source: SourcePayment, Topic: TopicPaymentFail}}},
		{"unknown topic", []Rule{{SourcePayment, StatusSuccess, "dead-letter"}}},
		{"duplicate", []Rule{
			{SourcePayment, StatusSuccess, TopicInventoryOK},
			{SourcePayment, StatusSuccess, TopicFinishSuccess},
		}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := NewRoutingTable(tc.rules); !errors.Is(err, domain.ErrRouting) {
				t.Fatalf("expected routing error, got %v", err)
			}
		})
	}
}

func TestNextTopicRequiresControlFields(t *testing.T) {
	t.Parallel()

	table, err := NewRoutingTable(DefaultRules())
	if err != nil {
		t.Fatalf("build routing table: %v", err)
	}
	if _, err := table.NextTopic(Event{Status: StatusSuccess}); !errors.Is(err, domain.ErrRouting) {
		t.Fatalf("expected routing error for unset source, got %v", err)
	}
	if _, err := table.NextTopic(Event{Source: SourcePayment}); !errors.Is(err, domain.ErrRouting) {
		t.Fatalf("expected routing error for unset status, got %v", err)
	}
	if _, err := table.NextTopic(Event{Source: "UNKNOWN_SERVICE", Status: StatusSuccess}); !errors.Is(err, domain.ErrRouting) {
		t.Fatalf("expected routing error for unknown pair, got %v", err)
	}
}
