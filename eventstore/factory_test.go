package eventstore

import (
	"errors"
	"testing"
	"time"

	"github.com/akriventsev/sagastore/events"
)

type orderCreatedEvent struct {
	*events.BaseEvent
	Amount int
}

func TestDomainEventFactory_Register(t *testing.T) {
	factory := NewDomainEventFactory()

	constructor := func(stored StoredEvent) (events.Event, error) {
		return restoredEvent(stored.ID, stored.EventType, stored.AggregateID, stored.OccurredAt), nil
	}

	if err := factory.Register("order_created", constructor); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if !factory.IsRegistered("order_created") {
		t.Error("Expected constructor to be registered")
	}

	if err := factory.Register("order_created", constructor); err == nil {
		t.Error("Expected error on duplicate registration")
	}
	if err := factory.Register("", constructor); err == nil {
		t.Error("Expected error on empty event type")
	}
	if err := factory.Register("other", nil); err == nil {
		t.Error("Expected error on nil constructor")
	}
}

func TestDomainEventFactory_CreateWithConstructor(t *testing.T) {
	factory := NewDomainEventFactory()

	err := factory.Register("order_created", func(stored StoredEvent) (events.Event, error) {
		amount, _ := stored.Payload["amount"].(int)
		return &orderCreatedEvent{
			BaseEvent: restoredEvent(stored.ID, stored.EventType, stored.AggregateID, stored.OccurredAt),
			Amount:    amount,
		}, nil
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	stored := StoredEvent{
		ID:         "e1",
		EventType:  "order_created",
		Payload:    map[string]interface{}{"amount": 100},
		OccurredAt: time.Now(),
	}

	event, err := factory.Create(stored)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	typed, ok := event.(*orderCreatedEvent)
	if !ok {
		t.Fatalf("Expected *orderCreatedEvent, got %T", event)
	}
	if typed.Amount != 100 {
		t.Errorf("Expected amount 100, got %d", typed.Amount)
	}
}

func TestDomainEventFactory_FallbackToBaseEvent(t *testing.T) {
	factory := NewDomainEventFactory()

	occurredAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	stored := StoredEvent{
		ID:            "e1",
		AggregateID:   "order-1",
		AggregateType: "order",
		EventType:     "unregistered_event",
		Payload:       map[string]interface{}{"key": "value"},
		Metadata:      map[string]interface{}{"correlation_id": "corr-1"},
		OccurredAt:    occurredAt,
	}

	event, err := factory.Create(stored)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if event.EventID() != "e1" {
		t.Errorf("Identity not preserved: %s", event.EventID())
	}
	if event.EventType() != "unregistered_event" {
		t.Errorf("Event type not preserved: %s", event.EventType())
	}
	if !event.OccurredAt().Equal(occurredAt) {
		t.Error("OccurredAt not preserved")
	}
	if event.Payload()["key"] != "value" {
		t.Error("Payload not preserved")
	}
	if event.Metadata().CorrelationID() != "corr-1" {
		t.Error("Metadata not preserved")
	}
}

func TestDomainEventFactory_ConstructorFailure(t *testing.T) {
	factory := NewDomainEventFactory()

	wantErr := errors.New("corrupt payload")
	_ = factory.Register("order_created", func(stored StoredEvent) (events.Event, error) {
		return nil, wantErr
	})

	_, err := factory.Create(StoredEvent{ID: "e1", EventType: "order_created"})
	if !errors.Is(err, wantErr) {
		t.Errorf("Expected wrapped constructor error, got %v", err)
	}
}
