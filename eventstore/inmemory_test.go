package eventstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/akriventsev/sagastore/events"
)

func newTestEvent(eventType, aggregateID string) *events.BaseEvent {
	e := events.NewBaseEvent(eventType, aggregateID)
	e.WithAggregateType("order")
	return e
}

func restoredEvent(id, eventType, aggregateID string, occurredAt time.Time) *events.BaseEvent {
	return events.RestoreBaseEvent(id, eventType, aggregateID, "order", occurredAt, nil)
}

func TestInMemoryEventStore_AppendAndFindByID(t *testing.T) {
	store := NewInMemoryEventStore()
	ctx := context.Background()

	event := newTestEvent("order_created", "order-1")
	event.WithPayload("amount", 100)

	stored, err := store.Append(ctx, event)
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if stored.ID != event.EventID() {
		t.Errorf("Stored ID mismatch: %s != %s", stored.ID, event.EventID())
	}
	if stored.Position != 1 {
		t.Errorf("Expected position 1, got %d", stored.Position)
	}

	found, err := store.FindByID(ctx, event.EventID())
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if found.EventType != "order_created" {
		t.Errorf("Unexpected event type: %s", found.EventType)
	}
	if found.AggregateID != "order-1" {
		t.Errorf("Unexpected aggregate id: %s", found.AggregateID)
	}
	if found.Payload["amount"] != 100 {
		t.Errorf("Payload not preserved: %v", found.Payload)
	}
	if !found.OccurredAt.Equal(event.OccurredAt()) {
		t.Error("OccurredAt not preserved")
	}
}

func TestInMemoryEventStore_FindByIDNotFound(t *testing.T) {
	store := NewInMemoryEventStore()

	_, err := store.FindByID(context.Background(), "missing")
	if !errors.Is(err, ErrEventNotFound) {
		t.Errorf("Expected ErrEventNotFound, got %v", err)
	}
}

func TestInMemoryEventStore_DuplicateID(t *testing.T) {
	store := NewInMemoryEventStore()
	ctx := context.Background()

	event := newTestEvent("order_created", "order-1")
	if _, err := store.Append(ctx, event); err != nil {
		t.Fatalf("First append failed: %v", err)
	}

	_, err := store.Append(ctx, event)
	if !errors.Is(err, ErrDuplicateEventID) {
		t.Errorf("Expected ErrDuplicateEventID, got %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("Expected 1 event in store, got %d", store.Len())
	}
}

func TestInMemoryEventStore_FindByCriteriaFilters(t *testing.T) {
	store := NewInMemoryEventStore()
	ctx := context.Background()

	_, _ = store.Append(ctx, newTestEvent("order_created", "order-1"))
	_, _ = store.Append(ctx, newTestEvent("order_created", "order-2"))
	_, _ = store.Append(ctx, newTestEvent("payment_captured", "payment-1"))

	byType, err := store.FindByCriteria(ctx, EventCriteria{EventType: "order_created"})
	if err != nil {
		t.Fatalf("FindByCriteria failed: %v", err)
	}
	if len(byType) != 2 {
		t.Errorf("Expected 2 events by type, got %d", len(byType))
	}

	byAggregate, err := store.FindByCriteria(ctx, EventCriteria{AggregateID: "order-2"})
	if err != nil {
		t.Fatalf("FindByCriteria failed: %v", err)
	}
	if len(byAggregate) != 1 {
		t.Errorf("Expected 1 event by aggregate, got %d", len(byAggregate))
	}

	count, err := store.CountByCriteria(ctx, EventCriteria{EventType: "order_created"})
	if err != nil {
		t.Fatalf("CountByCriteria failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected count 2, got %d", count)
	}
}

func TestInMemoryEventStore_TimeRangeIsInclusive(t *testing.T) {
	store := NewInMemoryEventStore()
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	early := base.Add(-time.Hour)
	late := base.Add(time.Hour)

	_, _ = store.Append(ctx, restoredEvent("e1", "order_created", "order-1", early))
	_, _ = store.Append(ctx, restoredEvent("e2", "order_created", "order-1", base))
	_, _ = store.Append(ctx, restoredEvent("e3", "order_created", "order-1", late))

	from := base
	to := late
	found, err := store.FindByCriteria(ctx, EventCriteria{From: &from, To: &to})
	if err != nil {
		t.Fatalf("FindByCriteria failed: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("Expected 2 events in inclusive range, got %d", len(found))
	}
	if found[0].ID != "e2" || found[1].ID != "e3" {
		t.Errorf("Unexpected events in range: %s, %s", found[0].ID, found[1].ID)
	}
}

func TestInMemoryEventStore_ChronologicalOrder(t *testing.T) {
	store := NewInMemoryEventStore()
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// Записываем в обратном хронологическом порядке
	_, _ = store.Append(ctx, restoredEvent("e3", "step_completed", "saga-1", base.Add(2*time.Second)))
	_, _ = store.Append(ctx, restoredEvent("e1", "saga_created", "saga-1", base))
	_, _ = store.Append(ctx, restoredEvent("e2", "step_started", "saga-1", base.Add(time.Second)))

	found, err := store.FindByCriteria(ctx, EventCriteria{AggregateID: "saga-1"})
	if err != nil {
		t.Fatalf("FindByCriteria failed: %v", err)
	}
	if len(found) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(found))
	}
	for i, want := range []string{"e1", "e2", "e3"} {
		if found[i].ID != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, found[i].ID)
		}
	}
}

func TestInMemoryEventStore_Pagination(t *testing.T) {
	store := NewInMemoryEventStore()
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ids := []string{"e1", "e2", "e3", "e4", "e5"}
	for i, id := range ids {
		_, _ = store.Append(ctx, restoredEvent(id, "order_created", "order-1", base.Add(time.Duration(i)*time.Second)))
	}

	page1, err := store.FindByCriteria(ctx, EventCriteria{Page: 1, PerPage: 2})
	if err != nil {
		t.Fatalf("FindByCriteria failed: %v", err)
	}
	if len(page1) != 2 || page1[0].ID != "e1" || page1[1].ID != "e2" {
		t.Errorf("Unexpected first page: %v", page1)
	}

	page3, err := store.FindByCriteria(ctx, EventCriteria{Page: 3, PerPage: 2})
	if err != nil {
		t.Fatalf("FindByCriteria failed: %v", err)
	}
	if len(page3) != 1 || page3[0].ID != "e5" {
		t.Errorf("Unexpected last page: %v", page3)
	}

	empty, err := store.FindByCriteria(ctx, EventCriteria{Page: 4, PerPage: 2})
	if err != nil {
		t.Fatalf("FindByCriteria failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("Expected empty page, got %d events", len(empty))
	}
}
