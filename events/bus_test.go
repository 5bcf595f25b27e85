package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// MockHandler для тестирования
type MockHandler struct {
	mu        sync.Mutex
	eventType string
	handled   []Event
	err       error
}

func newMockHandler(eventType string) *MockHandler {
	return &MockHandler{eventType: eventType}
}

func (h *MockHandler) Handle(ctx context.Context, event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

func (h *MockHandler) EventType() string {
	return h.eventType
}

func (h *MockHandler) HandledCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func (h *MockHandler) LastEvent() Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.handled) == 0 {
		return nil
	}
	return h.handled[len(h.handled)-1]
}

func newTestEvent(eventType, aggregateID string) *BaseEvent {
	e := NewBaseEvent(eventType, aggregateID)
	e.WithAggregateType("test_aggregate")
	return e
}

func TestInMemoryEventBus_PublishToTypedHandler(t *testing.T) {
	bus := NewInMemoryEventBus()
	handler := newMockHandler("order_created")

	if err := bus.Subscribe("order_created", handler); err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	if err := bus.Publish(context.Background(), newTestEvent("order_created", "order-1")); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	if handler.HandledCount() != 1 {
		t.Errorf("Expected 1 handled event, got %d", handler.HandledCount())
	}
}

func TestInMemoryEventBus_SubscribeAllReceivesEveryType(t *testing.T) {
	bus := NewInMemoryEventBus()
	handler := newMockHandler(EventTypeAll)

	sub, err := bus.SubscribeAll(handler)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	if !sub.IsActive() {
		t.Error("Expected subscription to be active")
	}

	ctx := context.Background()
	_ = bus.Publish(ctx, newTestEvent("order_created", "order-1"))
	_ = bus.Publish(ctx, newTestEvent("payment_captured", "payment-1"))

	if handler.HandledCount() != 2 {
		t.Errorf("Expected 2 handled events, got %d", handler.HandledCount())
	}
}

func TestSubscription_UnsubscribeIsIdempotent(t *testing.T) {
	bus := NewInMemoryEventBus()
	handler := newMockHandler(EventTypeAll)

	sub, err := bus.SubscribeAll(handler)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	if err := sub.Unsubscribe(); err != nil {
		t.Errorf("First unsubscribe failed: %v", err)
	}
	if sub.IsActive() {
		t.Error("Expected subscription to be inactive after unsubscribe")
	}

	// Повторные вызовы не должны возвращать ошибку
	if err := sub.Unsubscribe(); err != nil {
		t.Errorf("Second unsubscribe failed: %v", err)
	}
	if err := sub.Unsubscribe(); err != nil {
		t.Errorf("Third unsubscribe failed: %v", err)
	}

	_ = bus.Publish(context.Background(), newTestEvent("order_created", "order-1"))
	if handler.HandledCount() != 0 {
		t.Errorf("Expected 0 handled events after unsubscribe, got %d", handler.HandledCount())
	}
}

func TestInMemoryEventBus_DuplicateSubscribe(t *testing.T) {
	bus := NewInMemoryEventBus()
	handler := newMockHandler("order_created")

	if err := bus.Subscribe("order_created", handler); err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	if err := bus.Subscribe("order_created", handler); err == nil {
		t.Error("Expected error on duplicate subscribe")
	}
}

func TestInMemoryEventBus_MiddlewareOrder(t *testing.T) {
	bus := NewInMemoryEventBus()
	handler := newMockHandler("order_created")
	_ = bus.Subscribe("order_created", handler)

	var calls []string
	bus.WithMiddleware(func(ctx context.Context, event Event, next func(ctx context.Context, event Event) error) error {
		calls = append(calls, "first")
		return next(ctx, event)
	})
	bus.WithMiddleware(func(ctx context.Context, event Event, next func(ctx context.Context, event Event) error) error {
		calls = append(calls, "second")
		return next(ctx, event)
	})

	if err := bus.Publish(context.Background(), newTestEvent("order_created", "order-1")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Errorf("Unexpected middleware order: %v", calls)
	}
	if handler.HandledCount() != 1 {
		t.Errorf("Expected 1 handled event, got %d", handler.HandledCount())
	}
}

type mockDLQ struct {
	mu     sync.Mutex
	events []Event
}

func (q *mockDLQ) Publish(ctx context.Context, event Event, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, event)
	return nil
}

func TestInMemoryEventBus_DeadLetterQueue(t *testing.T) {
	bus := NewInMemoryEventBus()
	dlq := &mockDLQ{}
	bus.WithDeadLetterQueue(dlq)

	handler := newMockHandler("order_created")
	handler.err = errors.New("handler failed")
	_ = bus.Subscribe("order_created", handler)

	err := bus.Publish(context.Background(), newTestEvent("order_created", "order-1"))
	if err == nil {
		t.Error("Expected publish error")
	}

	dlq.mu.Lock()
	defer dlq.mu.Unlock()
	if len(dlq.events) != 1 {
		t.Errorf("Expected 1 event in DLQ, got %d", len(dlq.events))
	}
}

func TestInMemoryEventBus_ShutdownIsIdempotent(t *testing.T) {
	bus := NewInMemoryEventBus()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := bus.Shutdown(ctx); err != nil {
		t.Errorf("First shutdown failed: %v", err)
	}
	if err := bus.Shutdown(ctx); err != nil {
		t.Errorf("Second shutdown failed: %v", err)
	}

	if err := bus.Publish(context.Background(), newTestEvent("order_created", "order-1")); err == nil {
		t.Error("Expected publish to fail after shutdown")
	}
}

func TestMarkReplay_BaseEvent(t *testing.T) {
	original := newTestEvent("order_created", "order-1")
	original.WithPayload("amount", 100)

	replay := MarkReplay(original)

	if !replay.IsReplay() {
		t.Error("Expected replay delivery to report IsReplay() == true")
	}
	if original.IsReplay() {
		t.Error("Original event must not be mutated")
	}
	if replay.EventID() != original.EventID() {
		t.Errorf("Replay must keep event identity: %s != %s", replay.EventID(), original.EventID())
	}
	if !replay.OccurredAt().Equal(original.OccurredAt()) {
		t.Error("Replay must keep original occurredAt")
	}
	if replay.Payload()["amount"] != 100 {
		t.Error("Replay must keep payload")
	}
}

type customEvent struct {
	id string
}

func (e *customEvent) EventID() string                 { return e.id }
func (e *customEvent) EventType() string               { return "custom" }
func (e *customEvent) OccurredAt() time.Time           { return time.Time{} }
func (e *customEvent) AggregateID() string             { return "agg-1" }
func (e *customEvent) AggregateType() string           { return "custom_aggregate" }
func (e *customEvent) IsReplay() bool                  { return false }
func (e *customEvent) Payload() map[string]interface{} { return nil }
func (e *customEvent) Metadata() EventMetadata         { return nil }

func TestMarkReplay_WrapsUnknownEventTypes(t *testing.T) {
	original := &customEvent{id: uuid.New().String()}

	replay := MarkReplay(original)
	if !replay.IsReplay() {
		t.Error("Expected wrapped delivery to report IsReplay() == true")
	}
	if replay.EventID() != original.id {
		t.Error("Wrapped delivery must keep event identity")
	}

	// Уже помеченное событие не оборачивается повторно
	again := MarkReplay(replay)
	if again != replay {
		t.Error("MarkReplay on a replay delivery must be a no-op")
	}
}
