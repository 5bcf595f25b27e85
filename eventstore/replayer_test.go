package eventstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/akriventsev/sagastore/events"
)

type recordingPublisher struct {
	mu        sync.Mutex
	delivered []events.Event
	failFor   map[string]error
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{failFor: make(map[string]error)}
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delivered = append(p.delivered, event)
	if err, ok := p.failFor[event.EventID()]; ok {
		return err
	}
	return nil
}

func (p *recordingPublisher) PublishAll(ctx context.Context, evs []events.Event) error {
	for _, event := range evs {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (p *recordingPublisher) Delivered() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.delivered...)
}

func seedSagaHistory(t *testing.T, store *InMemoryEventStore) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	history := []struct {
		id        string
		eventType string
		offset    time.Duration
	}{
		{"e1", "saga_instance_created", 0},
		{"e2", "saga_step_created", time.Second},
		{"e3", "saga_step_updated", 2 * time.Second},
	}
	for _, h := range history {
		event := events.RestoreBaseEvent(h.id, h.eventType, "saga-1", "saga_instance", base.Add(h.offset), nil)
		if _, err := store.Append(ctx, event); err != nil {
			t.Fatalf("Failed to seed event %s: %v", h.id, err)
		}
	}
}

func TestEventReplayer_DeliversHistoryInChronologicalOrder(t *testing.T) {
	store := NewInMemoryEventStore()
	seedSagaHistory(t, store)

	publisher := newRecordingPublisher()
	replayer := NewEventReplayer(store, nil, publisher)

	replayed, err := replayer.Replay(context.Background(), EventCriteria{AggregateID: "saga-1"})
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if replayed != 3 {
		t.Errorf("Expected 3 replayed events, got %d", replayed)
	}

	delivered := publisher.Delivered()
	if len(delivered) != 3 {
		t.Fatalf("Expected 3 delivered events, got %d", len(delivered))
	}
	for i, want := range []string{"e1", "e2", "e3"} {
		if delivered[i].EventID() != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, delivered[i].EventID())
		}
		if !delivered[i].IsReplay() {
			t.Errorf("Event %s must be marked as replay", delivered[i].EventID())
		}
	}
}

func TestEventReplayer_HandlerFailureDoesNotStopReplay(t *testing.T) {
	store := NewInMemoryEventStore()
	seedSagaHistory(t, store)

	publisher := newRecordingPublisher()
	publisher.failFor["e2"] = errors.New("projection failed")

	replayer := NewEventReplayer(store, nil, publisher)

	replayed, err := replayer.Replay(context.Background(), EventCriteria{AggregateID: "saga-1"})
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if replayed != 3 {
		t.Errorf("Expected 3 replayed events despite handler failure, got %d", replayed)
	}
	if len(publisher.Delivered()) != 3 {
		t.Errorf("Expected all 3 events delivered, got %d", len(publisher.Delivered()))
	}
}

func TestEventReplayer_Pagination(t *testing.T) {
	store := NewInMemoryEventStore()
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		event := events.RestoreBaseEvent(
			string(rune('a'+i)), "order_created", "order-1", "order",
			base.Add(time.Duration(i)*time.Second), nil)
		if _, err := store.Append(ctx, event); err != nil {
			t.Fatalf("Failed to seed event: %v", err)
		}
	}

	publisher := newRecordingPublisher()
	replayer := NewEventReplayer(store, nil, publisher).WithPageSize(2)

	replayed, err := replayer.Replay(ctx, EventCriteria{})
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if replayed != 5 {
		t.Errorf("Expected 5 replayed events, got %d", replayed)
	}
}

func TestEventReplayer_ContextCancellation(t *testing.T) {
	store := NewInMemoryEventStore()
	seedSagaHistory(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	replayer := NewEventReplayer(store, nil, newRecordingPublisher())
	_, err := replayer.Replay(ctx, EventCriteria{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestEventReplayer_ReplayByID(t *testing.T) {
	store := NewInMemoryEventStore()
	seedSagaHistory(t, store)

	publisher := newRecordingPublisher()
	replayer := NewEventReplayer(store, nil, publisher)

	if err := replayer.ReplayByID(context.Background(), "e2"); err != nil {
		t.Fatalf("ReplayByID failed: %v", err)
	}

	delivered := publisher.Delivered()
	if len(delivered) != 1 || delivered[0].EventID() != "e2" {
		t.Fatalf("Unexpected deliveries: %v", delivered)
	}
	if !delivered[0].IsReplay() {
		t.Error("Delivery must be marked as replay")
	}

	if err := replayer.ReplayByID(context.Background(), "missing"); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("Expected ErrEventNotFound, got %v", err)
	}
}
