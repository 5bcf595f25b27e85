package eventstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/akriventsev/sagastore/events"
)

// InMemoryEventStore реализация EventStore в памяти.
// Используется в тестах и для локальной разработки.
type InMemoryEventStore struct {
	mu       sync.RWMutex
	byID     map[string]StoredEvent
	ordered  []StoredEvent
	position int64
}

// NewInMemoryEventStore создает новый in-memory event store
func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{
		byID:    make(map[string]StoredEvent),
		ordered: make([]StoredEvent, 0),
	}
}

// Append сохраняет событие. Событие с уже существующим ID отклоняется.
func (s *InMemoryEventStore) Append(ctx context.Context, event events.Event) (StoredEvent, error) {
	if event.EventID() == "" {
		return StoredEvent{}, fmt.Errorf("event id cannot be empty")
	}
	if event.EventType() == "" {
		return StoredEvent{}, fmt.Errorf("event type cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[event.EventID()]; exists {
		return StoredEvent{}, fmt.Errorf("%w: %s", ErrDuplicateEventID, event.EventID())
	}

	s.position++
	stored := newStoredEvent(event, s.position)
	s.byID[stored.ID] = stored
	s.ordered = append(s.ordered, stored)

	return stored, nil
}

// FindByID возвращает событие по идентификатору
func (s *InMemoryEventStore) FindByID(ctx context.Context, id string) (StoredEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.byID[id]
	if !ok {
		return StoredEvent{}, fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	return stored, nil
}

// FindByCriteria возвращает события по фильтру в хронологическом порядке
func (s *InMemoryEventStore) FindByCriteria(ctx context.Context, criteria EventCriteria) ([]StoredEvent, error) {
	s.mu.RLock()
	matched := make([]StoredEvent, 0)
	for _, stored := range s.ordered {
		if criteria.Matches(stored) {
			matched = append(matched, stored)
		}
	}
	s.mu.RUnlock()

	// Хронологический порядок; позиция записи разрешает равные occurredAt
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].OccurredAt.Equal(matched[j].OccurredAt) {
			return matched[i].Position < matched[j].Position
		}
		return matched[i].OccurredAt.Before(matched[j].OccurredAt)
	})

	if criteria.Page <= 0 {
		return matched, nil
	}

	offset := criteria.offset()
	if offset >= len(matched) {
		return []StoredEvent{}, nil
	}
	end := offset + criteria.limit()
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

// CountByCriteria возвращает количество событий, подходящих под фильтр
func (s *InMemoryEventStore) CountByCriteria(ctx context.Context, criteria EventCriteria) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, stored := range s.ordered {
		if criteria.Matches(stored) {
			count++
		}
	}
	return count, nil
}

// Len возвращает общее количество сохраненных событий
func (s *InMemoryEventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ordered)
}
