package eventstore

import (
	"fmt"
	"sync"

	"github.com/akriventsev/sagastore/events"
)

// EventConstructor строит доменное событие из сохраненной записи
type EventConstructor func(stored StoredEvent) (events.Event, error)

// DomainEventFactory восстанавливает доменные события из записей хранилища.
// Для незарегистрированных типов используется BaseEvent:
// восстановление никогда не падает из-за неизвестного типа.
type DomainEventFactory struct {
	mu           sync.RWMutex
	constructors map[string]EventConstructor
}

// NewDomainEventFactory создает новую фабрику событий
func NewDomainEventFactory() *DomainEventFactory {
	return &DomainEventFactory{
		constructors: make(map[string]EventConstructor),
	}
}

// Register регистрирует конструктор для типа события
func (f *DomainEventFactory) Register(eventType string, constructor EventConstructor) error {
	if eventType == "" {
		return fmt.Errorf("event type cannot be empty")
	}
	if constructor == nil {
		return fmt.Errorf("constructor cannot be nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.constructors[eventType]; exists {
		return fmt.Errorf("constructor already registered for event type %s", eventType)
	}

	f.constructors[eventType] = constructor
	return nil
}

// IsRegistered проверяет, зарегистрирован ли конструктор для типа
func (f *DomainEventFactory) IsRegistered(eventType string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.constructors[eventType]
	return ok
}

// Create восстанавливает доменное событие из сохраненной записи.
// Идентичность события (ID, тип, время возникновения) сохраняется.
func (f *DomainEventFactory) Create(stored StoredEvent) (events.Event, error) {
	f.mu.RLock()
	constructor, ok := f.constructors[stored.EventType]
	f.mu.RUnlock()

	if ok {
		event, err := constructor(stored)
		if err != nil {
			return nil, fmt.Errorf("constructor for %s failed: %w", stored.EventType, err)
		}
		return event, nil
	}

	return restoreBaseEvent(stored), nil
}

// restoreBaseEvent восстанавливает BaseEvent из записи, включая метаданные
func restoreBaseEvent(stored StoredEvent) *events.BaseEvent {
	event := events.RestoreBaseEvent(
		stored.ID,
		stored.EventType,
		stored.AggregateID,
		stored.AggregateType,
		stored.OccurredAt,
		stored.Payload,
	)
	for k, v := range stored.Metadata {
		event.WithMetadata(k, v)
	}
	return event
}
