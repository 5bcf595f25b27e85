// Package events предоставляет базовые интерфейсы для работы с доменными событиями.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventTypeAll специальный тип для подписки на все события
const EventTypeAll = "*"

// Event представляет доменное событие
type Event interface {
	// EventID возвращает уникальный идентификатор события
	EventID() string
	// EventType возвращает тип события
	EventType() string
	// OccurredAt возвращает время возникновения события
	OccurredAt() time.Time
	// AggregateID возвращает идентификатор агрегата
	AggregateID() string
	// AggregateType возвращает тип агрегата
	AggregateType() string
	// IsReplay сообщает, является ли доставка повторным воспроизведением из хранилища
	IsReplay() bool
	// Payload возвращает полезную нагрузку события
	Payload() map[string]interface{}
	// Metadata возвращает метаданные события
	Metadata() EventMetadata
}

// EventMetadata метаданные события
type EventMetadata map[string]interface{}

// Get получает значение метаданных по ключу
func (m EventMetadata) Get(key string) (interface{}, bool) {
	val, ok := m[key]
	return val, ok
}

// Set устанавливает значение метаданных
func (m EventMetadata) Set(key string, value interface{}) {
	if m == nil {
		m = make(EventMetadata)
	}
	m[key] = value
}

// CorrelationID возвращает correlation ID
func (m EventMetadata) CorrelationID() string {
	val, ok := m.Get("correlation_id")
	if !ok {
		return ""
	}
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// CausationID возвращает causation ID
func (m EventMetadata) CausationID() string {
	val, ok := m.Get("causation_id")
	if !ok {
		return ""
	}
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// BaseEvent базовая реализация события
type BaseEvent struct {
	eventID       string
	eventType     string
	occurredAt    time.Time
	aggregateID   string
	aggregateType string
	isReplay      bool
	payload       map[string]interface{}
	metadata      EventMetadata
}

// NewBaseEvent создает новое базовое событие
func NewBaseEvent(eventType, aggregateID string) *BaseEvent {
	return &BaseEvent{
		eventID:     uuid.New().String(),
		eventType:   eventType,
		occurredAt:  time.Now(),
		aggregateID: aggregateID,
		payload:     make(map[string]interface{}),
		metadata:    make(EventMetadata),
	}
}

// RestoreBaseEvent восстанавливает событие из сохраненной записи.
// Идентификатор и время возникновения сохраняются как были при создании.
func RestoreBaseEvent(eventID, eventType, aggregateID, aggregateType string, occurredAt time.Time, payload map[string]interface{}) *BaseEvent {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	return &BaseEvent{
		eventID:       eventID,
		eventType:     eventType,
		occurredAt:    occurredAt,
		aggregateID:   aggregateID,
		aggregateType: aggregateType,
		payload:       payload,
		metadata:      make(EventMetadata),
	}
}

// WithAggregateType устанавливает тип агрегата
func (e *BaseEvent) WithAggregateType(aggregateType string) *BaseEvent {
	e.aggregateType = aggregateType
	return e
}

// WithPayload устанавливает значение полезной нагрузки
func (e *BaseEvent) WithPayload(key string, value interface{}) *BaseEvent {
	if e.payload == nil {
		e.payload = make(map[string]interface{})
	}
	e.payload[key] = value
	return e
}

// WithMetadata добавляет метаданные к событию
func (e *BaseEvent) WithMetadata(key string, value interface{}) *BaseEvent {
	e.metadata.Set(key, value)
	return e
}

// WithCorrelationID устанавливает correlation ID
func (e *BaseEvent) WithCorrelationID(id string) *BaseEvent {
	e.metadata.Set("correlation_id", id)
	return e
}

// WithCausationID устанавливает causation ID
func (e *BaseEvent) WithCausationID(id string) *BaseEvent {
	e.metadata.Set("causation_id", id)
	return e
}

// AsReplay возвращает копию события, помеченную как повторная доставка.
// Исходное событие не изменяется: сохраненная запись иммутабельна,
// replay - это новая доставка с той же идентичностью.
func (e *BaseEvent) AsReplay() *BaseEvent {
	clone := *e

	clone.metadata = make(EventMetadata, len(e.metadata))
	for k, v := range e.metadata {
		clone.metadata[k] = v
	}
	clone.payload = make(map[string]interface{}, len(e.payload))
	for k, v := range e.payload {
		clone.payload[k] = v
	}

	clone.isReplay = true
	return &clone
}

func (e *BaseEvent) EventID() string {
	return e.eventID
}

func (e *BaseEvent) EventType() string {
	return e.eventType
}

func (e *BaseEvent) OccurredAt() time.Time {
	return e.occurredAt
}

func (e *BaseEvent) AggregateID() string {
	return e.aggregateID
}

func (e *BaseEvent) AggregateType() string {
	return e.aggregateType
}

func (e *BaseEvent) IsReplay() bool {
	return e.isReplay
}

func (e *BaseEvent) Payload() map[string]interface{} {
	return e.payload
}

func (e *BaseEvent) Metadata() EventMetadata {
	return e.metadata
}

// EventHandler обработчик доменных событий
type EventHandler interface {
	// Handle обрабатывает событие
	Handle(ctx context.Context, event Event) error
	// EventType возвращает тип события, который обрабатывает этот handler
	EventType() string
}

// EventHandlerFunc адаптер функции к интерфейсу EventHandler
type EventHandlerFunc struct {
	Type string
	Fn   func(ctx context.Context, event Event) error
}

func (h *EventHandlerFunc) Handle(ctx context.Context, event Event) error {
	return h.Fn(ctx, event)
}

func (h *EventHandlerFunc) EventType() string {
	if h.Type == "" {
		return EventTypeAll
	}
	return h.Type
}

// EventPublisher публикатор событий
type EventPublisher interface {
	// Publish публикует событие
	Publish(ctx context.Context, event Event) error
	// PublishAll публикует набор событий по порядку
	PublishAll(ctx context.Context, events []Event) error
}

// EventSubscriber подписчик на события
type EventSubscriber interface {
	// Subscribe подписывается на тип события
	Subscribe(eventType string, handler EventHandler) error
	// Unsubscribe отписывается от типа события
	Unsubscribe(eventType string, handler EventHandler) error
}

// EventBus объединяет Publisher и Subscriber
type EventBus interface {
	EventPublisher
	EventSubscriber
	// SubscribeAll подписывает handler на все события и возвращает
	// дескриптор подписки с идемпотентным Unsubscribe
	SubscribeAll(handler EventHandler) (*Subscription, error)
}
