// Package eventstore предоставляет append-only хранилище доменных событий.
package eventstore

import (
	"context"
	"errors"
	"time"

	"github.com/akriventsev/sagastore/events"
)

var (
	// ErrEventNotFound возникает когда событие с указанным ID не найдено
	ErrEventNotFound = errors.New("event not found")
	// ErrDuplicateEventID возникает при попытке сохранить событие с уже существующим ID
	ErrDuplicateEventID = errors.New("event with this id already exists")
)

// DefaultPageSize размер страницы по умолчанию для выборки событий
const DefaultPageSize = 100

// StoredEvent представляет сохраненное событие с метаданными
type StoredEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]interface{}
	Metadata      map[string]interface{}
	Position      int64
	OccurredAt    time.Time
	RecordedAt    time.Time
}

// EventCriteria фильтр для выборки событий.
// Пустые поля не участвуют в фильтрации; временной диапазон включительный.
type EventCriteria struct {
	EventType     string
	AggregateID   string
	AggregateType string
	From          *time.Time
	To            *time.Time
	Page          int // 1-based; 0 означает без пагинации
	PerPage       int
}

// Matches проверяет, подходит ли событие под фильтр
func (c EventCriteria) Matches(e StoredEvent) bool {
	if c.EventType != "" && e.EventType != c.EventType {
		return false
	}
	if c.AggregateID != "" && e.AggregateID != c.AggregateID {
		return false
	}
	if c.AggregateType != "" && e.AggregateType != c.AggregateType {
		return false
	}
	if c.From != nil && e.OccurredAt.Before(*c.From) {
		return false
	}
	if c.To != nil && e.OccurredAt.After(*c.To) {
		return false
	}
	return true
}

// limit возвращает эффективный размер страницы
func (c EventCriteria) limit() int {
	if c.PerPage > 0 {
		return c.PerPage
	}
	return DefaultPageSize
}

// offset возвращает смещение для пагинации
func (c EventCriteria) offset() int {
	if c.Page <= 1 {
		return 0
	}
	return (c.Page - 1) * c.limit()
}

// EventStore интерфейс для хранения событий.
// Append является источником истины для истории: ошибки записи
// никогда не проглатываются и всегда возвращаются вызывающему.
type EventStore interface {
	// Append сохраняет одно событие и возвращает его durable-запись
	Append(ctx context.Context, event events.Event) (StoredEvent, error)

	// FindByID возвращает событие по идентификатору
	FindByID(ctx context.Context, id string) (StoredEvent, error)

	// FindByCriteria возвращает события по фильтру в хронологическом порядке
	// (возрастание occurredAt) с пагинацией
	FindByCriteria(ctx context.Context, criteria EventCriteria) ([]StoredEvent, error)

	// CountByCriteria возвращает количество событий, подходящих под фильтр
	CountByCriteria(ctx context.Context, criteria EventCriteria) (int64, error)
}

// newStoredEvent строит durable-запись из доменного события.
// Все поля события переносятся без потерь.
func newStoredEvent(event events.Event, position int64) StoredEvent {
	payload := make(map[string]interface{}, len(event.Payload()))
	for k, v := range event.Payload() {
		payload[k] = v
	}
	metadata := make(map[string]interface{}, len(event.Metadata()))
	for k, v := range event.Metadata() {
		metadata[k] = v
	}

	return StoredEvent{
		ID:            event.EventID(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		EventType:     event.EventType(),
		Payload:       payload,
		Metadata:      metadata,
		Position:      position,
		OccurredAt:    event.OccurredAt(),
		RecordedAt:    time.Now(),
	}
}
