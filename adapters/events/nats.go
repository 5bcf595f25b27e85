// Package events предоставляет адаптеры для публикации доменных событий
// во внешние брокеры сообщений.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/akriventsev/sagastore/core"
	"github.com/akriventsev/sagastore/events"
)

// serializeEvent сериализует событие в JSON для внешнего брокера.
// Флаг is_replay сохраняется: внешние подписчики должны отличать
// повторную доставку так же, как внутренние.
func serializeEvent(event events.Event) ([]byte, error) {
	envelope := map[string]interface{}{
		"event_id":       event.EventID(),
		"event_type":     event.EventType(),
		"aggregate_id":   event.AggregateID(),
		"aggregate_type": event.AggregateType(),
		"occurred_at":    event.OccurredAt().Format(time.RFC3339Nano),
		"is_replay":      event.IsReplay(),
		"payload":        event.Payload(),
	}
	if metadata := event.Metadata(); len(metadata) > 0 {
		envelope["metadata"] = metadata
	}
	return json.Marshal(envelope)
}

// eventSubject формирует subject по шаблону {prefix}.{aggregate_type}.{event_type}
func eventSubject(prefix string, event events.Event) string {
	aggregateType := event.AggregateType()
	if aggregateType == "" {
		aggregateType = "unknown"
	}
	return fmt.Sprintf("%s.%s.%s", prefix, aggregateType, event.EventType())
}

// NATSEventConfig конфигурация для NATS Event Publisher
type NATSEventConfig struct {
	Conn          *nats.Conn
	SubjectPrefix string
}

// DefaultNATSEventConfig возвращает конфигурацию по умолчанию
func DefaultNATSEventConfig() NATSEventConfig {
	return NATSEventConfig{
		SubjectPrefix: "events",
	}
}

// NATSEventAdapter публикатор событий через NATS
type NATSEventAdapter struct {
	config  NATSEventConfig
	conn    *nats.Conn
	running bool
}

// NewNATSEventAdapter создает новый NATS публикатор
func NewNATSEventAdapter(config NATSEventConfig) (*NATSEventAdapter, error) {
	if config.Conn == nil {
		return nil, fmt.Errorf("NATS connection is required")
	}
	if config.SubjectPrefix == "" {
		config.SubjectPrefix = "events"
	}

	return &NATSEventAdapter{
		config: config,
		conn:   config.Conn,
	}, nil
}

// Start запускает адаптер
func (n *NATSEventAdapter) Start(ctx context.Context) error {
	n.running = true
	return nil
}

// Stop останавливает адаптер
func (n *NATSEventAdapter) Stop(ctx context.Context) error {
	n.running = false
	return nil
}

// IsRunning проверяет, запущен ли адаптер
func (n *NATSEventAdapter) IsRunning() bool {
	return n.running
}

// Name возвращает имя компонента
func (n *NATSEventAdapter) Name() string {
	return "nats-event-adapter"
}

// Type возвращает тип компонента
func (n *NATSEventAdapter) Type() core.ComponentType {
	return core.ComponentTypeAdapter
}

// Publish публикует событие
func (n *NATSEventAdapter) Publish(ctx context.Context, event events.Event) error {
	data, err := serializeEvent(event)
	if err != nil {
		return fmt.Errorf("failed to serialize event %s: %w", event.EventID(), err)
	}

	subject := eventSubject(n.config.SubjectPrefix, event)
	if err := n.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish event %s to %s: %w", event.EventID(), subject, err)
	}
	return nil
}

// PublishAll публикует набор событий по порядку
func (n *NATSEventAdapter) PublishAll(ctx context.Context, evs []events.Event) error {
	for _, event := range evs {
		if err := n.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
