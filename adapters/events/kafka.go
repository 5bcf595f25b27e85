package events

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/akriventsev/sagastore/core"
	"github.com/akriventsev/sagastore/events"
)

// KafkaEventConfig конфигурация для Kafka Event Publisher
type KafkaEventConfig struct {
	Brokers []string
	Topic   string
}

// Validate проверяет корректность конфигурации
func (c KafkaEventConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("at least one broker is required")
	}
	if c.Topic == "" {
		return fmt.Errorf("topic cannot be empty")
	}
	return nil
}

// KafkaEventAdapter публикатор событий через Kafka.
// Ключ сообщения - aggregate_id: события одного агрегата
// попадают в одну партицию и сохраняют порядок.
type KafkaEventAdapter struct {
	config  KafkaEventConfig
	writer  *kafka.Writer
	running bool
}

// NewKafkaEventAdapter создает новый Kafka публикатор
func NewKafkaEventAdapter(config KafkaEventConfig) (*KafkaEventAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid kafka config: %w", err)
	}

	writer := &kafka.Writer{
		Addr:     kafka.TCP(config.Brokers...),
		Topic:    config.Topic,
		Balancer: &kafka.Hash{},
	}

	return &KafkaEventAdapter{
		config: config,
		writer: writer,
	}, nil
}

// Start запускает адаптер
func (k *KafkaEventAdapter) Start(ctx context.Context) error {
	k.running = true
	return nil
}

// Stop останавливает адаптер и закрывает writer
func (k *KafkaEventAdapter) Stop(ctx context.Context) error {
	k.running = false
	if k.writer != nil {
		return k.writer.Close()
	}
	return nil
}

// IsRunning проверяет, запущен ли адаптер
func (k *KafkaEventAdapter) IsRunning() bool {
	return k.running
}

// Name возвращает имя компонента
func (k *KafkaEventAdapter) Name() string {
	return "kafka-event-adapter"
}

// Type возвращает тип компонента
func (k *KafkaEventAdapter) Type() core.ComponentType {
	return core.ComponentTypeAdapter
}

// Publish публикует событие
func (k *KafkaEventAdapter) Publish(ctx context.Context, event events.Event) error {
	data, err := serializeEvent(event)
	if err != nil {
		return fmt.Errorf("failed to serialize event %s: %w", event.EventID(), err)
	}

	message := kafka.Message{
		Key:   []byte(event.AggregateID()),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType())},
			{Key: "aggregate_type", Value: []byte(event.AggregateType())},
		},
	}

	if err := k.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.EventID(), err)
	}
	return nil
}

// PublishAll публикует набор событий одной записью
func (k *KafkaEventAdapter) PublishAll(ctx context.Context, evs []events.Event) error {
	if len(evs) == 0 {
		return nil
	}

	messages := make([]kafka.Message, 0, len(evs))
	for _, event := range evs {
		data, err := serializeEvent(event)
		if err != nil {
			return fmt.Errorf("failed to serialize event %s: %w", event.EventID(), err)
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(event.AggregateID()),
			Value: data,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(event.EventType())},
				{Key: "aggregate_type", Value: []byte(event.AggregateType())},
			},
		})
	}

	if err := k.writer.WriteMessages(ctx, messages...); err != nil {
		return fmt.Errorf("failed to publish events: %w", err)
	}
	return nil
}
