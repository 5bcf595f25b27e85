// Package saga предоставляет оркестрацию многошаговых бизнес-процессов
// поверх append-only хранилища событий.
package saga

import (
	"time"

	"github.com/akriventsev/sagastore/events"
)

// Типы агрегатов подсистемы саг
const (
	AggregateTypeSagaInstance = "saga_instance"
	AggregateTypeSagaStep     = "saga_step"
	AggregateTypeSagaLog      = "saga_log"
)

// Типы доменных событий
const (
	EventTypeSagaInstanceCreated       = "SagaInstanceCreated"
	EventTypeSagaInstanceStatusChanged = "SagaInstanceStatusChanged"
	EventTypeSagaStepCreated           = "SagaStepCreated"
	EventTypeSagaStepUpdated           = "SagaStepUpdated"
	EventTypeSagaLogCreated            = "SagaLogCreated"
)

// newSagaInstanceCreatedEvent событие создания экземпляра саги
func newSagaInstanceCreatedEvent(instance *SagaInstance) *events.BaseEvent {
	return events.NewBaseEvent(EventTypeSagaInstanceCreated, instance.ID()).
		WithAggregateType(AggregateTypeSagaInstance).
		WithPayload("saga_instance_id", instance.ID()).
		WithPayload("name", instance.Name()).
		WithPayload("status", string(instance.Status())).
		WithPayload("start_date", instance.StartDate().Format(time.RFC3339Nano))
}

// newSagaInstanceStatusChangedEvent событие смены статуса экземпляра
func newSagaInstanceStatusChangedEvent(instance *SagaInstance, previous SagaInstanceStatus) *events.BaseEvent {
	event := events.NewBaseEvent(EventTypeSagaInstanceStatusChanged, instance.ID()).
		WithAggregateType(AggregateTypeSagaInstance).
		WithPayload("saga_instance_id", instance.ID()).
		WithPayload("previous_status", string(previous)).
		WithPayload("status", string(instance.Status()))
	if endDate := instance.EndDate(); endDate != nil {
		event.WithPayload("end_date", endDate.Format(time.RFC3339Nano))
	}
	return event
}

// newSagaStepCreatedEvent событие создания шага
func newSagaStepCreatedEvent(step *SagaStep) *events.BaseEvent {
	return events.NewBaseEvent(EventTypeSagaStepCreated, step.ID()).
		WithAggregateType(AggregateTypeSagaStep).
		WithPayload("saga_step_id", step.ID()).
		WithPayload("saga_instance_id", step.SagaInstanceID()).
		WithPayload("name", step.Name()).
		WithPayload("order", step.Order()).
		WithPayload("status", string(step.Status())).
		WithPayload("payload", step.Payload()).
		WithPayload("max_retries", step.MaxRetries())
}

// newSagaStepUpdatedEvent событие обновления шага
func newSagaStepUpdatedEvent(step *SagaStep) *events.BaseEvent {
	event := events.NewBaseEvent(EventTypeSagaStepUpdated, step.ID()).
		WithAggregateType(AggregateTypeSagaStep).
		WithPayload("saga_step_id", step.ID()).
		WithPayload("saga_instance_id", step.SagaInstanceID()).
		WithPayload("status", string(step.Status())).
		WithPayload("retry_count", step.RetryCount())
	if startDate := step.StartDate(); startDate != nil {
		event.WithPayload("start_date", startDate.Format(time.RFC3339Nano))
	}
	if endDate := step.EndDate(); endDate != nil {
		event.WithPayload("end_date", endDate.Format(time.RFC3339Nano))
	}
	if step.ErrorMessage() != "" {
		event.WithPayload("error_message", step.ErrorMessage())
	}
	if step.Result() != nil {
		event.WithPayload("result", step.Result())
	}
	return event
}

// newSagaLogCreatedEvent событие создания записи журнала
func newSagaLogCreatedEvent(entry *SagaLog) *events.BaseEvent {
	return events.NewBaseEvent(EventTypeSagaLogCreated, entry.ID()).
		WithAggregateType(AggregateTypeSagaLog).
		WithPayload("saga_log_id", entry.ID()).
		WithPayload("saga_instance_id", entry.SagaInstanceID()).
		WithPayload("saga_step_id", entry.SagaStepID()).
		WithPayload("type", string(entry.Type())).
		WithPayload("message", entry.Message()).
		WithPayload("created_at", entry.CreatedAt().Format(time.RFC3339Nano))
}
