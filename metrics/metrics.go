// Package metrics предоставляет систему метрик на основе OpenTelemetry.
package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics сборщик метрик подсистемы саг и хранилища событий
type Metrics struct {
	meter          metric.Meter
	sagasTotal     metric.Int64Counter
	stepsTotal     metric.Int64Counter
	stepDuration   metric.Float64Histogram
	eventsAppended metric.Int64Counter
	eventsReplayed metric.Int64Counter
	errorsTotal    metric.Int64Counter
	activeSagas    metric.Int64UpDownCounter
}

// NewMetrics создает новый сборщик метрик
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("sagastore")

	sagasTotal, err := meter.Int64Counter(
		"sagas_total",
		metric.WithDescription("Total number of saga instances by outcome"),
	)
	if err != nil {
		return nil, err
	}

	stepsTotal, err := meter.Int64Counter(
		"saga_steps_total",
		metric.WithDescription("Total number of saga steps executed"),
	)
	if err != nil {
		return nil, err
	}

	stepDuration, err := meter.Float64Histogram(
		"saga_step_duration_seconds",
		metric.WithDescription("Saga step execution duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	eventsAppended, err := meter.Int64Counter(
		"events_appended_total",
		metric.WithDescription("Total number of events appended to the store"),
	)
	if err != nil {
		return nil, err
	}

	eventsReplayed, err := meter.Int64Counter(
		"events_replayed_total",
		metric.WithDescription("Total number of events redelivered during replay"),
	)
	if err != nil {
		return nil, err
	}

	errorsTotal, err := meter.Int64Counter(
		"errors_total",
		metric.WithDescription("Total number of errors"),
	)
	if err != nil {
		return nil, err
	}

	activeSagas, err := meter.Int64UpDownCounter(
		"active_sagas",
		metric.WithDescription("Number of saga instances currently running"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		meter:          meter,
		sagasTotal:     sagasTotal,
		stepsTotal:     stepsTotal,
		stepDuration:   stepDuration,
		eventsAppended: eventsAppended,
		eventsReplayed: eventsReplayed,
		errorsTotal:    errorsTotal,
		activeSagas:    activeSagas,
	}, nil
}

// RecordSaga записывает завершение саги с итоговым статусом
func (m *Metrics) RecordSaga(ctx context.Context, sagaName, outcome string) {
	m.sagasTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("saga", sagaName),
		attribute.String("outcome", outcome),
	))
}

// RecordStep записывает выполнение шага
func (m *Metrics) RecordStep(ctx context.Context, sagaName, stepName string, duration time.Duration, success bool) {
	attrs := []attribute.KeyValue{
		attribute.String("saga", sagaName),
		attribute.String("step", stepName),
		attribute.Bool("success", success),
	}

	m.stepsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.stepDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if !success {
		m.errorsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("type", "step"),
			attribute.String("step", stepName),
		))
	}
}

// RecordEventAppended записывает сохранение события
func (m *Metrics) RecordEventAppended(ctx context.Context, eventType string) {
	m.eventsAppended.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", eventType),
	))
}

// RecordEventReplayed записывает повторную доставку события
func (m *Metrics) RecordEventReplayed(ctx context.Context, eventType string) {
	m.eventsReplayed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", eventType),
	))
}

// RecordError записывает ошибку
func (m *Metrics) RecordError(ctx context.Context, errorType string) {
	m.errorsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", errorType),
	))
}

// IncrementActiveSagas увеличивает счетчик активных саг
func (m *Metrics) IncrementActiveSagas(ctx context.Context) {
	m.activeSagas.Add(ctx, 1)
}

// DecrementActiveSagas уменьшает счетчик активных саг
func (m *Metrics) DecrementActiveSagas(ctx context.Context) {
	m.activeSagas.Add(ctx, -1)
}
