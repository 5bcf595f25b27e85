// Package metrics предоставляет функции для настройки системы метрик.
package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Config конфигурация экспорта метрик
type Config struct {
	ExporterType  string
	ResourceAttrs map[string]string
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		ExporterType: "prometheus",
	}
}

// Setup настраивает экспорт метрик и устанавливает глобальный MeterProvider
func Setup(config Config) (*metric.MeterProvider, error) {
	var reader metric.Reader
	var err error

	switch config.ExporterType {
	case "", "prometheus":
		reader, err = prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown exporter type: %s", config.ExporterType)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(buildResourceAttributes(config.ResourceAttrs)...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := metric.NewMeterProvider(
		metric.WithReader(reader),
		metric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	return provider, nil
}

// Shutdown корректно завершает работу метрик
func Shutdown(ctx context.Context, provider *metric.MeterProvider) error {
	if provider == nil {
		return nil
	}
	return provider.Shutdown(ctx)
}

// buildResourceAttributes строит resource attributes
func buildResourceAttributes(attrs map[string]string) []attribute.KeyValue {
	result := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		result = append(result, attribute.String(k, v))
	}
	return result
}
