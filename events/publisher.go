// Package events предоставляет реализации EventPublisher.
package events

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RetryConfig конфигурация retry для публикатора
type RetryConfig struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// DefaultRetryConfig возвращает конфигурацию retry по умолчанию
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialDelay:      time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// InMemoryEventPublisher реализация публикатора событий в памяти
type InMemoryEventPublisher struct {
	subscriber  *InMemoryEventSubscriber
	mu          sync.RWMutex
	ordered     bool
	retryConfig *RetryConfig
}

// NewInMemoryEventPublisher создает новый in-memory публикатор
func NewInMemoryEventPublisher() *InMemoryEventPublisher {
	return &InMemoryEventPublisher{
		subscriber: NewInMemoryEventSubscriber(),
		ordered:    true,
	}
}

// WithOrdering включает/выключает упорядоченную доставку
func (p *InMemoryEventPublisher) WithOrdering(ordered bool) *InMemoryEventPublisher {
	p.ordered = ordered
	return p
}

// WithRetry настраивает retry логику
func (p *InMemoryEventPublisher) WithRetry(config RetryConfig) *InMemoryEventPublisher {
	p.retryConfig = &config
	return p
}

// retryPublish выполняет доставку с retry
func (p *InMemoryEventPublisher) retryPublish(ctx context.Context, event Event, handler EventHandler) error {
	if p.retryConfig == nil {
		return handler.Handle(ctx, event)
	}

	var lastErr error
	delay := p.retryConfig.InitialDelay

	for attempt := 0; attempt < p.retryConfig.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := handler.Handle(ctx, event)
		if err == nil {
			return nil
		}

		lastErr = err
		delay = time.Duration(float64(delay) * p.retryConfig.BackoffMultiplier)
		if delay > p.retryConfig.MaxDelay {
			delay = p.retryConfig.MaxDelay
		}
	}

	return fmt.Errorf("publish failed after %d attempts: %w", p.retryConfig.MaxAttempts, lastErr)
}

// Publish публикует событие
func (p *InMemoryEventPublisher) Publish(ctx context.Context, event Event) error {
	handlers := p.subscriber.GetHandlers(event.EventType())
	if len(handlers) == 0 {
		return nil
	}

	p.mu.RLock()
	ordered := p.ordered
	p.mu.RUnlock()

	// Упорядоченная доставка: обработчики вызываются последовательно
	if ordered {
		var errors []error
		for _, handler := range handlers {
			if err := p.retryPublish(ctx, event, handler); err != nil {
				errors = append(errors, fmt.Errorf("handler %s failed: %w", handler.EventType(), err))
			}
		}

		if len(errors) > 0 {
			return fmt.Errorf("publish failed: %v", errors)
		}
		return nil
	}

	// Параллельная обработка
	var wg sync.WaitGroup
	errCh := make(chan error, len(handlers))

	for _, handler := range handlers {
		wg.Add(1)
		go func(h EventHandler) {
			defer wg.Done()
			if err := p.retryPublish(ctx, event, h); err != nil {
				errCh <- fmt.Errorf("handler %s failed: %w", h.EventType(), err)
			}
		}(handler)
	}

	wg.Wait()
	close(errCh)

	var errors []error
	for err := range errCh {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("publish failed: %v", errors)
	}

	return nil
}

// PublishAll публикует набор событий по порядку
func (p *InMemoryEventPublisher) PublishAll(ctx context.Context, events []Event) error {
	for _, event := range events {
		if err := p.Publish(ctx, event); err != nil {
			return fmt.Errorf("failed to publish event %s: %w", event.EventID(), err)
		}
	}
	return nil
}

// Subscribe подписывается на события (для совместимости с EventBus)
func (p *InMemoryEventPublisher) Subscribe(eventType string, handler EventHandler) error {
	return p.subscriber.Subscribe(eventType, handler)
}

// AsyncEventPublisher асинхронный публикатор событий
type AsyncEventPublisher struct {
	*InMemoryEventPublisher
	queue    chan eventMessage
	workers  int
	stopCh   chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

type eventMessage struct {
	ctx   context.Context
	event Event
}

// NewAsyncEventPublisher создает новый асинхронный публикатор
func NewAsyncEventPublisher(workers int, queueSize int) *AsyncEventPublisher {
	p := &AsyncEventPublisher{
		InMemoryEventPublisher: NewInMemoryEventPublisher(),
		queue:                  make(chan eventMessage, queueSize),
		workers:                workers,
		stopCh:                 make(chan struct{}),
	}

	// Запускаем воркеры
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	return p
}

func (p *AsyncEventPublisher) worker() {
	defer p.wg.Done()
	for {
		select {
		case msg, ok := <-p.queue:
			if !ok {
				return
			}
			_ = p.InMemoryEventPublisher.Publish(msg.ctx, msg.event)
		case <-p.stopCh:
			// Drain queue before stopping
			for {
				select {
				case msg := <-p.queue:
					_ = p.InMemoryEventPublisher.Publish(msg.ctx, msg.event)
				default:
					return
				}
			}
		}
	}
}

// WithRetry настраивает retry логику для асинхронного публикатора
func (p *AsyncEventPublisher) WithRetry(config RetryConfig) *AsyncEventPublisher {
	p.InMemoryEventPublisher.WithRetry(config)
	return p
}

// Publish публикует событие асинхронно
func (p *AsyncEventPublisher) Publish(ctx context.Context, event Event) error {
	select {
	case p.queue <- eventMessage{ctx: ctx, event: event}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stopCh:
		return fmt.Errorf("publisher is stopped")
	}
}

// PublishAll публикует набор событий асинхронно
func (p *AsyncEventPublisher) PublishAll(ctx context.Context, events []Event) error {
	for _, event := range events {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// Stop останавливает публикатор с graceful shutdown.
// Метод идемпотентен: повторные вызовы не приведут к panic
func (p *AsyncEventPublisher) Stop(ctx context.Context) error {
	var err error
	p.stopOnce.Do(func() {
		close(p.stopCh)

		// Ждем завершения всех воркеров
		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			err = nil
		case <-ctx.Done():
			err = ctx.Err()
		}
	})
	return err
}
