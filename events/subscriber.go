// Package events предоставляет реализации EventSubscriber.
package events

import (
	"fmt"
	"sync"
)

// InMemoryEventSubscriber реализация подписчика на события в памяти
type InMemoryEventSubscriber struct {
	handlers map[string][]EventHandler
	mu       sync.RWMutex
}

// NewInMemoryEventSubscriber создает новый in-memory подписчик
func NewInMemoryEventSubscriber() *InMemoryEventSubscriber {
	return &InMemoryEventSubscriber{
		handlers: make(map[string][]EventHandler),
	}
}

// Subscribe подписывается на тип события
func (s *InMemoryEventSubscriber) Subscribe(eventType string, handler EventHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handlers == nil {
		s.handlers = make(map[string][]EventHandler)
	}

	// Проверяем, не подписан ли уже этот handler
	for _, h := range s.handlers[eventType] {
		if h == handler {
			return fmt.Errorf("handler already subscribed to event type %s", eventType)
		}
	}

	s.handlers[eventType] = append(s.handlers[eventType], handler)
	return nil
}

// Unsubscribe отписывается от типа события
func (s *InMemoryEventSubscriber) Unsubscribe(eventType string, handler EventHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	handlers := s.handlers[eventType]
	for i, h := range handlers {
		if h == handler {
			s.handlers[eventType] = append(handlers[:i], handlers[i+1:]...)
			return nil
		}
	}

	return fmt.Errorf("handler not found for event type %s", eventType)
}

// GetHandlers возвращает обработчики для типа события,
// включая подписчиков на все события
func (s *InMemoryEventSubscriber) GetHandlers(eventType string) []EventHandler {
	s.mu.RLock()
	defer s.mu.RUnlock()

	typed := s.handlers[eventType]
	wildcard := s.handlers[EventTypeAll]
	if len(wildcard) == 0 {
		return typed
	}

	result := make([]EventHandler, 0, len(typed)+len(wildcard))
	result = append(result, typed...)
	result = append(result, wildcard...)
	return result
}

// isSubscribed проверяет, подписан ли handler на тип события
func (s *InMemoryEventSubscriber) isSubscribed(eventType string, handler EventHandler) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, h := range s.handlers[eventType] {
		if h == handler {
			return true
		}
	}
	return false
}
