package eventstore

import (
	"context"
	"fmt"
	"log"

	"github.com/akriventsev/sagastore/events"
)

// EventReplayer повторно доставляет сохраненные события подписчикам.
// Каждая доставка помечена флагом replay, чтобы обработчики могли
// отличить восстановление от живого потока.
type EventReplayer struct {
	store     EventStore
	factory   *DomainEventFactory
	publisher events.EventPublisher
	pageSize  int
}

// NewEventReplayer создает новый replayer
func NewEventReplayer(store EventStore, factory *DomainEventFactory, publisher events.EventPublisher) *EventReplayer {
	if factory == nil {
		factory = NewDomainEventFactory()
	}
	return &EventReplayer{
		store:     store,
		factory:   factory,
		publisher: publisher,
		pageSize:  DefaultPageSize,
	}
}

// WithPageSize устанавливает размер страницы выборки из хранилища
func (r *EventReplayer) WithPageSize(size int) *EventReplayer {
	if size > 0 {
		r.pageSize = size
	}
	return r
}

// Replay повторно доставляет события, подходящие под фильтр,
// в хронологическом порядке. Возвращает количество доставленных событий.
//
// Ошибка обработчика не прерывает воспроизведение: она логируется,
// и replayer переходит к следующему событию. Прерывают воспроизведение
// только отмена контекста и ошибки чтения из хранилища.
func (r *EventReplayer) Replay(ctx context.Context, criteria EventCriteria) (int, error) {
	// Пагинация управляется самим replayer
	criteria.PerPage = r.pageSize

	replayed := 0
	for page := 1; ; page++ {
		criteria.Page = page

		batch, err := r.store.FindByCriteria(ctx, criteria)
		if err != nil {
			return replayed, fmt.Errorf("failed to load events for replay: %w", err)
		}
		if len(batch) == 0 {
			return replayed, nil
		}

		for _, stored := range batch {
			if err := ctx.Err(); err != nil {
				return replayed, err
			}

			event, err := r.factory.Create(stored)
			if err != nil {
				log.Printf("replay: failed to reconstruct event %s (%s): %v", stored.ID, stored.EventType, err)
				continue
			}

			delivery := events.MarkReplay(event)
			if err := r.publisher.Publish(ctx, delivery); err != nil {
				// Сбой одного обработчика не должен останавливать восстановление
				log.Printf("replay: handler failed for event %s (%s): %v", stored.ID, stored.EventType, err)
			}
			replayed++
		}

		if len(batch) < r.pageSize {
			return replayed, nil
		}
	}
}

// ReplayByID повторно доставляет одно событие по идентификатору
func (r *EventReplayer) ReplayByID(ctx context.Context, id string) error {
	stored, err := r.store.FindByID(ctx, id)
	if err != nil {
		return err
	}

	event, err := r.factory.Create(stored)
	if err != nil {
		return fmt.Errorf("failed to reconstruct event %s: %w", id, err)
	}

	return r.publisher.Publish(ctx, events.MarkReplay(event))
}
