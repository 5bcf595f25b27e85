package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository generic in-memory write-репозиторий
type InMemoryRepository[T Entity] struct {
	entities map[string]T
	mu       sync.RWMutex
}

// NewInMemoryRepository создает новый in-memory репозиторий
func NewInMemoryRepository[T Entity]() *InMemoryRepository[T] {
	return &InMemoryRepository[T]{
		entities: make(map[string]T),
	}
}

// Save сохраняет entity
func (r *InMemoryRepository[T]) Save(ctx context.Context, entity T) error {
	id := entity.ID()
	if id == "" {
		return fmt.Errorf("entity ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entities[id] = entity
	return nil
}

// FindByID находит entity по ID
func (r *InMemoryRepository[T]) FindByID(ctx context.Context, id string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var zero T
	entity, exists := r.entities[id]
	if !exists {
		return zero, fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}
	return entity, nil
}

// FindAll возвращает все entities
func (r *InMemoryRepository[T]) FindAll(ctx context.Context) ([]T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entities := make([]T, 0, len(r.entities))
	for _, entity := range r.entities {
		entities = append(entities, entity)
	}
	return entities, nil
}

// Delete удаляет entity
func (r *InMemoryRepository[T]) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entities[id]; !exists {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}
	delete(r.entities, id)
	return nil
}

// Count возвращает количество entities
func (r *InMemoryRepository[T]) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities), nil
}

// InMemoryReadRepository generic in-memory read-репозиторий
type InMemoryReadRepository[T View] struct {
	views map[string]T
	mu    sync.RWMutex
}

// NewInMemoryReadRepository создает новый in-memory read-репозиторий
func NewInMemoryReadRepository[T View]() *InMemoryReadRepository[T] {
	return &InMemoryReadRepository[T]{
		views: make(map[string]T),
	}
}

// Save сохраняет view (upsert)
func (r *InMemoryReadRepository[T]) Save(ctx context.Context, view T) error {
	id := view.ID()
	if id == "" {
		return fmt.Errorf("view ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.views[id] = view
	return nil
}

// FindByID находит view по ID
func (r *InMemoryReadRepository[T]) FindByID(ctx context.Context, id string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var zero T
	view, exists := r.views[id]
	if !exists {
		return zero, fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}
	return view, nil
}

// FindByCriteria возвращает страницу view-моделей по фильтру
func (r *InMemoryReadRepository[T]) FindByCriteria(ctx context.Context, criteria Criteria, s *Sort, pagination Pagination) (Page[T], error) {
	r.mu.RLock()
	matched := make([]T, 0)
	for _, view := range r.views {
		if criteria == nil || view.Match(criteria) {
			matched = append(matched, view)
		}
	}
	r.mu.RUnlock()

	if s != nil && s.Field != "" {
		desc := s.Order == SortDesc
		sort.SliceStable(matched, func(i, j int) bool {
			less := compareSortValues(matched[i].SortValue(s.Field), matched[j].SortValue(s.Field))
			if desc {
				return !less
			}
			return less
		})
	}

	pagination = pagination.Normalize()
	total := int64(len(matched))

	offset := (pagination.Page - 1) * pagination.PerPage
	if offset >= len(matched) {
		return Page[T]{Items: []T{}, Total: total, Page: pagination.Page, PerPage: pagination.PerPage}, nil
	}
	end := offset + pagination.PerPage
	if end > len(matched) {
		end = len(matched)
	}

	return Page[T]{
		Items:   matched[offset:end],
		Total:   total,
		Page:    pagination.Page,
		PerPage: pagination.PerPage,
	}, nil
}

// Delete удаляет view
func (r *InMemoryReadRepository[T]) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.views[id]; !exists {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}
	delete(r.views, id)
	return nil
}

// compareSortValues сравнивает значения полей для сортировки
func compareSortValues(a, b interface{}) bool {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return av < bv
		}
	case int:
		if bv, ok := b.(int); ok {
			return av < bv
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return av < bv
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return av < bv
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Before(bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			return !av && bv
		}
	}
	return false
}
