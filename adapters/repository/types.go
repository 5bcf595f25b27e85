// Package repository предоставляет generic адаптеры для работы с различными storage backends.
package repository

import (
	"context"
	"errors"
)

// ErrEntityNotFound возникает когда entity с указанным ID не найдена
var ErrEntityNotFound = errors.New("entity not found")

// Entity интерфейс для entity с ID
type Entity interface {
	ID() string
}

// Repository интерфейс для write-репозитория агрегата
type Repository[T Entity] interface {
	Save(ctx context.Context, entity T) error
	FindByID(ctx context.Context, id string) (T, error)
	FindAll(ctx context.Context) ([]T, error)
	Delete(ctx context.Context, id string) error
}

// Criteria фильтр по равенству полей view-модели
type Criteria map[string]interface{}

// SortOrder направление сортировки
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Sort параметры сортировки
type Sort struct {
	Field string
	Order SortOrder
}

// Pagination параметры пагинации (Page нумеруется с 1)
type Pagination struct {
	Page    int
	PerPage int
}

// DefaultPerPage размер страницы по умолчанию
const DefaultPerPage = 50

// Normalize приводит параметры пагинации к корректным значениям
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	return p
}

// Page страница результатов выборки
type Page[T any] struct {
	Items   []T
	Total   int64
	Page    int
	PerPage int
}

// View интерфейс read-модели: умеет сопоставлять себя с фильтром
// и отдавать значение поля для сортировки
type View interface {
	Entity
	Match(criteria Criteria) bool
	SortValue(field string) interface{}
}

// ReadRepository интерфейс read-репозитория view-модели.
// Save выполняет upsert.
type ReadRepository[T View] interface {
	Save(ctx context.Context, view T) error
	FindByID(ctx context.Context, id string) (T, error)
	FindByCriteria(ctx context.Context, criteria Criteria, sort *Sort, pagination Pagination) (Page[T], error)
	Delete(ctx context.Context, id string) error
}
