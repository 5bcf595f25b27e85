package core

// Option значение с явным признаком присутствия.
// Используется в patch-структурах: отличает "поле не передано"
// от "поле передано со значением" (в том числе с nil).
type Option[T any] struct {
	value T
	set   bool
}

// Some возвращает установленное значение
func Some[T any](value T) Option[T] {
	return Option[T]{value: value, set: true}
}

// None возвращает отсутствующее значение
func None[T any]() Option[T] {
	return Option[T]{}
}

// Get возвращает значение и признак присутствия
func (o Option[T]) Get() (T, bool) {
	return o.value, o.set
}

// IsSet сообщает, установлено ли значение
func (o Option[T]) IsSet() bool {
	return o.set
}

// OrElse возвращает значение или fallback, если оно не установлено
func (o Option[T]) OrElse(fallback T) T {
	if o.set {
		return o.value
	}
	return fallback
}
