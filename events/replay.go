// Package events предоставляет поддержку повторной доставки событий.
package events

// replayDelivery обертка, помечающая произвольное событие как повторную доставку
type replayDelivery struct {
	Event
}

func (r replayDelivery) IsReplay() bool {
	return true
}

// MarkReplay возвращает доставку события, помеченную как replay.
// Исходное событие не изменяется. Повторный вызов возвращает событие как есть.
func MarkReplay(e Event) Event {
	if e.IsReplay() {
		return e
	}
	if base, ok := e.(*BaseEvent); ok {
		return base.AsReplay()
	}
	return replayDelivery{Event: e}
}
