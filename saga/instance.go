package saga

import (
	"fmt"
	"time"

	"github.com/akriventsev/sagastore/core"
	"github.com/akriventsev/sagastore/events"
)

// SagaInstanceStatus статус экземпляра саги
type SagaInstanceStatus string

const (
	SagaStatusPending      SagaInstanceStatus = "PENDING"
	SagaStatusStarted      SagaInstanceStatus = "STARTED"
	SagaStatusRunning      SagaInstanceStatus = "RUNNING"
	SagaStatusCompleted    SagaInstanceStatus = "COMPLETED"
	SagaStatusFailed       SagaInstanceStatus = "FAILED"
	SagaStatusCompensating SagaInstanceStatus = "COMPENSATING"
	SagaStatusCompensated  SagaInstanceStatus = "COMPENSATED"
)

// IsValid проверяет, что статус входит в перечисление
func (s SagaInstanceStatus) IsValid() bool {
	switch s {
	case SagaStatusPending, SagaStatusStarted, SagaStatusRunning,
		SagaStatusCompleted, SagaStatusFailed,
		SagaStatusCompensating, SagaStatusCompensated:
		return true
	}
	return false
}

// IsTerminal сообщает, является ли статус терминальным.
// Терминальный статус фиксирует endDate экземпляра.
func (s SagaInstanceStatus) IsTerminal() bool {
	switch s {
	case SagaStatusCompleted, SagaStatusFailed, SagaStatusCompensated:
		return true
	}
	return false
}

// SagaInstance экземпляр многошагового бизнес-процесса.
// Переходы статуса выполняются явными операциями и возвращают
// доменные события; буфер событий принадлежит вызывающему.
type SagaInstance struct {
	id        string
	name      string
	status    SagaInstanceStatus
	startDate time.Time
	endDate   *time.Time
}

// NewSagaInstance создает новый экземпляр саги в статусе PENDING.
// Возвращает событие создания; оно уже несет начальный статус,
// поэтому отдельное событие смены статуса при создании не эмитится.
func NewSagaInstance(id, name string) (*SagaInstance, []events.Event, error) {
	if id == "" {
		return nil, nil, fmt.Errorf("saga instance id cannot be empty")
	}
	if name == "" {
		return nil, nil, fmt.Errorf("saga instance name cannot be empty")
	}

	instance := &SagaInstance{
		id:        id,
		name:      name,
		status:    SagaStatusPending,
		startDate: time.Now(),
	}

	return instance, []events.Event{newSagaInstanceCreatedEvent(instance)}, nil
}

// RestoreSagaInstance восстанавливает экземпляр из сохраненного состояния
func RestoreSagaInstance(id, name string, status SagaInstanceStatus, startDate time.Time, endDate *time.Time) *SagaInstance {
	return &SagaInstance{
		id:        id,
		name:      name,
		status:    status,
		startDate: startDate,
		endDate:   endDate,
	}
}

func (s *SagaInstance) ID() string {
	return s.id
}

func (s *SagaInstance) Name() string {
	return s.name
}

func (s *SagaInstance) Status() SagaInstanceStatus {
	return s.status
}

func (s *SagaInstance) StartDate() time.Time {
	return s.startDate
}

func (s *SagaInstance) EndDate() *time.Time {
	return s.endDate
}

// ChangeStatus переводит экземпляр в указанный статус.
// Статус вне перечисления - фатальная ошибка InvalidTransition,
// состояние при этом не меняется. Для терминальных статусов
// фиксируется endDate. При emit=false события не эмитятся
// (используется при создании, чтобы не дублировать событие).
func (s *SagaInstance) ChangeStatus(next SagaInstanceStatus, emit bool) ([]events.Event, error) {
	if !next.IsValid() {
		return nil, core.NewError(core.ErrInvalidTransition,
			fmt.Sprintf("unknown saga instance status: %s", next))
	}

	previous := s.status
	s.status = next
	if next.IsTerminal() {
		now := time.Now()
		s.endDate = &now
	}

	if !emit {
		return nil, nil
	}
	return []events.Event{newSagaInstanceStatusChangedEvent(s, previous)}, nil
}

// MarkAsPending переводит экземпляр в PENDING
func (s *SagaInstance) MarkAsPending() ([]events.Event, error) {
	return s.ChangeStatus(SagaStatusPending, true)
}

// MarkAsStarted переводит экземпляр в STARTED
func (s *SagaInstance) MarkAsStarted() ([]events.Event, error) {
	return s.ChangeStatus(SagaStatusStarted, true)
}

// MarkAsRunning переводит экземпляр в RUNNING
func (s *SagaInstance) MarkAsRunning() ([]events.Event, error) {
	return s.ChangeStatus(SagaStatusRunning, true)
}

// MarkAsCompleted переводит экземпляр в COMPLETED и фиксирует endDate
func (s *SagaInstance) MarkAsCompleted() ([]events.Event, error) {
	return s.ChangeStatus(SagaStatusCompleted, true)
}

// MarkAsFailed переводит экземпляр в FAILED и фиксирует endDate
func (s *SagaInstance) MarkAsFailed() ([]events.Event, error) {
	return s.ChangeStatus(SagaStatusFailed, true)
}

// MarkAsCompensating переводит экземпляр в COMPENSATING
func (s *SagaInstance) MarkAsCompensating() ([]events.Event, error) {
	return s.ChangeStatus(SagaStatusCompensating, true)
}

// MarkAsCompensated переводит экземпляр в COMPENSATED и фиксирует endDate
func (s *SagaInstance) MarkAsCompensated() ([]events.Event, error) {
	return s.ChangeStatus(SagaStatusCompensated, true)
}
