package saga

import (
	"fmt"
	"time"

	"github.com/akriventsev/sagastore/core"
	"github.com/akriventsev/sagastore/events"
)

// StepStatus статус шага саги
type StepStatus string

const (
	StepStatusPending   StepStatus = "PENDING"
	StepStatusRunning   StepStatus = "RUNNING"
	StepStatusCompleted StepStatus = "COMPLETED"
	StepStatusFailed    StepStatus = "FAILED"
)

// IsValid проверяет, что статус входит в перечисление
func (s StepStatus) IsValid() bool {
	switch s {
	case StepStatusPending, StepStatusRunning, StepStatusCompleted, StepStatusFailed:
		return true
	}
	return false
}

// IsTerminal сообщает, является ли статус терминальным
func (s StepStatus) IsTerminal() bool {
	return s == StepStatusCompleted || s == StepStatusFailed
}

// SagaStep одна единица работы внутри саги.
// Статус движется только вперед: PENDING -> RUNNING -> COMPLETED | FAILED.
// order - метаданные вызывающего для отображения и аудита,
// уникальность и непрерывность значений не проверяются.
type SagaStep struct {
	id             string
	sagaInstanceID string
	name           string
	order          int
	status         StepStatus
	startDate      *time.Time
	endDate        *time.Time
	errorMessage   string
	retryCount     int
	maxRetries     int
	payload        map[string]interface{}
	result         map[string]interface{}
}

// NewSagaStep создает новый шаг в статусе PENDING
func NewSagaStep(id, sagaInstanceID, name string, order int, payload map[string]interface{}, maxRetries int) (*SagaStep, []events.Event, error) {
	if id == "" {
		return nil, nil, fmt.Errorf("saga step id cannot be empty")
	}
	if sagaInstanceID == "" {
		return nil, nil, fmt.Errorf("saga instance id cannot be empty")
	}
	if name == "" {
		return nil, nil, fmt.Errorf("saga step name cannot be empty")
	}
	if order < 0 {
		return nil, nil, fmt.Errorf("saga step order cannot be negative")
	}

	if payload == nil {
		payload = make(map[string]interface{})
	}

	step := &SagaStep{
		id:             id,
		sagaInstanceID: sagaInstanceID,
		name:           name,
		order:          order,
		status:         StepStatusPending,
		maxRetries:     maxRetries,
		payload:        payload,
	}

	return step, []events.Event{newSagaStepCreatedEvent(step)}, nil
}

// RestoreSagaStep восстанавливает шаг из сохраненного состояния
func RestoreSagaStep(
	id, sagaInstanceID, name string,
	order int,
	status StepStatus,
	startDate, endDate *time.Time,
	errorMessage string,
	retryCount, maxRetries int,
	payload, result map[string]interface{},
) *SagaStep {
	return &SagaStep{
		id:             id,
		sagaInstanceID: sagaInstanceID,
		name:           name,
		order:          order,
		status:         status,
		startDate:      startDate,
		endDate:        endDate,
		errorMessage:   errorMessage,
		retryCount:     retryCount,
		maxRetries:     maxRetries,
		payload:        payload,
		result:         result,
	}
}

func (s *SagaStep) ID() string {
	return s.id
}

func (s *SagaStep) SagaInstanceID() string {
	return s.sagaInstanceID
}

func (s *SagaStep) Name() string {
	return s.name
}

func (s *SagaStep) Order() int {
	return s.order
}

func (s *SagaStep) Status() StepStatus {
	return s.status
}

func (s *SagaStep) StartDate() *time.Time {
	return s.startDate
}

func (s *SagaStep) EndDate() *time.Time {
	return s.endDate
}

func (s *SagaStep) ErrorMessage() string {
	return s.errorMessage
}

func (s *SagaStep) RetryCount() int {
	return s.retryCount
}

func (s *SagaStep) MaxRetries() int {
	return s.maxRetries
}

func (s *SagaStep) Payload() map[string]interface{} {
	return s.payload
}

func (s *SagaStep) Result() map[string]interface{} {
	return s.result
}

// MarkAsRunning переводит шаг PENDING -> RUNNING и фиксирует startDate
func (s *SagaStep) MarkAsRunning() ([]events.Event, error) {
	if s.status != StepStatusPending {
		return nil, core.NewError(core.ErrInvalidTransition,
			fmt.Sprintf("saga step %s cannot move to RUNNING from %s", s.id, s.status))
	}

	now := time.Now()
	s.status = StepStatusRunning
	s.startDate = &now

	return []events.Event{newSagaStepUpdatedEvent(s)}, nil
}

// MarkAsCompleted переводит шаг RUNNING -> COMPLETED,
// фиксирует endDate и результат выполнения
func (s *SagaStep) MarkAsCompleted(result map[string]interface{}) ([]events.Event, error) {
	if s.status != StepStatusRunning {
		return nil, core.NewError(core.ErrInvalidTransition,
			fmt.Sprintf("saga step %s cannot move to COMPLETED from %s", s.id, s.status))
	}

	now := time.Now()
	s.status = StepStatusCompleted
	s.endDate = &now
	s.result = result

	return []events.Event{newSagaStepUpdatedEvent(s)}, nil
}

// MarkAsFailed переводит шаг в FAILED, фиксирует endDate и текст ошибки.
// Допускается из PENDING и RUNNING; терминальный статус изменить нельзя.
func (s *SagaStep) MarkAsFailed(errorMessage string) ([]events.Event, error) {
	if s.status.IsTerminal() {
		return nil, core.NewError(core.ErrInvalidTransition,
			fmt.Sprintf("saga step %s cannot move to FAILED from %s", s.id, s.status))
	}

	now := time.Now()
	s.status = StepStatusFailed
	s.endDate = &now
	s.errorMessage = errorMessage

	return []events.Event{newSagaStepUpdatedEvent(s)}, nil
}

// IncrementRetryCount увеличивает счетчик повторов.
// Сам по себе счетчик ничем не ограничивается: политика повторов
// целиком принадлежит конкретной саге, а maxRetries хранится
// как переданные вызывающим метаданные.
func (s *SagaStep) IncrementRetryCount() ([]events.Event, error) {
	s.retryCount++
	return []events.Event{newSagaStepUpdatedEvent(s)}, nil
}
