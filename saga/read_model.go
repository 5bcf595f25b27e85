package saga

import (
	"fmt"
	"time"

	"github.com/akriventsev/sagastore/adapters/repository"
	"github.com/akriventsev/sagastore/core"
)

// matchFields сравнивает поля view с фильтром по строковому представлению
func matchFields(fields map[string]interface{}, criteria repository.Criteria) bool {
	for key, want := range criteria {
		value, ok := fields[key]
		if !ok {
			return false
		}
		if fmt.Sprintf("%v", value) != fmt.Sprintf("%v", want) {
			return false
		}
	}
	return true
}

// SagaInstanceView read-модель экземпляра саги
type SagaInstanceView struct {
	SagaInstanceID string     `json:"saga_instance_id"`
	Name           string     `json:"name"`
	Status         string     `json:"status"`
	StartDate      time.Time  `json:"start_date"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (v *SagaInstanceView) ID() string {
	return v.SagaInstanceID
}

func (v *SagaInstanceView) Match(criteria repository.Criteria) bool {
	return matchFields(map[string]interface{}{
		"saga_instance_id": v.SagaInstanceID,
		"name":             v.Name,
		"status":           v.Status,
	}, criteria)
}

func (v *SagaInstanceView) SortValue(field string) interface{} {
	switch field {
	case "name":
		return v.Name
	case "status":
		return v.Status
	case "start_date":
		return v.StartDate
	case "updated_at":
		return v.UpdatedAt
	}
	return v.SagaInstanceID
}

// SagaInstancePatch частичное обновление view экземпляра.
// Применяются только установленные поля; Option с nil-значением
// явно очищает поле.
type SagaInstancePatch struct {
	Status    core.Option[string]
	EndDate   core.Option[*time.Time]
	UpdatedAt core.Option[time.Time]
}

// Apply применяет patch к view
func (p SagaInstancePatch) Apply(view *SagaInstanceView) {
	if status, ok := p.Status.Get(); ok {
		view.Status = status
	}
	if endDate, ok := p.EndDate.Get(); ok {
		view.EndDate = endDate
	}
	if updatedAt, ok := p.UpdatedAt.Get(); ok {
		view.UpdatedAt = updatedAt
	}
}

// SagaStepView read-модель шага саги
type SagaStepView struct {
	SagaStepID     string                 `json:"saga_step_id"`
	SagaInstanceID string                 `json:"saga_instance_id"`
	Name           string                 `json:"name"`
	Order          int                    `json:"order"`
	Status         string                 `json:"status"`
	StartDate      *time.Time             `json:"start_date,omitempty"`
	EndDate        *time.Time             `json:"end_date,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	RetryCount     int                    `json:"retry_count"`
	MaxRetries     int                    `json:"max_retries"`
	Payload        map[string]interface{} `json:"payload,omitempty"`
	Result         map[string]interface{} `json:"result,omitempty"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

func (v *SagaStepView) ID() string {
	return v.SagaStepID
}

func (v *SagaStepView) Match(criteria repository.Criteria) bool {
	return matchFields(map[string]interface{}{
		"saga_step_id":     v.SagaStepID,
		"saga_instance_id": v.SagaInstanceID,
		"name":             v.Name,
		"status":           v.Status,
		"order":            v.Order,
	}, criteria)
}

func (v *SagaStepView) SortValue(field string) interface{} {
	switch field {
	case "name":
		return v.Name
	case "order":
		return v.Order
	case "status":
		return v.Status
	case "updated_at":
		return v.UpdatedAt
	}
	return v.SagaStepID
}

// SagaStepPatch частичное обновление view шага
type SagaStepPatch struct {
	Status       core.Option[string]
	StartDate    core.Option[*time.Time]
	EndDate      core.Option[*time.Time]
	ErrorMessage core.Option[string]
	RetryCount   core.Option[int]
	Result       core.Option[map[string]interface{}]
	UpdatedAt    core.Option[time.Time]
}

// Apply применяет patch к view
func (p SagaStepPatch) Apply(view *SagaStepView) {
	if status, ok := p.Status.Get(); ok {
		view.Status = status
	}
	if startDate, ok := p.StartDate.Get(); ok {
		view.StartDate = startDate
	}
	if endDate, ok := p.EndDate.Get(); ok {
		view.EndDate = endDate
	}
	if errorMessage, ok := p.ErrorMessage.Get(); ok {
		view.ErrorMessage = errorMessage
	}
	if retryCount, ok := p.RetryCount.Get(); ok {
		view.RetryCount = retryCount
	}
	if result, ok := p.Result.Get(); ok {
		view.Result = result
	}
	if updatedAt, ok := p.UpdatedAt.Get(); ok {
		view.UpdatedAt = updatedAt
	}
}

// SagaLogView read-модель записи журнала
type SagaLogView struct {
	SagaLogID      string    `json:"saga_log_id"`
	SagaInstanceID string    `json:"saga_instance_id"`
	SagaStepID     string    `json:"saga_step_id,omitempty"`
	Type           string    `json:"type"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
}

func (v *SagaLogView) ID() string {
	return v.SagaLogID
}

func (v *SagaLogView) Match(criteria repository.Criteria) bool {
	return matchFields(map[string]interface{}{
		"saga_log_id":      v.SagaLogID,
		"saga_instance_id": v.SagaInstanceID,
		"saga_step_id":     v.SagaStepID,
		"type":             v.Type,
	}, criteria)
}

func (v *SagaLogView) SortValue(field string) interface{} {
	switch field {
	case "type":
		return v.Type
	case "created_at":
		return v.CreatedAt
	}
	return v.SagaLogID
}

// EventView read-модель сохраненного события для запросов истории
type EventView struct {
	EventID       string                 `json:"event_id"`
	AggregateID   string                 `json:"aggregate_id"`
	AggregateType string                 `json:"aggregate_type"`
	EventType     string                 `json:"event_type"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
	OccurredAt    time.Time              `json:"occurred_at"`
}

func (v *EventView) ID() string {
	return v.EventID
}

func (v *EventView) Match(criteria repository.Criteria) bool {
	return matchFields(map[string]interface{}{
		"event_id":       v.EventID,
		"aggregate_id":   v.AggregateID,
		"aggregate_type": v.AggregateType,
		"event_type":     v.EventType,
	}, criteria)
}

func (v *EventView) SortValue(field string) interface{} {
	switch field {
	case "aggregate_id":
		return v.AggregateID
	case "event_type":
		return v.EventType
	case "occurred_at":
		return v.OccurredAt
	}
	return v.EventID
}
