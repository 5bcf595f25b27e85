package saga

import (
	"fmt"
	"time"

	"github.com/akriventsev/sagastore/events"
)

// SagaLogType тип записи журнала саги
type SagaLogType string

const (
	SagaLogTypeInfo    SagaLogType = "INFO"
	SagaLogTypeWarning SagaLogType = "WARNING"
	SagaLogTypeError   SagaLogType = "ERROR"
	SagaLogTypeDebug   SagaLogType = "DEBUG"
)

// IsValid проверяет, что тип записи входит в перечисление
func (t SagaLogType) IsValid() bool {
	switch t {
	case SagaLogTypeInfo, SagaLogTypeWarning, SagaLogTypeError, SagaLogTypeDebug:
		return true
	}
	return false
}

// SagaLog append-only запись аудита саги.
// Записи создаются вместе с переходами шагов и экземпляров
// и после создания не изменяются.
type SagaLog struct {
	id             string
	sagaInstanceID string
	sagaStepID     string
	logType        SagaLogType
	message        string
	createdAt      time.Time
}

// NewSagaLog создает новую запись журнала
func NewSagaLog(id, sagaInstanceID, sagaStepID string, logType SagaLogType, message string) (*SagaLog, []events.Event, error) {
	if id == "" {
		return nil, nil, fmt.Errorf("saga log id cannot be empty")
	}
	if sagaInstanceID == "" {
		return nil, nil, fmt.Errorf("saga instance id cannot be empty")
	}
	if !logType.IsValid() {
		return nil, nil, fmt.Errorf("unknown saga log type: %s", logType)
	}

	entry := &SagaLog{
		id:             id,
		sagaInstanceID: sagaInstanceID,
		sagaStepID:     sagaStepID,
		logType:        logType,
		message:        message,
		createdAt:      time.Now(),
	}

	return entry, []events.Event{newSagaLogCreatedEvent(entry)}, nil
}

// RestoreSagaLog восстанавливает запись из сохраненного состояния
func RestoreSagaLog(id, sagaInstanceID, sagaStepID string, logType SagaLogType, message string, createdAt time.Time) *SagaLog {
	return &SagaLog{
		id:             id,
		sagaInstanceID: sagaInstanceID,
		sagaStepID:     sagaStepID,
		logType:        logType,
		message:        message,
		createdAt:      createdAt,
	}
}

func (l *SagaLog) ID() string {
	return l.id
}

func (l *SagaLog) SagaInstanceID() string {
	return l.sagaInstanceID
}

func (l *SagaLog) SagaStepID() string {
	return l.sagaStepID
}

func (l *SagaLog) Type() SagaLogType {
	return l.logType
}

func (l *SagaLog) Message() string {
	return l.message
}

func (l *SagaLog) CreatedAt() time.Time {
	return l.createdAt
}
