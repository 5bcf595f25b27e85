package saga

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/akriventsev/sagastore/metrics"
	"github.com/akriventsev/sagastore/transport"
)

// StepAction единица работы шага. Может выполнять произвольный I/O;
// оркестратор дожидается ее завершения перед следующим шагом.
type StepAction func(ctx context.Context) (map[string]interface{}, error)

// StepRequest параметры выполнения шага
type StepRequest struct {
	Name string
	// Order метаданные вызывающего для отображения и аудита;
	// порядок выполнения задается последовательностью вызовов ExecuteStep
	Order      int
	Payload    map[string]interface{}
	MaxRetries int
	Action     StepAction
}

// BaseSaga шаблон оркестратора, который встраивает конкретная бизнес-сага.
// Дает три примитива: создание экземпляра, выполнение шага и терминальные
// переходы. Автоматических повторов и компенсаций нет: политика целиком
// принадлежит конкретной саге.
type BaseSaga struct {
	name       string
	commandBus transport.CommandBus
	metrics    *metrics.Metrics
}

// NewBaseSaga создает новый оркестратор саги
func NewBaseSaga(name string, commandBus transport.CommandBus) *BaseSaga {
	return &BaseSaga{
		name:       name,
		commandBus: commandBus,
	}
}

// WithMetrics добавляет сборщик метрик
func (s *BaseSaga) WithMetrics(m *metrics.Metrics) *BaseSaga {
	s.metrics = m
	return s
}

// Name возвращает имя саги
func (s *BaseSaga) Name() string {
	return s.name
}

// CreateSagaInstance создает экземпляр саги и сразу переводит его в RUNNING.
// Возвращает идентификатор экземпляра для последующих вызовов шагов.
func (s *BaseSaga) CreateSagaInstance(ctx context.Context, name string) (string, error) {
	sagaInstanceID := uuid.New().String()

	err := s.commandBus.Send(ctx, CreateSagaInstanceCommand{
		SagaInstanceID: sagaInstanceID,
		Name:           name,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create saga instance: %w", err)
	}

	err = s.commandBus.Send(ctx, ChangeSagaInstanceStatusCommand{
		SagaInstanceID: sagaInstanceID,
		Status:         SagaStatusRunning,
	})
	if err != nil {
		return "", fmt.Errorf("failed to start saga instance: %w", err)
	}

	if s.metrics != nil {
		s.metrics.IncrementActiveSagas(ctx)
	}

	return sagaInstanceID, nil
}

// ExecuteStep создает шаг, переводит его в RUNNING, выполняет action
// и записывает итог.
//
// При успехе шаг переходит в COMPLETED с результатом action,
// и этот же результат возвращается вызывающему.
// При ошибке шаг переходит в FAILED с текстом ошибки, а исходная
// ошибка возвращается вызывающему без изменений: решение о судьбе
// всей саги принимает конкретная сага.
func (s *BaseSaga) ExecuteStep(ctx context.Context, sagaInstanceID string, req StepRequest) (map[string]interface{}, error) {
	if req.Action == nil {
		return nil, fmt.Errorf("step %s has no action", req.Name)
	}

	stepID := uuid.New().String()

	err := s.commandBus.Send(ctx, CreateSagaStepCommand{
		SagaStepID:     stepID,
		SagaInstanceID: sagaInstanceID,
		Name:           req.Name,
		Order:          req.Order,
		Payload:        req.Payload,
		MaxRetries:     req.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create saga step %s: %w", req.Name, err)
	}

	err = s.commandBus.Send(ctx, UpdateSagaStepCommand{
		SagaStepID: stepID,
		Status:     StepStatusRunning,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start saga step %s: %w", req.Name, err)
	}

	startedAt := time.Now()
	result, actionErr := req.Action(ctx)
	duration := time.Since(startedAt)

	if s.metrics != nil {
		s.metrics.RecordStep(ctx, s.name, req.Name, duration, actionErr == nil)
	}

	if actionErr != nil {
		failErr := s.commandBus.Send(ctx, UpdateSagaStepCommand{
			SagaStepID:   stepID,
			Status:       StepStatusFailed,
			ErrorMessage: actionErr.Error(),
		})
		if failErr != nil {
			// Исходная ошибка шага важнее ошибки записи состояния
			log.Printf("saga %s: failed to record failure of step %s: %v", s.name, req.Name, failErr)
		}
		return nil, actionErr
	}

	err = s.commandBus.Send(ctx, UpdateSagaStepCommand{
		SagaStepID: stepID,
		Status:     StepStatusCompleted,
		Result:     result,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to complete saga step %s: %w", req.Name, err)
	}

	return result, nil
}

// CompleteSagaInstance переводит экземпляр в COMPLETED
func (s *BaseSaga) CompleteSagaInstance(ctx context.Context, sagaInstanceID string) error {
	return s.finishSagaInstance(ctx, sagaInstanceID, SagaStatusCompleted)
}

// FailSagaInstance переводит экземпляр в FAILED
func (s *BaseSaga) FailSagaInstance(ctx context.Context, sagaInstanceID string) error {
	return s.finishSagaInstance(ctx, sagaInstanceID, SagaStatusFailed)
}

// CompensateSagaInstance переводит экземпляр в COMPENSATING.
// Сами компенсирующие действия выполняет конкретная сага.
func (s *BaseSaga) CompensateSagaInstance(ctx context.Context, sagaInstanceID string) error {
	return s.commandBus.Send(ctx, ChangeSagaInstanceStatusCommand{
		SagaInstanceID: sagaInstanceID,
		Status:         SagaStatusCompensating,
	})
}

// MarkSagaInstanceCompensated переводит экземпляр в COMPENSATED
func (s *BaseSaga) MarkSagaInstanceCompensated(ctx context.Context, sagaInstanceID string) error {
	return s.finishSagaInstance(ctx, sagaInstanceID, SagaStatusCompensated)
}

func (s *BaseSaga) finishSagaInstance(ctx context.Context, sagaInstanceID string, status SagaInstanceStatus) error {
	err := s.commandBus.Send(ctx, ChangeSagaInstanceStatusCommand{
		SagaInstanceID: sagaInstanceID,
		Status:         status,
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.DecrementActiveSagas(ctx)
		s.metrics.RecordSaga(ctx, s.name, string(status))
	}
	return nil
}

// Log добавляет запись в журнал саги
func (s *BaseSaga) Log(ctx context.Context, sagaInstanceID, sagaStepID string, logType SagaLogType, message string) error {
	return s.commandBus.Send(ctx, CreateSagaLogCommand{
		SagaLogID:      uuid.New().String(),
		SagaInstanceID: sagaInstanceID,
		SagaStepID:     sagaStepID,
		Type:           logType,
		Message:        message,
	})
}
