package saga

import (
	"context"
	"errors"
	"fmt"

	"github.com/akriventsev/sagastore/adapters/repository"
	"github.com/akriventsev/sagastore/core"
	"github.com/akriventsev/sagastore/events"
	"github.com/akriventsev/sagastore/eventstore"
	"github.com/akriventsev/sagastore/transport"
)

// commitEvents сохраняет события в хранилище и публикует их.
// Запись в хранилище - источник истины: ее ошибка прерывает обработку.
func commitEvents(ctx context.Context, store eventstore.EventStore, publisher events.EventPublisher, evs []events.Event) error {
	for _, event := range evs {
		if _, err := store.Append(ctx, event); err != nil {
			return fmt.Errorf("failed to append event %s: %w", event.EventType(), err)
		}
	}
	if publisher != nil {
		return publisher.PublishAll(ctx, evs)
	}
	return nil
}

// CreateSagaInstanceHandler обработчик создания экземпляра саги
type CreateSagaInstanceHandler struct {
	instances repository.Repository[*SagaInstance]
	store     eventstore.EventStore
	publisher events.EventPublisher
}

// NewCreateSagaInstanceHandler создает обработчик
func NewCreateSagaInstanceHandler(instances repository.Repository[*SagaInstance], store eventstore.EventStore, publisher events.EventPublisher) *CreateSagaInstanceHandler {
	return &CreateSagaInstanceHandler{instances: instances, store: store, publisher: publisher}
}

func (h *CreateSagaInstanceHandler) CommandName() string {
	return CommandCreateSagaInstance
}

func (h *CreateSagaInstanceHandler) Handle(ctx context.Context, cmd transport.Command) error {
	c, ok := cmd.(CreateSagaInstanceCommand)
	if !ok {
		return fmt.Errorf("unexpected command type %T for %s", cmd, CommandCreateSagaInstance)
	}

	if _, err := h.instances.FindByID(ctx, c.SagaInstanceID); err == nil {
		return core.NewError(core.ErrAlreadyExists,
			fmt.Sprintf("saga instance %s already exists", c.SagaInstanceID))
	}

	instance, evs, err := NewSagaInstance(c.SagaInstanceID, c.Name)
	if err != nil {
		return err
	}

	if err := h.instances.Save(ctx, instance); err != nil {
		return fmt.Errorf("failed to save saga instance: %w", err)
	}
	return commitEvents(ctx, h.store, h.publisher, evs)
}

// ChangeSagaInstanceStatusHandler обработчик смены статуса экземпляра
type ChangeSagaInstanceStatusHandler struct {
	instances repository.Repository[*SagaInstance]
	store     eventstore.EventStore
	publisher events.EventPublisher
}

// NewChangeSagaInstanceStatusHandler создает обработчик
func NewChangeSagaInstanceStatusHandler(instances repository.Repository[*SagaInstance], store eventstore.EventStore, publisher events.EventPublisher) *ChangeSagaInstanceStatusHandler {
	return &ChangeSagaInstanceStatusHandler{instances: instances, store: store, publisher: publisher}
}

func (h *ChangeSagaInstanceStatusHandler) CommandName() string {
	return CommandChangeSagaInstanceStatus
}

func (h *ChangeSagaInstanceStatusHandler) Handle(ctx context.Context, cmd transport.Command) error {
	c, ok := cmd.(ChangeSagaInstanceStatusCommand)
	if !ok {
		return fmt.Errorf("unexpected command type %T for %s", cmd, CommandChangeSagaInstanceStatus)
	}

	instance, err := h.instances.FindByID(ctx, c.SagaInstanceID)
	if err != nil {
		if errors.Is(err, repository.ErrEntityNotFound) {
			return core.NewError(core.ErrNotFound,
				fmt.Sprintf("saga instance %s not found", c.SagaInstanceID))
		}
		return err
	}

	evs, err := instance.ChangeStatus(c.Status, true)
	if err != nil {
		return err
	}

	if err := h.instances.Save(ctx, instance); err != nil {
		return fmt.Errorf("failed to save saga instance: %w", err)
	}
	return commitEvents(ctx, h.store, h.publisher, evs)
}

// CreateSagaStepHandler обработчик создания шага
type CreateSagaStepHandler struct {
	steps     repository.Repository[*SagaStep]
	instances repository.Repository[*SagaInstance]
	store     eventstore.EventStore
	publisher events.EventPublisher
}

// NewCreateSagaStepHandler создает обработчик
func NewCreateSagaStepHandler(steps repository.Repository[*SagaStep], instances repository.Repository[*SagaInstance], store eventstore.EventStore, publisher events.EventPublisher) *CreateSagaStepHandler {
	return &CreateSagaStepHandler{steps: steps, instances: instances, store: store, publisher: publisher}
}

func (h *CreateSagaStepHandler) CommandName() string {
	return CommandCreateSagaStep
}

func (h *CreateSagaStepHandler) Handle(ctx context.Context, cmd transport.Command) error {
	c, ok := cmd.(CreateSagaStepCommand)
	if !ok {
		return fmt.Errorf("unexpected command type %T for %s", cmd, CommandCreateSagaStep)
	}

	if _, err := h.instances.FindByID(ctx, c.SagaInstanceID); err != nil {
		if errors.Is(err, repository.ErrEntityNotFound) {
			return core.NewError(core.ErrNotFound,
				fmt.Sprintf("saga instance %s not found", c.SagaInstanceID))
		}
		return err
	}
	if _, err := h.steps.FindByID(ctx, c.SagaStepID); err == nil {
		return core.NewError(core.ErrAlreadyExists,
			fmt.Sprintf("saga step %s already exists", c.SagaStepID))
	}

	step, evs, err := NewSagaStep(c.SagaStepID, c.SagaInstanceID, c.Name, c.Order, c.Payload, c.MaxRetries)
	if err != nil {
		return err
	}

	if err := h.steps.Save(ctx, step); err != nil {
		return fmt.Errorf("failed to save saga step: %w", err)
	}
	return commitEvents(ctx, h.store, h.publisher, evs)
}

// UpdateSagaStepHandler обработчик переходов шага
type UpdateSagaStepHandler struct {
	steps     repository.Repository[*SagaStep]
	store     eventstore.EventStore
	publisher events.EventPublisher
}

// NewUpdateSagaStepHandler создает обработчик
func NewUpdateSagaStepHandler(steps repository.Repository[*SagaStep], store eventstore.EventStore, publisher events.EventPublisher) *UpdateSagaStepHandler {
	return &UpdateSagaStepHandler{steps: steps, store: store, publisher: publisher}
}

func (h *UpdateSagaStepHandler) CommandName() string {
	return CommandUpdateSagaStep
}

func (h *UpdateSagaStepHandler) Handle(ctx context.Context, cmd transport.Command) error {
	c, ok := cmd.(UpdateSagaStepCommand)
	if !ok {
		return fmt.Errorf("unexpected command type %T for %s", cmd, CommandUpdateSagaStep)
	}

	step, err := h.steps.FindByID(ctx, c.SagaStepID)
	if err != nil {
		if errors.Is(err, repository.ErrEntityNotFound) {
			return core.NewError(core.ErrNotFound,
				fmt.Sprintf("saga step %s not found", c.SagaStepID))
		}
		return err
	}

	var evs []events.Event
	if c.IncrementRetry {
		evs, err = step.IncrementRetryCount()
	} else {
		switch c.Status {
		case StepStatusRunning:
			evs, err = step.MarkAsRunning()
		case StepStatusCompleted:
			evs, err = step.MarkAsCompleted(c.Result)
		case StepStatusFailed:
			evs, err = step.MarkAsFailed(c.ErrorMessage)
		default:
			return core.NewError(core.ErrInvalidTransition,
				fmt.Sprintf("unknown saga step status: %s", c.Status))
		}
	}
	if err != nil {
		return err
	}

	if err := h.steps.Save(ctx, step); err != nil {
		return fmt.Errorf("failed to save saga step: %w", err)
	}
	return commitEvents(ctx, h.store, h.publisher, evs)
}

// CreateSagaLogHandler обработчик создания записи журнала
type CreateSagaLogHandler struct {
	logs      repository.Repository[*SagaLog]
	store     eventstore.EventStore
	publisher events.EventPublisher
}

// NewCreateSagaLogHandler создает обработчик
func NewCreateSagaLogHandler(logs repository.Repository[*SagaLog], store eventstore.EventStore, publisher events.EventPublisher) *CreateSagaLogHandler {
	return &CreateSagaLogHandler{logs: logs, store: store, publisher: publisher}
}

func (h *CreateSagaLogHandler) CommandName() string {
	return CommandCreateSagaLog
}

func (h *CreateSagaLogHandler) Handle(ctx context.Context, cmd transport.Command) error {
	c, ok := cmd.(CreateSagaLogCommand)
	if !ok {
		return fmt.Errorf("unexpected command type %T for %s", cmd, CommandCreateSagaLog)
	}

	if _, err := h.logs.FindByID(ctx, c.SagaLogID); err == nil {
		return core.NewError(core.ErrAlreadyExists,
			fmt.Sprintf("saga log %s already exists", c.SagaLogID))
	}

	entry, evs, err := NewSagaLog(c.SagaLogID, c.SagaInstanceID, c.SagaStepID, c.Type, c.Message)
	if err != nil {
		return err
	}

	if err := h.logs.Save(ctx, entry); err != nil {
		return fmt.Errorf("failed to save saga log: %w", err)
	}
	return commitEvents(ctx, h.store, h.publisher, evs)
}

// HandlerSet все обработчики команд подсистемы саг
type HandlerSet struct {
	Instances repository.Repository[*SagaInstance]
	Steps     repository.Repository[*SagaStep]
	Logs      repository.Repository[*SagaLog]
	Store     eventstore.EventStore
	Publisher events.EventPublisher
}

// RegisterHandlers регистрирует все обработчики команд на шине
func RegisterHandlers(bus transport.CommandBus, set HandlerSet) error {
	handlers := []transport.CommandHandler{
		NewCreateSagaInstanceHandler(set.Instances, set.Store, set.Publisher),
		NewChangeSagaInstanceStatusHandler(set.Instances, set.Store, set.Publisher),
		NewCreateSagaStepHandler(set.Steps, set.Instances, set.Store, set.Publisher),
		NewUpdateSagaStepHandler(set.Steps, set.Store, set.Publisher),
		NewCreateSagaLogHandler(set.Logs, set.Store, set.Publisher),
	}

	for _, handler := range handlers {
		if err := bus.Register(handler); err != nil {
			return fmt.Errorf("failed to register handler %s: %w", handler.CommandName(), err)
		}
	}
	return nil
}
