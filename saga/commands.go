package saga

// Имена команд подсистемы саг
const (
	CommandCreateSagaInstance       = "saga_instance.create"
	CommandChangeSagaInstanceStatus = "saga_instance.change_status"
	CommandCreateSagaStep           = "saga_step.create"
	CommandUpdateSagaStep           = "saga_step.update"
	CommandCreateSagaLog            = "saga_log.create"
)

// CreateSagaInstanceCommand команда создания экземпляра саги
type CreateSagaInstanceCommand struct {
	SagaInstanceID string
	Name           string
}

func (c CreateSagaInstanceCommand) CommandName() string {
	return CommandCreateSagaInstance
}

// ChangeSagaInstanceStatusCommand команда смены статуса экземпляра
type ChangeSagaInstanceStatusCommand struct {
	SagaInstanceID string
	Status         SagaInstanceStatus
}

func (c ChangeSagaInstanceStatusCommand) CommandName() string {
	return CommandChangeSagaInstanceStatus
}

// CreateSagaStepCommand команда создания шага
type CreateSagaStepCommand struct {
	SagaStepID     string
	SagaInstanceID string
	Name           string
	Order          int
	Payload        map[string]interface{}
	MaxRetries     int
}

func (c CreateSagaStepCommand) CommandName() string {
	return CommandCreateSagaStep
}

// UpdateSagaStepCommand команда перевода шага в новый статус.
// Result учитывается при переходе в COMPLETED,
// ErrorMessage - при переходе в FAILED.
// IncrementRetry увеличивает счетчик повторов без смены статуса.
type UpdateSagaStepCommand struct {
	SagaStepID     string
	Status         StepStatus
	Result         map[string]interface{}
	ErrorMessage   string
	IncrementRetry bool
}

func (c UpdateSagaStepCommand) CommandName() string {
	return CommandUpdateSagaStep
}

// CreateSagaLogCommand команда создания записи журнала
type CreateSagaLogCommand struct {
	SagaLogID      string
	SagaInstanceID string
	SagaStepID     string
	Type           SagaLogType
	Message        string
}

func (c CreateSagaLogCommand) CommandName() string {
	return CommandCreateSagaLog
}
