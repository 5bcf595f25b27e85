// Package sagastore предоставляет ядро оркестрации саг и event store
// для построения асинхронных CQRS сервисов.
//
// Основные возможности:
//   - Оркестрация многошаговых бизнес-процессов (Saga Pattern)
//   - Append-only хранилище доменных событий (InMemory, PostgreSQL, MongoDB)
//   - Replay событий для перестроения read model
//   - Явные конечные автоматы для саг и их шагов
//   - Шины команд и запросов с middleware
//   - Метрики на основе OpenTelemetry
//
// Пример использования:
//
//	orch := saga.NewBaseSaga("order_processing", commandBus)
//	id, err := orch.CreateSagaInstance(ctx, "order_processing")
//	if err != nil {
//	    return err
//	}
//	result, err := orch.ExecuteStep(ctx, id, saga.StepRequest{
//	    Name:  "charge",
//	    Order: 1,
//	    Action: func(ctx context.Context) (map[string]interface{}, error) {
//	        return payments.Charge(ctx, order)
//	    },
//	})
package sagastore

// Version представляет версию библиотеки
const (
	Version = "1.0.0"
	Major   = 1
	Minor   = 0
	Patch   = 0
)

// Metadata содержит метаданные о библиотеке
type Metadata struct {
	Name        string
	Version     string
	Description string
	License     string
}

// GetMetadata возвращает метаданные библиотеки
func GetMetadata() Metadata {
	return Metadata{
		Name:        "SagaStore",
		Version:     Version,
		Description: "Saga orchestration and event store core for async CQRS services",
		License:     "MIT",
	}
}
