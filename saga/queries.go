package saga

import (
	"context"
	"errors"
	"fmt"

	"github.com/akriventsev/sagastore/adapters/repository"
	"github.com/akriventsev/sagastore/core"
	"github.com/akriventsev/sagastore/transport"
)

// Имена запросов подсистемы саг
const (
	QueryGetSagaInstance   = "saga_instance.get"
	QueryListSagaInstances = "saga_instance.list"
	QueryGetSagaStep       = "saga_step.get"
	QueryListSagaSteps     = "saga_step.list"
	QueryListSagaLogs      = "saga_log.list"
	QueryGetEvent          = "event.get"
	QueryListEvents        = "event.list"
)

// GetSagaInstanceQuery запрос экземпляра саги по ID
type GetSagaInstanceQuery struct {
	SagaInstanceID string
}

func (q GetSagaInstanceQuery) QueryName() string {
	return QueryGetSagaInstance
}

// ListSagaInstancesQuery запрос страницы экземпляров саг
type ListSagaInstancesQuery struct {
	Criteria   repository.Criteria
	Sort       *repository.Sort
	Pagination repository.Pagination
}

func (q ListSagaInstancesQuery) QueryName() string {
	return QueryListSagaInstances
}

// GetSagaStepQuery запрос шага по ID
type GetSagaStepQuery struct {
	SagaStepID string
}

func (q GetSagaStepQuery) QueryName() string {
	return QueryGetSagaStep
}

// ListSagaStepsQuery запрос шагов экземпляра саги
type ListSagaStepsQuery struct {
	SagaInstanceID string
	Sort           *repository.Sort
	Pagination     repository.Pagination
}

func (q ListSagaStepsQuery) QueryName() string {
	return QueryListSagaSteps
}

// ListSagaLogsQuery запрос записей журнала экземпляра саги
type ListSagaLogsQuery struct {
	SagaInstanceID string
	Pagination     repository.Pagination
}

func (q ListSagaLogsQuery) QueryName() string {
	return QueryListSagaLogs
}

// GetEventQuery запрос события из журнала по ID
type GetEventQuery struct {
	EventID string
}

func (q GetEventQuery) QueryName() string {
	return QueryGetEvent
}

// ListEventsQuery запрос страницы событий из журнала
type ListEventsQuery struct {
	Criteria   repository.Criteria
	Sort       *repository.Sort
	Pagination repository.Pagination
}

func (q ListEventsQuery) QueryName() string {
	return QueryListEvents
}

// mapNotFound переводит ошибку репозитория в доменную NotFound
func mapNotFound(err error, what, id string) error {
	if errors.Is(err, repository.ErrEntityNotFound) {
		return core.NewError(core.ErrNotFound, fmt.Sprintf("%s %s not found", what, id))
	}
	return err
}

// GetSagaInstanceQueryHandler обработчик запроса экземпляра
type GetSagaInstanceQueryHandler struct {
	instances repository.ReadRepository[*SagaInstanceView]
}

// NewGetSagaInstanceQueryHandler создает обработчик
func NewGetSagaInstanceQueryHandler(instances repository.ReadRepository[*SagaInstanceView]) *GetSagaInstanceQueryHandler {
	return &GetSagaInstanceQueryHandler{instances: instances}
}

func (h *GetSagaInstanceQueryHandler) QueryName() string {
	return QueryGetSagaInstance
}

func (h *GetSagaInstanceQueryHandler) Handle(ctx context.Context, q transport.Query) (interface{}, error) {
	query, ok := q.(GetSagaInstanceQuery)
	if !ok {
		return nil, fmt.Errorf("unexpected query type %T for %s", q, QueryGetSagaInstance)
	}

	view, err := h.instances.FindByID(ctx, query.SagaInstanceID)
	if err != nil {
		return nil, mapNotFound(err, "saga instance", query.SagaInstanceID)
	}
	return view, nil
}

// ListSagaInstancesQueryHandler обработчик списка экземпляров
type ListSagaInstancesQueryHandler struct {
	instances repository.ReadRepository[*SagaInstanceView]
}

// NewListSagaInstancesQueryHandler создает обработчик
func NewListSagaInstancesQueryHandler(instances repository.ReadRepository[*SagaInstanceView]) *ListSagaInstancesQueryHandler {
	return &ListSagaInstancesQueryHandler{instances: instances}
}

func (h *ListSagaInstancesQueryHandler) QueryName() string {
	return QueryListSagaInstances
}

func (h *ListSagaInstancesQueryHandler) Handle(ctx context.Context, q transport.Query) (interface{}, error) {
	query, ok := q.(ListSagaInstancesQuery)
	if !ok {
		return nil, fmt.Errorf("unexpected query type %T for %s", q, QueryListSagaInstances)
	}
	return h.instances.FindByCriteria(ctx, query.Criteria, query.Sort, query.Pagination)
}

// GetSagaStepQueryHandler обработчик запроса шага
type GetSagaStepQueryHandler struct {
	steps repository.ReadRepository[*SagaStepView]
}

// NewGetSagaStepQueryHandler создает обработчик
func NewGetSagaStepQueryHandler(steps repository.ReadRepository[*SagaStepView]) *GetSagaStepQueryHandler {
	return &GetSagaStepQueryHandler{steps: steps}
}

func (h *GetSagaStepQueryHandler) QueryName() string {
	return QueryGetSagaStep
}

func (h *GetSagaStepQueryHandler) Handle(ctx context.Context, q transport.Query) (interface{}, error) {
	query, ok := q.(GetSagaStepQuery)
	if !ok {
		return nil, fmt.Errorf("unexpected query type %T for %s", q, QueryGetSagaStep)
	}

	view, err := h.steps.FindByID(ctx, query.SagaStepID)
	if err != nil {
		return nil, mapNotFound(err, "saga step", query.SagaStepID)
	}
	return view, nil
}

// ListSagaStepsQueryHandler обработчик списка шагов экземпляра
type ListSagaStepsQueryHandler struct {
	steps repository.ReadRepository[*SagaStepView]
}

// NewListSagaStepsQueryHandler создает обработчик
func NewListSagaStepsQueryHandler(steps repository.ReadRepository[*SagaStepView]) *ListSagaStepsQueryHandler {
	return &ListSagaStepsQueryHandler{steps: steps}
}

func (h *ListSagaStepsQueryHandler) QueryName() string {
	return QueryListSagaSteps
}

func (h *ListSagaStepsQueryHandler) Handle(ctx context.Context, q transport.Query) (interface{}, error) {
	query, ok := q.(ListSagaStepsQuery)
	if !ok {
		return nil, fmt.Errorf("unexpected query type %T for %s", q, QueryListSagaSteps)
	}

	sort := query.Sort
	if sort == nil {
		sort = &repository.Sort{Field: "order", Order: repository.SortAsc}
	}
	criteria := repository.Criteria{"saga_instance_id": query.SagaInstanceID}
	return h.steps.FindByCriteria(ctx, criteria, sort, query.Pagination)
}

// ListSagaLogsQueryHandler обработчик списка записей журнала
type ListSagaLogsQueryHandler struct {
	logs repository.ReadRepository[*SagaLogView]
}

// NewListSagaLogsQueryHandler создает обработчик
func NewListSagaLogsQueryHandler(logs repository.ReadRepository[*SagaLogView]) *ListSagaLogsQueryHandler {
	return &ListSagaLogsQueryHandler{logs: logs}
}

func (h *ListSagaLogsQueryHandler) QueryName() string {
	return QueryListSagaLogs
}

func (h *ListSagaLogsQueryHandler) Handle(ctx context.Context, q transport.Query) (interface{}, error) {
	query, ok := q.(ListSagaLogsQuery)
	if !ok {
		return nil, fmt.Errorf("unexpected query type %T for %s", q, QueryListSagaLogs)
	}

	criteria := repository.Criteria{"saga_instance_id": query.SagaInstanceID}
	sort := &repository.Sort{Field: "created_at", Order: repository.SortAsc}
	return h.logs.FindByCriteria(ctx, criteria, sort, query.Pagination)
}

// GetEventQueryHandler обработчик запроса события
type GetEventQueryHandler struct {
	journal repository.ReadRepository[*EventView]
}

// NewGetEventQueryHandler создает обработчик
func NewGetEventQueryHandler(journal repository.ReadRepository[*EventView]) *GetEventQueryHandler {
	return &GetEventQueryHandler{journal: journal}
}

func (h *GetEventQueryHandler) QueryName() string {
	return QueryGetEvent
}

func (h *GetEventQueryHandler) Handle(ctx context.Context, q transport.Query) (interface{}, error) {
	query, ok := q.(GetEventQuery)
	if !ok {
		return nil, fmt.Errorf("unexpected query type %T for %s", q, QueryGetEvent)
	}

	view, err := h.journal.FindByID(ctx, query.EventID)
	if err != nil {
		return nil, mapNotFound(err, "event", query.EventID)
	}
	return view, nil
}

// ListEventsQueryHandler обработчик списка событий
type ListEventsQueryHandler struct {
	journal repository.ReadRepository[*EventView]
}

// NewListEventsQueryHandler создает обработчик
func NewListEventsQueryHandler(journal repository.ReadRepository[*EventView]) *ListEventsQueryHandler {
	return &ListEventsQueryHandler{journal: journal}
}

func (h *ListEventsQueryHandler) QueryName() string {
	return QueryListEvents
}

func (h *ListEventsQueryHandler) Handle(ctx context.Context, q transport.Query) (interface{}, error) {
	query, ok := q.(ListEventsQuery)
	if !ok {
		return nil, fmt.Errorf("unexpected query type %T for %s", q, QueryListEvents)
	}

	sort := query.Sort
	if sort == nil {
		sort = &repository.Sort{Field: "occurred_at", Order: repository.SortAsc}
	}
	return h.journal.FindByCriteria(ctx, query.Criteria, sort, query.Pagination)
}

// QueryHandlerSet репозитории для регистрации обработчиков запросов
type QueryHandlerSet struct {
	Instances repository.ReadRepository[*SagaInstanceView]
	Steps     repository.ReadRepository[*SagaStepView]
	Logs      repository.ReadRepository[*SagaLogView]
	Journal   repository.ReadRepository[*EventView]
}

// RegisterQueryHandlers регистрирует все обработчики запросов на шине
func RegisterQueryHandlers(bus transport.QueryBus, set QueryHandlerSet) error {
	handlers := []transport.QueryHandler{
		NewGetSagaInstanceQueryHandler(set.Instances),
		NewListSagaInstancesQueryHandler(set.Instances),
		NewGetSagaStepQueryHandler(set.Steps),
		NewListSagaStepsQueryHandler(set.Steps),
		NewListSagaLogsQueryHandler(set.Logs),
	}
	if set.Journal != nil {
		handlers = append(handlers,
			NewGetEventQueryHandler(set.Journal),
			NewListEventsQueryHandler(set.Journal),
		)
	}

	for _, handler := range handlers {
		if err := bus.Register(handler); err != nil {
			return fmt.Errorf("failed to register query handler %s: %w", handler.QueryName(), err)
		}
	}
	return nil
}
