package saga

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/akriventsev/sagastore/adapters/repository"
	"github.com/akriventsev/sagastore/core"
	"github.com/akriventsev/sagastore/events"
)

// LiveEventHook вызывается трекером только для живых событий.
// Используется для побочных эффектов, которые не должны
// повторяться при replay (уведомления, webhooks).
type LiveEventHook func(ctx context.Context, event events.Event)

// SagaReadModelTracker проецирует доменные события саг в read-модели.
// Проекции применяются и для живых, и для replay-доставок:
// upsert по идентификатору делает повторную доставку идемпотентной.
// Побочные эффекты, привязанные к первому возникновению события,
// выполняются только когда IsReplay() == false.
type SagaReadModelTracker struct {
	instances repository.ReadRepository[*SagaInstanceView]
	steps     repository.ReadRepository[*SagaStepView]
	logs      repository.ReadRepository[*SagaLogView]
	journal   repository.ReadRepository[*EventView]
	liveHook  LiveEventHook
}

// NewSagaReadModelTracker создает новый трекер read-моделей
func NewSagaReadModelTracker(
	instances repository.ReadRepository[*SagaInstanceView],
	steps repository.ReadRepository[*SagaStepView],
	logs repository.ReadRepository[*SagaLogView],
) *SagaReadModelTracker {
	return &SagaReadModelTracker{
		instances: instances,
		steps:     steps,
		logs:      logs,
	}
}

// WithEventJournal включает проекцию всех событий в журнал для запросов истории
func (t *SagaReadModelTracker) WithEventJournal(journal repository.ReadRepository[*EventView]) *SagaReadModelTracker {
	t.journal = journal
	return t
}

// WithLiveHook устанавливает обработчик живых событий
func (t *SagaReadModelTracker) WithLiveHook(hook LiveEventHook) *SagaReadModelTracker {
	t.liveHook = hook
	return t
}

// EventType трекер подписывается на все события
func (t *SagaReadModelTracker) EventType() string {
	return events.EventTypeAll
}

// Name возвращает имя компонента
func (t *SagaReadModelTracker) Name() string {
	return "saga-read-model-tracker"
}

// Type возвращает тип компонента
func (t *SagaReadModelTracker) Type() core.ComponentType {
	return core.ComponentTypeTracker
}

// Handle обрабатывает доменное событие
func (t *SagaReadModelTracker) Handle(ctx context.Context, event events.Event) error {
	if t.journal != nil {
		if err := t.projectEvent(ctx, event); err != nil {
			return err
		}
	}

	var err error
	switch event.EventType() {
	case EventTypeSagaInstanceCreated:
		err = t.applyInstanceCreated(ctx, event)
	case EventTypeSagaInstanceStatusChanged:
		err = t.applyInstanceStatusChanged(ctx, event)
	case EventTypeSagaStepCreated:
		err = t.applyStepCreated(ctx, event)
	case EventTypeSagaStepUpdated:
		err = t.applyStepUpdated(ctx, event)
	case EventTypeSagaLogCreated:
		err = t.applyLogCreated(ctx, event)
	default:
		// Чужие события трекер не проецирует
	}
	if err != nil {
		return err
	}

	if !event.IsReplay() && t.liveHook != nil {
		t.liveHook(ctx, event)
	}
	return nil
}

func (t *SagaReadModelTracker) projectEvent(ctx context.Context, event events.Event) error {
	view := &EventView{
		EventID:       event.EventID(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		EventType:     event.EventType(),
		Payload:       event.Payload(),
		OccurredAt:    event.OccurredAt(),
	}
	if err := t.journal.Save(ctx, view); err != nil {
		return fmt.Errorf("failed to project event %s: %w", event.EventID(), err)
	}
	return nil
}

func (t *SagaReadModelTracker) applyInstanceCreated(ctx context.Context, event events.Event) error {
	payload := event.Payload()
	view := &SagaInstanceView{
		SagaInstanceID: payloadString(payload, "saga_instance_id"),
		Name:           payloadString(payload, "name"),
		Status:         payloadString(payload, "status"),
		StartDate:      payloadTime(payload, "start_date", event.OccurredAt()),
		UpdatedAt:      event.OccurredAt(),
	}
	if err := t.instances.Save(ctx, view); err != nil {
		return fmt.Errorf("failed to save saga instance view: %w", err)
	}
	return nil
}

func (t *SagaReadModelTracker) applyInstanceStatusChanged(ctx context.Context, event events.Event) error {
	payload := event.Payload()
	id := payloadString(payload, "saga_instance_id")

	view, err := t.instances.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrEntityNotFound) {
			return core.NewError(core.ErrNotFound,
				fmt.Sprintf("saga instance view %s not found", id))
		}
		return err
	}

	patch := SagaInstancePatch{
		Status:    core.Some(payloadString(payload, "status")),
		UpdatedAt: core.Some(event.OccurredAt()),
	}
	if endDate := payloadTimePtr(payload, "end_date"); endDate != nil {
		patch.EndDate = core.Some(endDate)
	}

	patch.Apply(view)
	return t.instances.Save(ctx, view)
}

func (t *SagaReadModelTracker) applyStepCreated(ctx context.Context, event events.Event) error {
	payload := event.Payload()
	view := &SagaStepView{
		SagaStepID:     payloadString(payload, "saga_step_id"),
		SagaInstanceID: payloadString(payload, "saga_instance_id"),
		Name:           payloadString(payload, "name"),
		Order:          payloadInt(payload, "order"),
		Status:         payloadString(payload, "status"),
		MaxRetries:     payloadInt(payload, "max_retries"),
		Payload:        payloadMap(payload, "payload"),
		UpdatedAt:      event.OccurredAt(),
	}
	if err := t.steps.Save(ctx, view); err != nil {
		return fmt.Errorf("failed to save saga step view: %w", err)
	}
	return nil
}

func (t *SagaReadModelTracker) applyStepUpdated(ctx context.Context, event events.Event) error {
	payload := event.Payload()
	id := payloadString(payload, "saga_step_id")

	view, err := t.steps.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrEntityNotFound) {
			return core.NewError(core.ErrNotFound,
				fmt.Sprintf("saga step view %s not found", id))
		}
		return err
	}

	patch := SagaStepPatch{
		Status:     core.Some(payloadString(payload, "status")),
		RetryCount: core.Some(payloadInt(payload, "retry_count")),
		UpdatedAt:  core.Some(event.OccurredAt()),
	}
	if startDate := payloadTimePtr(payload, "start_date"); startDate != nil {
		patch.StartDate = core.Some(startDate)
	}
	if endDate := payloadTimePtr(payload, "end_date"); endDate != nil {
		patch.EndDate = core.Some(endDate)
	}
	if message, ok := payload["error_message"]; ok {
		if text, ok := message.(string); ok {
			patch.ErrorMessage = core.Some(text)
		}
	}
	if _, ok := payload["result"]; ok {
		patch.Result = core.Some(payloadMap(payload, "result"))
	}

	patch.Apply(view)
	return t.steps.Save(ctx, view)
}

func (t *SagaReadModelTracker) applyLogCreated(ctx context.Context, event events.Event) error {
	payload := event.Payload()
	view := &SagaLogView{
		SagaLogID:      payloadString(payload, "saga_log_id"),
		SagaInstanceID: payloadString(payload, "saga_instance_id"),
		SagaStepID:     payloadString(payload, "saga_step_id"),
		Type:           payloadString(payload, "type"),
		Message:        payloadString(payload, "message"),
		CreatedAt:      payloadTime(payload, "created_at", event.OccurredAt()),
	}
	if err := t.logs.Save(ctx, view); err != nil {
		return fmt.Errorf("failed to save saga log view: %w", err)
	}
	return nil
}

// Вспомогательные функции чтения payload.
// После round-trip через JSON числа приходят как float64.
func payloadString(payload map[string]interface{}, key string) string {
	if value, ok := payload[key].(string); ok {
		return value
	}
	return ""
}

func payloadInt(payload map[string]interface{}, key string) int {
	switch value := payload[key].(type) {
	case int:
		return value
	case int64:
		return int(value)
	case float64:
		return int(value)
	}
	return 0
}

func payloadMap(payload map[string]interface{}, key string) map[string]interface{} {
	if value, ok := payload[key].(map[string]interface{}); ok {
		return value
	}
	return nil
}

func payloadTime(payload map[string]interface{}, key string, fallback time.Time) time.Time {
	if value := payloadTimePtr(payload, key); value != nil {
		return *value
	}
	return fallback
}

func payloadTimePtr(payload map[string]interface{}, key string) *time.Time {
	raw, ok := payload[key].(string)
	if !ok {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil
	}
	return &parsed
}

// ReadModelSubscription владеет глобальной подпиской трекера на шину событий.
// Это единственная долгоживущая подписка ядра, и ее жизненный цикл
// детерминирован: Start подписывает ровно один раз, Stop отписывает
// ровно один раз, повторные вызовы Stop безопасны.
type ReadModelSubscription struct {
	bus     events.EventBus
	handler events.EventHandler
	mu      sync.Mutex
	sub     *events.Subscription
}

// NewReadModelSubscription создает lifecycle-объект подписки
func NewReadModelSubscription(bus events.EventBus, handler events.EventHandler) *ReadModelSubscription {
	return &ReadModelSubscription{
		bus:     bus,
		handler: handler,
	}
}

// Start подписывает трекер на все события шины
func (s *ReadModelSubscription) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub != nil {
		return fmt.Errorf("read model subscription already started")
	}

	sub, err := s.bus.SubscribeAll(s.handler)
	if err != nil {
		return fmt.Errorf("failed to subscribe read model tracker: %w", err)
	}
	s.sub = sub
	return nil
}

// Stop отписывает трекер. Вызов идемпотентен.
func (s *ReadModelSubscription) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub == nil {
		return nil
	}

	err := s.sub.Unsubscribe()
	s.sub = nil
	return err
}

// IsRunning сообщает, активна ли подписка
func (s *ReadModelSubscription) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sub != nil && s.sub.IsActive()
}

// Name возвращает имя компонента
func (s *ReadModelSubscription) Name() string {
	return "saga-read-model-subscription"
}

// Type возвращает тип компонента
func (s *ReadModelSubscription) Type() core.ComponentType {
	return core.ComponentTypeTracker
}
