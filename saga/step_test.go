package saga

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akriventsev/sagastore/core"
)

func TestNewSagaStep(t *testing.T) {
	payload := map[string]interface{}{"order_id": "order-1"}
	step, evs, err := NewSagaStep("step-1", "saga-1", "reserve_inventory", 0, payload, 3)
	require.NoError(t, err)

	assert.Equal(t, "step-1", step.ID())
	assert.Equal(t, "saga-1", step.SagaInstanceID())
	assert.Equal(t, StepStatusPending, step.Status())
	assert.Equal(t, 3, step.MaxRetries())
	assert.Equal(t, 0, step.RetryCount())
	assert.Nil(t, step.StartDate())
	assert.Nil(t, step.EndDate())

	require.Len(t, evs, 1)
	assert.Equal(t, EventTypeSagaStepCreated, evs[0].EventType())
}

func TestNewSagaStep_Validation(t *testing.T) {
	_, _, err := NewSagaStep("", "saga-1", "reserve", 0, nil, 0)
	assert.Error(t, err)

	_, _, err = NewSagaStep("step-1", "", "reserve", 0, nil, 0)
	assert.Error(t, err)

	_, _, err = NewSagaStep("step-1", "saga-1", "", 0, nil, 0)
	assert.Error(t, err)

	_, _, err = NewSagaStep("step-1", "saga-1", "reserve", -1, nil, 0)
	assert.Error(t, err)
}

func TestSagaStep_HappyPathTransitions(t *testing.T) {
	step, _, err := NewSagaStep("step-1", "saga-1", "reserve_inventory", 0, nil, 0)
	require.NoError(t, err)

	evs, err := step.MarkAsRunning()
	require.NoError(t, err)
	assert.Equal(t, StepStatusRunning, step.Status())
	require.NotNil(t, step.StartDate())
	require.Len(t, evs, 1)
	assert.Equal(t, "RUNNING", evs[0].Payload()["status"])

	result := map[string]interface{}{"reservation_id": "res-1"}
	evs, err = step.MarkAsCompleted(result)
	require.NoError(t, err)
	assert.Equal(t, StepStatusCompleted, step.Status())
	require.NotNil(t, step.EndDate())
	assert.Equal(t, result, step.Result())
	require.Len(t, evs, 1)
	assert.Equal(t, "COMPLETED", evs[0].Payload()["status"])

	// endDate не может быть раньше startDate
	assert.False(t, step.EndDate().Before(*step.StartDate()))
}

func TestSagaStep_FailureTransition(t *testing.T) {
	step, _, err := NewSagaStep("step-1", "saga-1", "charge_card", 1, nil, 0)
	require.NoError(t, err)

	_, err = step.MarkAsRunning()
	require.NoError(t, err)

	evs, err := step.MarkAsFailed("card declined")
	require.NoError(t, err)
	assert.Equal(t, StepStatusFailed, step.Status())
	assert.Equal(t, "card declined", step.ErrorMessage())
	require.NotNil(t, step.EndDate())
	require.Len(t, evs, 1)
	assert.Equal(t, "card declined", evs[0].Payload()["error_message"])
}

func TestSagaStep_FailedAllowedFromPending(t *testing.T) {
	step, _, err := NewSagaStep("step-1", "saga-1", "charge_card", 0, nil, 0)
	require.NoError(t, err)

	_, err = step.MarkAsFailed("never started")
	require.NoError(t, err)
	assert.Equal(t, StepStatusFailed, step.Status())
}

func TestSagaStep_ForwardOnlyTransitions(t *testing.T) {
	// COMPLETED из PENDING невозможен
	step, _, _ := NewSagaStep("step-1", "saga-1", "reserve", 0, nil, 0)
	_, err := step.MarkAsCompleted(nil)
	require.Error(t, err)
	assert.True(t, core.IsCode(err, core.ErrInvalidTransition))
	assert.Equal(t, StepStatusPending, step.Status())

	// RUNNING повторно невозможен
	step, _, _ = NewSagaStep("step-2", "saga-1", "reserve", 0, nil, 0)
	_, _ = step.MarkAsRunning()
	_, err = step.MarkAsRunning()
	require.Error(t, err)
	assert.True(t, core.IsCode(err, core.ErrInvalidTransition))

	// Терминальный статус изменить нельзя
	step, _, _ = NewSagaStep("step-3", "saga-1", "reserve", 0, nil, 0)
	_, _ = step.MarkAsRunning()
	_, _ = step.MarkAsCompleted(nil)
	_, err = step.MarkAsFailed("too late")
	require.Error(t, err)
	assert.True(t, core.IsCode(err, core.ErrInvalidTransition))
	assert.Equal(t, StepStatusCompleted, step.Status())
}

func TestSagaStep_IncrementRetryCount(t *testing.T) {
	step, _, err := NewSagaStep("step-1", "saga-1", "charge_card", 0, nil, 2)
	require.NoError(t, err)

	// Счетчик не ограничивается maxRetries: политика принадлежит саге
	for i := 1; i <= 5; i++ {
		evs, err := step.IncrementRetryCount()
		require.NoError(t, err)
		assert.Equal(t, i, step.RetryCount())
		require.Len(t, evs, 1)
		assert.Equal(t, i, evs[0].Payload()["retry_count"])
	}
}

func TestRestoreSagaStep(t *testing.T) {
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	step := RestoreSagaStep(
		"step-1", "saga-1", "reserve", 2,
		StepStatusRunning,
		&started, nil,
		"", 1, 3,
		map[string]interface{}{"order_id": "order-1"},
		nil,
	)

	assert.Equal(t, StepStatusRunning, step.Status())
	assert.Equal(t, 1, step.RetryCount())
	assert.Equal(t, 2, step.Order())
	require.NotNil(t, step.StartDate())
	assert.True(t, step.StartDate().Equal(started))
}

func TestNewSagaLog(t *testing.T) {
	entry, evs, err := NewSagaLog("log-1", "saga-1", "step-1", SagaLogTypeInfo, "step started")
	require.NoError(t, err)

	assert.Equal(t, "log-1", entry.ID())
	assert.Equal(t, SagaLogTypeInfo, entry.Type())
	assert.Equal(t, "step started", entry.Message())
	assert.False(t, entry.CreatedAt().IsZero())

	require.Len(t, evs, 1)
	assert.Equal(t, EventTypeSagaLogCreated, evs[0].EventType())

	// Запись без привязки к шагу допустима
	_, _, err = NewSagaLog("log-2", "saga-1", "", SagaLogTypeError, "saga failed")
	assert.NoError(t, err)

	_, _, err = NewSagaLog("", "saga-1", "", SagaLogTypeInfo, "x")
	assert.Error(t, err)
	_, _, err = NewSagaLog("log-3", "", "", SagaLogTypeInfo, "x")
	assert.Error(t, err)
	_, _, err = NewSagaLog("log-4", "saga-1", "", "TRACE", "x")
	assert.Error(t, err)
}
