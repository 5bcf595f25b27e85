package saga

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akriventsev/sagastore/core"
)

func TestNewSagaInstance(t *testing.T) {
	instance, evs, err := NewSagaInstance("saga-1", "order_processing")
	require.NoError(t, err)

	assert.Equal(t, "saga-1", instance.ID())
	assert.Equal(t, "order_processing", instance.Name())
	assert.Equal(t, SagaStatusPending, instance.Status())
	assert.Nil(t, instance.EndDate())
	assert.False(t, instance.StartDate().IsZero())

	// Создание несет начальный статус в событии создания,
	// отдельного события смены статуса нет
	require.Len(t, evs, 1)
	assert.Equal(t, EventTypeSagaInstanceCreated, evs[0].EventType())
	assert.Equal(t, "PENDING", evs[0].Payload()["status"])
}

func TestNewSagaInstance_Validation(t *testing.T) {
	_, _, err := NewSagaInstance("", "order_processing")
	assert.Error(t, err)

	_, _, err = NewSagaInstance("saga-1", "")
	assert.Error(t, err)
}

func TestSagaInstance_ChangeStatusAcceptsAnyValidStatus(t *testing.T) {
	statuses := []SagaInstanceStatus{
		SagaStatusPending, SagaStatusStarted, SagaStatusRunning,
		SagaStatusCompleted, SagaStatusFailed,
		SagaStatusCompensating, SagaStatusCompensated,
	}

	// Любой статус из перечисления принимается из любого состояния
	for _, from := range statuses {
		for _, to := range statuses {
			instance := RestoreSagaInstance("saga-1", "order_processing", from, time.Now(), nil)

			evs, err := instance.ChangeStatus(to, true)
			require.NoError(t, err, "transition %s -> %s must be accepted", from, to)
			assert.Equal(t, to, instance.Status())
			require.Len(t, evs, 1)
			assert.Equal(t, EventTypeSagaInstanceStatusChanged, evs[0].EventType())
			assert.Equal(t, string(from), evs[0].Payload()["previous_status"])
			assert.Equal(t, string(to), evs[0].Payload()["status"])
		}
	}
}

func TestSagaInstance_EndDateSetOnlyForTerminalStatus(t *testing.T) {
	terminal := map[SagaInstanceStatus]bool{
		SagaStatusCompleted:   true,
		SagaStatusFailed:      true,
		SagaStatusCompensated: true,
	}

	for _, status := range []SagaInstanceStatus{
		SagaStatusPending, SagaStatusStarted, SagaStatusRunning,
		SagaStatusCompleted, SagaStatusFailed,
		SagaStatusCompensating, SagaStatusCompensated,
	} {
		instance := RestoreSagaInstance("saga-1", "order_processing", SagaStatusRunning, time.Now(), nil)

		_, err := instance.ChangeStatus(status, true)
		require.NoError(t, err)

		if terminal[status] {
			assert.NotNil(t, instance.EndDate(), "terminal status %s must set endDate", status)
		} else {
			assert.Nil(t, instance.EndDate(), "non-terminal status %s must not set endDate", status)
		}
	}
}

func TestSagaInstance_UnknownStatusRejectedWithoutStateChange(t *testing.T) {
	instance := RestoreSagaInstance("saga-1", "order_processing", SagaStatusRunning, time.Now(), nil)

	evs, err := instance.ChangeStatus("EXPLODED", true)
	require.Error(t, err)
	assert.True(t, core.IsCode(err, core.ErrInvalidTransition))
	assert.Empty(t, evs)

	// Состояние не изменилось
	assert.Equal(t, SagaStatusRunning, instance.Status())
	assert.Nil(t, instance.EndDate())
}

func TestSagaInstance_ChangeStatusWithoutEmit(t *testing.T) {
	instance := RestoreSagaInstance("saga-1", "order_processing", SagaStatusPending, time.Now(), nil)

	evs, err := instance.ChangeStatus(SagaStatusRunning, false)
	require.NoError(t, err)
	assert.Empty(t, evs)
	assert.Equal(t, SagaStatusRunning, instance.Status())
}

func TestSagaInstance_StatusChangedEventCarriesEndDate(t *testing.T) {
	instance := RestoreSagaInstance("saga-1", "order_processing", SagaStatusRunning, time.Now(), nil)

	evs, err := instance.MarkAsCompleted()
	require.NoError(t, err)
	require.Len(t, evs, 1)

	endDate, ok := evs[0].Payload()["end_date"].(string)
	require.True(t, ok, "terminal transition must carry end_date in payload")

	parsed, err := time.Parse(time.RFC3339Nano, endDate)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), parsed, time.Minute)
}

func TestSagaInstanceStatus_IsTerminal(t *testing.T) {
	assert.True(t, SagaStatusCompleted.IsTerminal())
	assert.True(t, SagaStatusFailed.IsTerminal())
	assert.True(t, SagaStatusCompensated.IsTerminal())

	assert.False(t, SagaStatusPending.IsTerminal())
	assert.False(t, SagaStatusStarted.IsTerminal())
	assert.False(t, SagaStatusRunning.IsTerminal())
	assert.False(t, SagaStatusCompensating.IsTerminal())
}
