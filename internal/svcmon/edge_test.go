package svcmon

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chatstack/chatpanel/internal/models"
)

func TestTransition_FiresOnlyOnEdgeIntoActive(t *testing.T) {
	// Scripted observation sequence with expected cumulative fetch count.
	seq := []struct {
		state   models.ServiceState
		fetches int
	}{
		{models.StateInactive, 0},
		{models.StateActive, 1},  // inactive → active fires
		{models.StateActive, 1},  // repeated active does not refire
		{models.StateInactive, 1},
		{models.StateActive, 2},  // second edge fires again
	}

	prev := models.StateUnknown
	fired := 0
	for i, step := range seq {
		if Transition(prev, step.state) == ActionFetchLogs {
			fired++
		}
		assert.Equal(t, step.fetches, fired, "after observation %d", i+1)
		prev = step.state
	}
}

func TestTransition_FailedToActiveFires(t *testing.T) {
	assert.Equal(t, ActionFetchLogs, Transition(models.StateFailed, models.StateActive))
}

func TestTransition_UnknownToActiveFires(t *testing.T) {
	assert.Equal(t, ActionFetchLogs, Transition(models.StateUnknown, models.StateActive))
}

func TestTransition_ActiveToFailedDoesNotFire(t *testing.T) {
	assert.Equal(t, ActionNone, Transition(models.StateActive, models.StateFailed))
}

func TestTransition_InactiveToInactiveDoesNotFire(t *testing.T) {
	assert.Equal(t, ActionNone, Transition(models.StateInactive, models.StateInactive))
}
