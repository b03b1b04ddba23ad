package svcmon

import "github.com/chatstack/chatpanel/internal/models"

// Action is an edge-triggered side effect derived from a state transition.
type Action int

const (
	// ActionNone means no side effect for this observation.
	ActionNone Action = iota

	// ActionFetchLogs fires on a transition into the active state.
	ActionFetchLogs
)

// Transition maps a (previous, current) state pair to the action it triggers.
// The log fetch fires only on the edge into active; repeated observations of
// an already-active service produce no action.
func Transition(prev, cur models.ServiceState) Action {
	if cur == models.StateActive && prev != models.StateActive {
		return ActionFetchLogs
	}
	return ActionNone
}
