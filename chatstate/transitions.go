package chatstate

import "fmt"

// validTransitions defines the loading-state machine. An edge must be
// listed here to be applied; anything else is rejected and the coordinator
// holds its previous state.
//
// StateInitializing may jump straight to StateThreadReady or StateReady: a
// transport that is already OPEN with an active thread at startup must not
// be forced through a spurious CONNECTING step.
//
// StateReady has no edge to StateProcessing; a run needs a thread first.
// StateConnectionFailed only recovers into StateConnecting or
// StateInitializing. StateError is terminal.
var validTransitions = map[ChatLoadingState][]ChatLoadingState{
	StateInitializing: {
		StateConnecting,
		StateReady,
		StateThreadReady,
		StateConnectionFailed,
	},
	StateConnecting: {
		StateReady,
		StateConnectionFailed,
	},
	StateReady: {
		StateLoadingThread,
		StateThreadReady,
		StateConnectionFailed,
	},
	StateLoadingThread: {
		StateThreadReady,
		// Recovery target when the load times out before a thread id was
		// ever assigned.
		StateReady,
		StateConnectionFailed,
	},
	StateThreadReady: {
		StateProcessing,
		StateLoadingThread,
		StateConnectionFailed,
	},
	StateProcessing: {
		StateThreadReady,
		StateConnectionFailed,
	},
	StateConnectionFailed: {
		StateConnecting,
		StateInitializing,
	},
	StateError: {},
}

// TransitionResult reports whether a transition is legal. Reason is set
// only on rejection and is diagnostic, not an error value.
type TransitionResult struct {
	IsValid bool
	Reason  string
}

// Validate reports whether the directed edge from -> to is legal.
// Self-transitions are always valid and produce no state change event.
func Validate(from, to ChatLoadingState) TransitionResult {
	if from == to {
		return TransitionResult{IsValid: true}
	}
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return TransitionResult{IsValid: true}
		}
	}
	return TransitionResult{
		Reason: fmt.Sprintf("invalid transition from %s to %s", from, to),
	}
}

// ValidNextStates returns the legal targets from a given state, excluding
// the always-valid self-transition. The result is a copy; mutating it does
// not touch the transition table.
func ValidNextStates(from ChatLoadingState) []ChatLoadingState {
	targets := validTransitions[from]
	out := make([]ChatLoadingState, len(targets))
	copy(out, targets)
	return out
}

// IsStuckState reports whether a state has no terminal guarantee without an
// external signal and therefore requires timeout-based recovery.
func IsStuckState(s ChatLoadingState) bool {
	switch s {
	case StateInitializing, StateConnecting, StateLoadingThread:
		return true
	default:
		return false
	}
}
