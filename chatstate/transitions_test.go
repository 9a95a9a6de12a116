package chatstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_SelfTransitionsAlwaysValid(t *testing.T) {
	for _, s := range AllStates() {
		res := Validate(s, s)
		assert.True(t, res.IsValid, "self transition for %s", s)
		assert.Empty(t, res.Reason)
	}
}

func TestValidate_InitializingMayJumpStraightToThreadReady(t *testing.T) {
	// A transport that is already OPEN with an active thread at startup
	// must not be forced through a spurious connecting step.
	require.True(t, Validate(StateInitializing, StateThreadReady).IsValid)
	require.True(t, Validate(StateInitializing, StateReady).IsValid)
}

func TestValidate_ReadyCannotJumpToProcessing(t *testing.T) {
	res := Validate(StateReady, StateProcessing)
	require.False(t, res.IsValid)
	require.Equal(t, "invalid transition from ready to processing", res.Reason)
}

func TestValidate_HappyPathWalk(t *testing.T) {
	walk := []ChatLoadingState{
		StateInitializing,
		StateConnecting,
		StateReady,
		StateLoadingThread,
		StateThreadReady,
		StateProcessing,
		StateThreadReady,
	}
	for i := 1; i < len(walk); i++ {
		res := Validate(walk[i-1], walk[i])
		require.True(t, res.IsValid, "%s -> %s: %s", walk[i-1], walk[i], res.Reason)
	}
}

func TestValidate_ConnectionFailedRecoversOnly(t *testing.T) {
	assert.True(t, Validate(StateConnectionFailed, StateConnecting).IsValid)
	assert.True(t, Validate(StateConnectionFailed, StateInitializing).IsValid)

	for _, to := range []ChatLoadingState{StateReady, StateLoadingThread, StateThreadReady, StateProcessing, StateError} {
		assert.False(t, Validate(StateConnectionFailed, to).IsValid, "connection_failed -> %s", to)
	}
}

func TestValidate_ConnectionFailureReachableFromEverywhereButFailedAndError(t *testing.T) {
	for _, from := range AllStates() {
		if from == StateConnectionFailed || from == StateError {
			continue
		}
		assert.True(t, Validate(from, StateConnectionFailed).IsValid, "%s -> connection_failed", from)
	}
}

func TestValidate_ErrorIsTerminal(t *testing.T) {
	require.Empty(t, ValidNextStates(StateError))
	for _, to := range AllStates() {
		if to == StateError {
			continue
		}
		assert.False(t, Validate(StateError, to).IsValid)
	}
}

func TestValidNextStatesReturnsCopy(t *testing.T) {
	next := ValidNextStates(StateConnecting)
	require.Equal(t, []ChatLoadingState{StateReady, StateConnectionFailed}, next)

	for i := range next {
		next[i] = StateError
	}

	// The table itself must be untouched.
	require.True(t, Validate(StateConnecting, StateReady).IsValid)
	require.Equal(t, []ChatLoadingState{StateReady, StateConnectionFailed}, ValidNextStates(StateConnecting))
}

func TestIsStuckState(t *testing.T) {
	stuck := map[ChatLoadingState]bool{
		StateInitializing:  true,
		StateConnecting:    true,
		StateLoadingThread: true,
	}
	for _, s := range AllStates() {
		assert.Equal(t, stuck[s], IsStuckState(s), "%s", s)
	}
}
