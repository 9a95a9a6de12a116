package chatstate

// ChatLoadingState represents the single UI loading state derived from the
// transport, thread and processing signals.
type ChatLoadingState int

const (
	// StateInitializing means the coordinator has not finished its first
	// initialization pass yet.
	StateInitializing ChatLoadingState = iota

	// StateConnecting means the transport is establishing a connection.
	StateConnecting

	// StateReady means the client is connected with no active thread.
	StateReady

	// StateLoadingThread means an active thread is being loaded.
	StateLoadingThread

	// StateThreadReady means an active thread is loaded and idle.
	StateThreadReady

	// StateProcessing means an agent run is in progress on the active thread.
	StateProcessing

	// StateConnectionFailed means the transport is closed or closing.
	StateConnectionFailed

	// StateError is a reserved terminal state for unrecoverable failures.
	StateError
)

// String returns the string representation of a ChatLoadingState.
func (s ChatLoadingState) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateLoadingThread:
		return "loading_thread"
	case StateThreadReady:
		return "thread_ready"
	case StateProcessing:
		return "processing"
	case StateConnectionFailed:
		return "connection_failed"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// AllStates returns every ChatLoadingState value.
func AllStates() []ChatLoadingState {
	return []ChatLoadingState{
		StateInitializing,
		StateConnecting,
		StateReady,
		StateLoadingThread,
		StateThreadReady,
		StateProcessing,
		StateConnectionFailed,
		StateError,
	}
}

// StateEvent represents a loading-state change event.
type StateEvent struct {
	OldState ChatLoadingState
	NewState ChatLoadingState

	// Recovered is true when the transition was forced by the timeout
	// monitor rather than derived from fresh signals.
	Recovered bool

	// Error optionally carries the error that caused the change.
	Error error
}
