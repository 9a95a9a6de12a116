package chatstate

// TransportStatus is the connectivity state of the underlying real-time
// channel, mirroring the WebSocket readyState names.
type TransportStatus string

const (
	StatusConnecting TransportStatus = "CONNECTING"
	StatusOpen       TransportStatus = "OPEN"
	StatusClosing    TransportStatus = "CLOSING"
	StatusClosed     TransportStatus = "CLOSED"
)

// ParseTransportStatus maps a raw status string to a TransportStatus.
// Unknown values map to StatusClosed so that a malformed signal reads as a
// failed transport rather than a silently healthy one.
func ParseTransportStatus(raw string) TransportStatus {
	switch TransportStatus(raw) {
	case StatusConnecting, StatusOpen, StatusClosing, StatusClosed:
		return TransportStatus(raw)
	default:
		return StatusClosed
	}
}

// Signals is the raw input snapshot the coordinator evaluates. A zero value
// is valid and reads as a closed transport with no thread.
type Signals struct {
	TransportStatus TransportStatus

	// ThreadID identifies the active thread; empty means no active thread.
	ThreadID string

	// ThreadLoading is true while the active thread is being fetched.
	ThreadLoading bool

	// MessageCount is the length of the active thread's message list; only
	// the length matters to the coordinator.
	MessageCount int

	// Processing is true while an agent run is in progress.
	Processing bool

	// RunID identifies the in-progress run, if any.
	RunID string

	// AgentName names the agent executing the run, if known.
	AgentName string
}

// WebSocketContext holds the transport portion of the evaluated context.
// At most one of the three booleans is true at a time; all are derived
// from Status.
type WebSocketContext struct {
	IsConnected  bool
	IsConnecting bool
	IsFailed     bool
	Status       TransportStatus
}

// ThreadContext holds the thread portion of the evaluated context.
type ThreadContext struct {
	IsLoading       bool
	HasActiveThread bool
	HasMessages     bool
	ThreadID        string
}

// ProcessingContext holds the agent-run portion of the evaluated context.
type ProcessingContext struct {
	IsProcessing bool
	CurrentRunID string
	AgentName    string
}

// ChatStateContext is the normalized snapshot the resolver and projector
// operate on. It is rebuilt on every evaluation and carries no identity.
type ChatStateContext struct {
	WebSocket     WebSocketContext
	Thread        ThreadContext
	Processing    ProcessingContext
	IsInitialized bool
}

// BuildContext assembles a ChatStateContext from raw signals. It is pure
// and total: every input, including the zero Signals, produces a valid
// context. CLOSING, CLOSED and unrecognized statuses all read as failed.
func BuildContext(sig Signals, initialized bool) ChatStateContext {
	status := ParseTransportStatus(string(sig.TransportStatus))
	ws := WebSocketContext{Status: status}
	switch status {
	case StatusOpen:
		ws.IsConnected = true
	case StatusConnecting:
		ws.IsConnecting = true
	default:
		ws.IsFailed = true
	}

	return ChatStateContext{
		WebSocket: ws,
		Thread: ThreadContext{
			IsLoading:       sig.ThreadLoading,
			HasActiveThread: sig.ThreadID != "",
			HasMessages:     sig.MessageCount > 0,
			ThreadID:        sig.ThreadID,
		},
		Processing: ProcessingContext{
			IsProcessing: sig.Processing,
			CurrentRunID: sig.RunID,
			AgentName:    sig.AgentName,
		},
		IsInitialized: initialized,
	}
}
