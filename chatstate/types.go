package chatstate

import "encoding/json"

const (
	ProtocolVersion = 1

	inboundHello      = "hello"
	inboundOpenThread = "open_thread"
	inboundPost       = "post"

	outboundEvent = "event"
	outboundError = "error"

	eventMessage      = "message"
	eventThreadLoaded = "thread_loaded"
	eventRunStarted   = "run_started"
	eventRunFinished  = "run_finished"
)

// Inbound represents the envelope from client to server.
type Inbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Outbound is the envelope server -> client.
type Outbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *Error          `json:"error,omitempty"`
}

// HelloPayload initiates the session.
type HelloPayload struct {
	Protocol int    `json:"protocol,omitempty"`
	Token    string `json:"token,omitempty"`
	User     string `json:"user,omitempty"`
}

// OpenThreadPayload requests the server to load a thread and subscribe the
// client to it.
type OpenThreadPayload struct {
	ThreadID string `json:"thread_id"`
}

// PostPayload submits a message to the active thread. ID is generated
// client-side so the server can deduplicate resubmissions after a
// reconnect.
type PostPayload struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Error describes a protocol error.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Code + ": " + e.Msg
}

// UnmarshalData decodes RawMessage into target.
func UnmarshalData(data json.RawMessage, v any) error {
	return json.Unmarshal(data, v)
}
