package chatstate

// MessageEvent emitted when a message lands on the active thread.
type MessageEvent struct {
	ThreadID string `json:"thread_id"`
	ID       string `json:"id"`
	Role     string `json:"role"`
	Text     string `json:"text"`
	TS       int64  `json:"ts"`
}

// ThreadLoadedEvent emitted when the server finished loading a thread.
type ThreadLoadedEvent struct {
	ThreadID     string         `json:"thread_id"`
	Title        string         `json:"title,omitempty"`
	MessageCount int            `json:"message_count"`
	Messages     []MessageEvent `json:"messages,omitempty"`
}

// RunEvent emitted when an agent run starts or finishes.
type RunEvent struct {
	ThreadID string `json:"thread_id"`
	RunID    string `json:"run_id"`
	Agent    string `json:"agent,omitempty"`
	Status   string `json:"status,omitempty"`
}
