package rest

import "time"

// Authentication types

// RegisterRequest is the request body for user registration.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest is the request body for user login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse contains the JWT token returned after successful authentication.
type TokenResponse struct {
	Token string `json:"token"`
}

// Thread types

// ThreadInfo represents thread metadata.
type ThreadInfo struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateThreadRequest is the request body for creating a thread.
type CreateThreadRequest struct {
	Title string `json:"title,omitempty"`
}

// Message history types

// MessageInfo represents a single message in a thread's history.
type MessageInfo struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	Role      string    `json:"role"`
	Agent     string    `json:"agent,omitempty"`
	RunID     string    `json:"run_id,omitempty"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// MessagesResponse contains a page of messages with pagination info.
type MessagesResponse struct {
	Messages []MessageInfo `json:"messages"`
	HasMore  bool          `json:"has_more"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
