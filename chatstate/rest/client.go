package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Client provides REST API access to the chat server: authentication,
// thread listing, and message history. It complements the WebSocket client,
// which only carries the live session.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new REST API client.
// baseURL should be the base URL of the API, e.g., "http://localhost:8080/api".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient allows setting a custom HTTP client.
func (c *Client) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.httpClient = client
	}
}

// SetToken sets the JWT token for authenticated requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Authentication endpoints

// Register creates a new user account and returns a JWT token.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	var resp TokenResponse
	if err := c.post(ctx, "/register", req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login authenticates with existing credentials and returns a JWT token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	var resp TokenResponse
	if err := c.post(ctx, "/login", req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Thread endpoints

// CreateThread creates a new conversation thread.
func (c *Client) CreateThread(ctx context.Context, req CreateThreadRequest) (*ThreadInfo, error) {
	var resp ThreadInfo
	if err := c.post(ctx, "/threads", req, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListThreads returns all threads for the authenticated user.
func (c *Client) ListThreads(ctx context.Context) ([]ThreadInfo, error) {
	var resp []ThreadInfo
	if err := c.get(ctx, "/threads", &resp, true); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetThread returns metadata for a single thread.
func (c *Client) GetThread(ctx context.Context, threadID string) (*ThreadInfo, error) {
	var resp ThreadInfo
	if err := c.get(ctx, "/threads/"+threadID, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetMessages retrieves message history for a thread with cursor-based
// pagination. limit defaults server-side when 0; before, when non-empty,
// returns messages preceding that message id.
func (c *Client) GetMessages(ctx context.Context, threadID string, limit int, before string) (*MessagesResponse, error) {
	url := fmt.Sprintf("/threads/%s/messages?limit=%d", threadID, limit)
	if before != "" {
		url += "&before=" + before
	}

	var resp MessagesResponse
	if err := c.get(ctx, url, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Helper methods

func (c *Client) post(ctx context.Context, path string, body, dest any, requireAuth bool) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshal request")
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bodyReader)
	if err != nil {
		return errors.Wrap(err, "create request")
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if requireAuth && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	return c.do(req, dest)
}

func (c *Client) get(ctx context.Context, path string, dest any, requireAuth bool) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, http.NoBody)
	if err != nil {
		return errors.Wrap(err, "create request")
	}

	if requireAuth && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "http request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return errors.Errorf("api error (status %d): %s", resp.StatusCode, errResp.Error)
		}
		return errors.Errorf("http error: %s (status %d)", string(body), resp.StatusCode)
	}

	if dest != nil {
		if err := json.Unmarshal(body, dest); err != nil {
			return errors.Wrap(err, "unmarshal response")
		}
	}

	return nil
}
