package chatstate

import (
	"context"
	stderrors "errors"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/threadline/chatstate-go/chatstate/internal"
	"github.com/threadline/chatstate-go/chatstate/rest"
)

// Client is a high-level chat client. It owns the WebSocket transport,
// tracks the thread/run signals the server reports, and feeds every signal
// change into its Coordinator so the derived loading state is always
// current.
type Client struct {
	cfg        Config
	logger     Logger
	coord      *Coordinator
	conn       *internal.Conn
	writeCh    chan Inbound
	dispatcher Dispatcher

	// REST is the HTTP sub-client, non-nil when Config.RESTBaseURL is set.
	REST *rest.Client

	mu      sync.Mutex
	signals Signals
	cancel  context.CancelFunc
	closed  bool

	onMessage      func(MessageEvent)
	onThreadLoaded func(ThreadLoadedEvent)
	onRunStarted   func(RunEvent)
	onRunFinished  func(RunEvent)
}

// NewClient constructs a client with the provided config.
// Use DefaultConfig() as a starting point and modify as needed.
// Set a timeout to 0 to disable it.
func NewClient(cfg *Config) *Client {
	c := &Client{
		cfg:     *cfg,
		logger:  noopLogger{},
		coord:   NewCoordinator(*cfg),
		writeCh: make(chan Inbound, 16),
	}
	c.signals.TransportStatus = StatusClosed
	if cfg.RESTBaseURL != "" {
		c.REST = rest.NewClient(cfg.RESTBaseURL)
		c.REST.SetToken(cfg.Token)
	}
	c.dispatcher.SetOnMessage(c.handleMessage)
	c.dispatcher.SetOnThreadLoaded(c.handleThreadLoaded)
	c.dispatcher.SetOnRunStarted(c.handleRunStarted)
	c.dispatcher.SetOnRunFinished(c.handleRunFinished)
	return c
}

// SetLogger overrides logger (optional). The coordinator shares it.
func (c *Client) SetLogger(l Logger) {
	if l == nil {
		return
	}
	c.logger = l
	c.coord.SetLogger(l)
}

// OnMessage registers a callback for message events. Registration is safe
// at any point, including after Connect.
func (c *Client) OnMessage(fn func(MessageEvent)) {
	c.mu.Lock()
	c.onMessage = fn
	c.mu.Unlock()
}

// OnThreadLoaded registers a callback for thread_loaded events.
func (c *Client) OnThreadLoaded(fn func(ThreadLoadedEvent)) {
	c.mu.Lock()
	c.onThreadLoaded = fn
	c.mu.Unlock()
}

// OnRunStarted registers a callback for run_started events.
func (c *Client) OnRunStarted(fn func(RunEvent)) {
	c.mu.Lock()
	c.onRunStarted = fn
	c.mu.Unlock()
}

// OnRunFinished registers a callback for run_finished events.
func (c *Client) OnRunFinished(fn func(RunEvent)) {
	c.mu.Lock()
	c.onRunFinished = fn
	c.mu.Unlock()
}

// OnError registers a callback for protocol and transport errors.
func (c *Client) OnError(fn func(error)) { c.dispatcher.SetOnError(fn) }

// OnLoadingStateChanged registers a callback for loading-state transitions.
func (c *Client) OnLoadingStateChanged(fn func(StateEvent)) {
	c.coord.OnStateChanged(fn)
}

// LoadingState returns the current projected loading state.
func (c *Client) LoadingState() LoadingStateResult {
	return c.coord.Result()
}

// Connect dials the server, sends hello, and starts the internal loops.
// The coordinator starts with the first Connect call.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return NewError(ErrorDisconnected, "client closed")
	}
	if c.signals.TransportStatus == StatusOpen || c.signals.TransportStatus == StatusConnecting {
		c.mu.Unlock()
		return NewError(ErrorConnection, "already connected")
	}
	c.mu.Unlock()

	if c.cfg.URL == "" {
		return NewError(ErrorInvalidConfig, "empty URL")
	}
	if _, err := url.Parse(c.cfg.URL); err != nil {
		return WrapError(ErrorInvalidConfig, "invalid URL", err)
	}

	c.coord.Start()
	return c.dial(ctx)
}

func (c *Client) dial(ctx context.Context) error {
	c.setStatus(StatusConnecting)

	dialCtx := ctx
	if c.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
		defer cancel()
	}

	ws, _, err := websocket.Dial(dialCtx, c.cfg.URL, nil)
	if err != nil {
		c.setStatus(StatusClosed)
		return WrapError(ErrorConnection, "dial failed", errors.Wrapf(err, "dial %s", c.cfg.URL))
	}

	conn := internal.NewConn(ws, c.cfg.ReadTimeout, c.cfg.WriteTimeout)
	hello := Inbound{
		Type: inboundHello,
		Data: HelloPayload{
			Protocol: ProtocolVersion,
			Token:    c.cfg.Token,
			User:     c.cfg.User,
		},
	}
	if err := conn.Write(ctx, hello); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "handshake error")
		c.setStatus(StatusClosed)
		return WrapError(ErrorConnection, "handshake failed", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.conn = conn
	c.cancel = cancel
	c.mu.Unlock()
	c.setStatus(StatusOpen)

	go c.readLoop(runCtx, conn)
	go c.writeLoop(runCtx, conn)
	return nil
}

// OpenThread asks the server to load a thread and makes it active.
func (c *Client) OpenThread(ctx context.Context, threadID string) error {
	if threadID == "" {
		return NewError(ErrorBadRequest, "empty thread id")
	}
	c.mu.Lock()
	prev := c.signals
	c.mu.Unlock()

	c.update(func(s *Signals) {
		s.ThreadID = threadID
		s.ThreadLoading = true
		s.MessageCount = 0
	})
	if err := c.send(ctx, Inbound{Type: inboundOpenThread, Data: OpenThreadPayload{ThreadID: threadID}}); err != nil {
		c.update(func(s *Signals) {
			s.ThreadID = prev.ThreadID
			s.ThreadLoading = prev.ThreadLoading
			s.MessageCount = prev.MessageCount
		})
		return err
	}
	return nil
}

// Post submits a message to the active thread. The id is generated
// client-side so the server can deduplicate after a reconnect.
func (c *Client) Post(ctx context.Context, text string) (string, error) {
	c.mu.Lock()
	hasThread := c.signals.ThreadID != ""
	c.mu.Unlock()
	if !hasThread {
		return "", NewError(ErrorNoActiveThread, "no active thread")
	}
	id := uuid.NewString()
	if err := c.send(ctx, Inbound{Type: inboundPost, Data: PostPayload{ID: id, Text: text}}); err != nil {
		return "", err
	}
	return id, nil
}

// Close shuts down the client, its coordinator and the WebSocket.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	conn := c.conn
	c.mu.Unlock()

	c.setStatus(StatusClosed)
	c.coord.Close()
	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "client close")
	}
	return nil
}

func (c *Client) send(ctx context.Context, in Inbound) error {
	c.mu.Lock()
	open := c.signals.TransportStatus == StatusOpen
	c.mu.Unlock()
	if !open {
		return NewError(ErrorNotConnected, "not connected")
	}

	select {
	case c.writeCh <- in:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) readLoop(ctx context.Context, conn *internal.Conn) {
	for {
		var out Outbound
		if err := conn.Read(ctx, &out); err != nil {
			c.handleDisconnect(ctx, conn, err)
			return
		}
		c.dispatcher.Dispatch(out)
	}
}

func (c *Client) writeLoop(ctx context.Context, conn *internal.Conn) {
	for {
		select {
		case in := <-c.writeCh:
			if err := conn.Write(ctx, in); err != nil {
				c.dispatcher.fireError(WrapError(ErrorConnection, "write failed", err))
				c.logger.Warn("write loop exit", map[string]any{"error": err.Error()})
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) handleDisconnect(ctx context.Context, conn *internal.Conn, err error) {
	expected := isExpectedDisconnect(ctx, err) || conn.LocallyClosed()
	if !expected {
		c.dispatcher.fireError(WrapError(ErrorDisconnected, "connection lost", err))
		c.logger.Warn("read loop exit", map[string]any{"error": err.Error()})
	}

	c.mu.Lock()
	closed := c.closed
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()
	if closed {
		return
	}

	c.setStatus(StatusClosed)
	if !expected && c.cfg.AutoReconnect {
		go c.reconnectLoop()
	}
}

// reconnectLoop redials with capped exponential backoff until it succeeds,
// runs out of tries, or the client is closed. On success the active thread
// is reopened so the server-side subscription is restored.
func (c *Client) reconnectLoop() {
	delay := c.cfg.ReconnectInterval
	if delay <= 0 {
		delay = time.Second
	}

	for try := 1; ; try++ {
		if c.cfg.MaxReconnectTries > 0 && try > c.cfg.MaxReconnectTries {
			c.dispatcher.fireError(NewError(ErrorConnection, "reconnect attempts exhausted"))
			return
		}
		time.Sleep(delay)

		c.mu.Lock()
		closed := c.closed
		threadID := c.signals.ThreadID
		c.mu.Unlock()
		if closed {
			return
		}

		c.logger.Info("reconnecting", map[string]any{"attempt": try})
		if err := c.dial(context.Background()); err == nil {
			if threadID != "" {
				_ = c.OpenThread(context.Background(), threadID)
			}
			return
		}

		delay *= 2
		if c.cfg.MaxReconnectDelay > 0 && delay > c.cfg.MaxReconnectDelay {
			delay = c.cfg.MaxReconnectDelay
		}
	}
}

func (c *Client) setStatus(status TransportStatus) {
	c.update(func(s *Signals) { s.TransportStatus = status })
}

// update mutates the signal snapshot under the lock, then re-evaluates the
// coordinator with the fresh copy.
func (c *Client) update(mutate func(*Signals)) {
	c.mu.Lock()
	mutate(&c.signals)
	sig := c.signals
	c.mu.Unlock()
	c.coord.Evaluate(sig)
}

func (c *Client) handleMessage(ev MessageEvent) {
	c.update(func(s *Signals) {
		if s.ThreadID == ev.ThreadID {
			s.MessageCount++
		}
	})
	c.mu.Lock()
	fn := c.onMessage
	c.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

func (c *Client) handleThreadLoaded(ev ThreadLoadedEvent) {
	c.update(func(s *Signals) {
		if s.ThreadID == ev.ThreadID {
			s.ThreadLoading = false
			count := ev.MessageCount
			if count == 0 {
				count = len(ev.Messages)
			}
			s.MessageCount = count
		}
	})
	c.mu.Lock()
	fn := c.onThreadLoaded
	c.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

func (c *Client) handleRunStarted(ev RunEvent) {
	c.update(func(s *Signals) {
		s.Processing = true
		s.RunID = ev.RunID
		s.AgentName = ev.Agent
	})
	c.mu.Lock()
	fn := c.onRunStarted
	c.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

func (c *Client) handleRunFinished(ev RunEvent) {
	c.update(func(s *Signals) {
		s.Processing = false
		s.RunID = ""
		s.AgentName = ""
	})
	c.mu.Lock()
	fn := c.onRunFinished
	c.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

func isExpectedDisconnect(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, io.EOF) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	default:
		return false
	}
}
