package chatstate

import (
	"context"
	"errors"
	"testing"
)

func TestClientPostWithoutThread(t *testing.T) {
	cfg := DefaultConfig()
	c := NewClient(&cfg)
	_, err := c.Post(testCtx(), "hi")
	if !errors.Is(err, NewError(ErrorNoActiveThread, "")) {
		t.Fatalf("expected no_active_thread, got %v", err)
	}
}

func TestClientOpenThreadNotConnected(t *testing.T) {
	cfg := DefaultConfig()
	c := NewClient(&cfg)
	err := c.OpenThread(testCtx(), "thread_123")
	if !errors.Is(err, NewError(ErrorNotConnected, "")) {
		t.Fatalf("expected not_connected, got %v", err)
	}

	// The failed open must not leave a half-applied thread signal behind.
	res := c.LoadingState()
	if res.State != StateInitializing && res.State != StateConnectionFailed {
		t.Fatalf("unexpected state after failed open: %s", res.State)
	}
}

func TestClientOpenThreadEmptyID(t *testing.T) {
	cfg := DefaultConfig()
	c := NewClient(&cfg)
	err := c.OpenThread(testCtx(), "")
	if !errors.Is(err, NewError(ErrorBadRequest, "")) {
		t.Fatalf("expected bad_request, got %v", err)
	}
}

func TestClientConnectEmptyURL(t *testing.T) {
	cfg := DefaultConfig()
	c := NewClient(&cfg)
	err := c.Connect(context.Background())
	if !errors.Is(err, NewError(ErrorInvalidConfig, "")) {
		t.Fatalf("expected invalid_config, got %v", err)
	}
}

func TestClientInitialLoadingState(t *testing.T) {
	cfg := DefaultConfig()
	c := NewClient(&cfg)
	res := c.LoadingState()
	if res.State != StateInitializing {
		t.Fatalf("expected initializing before connect, got %s", res.State)
	}
	if !res.ShouldShowLoading {
		t.Fatalf("expected loading flag before connect")
	}
}

func TestClientCloseIdempotent(t *testing.T) {
	cfg := DefaultConfig()
	c := NewClient(&cfg)
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

// Registering callbacks while the read loop is dispatching events must be
// safe; run under the race detector.
func TestClientCallbackRegistrationConcurrentWithDispatch(t *testing.T) {
	cfg := DefaultConfig()
	c := NewClient(&cfg)
	defer c.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			c.OnMessage(func(MessageEvent) {})
			c.OnThreadLoaded(func(ThreadLoadedEvent) {})
			c.OnRunStarted(func(RunEvent) {})
			c.OnRunFinished(func(RunEvent) {})
		}
	}()

	for i := 0; i < 200; i++ {
		c.handleMessage(MessageEvent{ThreadID: "thread_123"})
		c.handleThreadLoaded(ThreadLoadedEvent{ThreadID: "thread_123"})
		c.handleRunStarted(RunEvent{RunID: "run_1"})
		c.handleRunFinished(RunEvent{RunID: "run_1"})
	}
	<-done
}

// testCtx returns an already-cancelled context for unit tests.
func testCtx() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}
