package chatstate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// collectEvents registers a buffered channel callback on the coordinator.
func collectEvents(c *Coordinator) <-chan StateEvent {
	ch := make(chan StateEvent, 16)
	c.OnStateChanged(func(ev StateEvent) { ch <- ev })
	return ch
}

func waitEvent(t *testing.T, ch <-chan StateEvent, timeout time.Duration) StateEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(timeout):
		t.Fatal("timeout waiting for state event")
		return StateEvent{}
	}
}

func requireNoEvent(t *testing.T, ch <-chan StateEvent, within time.Duration) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected state event %s -> %s", ev.OldState, ev.NewState)
	case <-time.After(within):
	}
}

func TestCoordinator_StartsInitializing(t *testing.T) {
	c := NewCoordinator(TestConfig())
	defer c.Close()

	require.Equal(t, StateInitializing, c.State())
	require.False(t, c.IsInitialized())

	res := c.Result()
	require.True(t, res.ShouldShowLoading)
	require.Equal(t, "Loading chat...", res.LoadingMessage)
}

func TestCoordinator_DirectJumpToThreadReadyAtMount(t *testing.T) {
	// A transport already OPEN with an active thread on the first
	// evaluation must land on thread_ready without a connecting hop.
	cfg := TestConfig()
	cfg.InitGraceDelay = 0
	c := NewCoordinator(cfg)
	defer c.Close()

	res := c.Evaluate(Signals{TransportStatus: StatusOpen, ThreadID: "thread_123"})
	require.Equal(t, StateThreadReady, res.State)
	require.True(t, res.IsInitialized)
	require.True(t, res.ShouldShowExamplePrompts)
}

func TestCoordinator_InitializationLatchViaGraceDelay(t *testing.T) {
	cfg := TestConfig()
	c := NewCoordinator(cfg)
	defer c.Close()
	c.Start()
	events := collectEvents(c)

	res := c.Evaluate(Signals{TransportStatus: StatusOpen})
	require.Equal(t, StateInitializing, res.State)
	require.False(t, res.IsInitialized)

	// The grace timer latches initialization and re-resolves without
	// waiting for the next upstream change.
	ev := waitEvent(t, events, time.Second)
	require.Equal(t, StateInitializing, ev.OldState)
	require.Equal(t, StateReady, ev.NewState)
	require.False(t, ev.Recovered)
	require.True(t, c.IsInitialized())
}

func TestCoordinator_InitializationLatchViaFallback(t *testing.T) {
	cfg := TestConfig()
	cfg.Timeouts.Initializing = time.Hour // isolate the fallback path
	c := NewCoordinator(cfg)
	defer c.Close()
	c.Start()
	events := collectEvents(c)

	res := c.Evaluate(Signals{TransportStatus: StatusConnecting})
	require.Equal(t, StateInitializing, res.State)

	// The transport never reaches OPEN; the wall-clock fallback latches
	// initialization and the state advances to connecting.
	ev := waitEvent(t, events, time.Second)
	require.Equal(t, StateConnecting, ev.NewState)
	require.True(t, c.IsInitialized())
}

func TestCoordinator_LatchNeverResets(t *testing.T) {
	cfg := TestConfig()
	cfg.InitGraceDelay = 0
	c := NewCoordinator(cfg)
	defer c.Close()

	c.Evaluate(Signals{TransportStatus: StatusOpen})
	require.True(t, c.IsInitialized())

	// A later disconnect reads as a connection failure, not a second
	// initialization pass.
	res := c.Evaluate(Signals{TransportStatus: StatusClosed})
	require.Equal(t, StateConnectionFailed, res.State)
	require.True(t, c.IsInitialized())
}

func TestCoordinator_HappyPathWalk(t *testing.T) {
	cfg := TestConfig()
	cfg.Timeouts = StuckTimeouts{time.Hour, time.Hour, time.Hour}
	cfg.InitGraceDelay = 0
	cfg.InitFallbackTimeout = time.Millisecond
	c := NewCoordinator(cfg)
	defer c.Close()
	c.Start()

	c.Evaluate(Signals{TransportStatus: StatusConnecting})
	require.Eventually(t, c.IsInitialized, time.Second, time.Millisecond)

	events := collectEvents(c)
	c.Evaluate(Signals{TransportStatus: StatusConnecting})
	c.Evaluate(Signals{TransportStatus: StatusOpen})
	c.Evaluate(Signals{TransportStatus: StatusOpen, ThreadID: "thread_123", ThreadLoading: true})
	c.Evaluate(Signals{TransportStatus: StatusOpen, ThreadID: "thread_123"})

	want := []ChatLoadingState{StateReady, StateLoadingThread, StateThreadReady}
	for _, state := range want {
		ev := waitEvent(t, events, time.Second)
		require.Equal(t, state, ev.NewState)
		require.False(t, ev.Recovered)
	}
}

func TestCoordinator_InvalidTargetIsHeld(t *testing.T) {
	cfg := TestConfig()
	cfg.InitGraceDelay = 0
	cfg.Timeouts = StuckTimeouts{time.Hour, time.Hour, time.Hour}
	c := NewCoordinator(cfg)
	defer c.Close()

	res := c.Evaluate(Signals{TransportStatus: StatusOpen})
	require.Equal(t, StateReady, res.State)

	// ready -> processing is not a legal edge; a run needs a thread first.
	// The coordinator holds ready rather than applying the bad target.
	res = c.Evaluate(Signals{TransportStatus: StatusOpen, ThreadID: "thread_123", Processing: true})
	require.Equal(t, StateReady, res.State)

	// Once the thread is ready the run is allowed through.
	res = c.Evaluate(Signals{TransportStatus: StatusOpen, ThreadID: "thread_123"})
	require.Equal(t, StateThreadReady, res.State)
	res = c.Evaluate(Signals{TransportStatus: StatusOpen, ThreadID: "thread_123", Processing: true, RunID: "run_1", AgentName: "writer"})
	require.Equal(t, StateProcessing, res.State)
	require.Equal(t, "Processing with writer...", res.LoadingMessage)
}

func TestCoordinator_SelfTransitionEmitsNoEvent(t *testing.T) {
	cfg := TestConfig()
	cfg.InitGraceDelay = 0
	cfg.Timeouts = StuckTimeouts{time.Hour, time.Hour, time.Hour}
	c := NewCoordinator(cfg)
	defer c.Close()
	events := collectEvents(c)

	sig := Signals{TransportStatus: StatusOpen, ThreadID: "thread_123"}
	c.Evaluate(sig)
	ev := waitEvent(t, events, time.Second)
	require.Equal(t, StateThreadReady, ev.NewState)

	c.Evaluate(sig)
	c.Evaluate(sig)
	requireNoEvent(t, events, 50*time.Millisecond)
}

func TestCoordinator_CloseStopsTimers(t *testing.T) {
	cfg := TestConfig()
	cfg.InitGraceDelay = 100 * time.Millisecond
	c := NewCoordinator(cfg)
	c.Start()
	events := collectEvents(c)

	c.Evaluate(Signals{TransportStatus: StatusOpen})
	c.Close()

	// Neither the grace latch nor the recovery monitor may fire after
	// teardown.
	requireNoEvent(t, events, 3*cfg.InitFallbackTimeout)
	require.False(t, c.IsInitialized())
}
