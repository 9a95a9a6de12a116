package chatstate

import (
	"sync"
	"time"
)

// Coordinator derives the single UI loading state from the transport,
// thread and processing signals. It owns exactly two pieces of transition
// memory, the previous state and the time it was entered, plus the last
// signal snapshot the recovery monitor needs.
//
// Evaluate is the single evaluation path: build context, resolve, validate,
// apply or hold, project. The host is expected to call it once per upstream
// signal change; the Coordinator is nevertheless safe for concurrent use.
type Coordinator struct {
	cfg    Config
	logger Logger

	mu             sync.Mutex
	previousState  ChatLoadingState
	stateEnteredAt time.Time
	lastSignals    Signals
	initialized    bool
	openObserved   bool
	running        bool
	closed         bool

	onStateChanged func(StateEvent)

	// One-shot initialization timers. Both are stopped on Close and as
	// soon as the latch sets; a stale timer must never fire after either.
	graceTimer    *time.Timer
	fallbackTimer *time.Timer

	monitorStop chan struct{}
}

// NewCoordinator constructs a coordinator in StateInitializing.
// Use DefaultConfig(), TestConfig() or ConfigFromEnv() as a starting point.
func NewCoordinator(cfg Config) *Coordinator {
	return &Coordinator{
		cfg:            cfg,
		logger:         noopLogger{},
		previousState:  StateInitializing,
		stateEnteredAt: time.Now(),
	}
}

// SetLogger overrides the logger (optional).
func (c *Coordinator) SetLogger(l Logger) {
	if l == nil {
		return
	}
	c.logger = l
}

// OnStateChanged registers a callback fired on every valid non-self
// transition. Self-transitions produce no event.
func (c *Coordinator) OnStateChanged(fn func(StateEvent)) {
	c.mu.Lock()
	c.onStateChanged = fn
	c.mu.Unlock()
}

// Start arms the initialization fallback timer and launches the recovery
// monitor. Calling Start on a running coordinator is a no-op.
func (c *Coordinator) Start() {
	c.mu.Lock()
	if c.running || c.closed {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.stateEnteredAt = time.Now()
	if c.cfg.InitFallbackTimeout > 0 {
		c.fallbackTimer = time.AfterFunc(c.cfg.InitFallbackTimeout, c.latchInitialized)
	}
	stop := make(chan struct{})
	c.monitorStop = stop
	c.mu.Unlock()

	go c.monitor(stop)
}

// Close stops the monitor and cancels every pending timer. The coordinator
// cannot be restarted afterwards.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.running = false
	c.stopInitTimersLocked()
	if c.monitorStop != nil {
		close(c.monitorStop)
		c.monitorStop = nil
	}
	c.mu.Unlock()
}

// Evaluate folds a fresh signal snapshot into the state machine and returns
// the projected result for the state that is current after the evaluation.
// An illegal resolved target is held out: the previous state stays current
// and only a diagnostic is logged.
func (c *Coordinator) Evaluate(sig Signals) LoadingStateResult {
	c.mu.Lock()
	c.lastSignals = sig
	c.observeTransportLocked(sig.TransportStatus)
	ctx := BuildContext(sig, c.initialized)
	target := Resolve(ctx)
	ev, applied := c.applyLocked(target, false, nil)
	state := c.previousState
	c.mu.Unlock()

	if applied {
		c.fire(ev)
	}
	return Project(state, ctx)
}

// State returns the current loading state.
func (c *Coordinator) State() ChatLoadingState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.previousState
}

// Result projects the current state against the last evaluated signals.
func (c *Coordinator) Result() LoadingStateResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Project(c.previousState, BuildContext(c.lastSignals, c.initialized))
}

// IsInitialized reports whether the initialization latch has set.
func (c *Coordinator) IsInitialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// observeTransportLocked arms the grace timer on the first OPEN
// observation. The latch waits out InitGraceDelay so the transport's own
// async connect sequence is not raced.
func (c *Coordinator) observeTransportLocked(status TransportStatus) {
	if c.openObserved || c.closed {
		return
	}
	if ParseTransportStatus(string(status)) != StatusOpen {
		return
	}
	c.openObserved = true
	if c.initialized {
		return
	}
	if c.cfg.InitGraceDelay <= 0 {
		c.latchInitializedLocked()
		return
	}
	c.graceTimer = time.AfterFunc(c.cfg.InitGraceDelay, c.latchInitialized)
}

// latchInitialized sets the initialization latch and immediately re-resolves
// against the last signals so the UI does not wait for the next upstream
// change to leave StateInitializing.
func (c *Coordinator) latchInitialized() {
	c.mu.Lock()
	if c.closed || c.initialized {
		c.mu.Unlock()
		return
	}
	c.latchInitializedLocked()
	ctx := BuildContext(c.lastSignals, c.initialized)
	ev, applied := c.applyLocked(Resolve(ctx), false, nil)
	c.mu.Unlock()

	if applied {
		c.fire(ev)
	}
}

// latchInitializedLocked flips the latch and releases both one-shot timers.
// The latch never resets: a later disconnect reads as a connection failure,
// not a second initialization.
func (c *Coordinator) latchInitializedLocked() {
	c.initialized = true
	c.stopInitTimersLocked()
	c.logger.Debug("initialization latched", map[string]any{
		"open_observed": c.openObserved,
	})
}

func (c *Coordinator) stopInitTimersLocked() {
	if c.graceTimer != nil {
		c.graceTimer.Stop()
		c.graceTimer = nil
	}
	if c.fallbackTimer != nil {
		c.fallbackTimer.Stop()
		c.fallbackTimer = nil
	}
}

// applyLocked attempts the transition previousState -> target. Self
// transitions are valid no-ops. Invalid targets are held out and logged.
func (c *Coordinator) applyLocked(target ChatLoadingState, recovered bool, cause error) (StateEvent, bool) {
	if target == c.previousState {
		return StateEvent{}, false
	}
	res := Validate(c.previousState, target)
	if !res.IsValid {
		c.logger.Debug("transition held", map[string]any{
			"from":   c.previousState.String(),
			"to":     target.String(),
			"reason": res.Reason,
		})
		return StateEvent{}, false
	}
	ev := StateEvent{
		OldState:  c.previousState,
		NewState:  target,
		Recovered: recovered,
		Error:     cause,
	}
	c.previousState = target
	c.stateEnteredAt = time.Now()
	return ev, true
}

func (c *Coordinator) fire(ev StateEvent) {
	c.mu.Lock()
	fn := c.onStateChanged
	c.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}
