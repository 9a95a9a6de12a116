package chatstate

import "time"

// monitor is the recovery loop. It periodically checks whether the current
// state is stuck past its threshold and, if so, forces the recovery
// transition for that state. It runs until Close.
func (c *Coordinator) monitor(stop <-chan struct{}) {
	interval := c.cfg.CheckInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.checkStuck()
		}
	}
}

// checkStuck forces a recovery transition when the current stuck state has
// outlived its threshold. Recovery targets are pre-listed edges in the
// transition table, so they pass the same validation as resolver output.
func (c *Coordinator) checkStuck() {
	c.mu.Lock()
	state := c.previousState
	timeout := c.cfg.Timeouts.timeoutFor(state)
	if c.closed || timeout <= 0 || time.Since(c.stateEnteredAt) < timeout {
		c.mu.Unlock()
		return
	}

	held := time.Since(c.stateEnteredAt)
	if state == StateInitializing && !c.initialized {
		// Recovering out of initialization implies the latch; otherwise
		// the next evaluation would resolve right back to initializing.
		c.latchInitializedLocked()
	}
	ctx := BuildContext(c.lastSignals, c.initialized)
	target := recoveryTarget(state, ctx)
	cause := NewError(ErrorStateTimeout, "stuck in "+state.String()+" for "+held.Truncate(time.Millisecond).String())
	ev, applied := c.applyLocked(target, true, cause)
	c.mu.Unlock()

	if applied {
		c.logger.Warn("recovery transition forced", map[string]any{
			"from": ev.OldState.String(),
			"to":   ev.NewState.String(),
			"held": held.String(),
		})
		c.fire(ev)
	}
}

// recoveryTarget picks the safe state to force when a stuck state times
// out. It always resolves to a terminal-ish state so the UI never spins
// indefinitely.
func recoveryTarget(state ChatLoadingState, ctx ChatStateContext) ChatLoadingState {
	switch state {
	case StateInitializing:
		if !ctx.WebSocket.IsConnected {
			return StateConnectionFailed
		}
		if ctx.Thread.HasActiveThread {
			return StateThreadReady
		}
		return StateReady
	case StateConnecting:
		return StateConnectionFailed
	case StateLoadingThread:
		if ctx.Thread.HasActiveThread {
			return StateThreadReady
		}
		return StateReady
	default:
		return state
	}
}
