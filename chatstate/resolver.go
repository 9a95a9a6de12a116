package chatstate

// Resolve maps a context to exactly one ChatLoadingState. The conditions
// are checked in fixed priority order and the first match wins:
//
//	connection failure > uninitialized > connecting > thread loading >
//	processing > thread ready > ready
//
// A failed transport dominates everything, including an in-progress thread
// load: a dead channel invalidates any "in progress" UI.
func Resolve(ctx ChatStateContext) ChatLoadingState {
	switch {
	case ctx.WebSocket.IsFailed:
		return StateConnectionFailed
	case !ctx.IsInitialized:
		return StateInitializing
	case ctx.WebSocket.IsConnecting:
		return StateConnecting
	case ctx.Thread.IsLoading:
		return StateLoadingThread
	case ctx.Processing.IsProcessing:
		return StateProcessing
	case ctx.Thread.HasActiveThread:
		// An empty loaded thread is still thread-ready; the projector
		// distinguishes it via HasMessages for prompt display.
		return StateThreadReady
	default:
		return StateReady
	}
}
