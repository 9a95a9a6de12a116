package chatstate

import "fmt"

// LoadingStateResult is what a UI consumes: the resolved state plus the
// mutually exclusive display flags and a fixed per-state message.
type LoadingStateResult struct {
	State                    ChatLoadingState
	ShouldShowLoading        bool
	ShouldShowEmptyState     bool
	ShouldShowExamplePrompts bool
	LoadingMessage           string
	IsInitialized            bool
}

const connectionFailedMessage = "Connection failed. Retrying..."

// Project converts a resolved state and its context into a
// LoadingStateResult. For any (state, context) pair at most one of the
// three display flags is true.
func Project(state ChatLoadingState, ctx ChatStateContext) LoadingStateResult {
	res := LoadingStateResult{
		State:         state,
		IsInitialized: ctx.IsInitialized,
	}

	switch state {
	case StateInitializing, StateConnecting, StateLoadingThread, StateConnectionFailed:
		res.ShouldShowLoading = true
	case StateReady:
		res.ShouldShowEmptyState = true
	case StateThreadReady:
		res.ShouldShowExamplePrompts = !ctx.Thread.HasMessages && !ctx.Processing.IsProcessing
	}

	res.LoadingMessage = loadingMessage(state, ctx)
	return res
}

func loadingMessage(state ChatLoadingState, ctx ChatStateContext) string {
	switch state {
	case StateInitializing:
		return "Loading chat..."
	case StateConnecting:
		return "Connecting to chat service..."
	case StateReady:
		return "Ready"
	case StateLoadingThread:
		return "Loading conversation..."
	case StateThreadReady:
		return "Thread ready"
	case StateProcessing:
		if ctx.Processing.AgentName != "" {
			return fmt.Sprintf("Processing with %s...", ctx.Processing.AgentName)
		}
		return "Processing..."
	case StateConnectionFailed:
		return connectionFailedMessage
	case StateError:
		return "Something went wrong. Please reload."
	default:
		return ""
	}
}
