package model

// SessionState represents the lifecycle state of a transfer session
type SessionState string

const (
	// SessionStateIdle means the session was created but not started
	SessionStateIdle SessionState = "Idle"

	// SessionStateNegotiating means the transfer mode is being negotiated with the content endpoint
	SessionStateNegotiating SessionState = "Negotiating"

	// SessionStateDirectWriting means an inline payload is being encoded into the destination file
	SessionStateDirectWriting SessionState = "DirectWriting"

	// SessionStateStreamWriting means a remote location is being streamed into the destination file
	SessionStateStreamWriting SessionState = "StreamWriting"

	// SessionStateFinalizing means content is committed and the sidecar is being written
	SessionStateFinalizing SessionState = "Finalizing"

	// SessionStateCompleted means the content file is persisted
	SessionStateCompleted SessionState = "Completed"

	// SessionStateFailed means the session ended with a classified failure
	SessionStateFailed SessionState = "Failed"

	// SessionStateCancelled means the caller cancelled the session
	SessionStateCancelled SessionState = "Cancelled"
)

var sessionTransitions = map[SessionState][]SessionState{
	SessionStateIdle:          {SessionStateNegotiating, SessionStateCancelled},
	SessionStateNegotiating:   {SessionStateDirectWriting, SessionStateStreamWriting, SessionStateFailed, SessionStateCancelled},
	SessionStateDirectWriting: {SessionStateFinalizing, SessionStateFailed, SessionStateCancelled},
	SessionStateStreamWriting: {SessionStateFinalizing, SessionStateFailed, SessionStateCancelled},
	SessionStateFinalizing:    {SessionStateCompleted, SessionStateFailed, SessionStateCancelled},
}

// String returns the string representation of SessionState
func (s SessionState) String() string {
	return string(s)
}

// IsActive returns true if the session is doing work
func (s SessionState) IsActive() bool {
	switch s {
	case SessionStateNegotiating, SessionStateDirectWriting, SessionStateStreamWriting, SessionStateFinalizing:
		return true
	}
	return false
}

// IsFinished returns true if the session reached a terminal state (completed, failed, or cancelled)
func (s SessionState) IsFinished() bool {
	return s == SessionStateCompleted || s == SessionStateFailed || s == SessionStateCancelled
}

// CanTransitionTo reports whether next is a legal successor of s
func (s SessionState) CanTransitionTo(next SessionState) bool {
	for _, allowed := range sessionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
