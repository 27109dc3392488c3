package conversation

// SessionError is a failure of the loop itself, fatal to the session. Tool
// and catalog failures recover inside a turn and never surface this way.
// The caller reports a SessionError to the client as one terminal error
// event; history persisted before the failure remains valid.
type SessionError struct {
	ConversationID string
	Reason         string
	Err            error
}

// Error implements the error interface.
func (e *SessionError) Error() string {
	msg := "session"
	if e.ConversationID != "" {
		msg += " " + e.ConversationID
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *SessionError) Unwrap() error {
	return e.Err
}
