package harvest

import (
	"errors"
	"fmt"
)

// ErrLoginRejected is the cause of a login SessionError when the site shows a
// credentials error after submission
var ErrLoginRejected = errors.New("login rejected")

// Stage names the part of a session that failed
type Stage string

// Session stages
const (
	StageLaunch   Stage = "launch"
	StageLogin    Stage = "login"
	StageNavigate Stage = "navigate"
	StageCapture  Stage = "capture"
)

// SessionError represents a failure inside one account's browser session
type SessionError struct {
	Stage   Stage
	Message string
	Cause   error
}

func (e *SessionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s failed: %s", e.Stage, e.Message)
}

func (e *SessionError) Unwrap() error {
	return e.Cause
}
