package session

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidState     = errors.New("operation not allowed in current session state")
	ErrSubmitInProgress = errors.New("module submission already in progress")
	ErrOffline          = errors.New("network is offline")
	ErrNoModule         = errors.New("no module loaded")
	ErrClosed           = errors.New("session controller closed")
	ErrStaleResponse    = errors.New("response arrived after the session moved on")
)

// UnexpectedModuleError is returned when the server reports a module other
// than the one a transition is waiting for.
type UnexpectedModuleError struct {
	Expected uint
	Got      uint
}

func (e *UnexpectedModuleError) Error() string {
	return fmt.Sprintf("expected module %d, server returned %d", e.Expected, e.Got)
}
