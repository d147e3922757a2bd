package gateway

import (
	"context"
	"errors"
	"fmt"
)

// Gateway is the narrow request/response contract between the exam session
// controller and the delivery server. It keeps no local state.
type Gateway interface {
	GetCurrentModule(ctx context.Context, attemptID uint) (*Module, error)
	SubmitModule(ctx context.Context, attemptID uint, req *SubmitModuleRequest) (SubmitOutcome, error)
}

// Abandoner is implemented by gateways that can close an attempt server side.
type Abandoner interface {
	AbandonAttempt(ctx context.Context, attemptID uint) error
}

// Pinger is implemented by gateways that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

var (
	ErrNoCurrentModule = errors.New("attempt has no current module")
	ErrUnavailable     = errors.New("gateway unavailable")
)

// StatusError is returned when the server answered with a non-2xx status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway: status %d: %s", e.Code, e.Message)
}

// IsStatus reports whether err carries the given HTTP status code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
