package service

import (
	"errors"
	"fmt"
)

// Sentinel errors for upstream dispatch.
var (
	// ErrUpstreamUnreachable indicates that the upstream refused or could not accept the connection.
	ErrUpstreamUnreachable = errors.New("upstream unreachable")

	// ErrUpstreamTimeout indicates that the upstream did not answer within the timeout.
	ErrUpstreamTimeout = errors.New("upstream request timed out")
)

// DispatchKind classifies a failed upstream attempt.
type DispatchKind int

const (
	// DispatchOther is any failure that is neither a timeout nor a connection failure.
	DispatchOther DispatchKind = iota
	// DispatchUnreachable is a refused connection, DNS failure, or dial error.
	DispatchUnreachable
	// DispatchTimeout is an elapsed request deadline.
	DispatchTimeout
)

// String returns the label used in logs and metrics.
func (k DispatchKind) String() string {
	switch k {
	case DispatchUnreachable:
		return "unreachable"
	case DispatchTimeout:
		return "timeout"
	default:
		return "other"
	}
}

// DispatchError is a failed upstream attempt. It is terminal; nothing retries it.
type DispatchError struct {
	Kind   DispatchKind
	Route  string
	Target string
	Cause  error
}

// Error implements the error interface.
func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s route=%s target=%s: %v", e.Kind, e.Route, e.Target, e.Cause)
}

// Unwrap returns the underlying error.
func (e *DispatchError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel for the error's kind.
func (e *DispatchError) Is(target error) bool {
	switch target {
	case ErrUpstreamUnreachable:
		return e.Kind == DispatchUnreachable
	case ErrUpstreamTimeout:
		return e.Kind == DispatchTimeout
	}
	return false
}

// Stage is a step of the gateway pipeline.
type Stage string

// Pipeline stages in execution order.
const (
	StageReceived       Stage = "received"
	StageAuthenticating Stage = "authenticating"
	StageRouting        Stage = "routing"
	StageDispatching    Stage = "dispatching"
	StageRelaying       Stage = "relaying"
	StageCompleted      Stage = "completed"
)

// StageError records the stage at which a request failed.
type StageError struct {
	Stage Stage
	Err   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}
