package runner

import (
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Sentinel errors for turn outcomes.
var (
	ErrTimeout       = errors.New("timed out")
	ErrCancelled     = errors.New("execution cancelled")
	ErrProcessExited = errors.New("process has exited")
)

// TimeoutError reports that a tool exceeded its wall-clock limit.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %gs", e.After.Seconds())
}

func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}

// ProcessStartError reports that the tool executable could not be launched.
type ProcessStartError struct {
	Cause error
	Path  string
}

func (e *ProcessStartError) Error() string {
	if errors.Is(e.Cause, exec.ErrNotFound) {
		return fmt.Sprintf("executable %q not found: %v", e.Path, e.Cause)
	}
	return fmt.Sprintf("failed to start %q: %v", e.Path, e.Cause)
}

func (e *ProcessStartError) Unwrap() error {
	return e.Cause
}

// InputWriteError reports that a prompt could not be written to a persistent
// process, usually because its stdin pipe is broken.
type InputWriteError struct {
	Cause error
	PID   int
}

func (e *InputWriteError) Error() string {
	return fmt.Sprintf("write input to process %d: %v", e.PID, e.Cause)
}

func (e *InputWriteError) Unwrap() error {
	return e.Cause
}
