package loop

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRunning is returned by Start while a worker exists.
	ErrAlreadyRunning = errors.New("loop: already running")

	// ErrNotRunning is returned by Stop when no worker exists.
	ErrNotRunning = errors.New("loop: not running")

	// ErrNilStep is returned by Start when no step function is given.
	ErrNilStep = errors.New("loop: nil step function")

	// ErrWorkerFailed matches any failure that terminated the worker.
	ErrWorkerFailed = errors.New("loop: worker failed")
)

// PanicError is a panic recovered from a step, command or once item. The
// worker exits after recording it.
type PanicError struct {
	Value any
	// Source is "step", "command" or "once".
	Source string
	Stack  []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("loop: %s panicked: %v", e.Source, e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Is reports a match for ErrWorkerFailed.
func (e *PanicError) Is(target error) bool {
	return target == ErrWorkerFailed
}
