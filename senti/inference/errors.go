package inference

import (
	"errors"
	"fmt"
)

var (
	// ErrModelNotReady is matched by every *ModelNotReadyError
	ErrModelNotReady = errors.New("model not ready")
	ErrShapeMismatch = errors.New("tensor shape mismatch")
	ErrNoOutput      = errors.New("model produced no output")
)

// ModelNotReadyError reports a prediction attempted without a loaded model
type ModelNotReadyError struct {
	Reason string
}

func (e *ModelNotReadyError) Error() string {
	if e.Reason == "" {
		return ErrModelNotReady.Error()
	}
	return fmt.Sprintf("%s: %s", ErrModelNotReady, e.Reason)
}

func (e *ModelNotReadyError) Unwrap() error { return ErrModelNotReady }
