package run262

import (
	"errors"
	"fmt"
)

// RuntimeError represents an operational error that should lead to exit code 2.
// Examples include configuration errors, an unusable executor binary, or a
// protocol desync between orchestrator and executor.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// NewRuntimeError creates a new RuntimeError
func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// IsRuntimeError checks if the error is or wraps a RuntimeError
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// RegressionsError signals that a regressions-only diff found tests that
// stopped passing (exit code 1).
type RegressionsError struct {
	Count int
}

func (e *RegressionsError) Error() string {
	return fmt.Sprintf("%d regressed tests", e.Count)
}

// NewRegressionsError creates a new RegressionsError
func NewRegressionsError(count int) *RegressionsError {
	return &RegressionsError{Count: count}
}

// IsRegressionsError checks if the error is or wraps a RegressionsError
func IsRegressionsError(err error) bool {
	var regErr *RegressionsError
	return err != nil && errors.As(err, &regErr)
}
