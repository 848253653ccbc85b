package session

import (
	"errors"
	"fmt"
)

// FetchError reports that a language bundle could not be loaded.
type FetchError struct {
	Lang string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Lang, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ExecutionError reports that the backend could not run a program at all.
// A program exiting non-zero is not an ExecutionError.
type ExecutionError struct {
	Lang string
	Err  error
}

func (e *ExecutionError) Error() string {
	if e.Err == nil {
		return "execution failed"
	}
	return e.Err.Error()
}

func (e *ExecutionError) Unwrap() error { return e.Err }

func asFetchError(lang string, err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return &FetchError{Lang: lang, Err: err}
}

func asExecutionError(lang string, err error) *ExecutionError {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee
	}
	return &ExecutionError{Lang: lang, Err: err}
}
