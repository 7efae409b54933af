package cmdutil

import (
	"errors"
	"fmt"
)

// Exit codes for CLI commands. They follow grep: 1 means nothing was found.
const (
	ExitSuccess         = 0
	ExitNoMatch         = 1
	ExitGeneralError    = 2
	ExitValidationError = 3
)

// ErrNoMatch is returned by commands that found nothing to report.
var ErrNoMatch = errors.New("no match")

// ExitError carries the process exit code for err.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Validation marks err as a usage or input problem.
func Validation(err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: ExitValidationError, Err: err}
}

// Validationf is Validation with a formatted error.
func Validationf(format string, args ...any) error {
	return Validation(fmt.Errorf(format, args...))
}

// ExitCode maps err to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if errors.Is(err, ErrNoMatch) {
		return ExitNoMatch
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitGeneralError
}
