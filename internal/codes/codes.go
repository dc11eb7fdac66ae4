package codes

import (
	"errors"
	"fmt"
)

// Process exit codes
const (
	OK           = 0
	BuildFailed  = 1
	Incompatible = 2
	Config       = 3
	Usage        = 4
)

// ExitCodes maps extpack exit codes to their descriptions
var ExitCodes = map[int]string{
	OK:           "Success",
	BuildFailed:  "Build failed",
	Incompatible: "Web extension compatibility issues found",
	Config:       "Invalid configuration",
	Usage:        "Invalid arguments",
}

// IsSuccess returns true if the exit code indicates success
func IsSuccess(code int) bool {
	return code == OK
}

// GetErrorMessage returns the description for a given exit code, or a generic message if unknown
func GetErrorMessage(code int) string {
	if msg, ok := ExitCodes[code]; ok {
		return msg
	}

	return "Unknown error"
}

// Error attaches an exit code to an error
type Error struct {
	Code int
	Err  error
}

// Wrap returns err tagged with code, or nil when err is nil
func Wrap(code int, err error) error {
	if err == nil {
		return nil
	}

	return &Error{Code: code, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return GetErrorMessage(e.Code)
	}

	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ExitCode returns the exit code for err: OK for nil, the attached code for
// an *Error anywhere in the chain, BuildFailed otherwise.
func ExitCode(err error) int {
	if err == nil {
		return OK
	}

	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}

	return BuildFailed
}

// Errorf is shorthand for Wrap(code, fmt.Errorf(format, args...))
func Errorf(code int, format string, args ...any) error {
	return Wrap(code, fmt.Errorf(format, args...))
}
