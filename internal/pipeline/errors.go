package pipeline

import (
	"errors"
	"fmt"

	"github.com/felixbrock/promptstudio/internal/domain"
)

type Kind string

const (
	KindRejection   Kind = "rejection"
	KindParse       Kind = "parse"
	KindStructural  Kind = "structural"
	KindConsistency Kind = "consistency"
)

var (
	ErrEmptyCompletion  = errors.New("completion is empty")
	ErrDangerousContent = errors.New("completion contains a dangerous pattern")
	ErrInvalidInput     = errors.New("invalid input")
)

// Error is the failure result of every pipeline stage. It always carries at
// least one ValidationError.
type Error struct {
	Kind   Kind
	Errors []domain.ValidationError
	cause  error
}

func newError(kind Kind, cause error, errs ...domain.ValidationError) *Error {
	return &Error{Kind: kind, Errors: errs, cause: cause}
}

func rootError(kind Kind, cause error, msg string) *Error {
	return newError(kind, cause, domain.ValidationError{Path: domain.Path{}, Message: msg})
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error: %s", e.Kind, e.Summary())
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Summary names the first blocking error and how many other fields failed.
func (e *Error) Summary() string {
	if len(e.Errors) == 0 {
		if e.cause != nil {
			return e.cause.Error()
		}
		return string(e.Kind)
	}

	first := e.Errors[0].Error()
	if n := len(e.Errors) - 1; n == 1 {
		return fmt.Sprintf("%s (and 1 more field failed)", first)
	} else if n > 1 {
		return fmt.Sprintf("%s (and %d more fields failed)", first, n)
	}

	return first
}

// AsError unwraps err into a pipeline *Error.
func AsError(err error) (*Error, bool) {
	var perr *Error
	ok := errors.As(err, &perr)
	return perr, ok
}
