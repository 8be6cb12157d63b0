// Package errors provides coded domain errors for the raffle service.
//
// Services return these so transport layers can translate outcomes into
// HTTP statuses without string matching. Infrastructure failures should be
// wrapped with CodeInternal; expected business outcomes carry their own code.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error.
type Code string

const (
	// CodeBadRequest covers malformed requests, structural misconfiguration
	// and illegal state-transition attempts driven by caller input.
	CodeBadRequest Code = "bad_request"
	// CodeNotFound means the referenced raffle, ticket or user does not exist.
	CodeNotFound Code = "not_found"
	// CodeConflict means a specific requested number was no longer available
	// at lock time.
	CodeConflict Code = "conflict"
	// CodeInsufficientAvailability means fewer free numbers remain than
	// the caller asked for.
	CodeInsufficientAvailability Code = "insufficient_availability"
	// CodeInvalidState means the entity exists but is in the wrong lifecycle
	// state for the requested operation.
	CodeInvalidState Code = "invalid_state"
	// CodeUnauthorized covers failed authentication.
	CodeUnauthorized Code = "unauthorized"
	// CodeTimeout covers aborted units of work.
	CodeTimeout Code = "timeout"
	// CodeInternal covers persistence and other infrastructure failures.
	CodeInternal Code = "internal"
)

// DomainError is a coded error with an optional wrapped cause.
type DomainError struct {
	Code    Code
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error { return e.Err }

// New creates a DomainError with the given code and message.
func New(code Code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// Newf creates a DomainError with a formatted message.
func Newf(code Code, format string, args ...any) *DomainError {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. A nil err
// returns nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &DomainError{Code: code, Message: message, Err: err}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var de *DomainError
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.Err
		de = nil
	}
	return false
}

// HasCode returns the code of the outermost DomainError in the chain,
// or CodeInternal when err is not a domain error.
func HasCode(err error) Code {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its HTTP response status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeInvalidState:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInsufficientAvailability:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
