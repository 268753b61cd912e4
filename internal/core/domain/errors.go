package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// DomainError is an error carrying a stable code of the form
// DBL-<AREA>-<NNNN>. The first three digits of NNNN are the HTTP status
// the admin API answers with.
type DomainError struct {
	Code    string
	Message string
	Details string
	Cause   error
}

func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error { return e.Cause }

// Is matches any DomainError with the same code, so sentinels compare
// equal to their WithDetails copies.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && e.Code == t.Code
}

// Status returns the HTTP status encoded in the code, or 500 when the code
// does not carry a known one.
func (e *DomainError) Status() int {
	if len(e.Code) < 4 {
		return http.StatusInternalServerError
	}
	n, err := strconv.Atoi(e.Code[len(e.Code)-4 : len(e.Code)-1])
	if err != nil || http.StatusText(n) == "" {
		return http.StatusInternalServerError
	}
	return n
}

// WithDetails returns a copy of e with details attached.
func (e *DomainError) WithDetails(details string) *DomainError {
	c := *e
	c.Details = details
	return &c
}

// WithCause returns a copy of e wrapping cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	c := *e
	c.Cause = cause
	return &c
}

func newError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// AsDomainError reports whether err wraps a DomainError and returns it.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Command errors.
var (
	ErrUnknownCommand = newError("DBL-CMD-4040", "unknown command")
	ErrWrongArity     = newError("DBL-CMD-4000", "wrong number of arguments")
	ErrNotInteger     = newError("DBL-CMD-4001", "value is not an integer or out of range")
	ErrWrongType      = newError("DBL-TYPE-4090", "Operation against a key holding the wrong kind of value")
)

// ErrProtocol reports a malformed request or reply frame.
var ErrProtocol = newError("DBL-PROTO-4000", "protocol error")

// Persistence errors. ErrPersistence covers I/O and naming failures,
// ErrCorruptSnapshot a stream that fails validation.
var (
	ErrPersistence     = newError("DBL-PERS-5000", "persistence error")
	ErrCorruptSnapshot = newError("DBL-PERS-4220", "corrupt snapshot")
)

// Server errors.
var (
	ErrInternal     = newError("DBL-SYS-5000", "internal error")
	ErrMaxClients   = newError("DBL-SYS-5030", "max number of clients reached")
	ErrRateLimited  = newError("DBL-SYS-4290", "too many requests")
	ErrShuttingDown = newError("DBL-SYS-5031", "server is shutting down")
)
