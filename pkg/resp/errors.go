package resp

import (
	"errors"
	"fmt"
)

var (
	ErrProtocol      = errors.New("resp: protocol error")
	ErrLimitExceeded = errors.New("resp: limit exceeded")
)

// ProtocolError describes a malformed frame.
type ProtocolError struct {
	Msg string

	// Fatal is set when the reader lost track of frame boundaries.
	Fatal bool

	// Limit is set when a configured size limit was exceeded.
	Limit bool
}

func (e *ProtocolError) Error() string {
	if e.Limit {
		return "resp: limit exceeded: " + e.Msg
	}
	return "resp: protocol error: " + e.Msg
}

// Is matches ErrProtocol, and ErrLimitExceeded for limit errors.
func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol || (e.Limit && target == ErrLimitExceeded)
}

func fatalf(format string, args ...any) error {
	return &ProtocolError{Msg: fmt.Sprintf(format, args...), Fatal: true}
}

func localf(format string, args ...any) error {
	return &ProtocolError{Msg: fmt.Sprintf(format, args...)}
}

func limitf(fatal bool, format string, args ...any) error {
	return &ProtocolError{Msg: fmt.Sprintf(format, args...), Fatal: fatal, Limit: true}
}

// IsFatal reports whether err leaves the stream desynchronized. Any error
// that is not a *ProtocolError (I/O errors, EOF) is fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe.Fatal
	}
	return true
}

// ReplyError is an error reply received from the server.
type ReplyError struct {
	Msg string
}

func (e *ReplyError) Error() string {
	return e.Msg
}

// Prefix returns the first word of the message, e.g. "WRONGTYPE" or "ERR".
func (e *ReplyError) Prefix() string {
	for i := 0; i < len(e.Msg); i++ {
		if e.Msg[i] == ' ' {
			return e.Msg[:i]
		}
	}
	return e.Msg
}
