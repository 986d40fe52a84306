package talespin

import (
	"fmt"
	"net/url"

	"github.com/pkg/errors"
)

var (
	ErrConnectionClosed = errors.New("connection has been closed")
	ErrCannotConnect    = errors.New("connection cannot be established")
	ErrTerminated       = errors.New("program exit")
	ErrRateLimit        = errors.New("rate limit exceeded")
	ErrSessionClosed    = errors.New("session has been closed")
	ErrAlreadyOpen      = errors.New("session already open")
	ErrMalformedFrame   = errors.New("malformed frame")
	ErrUnknownEvent     = errors.New("unknown event")
	ErrUnknownIntent    = errors.New("unknown intent")
	ErrNameTooLong      = errors.New("name too long")
	ErrNameEmpty        = errors.New("name cannot be empty")
	ErrRoomNotFound     = errors.New("room not found")
)

// ErrUnrecoverableConnection is returned by Session.Err once the reconnect strategy gives up.
// Cause is the close reason of the last handle.
type ErrUnrecoverableConnection struct {
	Cause    error
	Endpoint url.URL
}

func newUnrecoverable(cause error, endpoint url.URL) *ErrUnrecoverableConnection {
	if cause == nil {
		cause = ErrCannotConnect
	}
	return &ErrUnrecoverableConnection{Cause: cause, Endpoint: endpoint}
}

func (e *ErrUnrecoverableConnection) Error() string {
	return fmt.Sprintf("gave up reconnecting to %s: %s", e.Endpoint.String(), e.Cause)
}

func (e *ErrUnrecoverableConnection) Unwrap() error { return e.Cause }

// ServerError is an ErrorMsg event surfaced as an error by request/response calls.
type ServerError struct {
	Message string
}

func (e ServerError) Error() string {
	return "server error: " + e.Message
}
