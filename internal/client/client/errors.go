package client

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable    = errors.New("server unavailable")
	ErrTimeout        = errors.New("request timed out")
	ErrServerRejected = errors.New("server rejected request")
	ErrNoServer       = errors.New("server address not configured")
)

// ServerError is a reachable server answering with a failure: a non-2xx
// status, an unexpected status string or an unreadable body. It matches
// ErrServerRejected with errors.Is.
type ServerError struct {
	StatusCode int
	Status     string
	Detail     string
}

func (e *ServerError) Error() string {
	msg := "server rejected request"
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: http %d", msg, e.StatusCode)
	}
	if e.Status != "" {
		msg = fmt.Sprintf("%s: status %q", msg, e.Status)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	return msg
}

func (e *ServerError) Is(target error) bool {
	return target == ErrServerRejected
}

// Detail returns the server-provided message of err, if any.
func Detail(err error) string {
	var se *ServerError
	if errors.As(err, &se) {
		return se.Detail
	}
	return ""
}
