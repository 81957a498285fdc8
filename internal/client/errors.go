package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

// Kind classifies a failed round trip.
type Kind string

const (
	KindConnectionRefused Kind = "connection_refused"
	KindConnectionFailed  Kind = "connection_failed"
	KindTimeout           Kind = "timeout"
)

// Op names the step of a round trip that failed.
type Op string

const (
	OpConnect Op = "connect"
	OpWrite   Op = "write"
	OpRead    Op = "read"
	OpDecode  Op = "decode"
)

// errInvalidUTF8 is wrapped when a reply is not valid UTF-8 text.
var errInvalidUTF8 = errors.New("response is not valid UTF-8")

// Error reports a failed exchange with the daemon.
type Error struct {
	Kind     Kind
	Op       Op
	Endpoint string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Endpoint, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of a client error, or "" if err is not one.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// IsRefused reports whether no daemon was listening at the endpoint.
func IsRefused(err error) bool {
	return KindOf(err) == KindConnectionRefused
}

// IsTimeout reports whether the exchange hit its deadline.
func IsTimeout(err error) bool {
	return KindOf(err) == KindTimeout
}

// classify maps a transport error to a Kind.
func classify(err error) Kind {
	var ne net.Error
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return KindConnectionRefused
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return KindTimeout
	case errors.As(err, &ne) && ne.Timeout():
		return KindTimeout
	default:
		return KindConnectionFailed
	}
}
