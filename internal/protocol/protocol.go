// Package protocol defines the plain-text protocol spoken with the GPIO daemon.
//
// A request is the raw ASCII token of one command, with no terminator and no
// length prefix. The response is raw text of at most MaxResponseSize bytes.
// Each exchange uses its own connection.
package protocol

import (
	"fmt"
	"strings"
)

// MaxResponseSize is the receive buffer size for a single reply.
// Longer replies are truncated, never reassembled.
const MaxResponseSize = 1024

// DefaultPort is the TCP port the daemon listens on.
const DefaultPort = 8888

// Command identifies a request understood by the daemon.
type Command string

// Command tokens, sent verbatim as the request body.
const (
	CmdStatus   Command = "status"
	CmdNormal   Command = "normal"
	CmdReset    Command = "reset"
	CmdDFU      Command = "dfu"
	CmdTest     Command = "test"
	CmdTestExit Command = "test_exit"
)

// Commands lists every wire command in the order they are presented to users.
var Commands = []Command{CmdStatus, CmdNormal, CmdReset, CmdDFU, CmdTest, CmdTestExit}

// Token returns the bytes-on-the-wire form of the command.
func (c Command) Token() string { return string(c) }

func (c Command) String() string { return string(c) }

// UnknownCommandError is returned by ParseCommand for tokens outside the set.
type UnknownCommandError struct {
	Token string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command '%s'", e.Token)
}

// ParseCommand maps a token to its Command.
func ParseCommand(token string) (Command, error) {
	for _, c := range Commands {
		if string(c) == token {
			return c, nil
		}
	}
	return "", &UnknownCommandError{Token: token}
}

// Reply prefixes used by the daemon.
const (
	PrefixOK     = "OK:"
	PrefixStatus = "STATUS:"
	PrefixError  = "ERROR:"
)

// ReplyKind classifies a daemon reply for rendering.
type ReplyKind int

const (
	ReplyUnknown ReplyKind = iota
	ReplyOK
	ReplyStatus
	ReplyError
)

// ClassifyReply inspects the reply prefix. The client never rejects a reply
// based on its kind; the classification only drives presentation.
func ClassifyReply(reply string) ReplyKind {
	switch {
	case strings.HasPrefix(reply, PrefixOK):
		return ReplyOK
	case strings.HasPrefix(reply, PrefixStatus):
		return ReplyStatus
	case strings.HasPrefix(reply, PrefixError):
		return ReplyError
	default:
		return ReplyUnknown
	}
}

// OKReply builds an "OK:<value>" reply.
func OKReply(value string) string { return PrefixOK + value }

// StatusReply builds a "STATUS:<value>" reply.
func StatusReply(value string) string { return PrefixStatus + value }

// ErrorReply builds an "ERROR:<value>" reply.
func ErrorReply(value string) string { return PrefixError + value }

// ErrUnknownCommandReply is what the daemon answers for unrecognized tokens.
var ErrUnknownCommandReply = ErrorReply("UNKNOWN_COMMAND")
