// Package client provides a client for communicating with the GPIO daemon.
package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/d2verb/gpioctl/internal/protocol"
)

// DefaultTimeout bounds connect, write and read of one round trip.
const DefaultTimeout = 5 * time.Second

// Endpoint identifies the daemon.
type Endpoint struct {
	Host string
	Port int
}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Client talks to the daemon over TCP, one connection per command.
type Client struct {
	endpoint Endpoint
	timeout  time.Duration
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-exchange deadline. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a new daemon client.
func New(endpoint Endpoint, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		timeout:  DefaultTimeout,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the daemon endpoint.
func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

// SendCommand performs one round trip: connect, write token, read once, close.
// The token is forwarded as-is. Replies longer than protocol.MaxResponseSize
// are truncated.
func (c *Client) SendCommand(ctx context.Context, token string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	addr := c.endpoint.String()
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", c.fail(ctx, OpConnect, err)
	}
	defer conn.Close()

	// Unblock pending I/O when ctx ends.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if _, err := conn.Write([]byte(token)); err != nil {
		return "", c.fail(ctx, OpWrite, err)
	}

	buf := make([]byte, protocol.MaxResponseSize)
	n, err := conn.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", c.fail(ctx, OpRead, err)
	}
	if !utf8.Valid(buf[:n]) {
		return "", c.fail(ctx, OpDecode, errInvalidUTF8)
	}

	c.logger.Debug("round trip complete", "endpoint", addr, "command", token, "bytes", n)
	return string(buf[:n]), nil
}

func (c *Client) fail(ctx context.Context, op Op, err error) error {
	// A deadline set by AfterFunc surfaces as an I/O timeout; report the
	// context's reason instead.
	if ctxErr := ctx.Err(); ctxErr != nil && op != OpDecode {
		err = ctxErr
	}
	e := &Error{
		Kind:     classify(err),
		Op:       op,
		Endpoint: c.endpoint.String(),
		Err:      err,
	}
	if op == OpDecode {
		e.Kind = KindConnectionFailed
	}
	c.logger.Debug("round trip failed", "endpoint", e.Endpoint, "op", string(op), "kind", string(e.Kind), "error", err)
	return e
}

// Send sends a known command.
func (c *Client) Send(ctx context.Context, cmd protocol.Command) (string, error) {
	return c.SendCommand(ctx, cmd.Token())
}

// Status queries the current device state.
func (c *Client) Status(ctx context.Context) (string, error) {
	return c.Send(ctx, protocol.CmdStatus)
}

// Normal puts the device into normal run state.
func (c *Client) Normal(ctx context.Context) (string, error) {
	return c.Send(ctx, protocol.CmdNormal)
}

// Reset pulses the device reset line.
func (c *Client) Reset(ctx context.Context) (string, error) {
	return c.Send(ctx, protocol.CmdReset)
}

// EnterDFU puts the device into firmware update mode.
func (c *Client) EnterDFU(ctx context.Context) (string, error) {
	return c.Send(ctx, protocol.CmdDFU)
}

// EnterTest starts the daemon's pin toggling test mode.
func (c *Client) EnterTest(ctx context.Context) (string, error) {
	return c.Send(ctx, protocol.CmdTest)
}

// ExitTest stops test mode.
func (c *Client) ExitTest(ctx context.Context) (string, error) {
	return c.Send(ctx, protocol.CmdTestExit)
}
