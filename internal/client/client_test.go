package client

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/d2verb/gpioctl/internal/protocol"
)

// recorder captures every request a test server receives.
type recorder struct {
	mu       sync.Mutex
	requests []string
}

func (r *recorder) add(req string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.requests...)
}

// testServer starts a TCP server on a loopback port that performs one read
// and one write per connection, like the daemon.
// Returns the endpoint and the request recorder.
func testServer(t *testing.T, handler func(req string) []byte) (Endpoint, *recorder) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create test server: %v", err)
	}

	rec := &recorder{}
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return // Server closed
			}
			handleTestConnection(conn, rec, handler)
		}
	}()

	t.Cleanup(func() {
		listener.Close()
	})

	return endpointOf(t, listener.Addr()), rec
}

func handleTestConnection(conn net.Conn, rec *recorder, handler func(req string) []byte) {
	defer conn.Close()

	buf := make([]byte, protocol.MaxResponseSize-1)
	n, err := conn.Read(buf)
	if err != nil {
		return
	}
	req := string(buf[:n])
	rec.add(req)

	if resp := handler(req); resp != nil {
		conn.Write(resp)
	}
}

func endpointOf(t *testing.T, addr net.Addr) Endpoint {
	t.Helper()
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		t.Fatalf("unexpected address type %T", addr)
	}
	return Endpoint{Host: "127.0.0.1", Port: tcp.Port}
}

// closedEndpoint returns an endpoint with nothing listening on it.
func closedEndpoint(t *testing.T) Endpoint {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	ep := endpointOf(t, listener.Addr())
	listener.Close()
	return ep
}

func TestNew(t *testing.T) {
	client := New(Endpoint{Host: "localhost", Port: 8888})

	if client == nil {
		t.Fatal("New() returned nil")
	}
	if client.timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", client.timeout, DefaultTimeout)
	}
	if got := client.Endpoint().String(); got != "localhost:8888" {
		t.Errorf("Endpoint() = %q, want %q", got, "localhost:8888")
	}
}

func TestEndpoint_String(t *testing.T) {
	tests := []struct {
		endpoint Endpoint
		want     string
	}{
		{Endpoint{Host: "localhost", Port: 8888}, "localhost:8888"},
		{Endpoint{Host: "10.0.0.2", Port: 1}, "10.0.0.2:1"},
		{Endpoint{Host: "::1", Port: 8888}, "[::1]:8888"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.endpoint.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClient_SendCommand(t *testing.T) {
	t.Run("one connection per command with raw token", func(t *testing.T) {
		ep, rec := testServer(t, func(req string) []byte {
			return []byte("echo:" + req)
		})
		client := New(ep)

		tokens := []string{"status", "normal", "reset", "dfu"}
		for _, token := range tokens {
			resp, err := client.SendCommand(context.Background(), token)
			if err != nil {
				t.Fatalf("SendCommand(%q) error = %v", token, err)
			}
			if resp != "echo:"+token {
				t.Errorf("SendCommand(%q) = %q, want %q", token, resp, "echo:"+token)
			}
		}

		got := rec.all()
		if len(got) != len(tokens) {
			t.Fatalf("server saw %d requests, want %d: %v", len(got), len(tokens), got)
		}
		for i, token := range tokens {
			if got[i] != token {
				t.Errorf("request[%d] = %q, want %q", i, got[i], token)
			}
		}
	})

	t.Run("unknown token forwarded as-is", func(t *testing.T) {
		ep, rec := testServer(t, func(req string) []byte {
			return []byte(protocol.ErrUnknownCommandReply)
		})

		resp, err := New(ep).SendCommand(context.Background(), "bogus")
		if err != nil {
			t.Fatalf("SendCommand() error = %v", err)
		}
		if resp != protocol.ErrUnknownCommandReply {
			t.Errorf("resp = %q, want %q", resp, protocol.ErrUnknownCommandReply)
		}
		if got := rec.all(); len(got) != 1 || got[0] != "bogus" {
			t.Errorf("requests = %v, want [bogus]", got)
		}
	})

	t.Run("empty reply when daemon closes without writing", func(t *testing.T) {
		ep, _ := testServer(t, func(req string) []byte { return nil })

		resp, err := New(ep).SendCommand(context.Background(), "status")
		if err != nil {
			t.Fatalf("SendCommand() error = %v", err)
		}
		if resp != "" {
			t.Errorf("resp = %q, want empty", resp)
		}
	})
}

func TestClient_SendCommand_ResponseSize(t *testing.T) {
	t.Run("exactly max size returned in full", func(t *testing.T) {
		reply := strings.Repeat("a", protocol.MaxResponseSize)
		ep, _ := testServer(t, func(req string) []byte { return []byte(reply) })

		resp, err := New(ep).SendCommand(context.Background(), "status")
		if err != nil {
			t.Fatalf("SendCommand() error = %v", err)
		}
		if len(resp) != protocol.MaxResponseSize {
			t.Errorf("len(resp) = %d, want %d", len(resp), protocol.MaxResponseSize)
		}
	})

	t.Run("longer reply truncated", func(t *testing.T) {
		reply := strings.Repeat("a", protocol.MaxResponseSize) + strings.Repeat("b", 500)
		ep, _ := testServer(t, func(req string) []byte { return []byte(reply) })

		resp, err := New(ep).SendCommand(context.Background(), "status")
		if err != nil {
			t.Fatalf("SendCommand() error = %v", err)
		}
		if len(resp) > protocol.MaxResponseSize {
			t.Errorf("len(resp) = %d, want at most %d", len(resp), protocol.MaxResponseSize)
		}
		if strings.Contains(resp, "b") {
			t.Error("resp contains bytes past the receive buffer")
		}
	})
}

func TestClient_SendCommand_Errors(t *testing.T) {
	t.Run("connection refused when daemon not running", func(t *testing.T) {
		client := New(closedEndpoint(t))
		_, err := client.SendCommand(context.Background(), "status")

		if err == nil {
			t.Fatal("SendCommand() expected error when daemon not running")
		}
		if !IsRefused(err) {
			t.Errorf("KindOf(err) = %q, want %q (err = %v)", KindOf(err), KindConnectionRefused, err)
		}
		var ce *Error
		if !errors.As(err, &ce) || ce.Op != OpConnect {
			t.Errorf("err = %#v, want *Error with Op %q", err, OpConnect)
		}
	})

	t.Run("timeout when daemon never replies", func(t *testing.T) {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("listen: %v", err)
		}
		t.Cleanup(func() { listener.Close() })

		held := make(chan net.Conn, 1)
		go func() {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			held <- conn
		}()
		t.Cleanup(func() {
			select {
			case conn := <-held:
				conn.Close()
			default:
			}
		})

		client := New(endpointOf(t, listener.Addr()), WithTimeout(100*time.Millisecond))
		start := time.Now()
		_, err = client.SendCommand(context.Background(), "status")

		if !IsTimeout(err) {
			t.Fatalf("KindOf(err) = %q, want %q (err = %v)", KindOf(err), KindTimeout, err)
		}
		if elapsed := time.Since(start); elapsed > 2*time.Second {
			t.Errorf("SendCommand() took %v, want near the 100ms timeout", elapsed)
		}
	})

	t.Run("invalid utf-8 is a connection failure", func(t *testing.T) {
		ep, _ := testServer(t, func(req string) []byte { return []byte{0xff, 0xfe, 0xfd} })

		_, err := New(ep).SendCommand(context.Background(), "status")

		if KindOf(err) != KindConnectionFailed {
			t.Errorf("KindOf(err) = %q, want %q", KindOf(err), KindConnectionFailed)
		}
		if !errors.Is(err, errInvalidUTF8) {
			t.Errorf("err = %v, want wrapping errInvalidUTF8", err)
		}
	})

	t.Run("unresolvable host is a connection failure", func(t *testing.T) {
		client := New(Endpoint{Host: "host.invalid", Port: 8888}, WithTimeout(2*time.Second))
		_, err := client.SendCommand(context.Background(), "status")

		if err == nil {
			t.Fatal("SendCommand() expected error for unresolvable host")
		}
		if kind := KindOf(err); kind != KindConnectionFailed && kind != KindTimeout {
			t.Errorf("KindOf(err) = %q, want %q", kind, KindConnectionFailed)
		}
	})
}

func TestClient_Wrappers(t *testing.T) {
	ep, rec := testServer(t, func(req string) []byte { return []byte("OK") })
	client := New(ep)
	ctx := context.Background()

	calls := []struct {
		name string
		fn   func(context.Context) (string, error)
		want string
	}{
		{"Status", client.Status, "status"},
		{"Normal", client.Normal, "normal"},
		{"Reset", client.Reset, "reset"},
		{"EnterDFU", client.EnterDFU, "dfu"},
		{"EnterTest", client.EnterTest, "test"},
		{"ExitTest", client.ExitTest, "test_exit"},
	}

	for _, c := range calls {
		if _, err := c.fn(ctx); err != nil {
			t.Fatalf("%s() error = %v", c.name, err)
		}
	}

	got := rec.all()
	if len(got) != len(calls) {
		t.Fatalf("server saw %d requests, want %d", len(got), len(calls))
	}
	for i, c := range calls {
		if got[i] != c.want {
			t.Errorf("%s sent %q, want %q", c.name, got[i], c.want)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"refused", &net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}, KindConnectionRefused},
		{"generic op error", &net.OpError{Op: "dial", Err: errors.New("x")}, KindConnectionFailed},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"canceled", context.Canceled, KindConnectionFailed},
		{"other", errors.New("boom"), KindConnectionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.err); got != tt.want {
				t.Errorf("classify(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}
