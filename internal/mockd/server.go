package mockd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/d2verb/gpioctl/internal/protocol"
)

// Handler answers one command token.
type Handler interface {
	Handle(token string) string
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(token string) string

// Handle calls f(token).
func (f HandlerFunc) Handle(token string) string { return f(token) }

// DefaultReadTimeout bounds how long a connection may stay silent before it
// is dropped.
const DefaultReadTimeout = 5 * time.Second

// Server accepts TCP connections and performs one exchange per connection.
type Server struct {
	handler     Handler
	addr        string
	logger      *slog.Logger
	readTimeout time.Duration
	listener    net.Listener
	done        chan struct{}

	mu      sync.Mutex
	active  net.Conn
	closing bool
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithReadTimeout sets the per-connection deadline. Zero disables it.
func WithReadTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.readTimeout = d
	}
}

// NewServer creates a new mock daemon server.
func NewServer(handler Handler, addr string, logger *slog.Logger, opts ...ServerOption) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		handler:     handler,
		addr:        addr,
		logger:      logger,
		readTimeout: DefaultReadTimeout,
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start starts listening on the configured address.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.logger.Info("mock daemon listening", "addr", listener.Addr().String())

	go s.acceptLoop(ctx)
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener and any connection in flight, then waits for the
// accept loop to exit.
func (s *Server) Stop() error {
	if s.listener == nil {
		return nil
	}
	err := s.listener.Close()

	s.mu.Lock()
	s.closing = true
	if s.active != nil {
		s.active.Close()
	}
	s.mu.Unlock()

	<-s.done
	return err
}

// track records conn as the connection in flight. It reports false once Stop
// has begun, in which case conn is closed.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		conn.Close()
		return false
	}
	s.active = conn
	return true
}

func (s *Server) untrack() {
	s.mu.Lock()
	s.active = nil
	s.mu.Unlock()
}

// acceptLoop serves connections one at a time, like the daemon.
func (s *Server) acceptLoop(ctx context.Context) {
	defer close(s.done)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
				s.logger.Warn("accept failed", "error", err)
				continue
			}
		}
		if !s.track(conn) {
			return
		}
		s.handleConnection(conn)
		s.untrack()
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	s.logger.Info("accepted connection", "remote", remote)

	if s.readTimeout > 0 {
		conn.SetDeadline(time.Now().Add(s.readTimeout))
	}

	buf := make([]byte, protocol.MaxResponseSize-1)
	n, err := conn.Read(buf)
	if err != nil {
		s.logger.Error("read failed", "remote", remote, "error", err)
		return
	}

	token := string(buf[:n])
	reply := s.handler.Handle(token)
	s.logger.Info("handled command", "remote", remote, "command", token, "reply", reply)

	if _, err := conn.Write([]byte(reply)); err != nil {
		s.logger.Error("write failed", "remote", remote, "error", err)
	}
}
