package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/getlinkd/linkd/pkg/auth"
	"github.com/getlinkd/linkd/pkg/logging"
	"github.com/getlinkd/linkd/pkg/registry"
	"github.com/getlinkd/linkd/pkg/service"
)

// acceptPollInterval bounds each blocking accept so shutdown and interrupts
// are observed promptly instead of only when a connection arrives.
const acceptPollInterval = 500 * time.Millisecond

// heartbeatPollInterval is the granularity at which the heartbeat re-checks
// the server's active flag between registrations.
const heartbeatPollInterval = time.Second

// Server accepts connections for one RPC service and dispatches each
// authenticated connection to a session runner. Construction binds the
// listener immediately; Start runs the accept loop; Close is the single,
// idempotent teardown path.
type Server struct {
	svc           service.Identity
	runner        SessionRunner
	authenticator auth.Authenticator
	registrar     registry.Registrar
	autoRegister  bool
	protocol      map[string]any
	backlog       int
	log           *slog.Logger

	listener   *net.TCPListener
	port       int
	dispatcher dispatcher

	mu      sync.Mutex
	clients map[net.Conn]string // accepted conn -> session id
	started bool
	closed  bool

	active atomic.Bool

	acceptPoll    time.Duration
	heartbeatTick time.Duration
}

type settings struct {
	host          string
	port          int
	backlog       int
	reuseAddr     bool
	authenticator auth.Authenticator
	registrar     registry.Registrar
	autoRegister  bool
	protocol      map[string]any
	log           *slog.Logger
	dispatch      string
	processCmd    ProcessCommand
}

// Option configures a Server at construction.
type Option func(*settings)

// WithAddress sets the bind address. Port 0 picks an ephemeral port,
// resolved after bind and readable via Port.
func WithAddress(host string, port int) Option {
	return func(s *settings) {
		s.host = host
		s.port = port
	}
}

// WithBacklog sets the requested pending-connection queue depth.
func WithBacklog(n int) Option {
	return func(s *settings) { s.backlog = n }
}

// WithReuseAddr toggles SO_REUSEADDR on the listener. Enabled by default.
func WithReuseAddr(enabled bool) Option {
	return func(s *settings) { s.reuseAddr = enabled }
}

// WithAuthenticator gates every accepted connection through the given
// authenticator. Without one, connections pass through with nil credentials.
func WithAuthenticator(a auth.Authenticator) Option {
	return func(s *settings) { s.authenticator = a }
}

// WithRegistrar sets the discovery registrar. Defaults to the standard UDP
// discovery client.
func WithRegistrar(r registry.Registrar) Option {
	return func(s *settings) { s.registrar = r }
}

// WithAutoRegister toggles the background heartbeat that re-advertises the
// service to the registry. Enabled by default.
func WithAutoRegister(enabled bool) Option {
	return func(s *settings) { s.autoRegister = enabled }
}

// WithProtocolConfig sets the opaque options passed through to every session
// runner, merged per-session with that session's credentials.
func WithProtocolConfig(protocol map[string]any) Option {
	return func(s *settings) { s.protocol = protocol }
}

// WithLogger sets the server's logger. Defaults to a per-service-per-port
// derived logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *settings) {
		if log != nil {
			s.log = log
		}
	}
}

// WithProcessDispatch runs each session in an isolated child process instead
// of a goroutine. Construction fails with ErrProcessDispatchUnsupported on
// platforms without process isolation, before any socket is bound.
func WithProcessDispatch(cmd ProcessCommand) Option {
	return func(s *settings) {
		s.dispatch = "process"
		s.processCmd = cmd
	}
}

// New creates a server for the given service and session runner, binding the
// listener immediately. Use Start to begin accepting and Close to stop.
func New(svc service.Identity, runner SessionRunner, opts ...Option) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("service identity is required")
	}
	if runner == nil {
		return nil, fmt.Errorf("session runner is required")
	}

	st := settings{
		host:         "0.0.0.0",
		port:         0,
		backlog:      10,
		reuseAddr:    true,
		autoRegister: true,
		dispatch:     "worker",
	}
	for _, opt := range opts {
		opt(&st)
	}

	if st.dispatch == "process" && !processDispatchSupported {
		return nil, ErrProcessDispatchUnsupported
	}

	lc := net.ListenConfig{}
	if st.reuseAddr {
		lc.Control = reuseAddrControl
	}
	ln, err := lc.Listen(context.Background(), "tcp",
		net.JoinHostPort(st.host, fmt.Sprintf("%d", st.port)))
	if err != nil {
		return nil, fmt.Errorf("bind %s:%d: %w", st.host, st.port, err)
	}
	tcpLn, ok := ln.(*net.TCPListener)
	if !ok {
		ln.Close()
		return nil, fmt.Errorf("unexpected listener type %T", ln)
	}
	port := tcpLn.Addr().(*net.TCPAddr).Port

	if st.log == nil {
		st.log = logging.ForService(nil, svc.Name(), port)
	}
	if st.registrar == nil {
		st.registrar = registry.NewUDPClient(registry.WithLogger(st.log))
	}

	s := &Server{
		svc:           svc,
		runner:        runner,
		authenticator: st.authenticator,
		registrar:     st.registrar,
		autoRegister:  st.autoRegister,
		protocol:      st.protocol,
		backlog:       st.backlog,
		log:           st.log,
		listener:      tcpLn,
		port:          port,
		clients:       make(map[net.Conn]string),
		acceptPoll:    acceptPollInterval,
		heartbeatTick: heartbeatPollInterval,
	}

	if st.dispatch == "process" {
		d, err := newProcessDispatcher(s, st.processCmd)
		if err != nil {
			tcpLn.Close()
			return nil, err
		}
		s.dispatcher = d
	} else {
		s.dispatcher = &workerDispatcher{s: s}
	}

	return s, nil
}

// Port returns the resolved listening port.
func (s *Server) Port() int { return s.port }

// Addr returns the listener's address.
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// Active reports whether the server is between Start and shutdown initiation.
func (s *Server) Active() bool { return s.active.Load() }

// ClientCount returns the number of currently-open client connections.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Start runs the accept loop until the server is closed, a non-retryable
// listener error occurs, or ctx is canceled (the interrupt path; treated as
// a clean shutdown). It always closes the server on the way out.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrServerClosed
	}
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	s.log.Info("server started", "addr", s.listener.Addr().String())
	s.active.Store(true)

	if s.autoRegister {
		go s.heartbeat()
	}

	if ctx == nil {
		ctx = context.Background()
	}
	stop := context.AfterFunc(ctx, func() {
		s.log.Info("shutdown signal received")
		_ = s.Close()
	})
	defer stop()

	defer func() {
		_ = s.Close()
		s.log.Info("server has terminated")
	}()

	for {
		if err := s.accept(); err != nil {
			if errors.Is(err, ErrServerClosed) {
				return nil
			}
			return err
		}
	}
}

// accept blocks until one connection is accepted and handed to the dispatch
// strategy. Deadline expiry and interrupted syscalls are retried silently; a
// closed or broken listener yields ErrServerClosed.
func (s *Server) accept() error {
	for {
		if err := s.listener.SetDeadline(time.Now().Add(s.acceptPoll)); err != nil {
			return ErrServerClosed
		}
		conn, err := s.listener.Accept()
		if err != nil {
			switch {
			case errors.Is(err, os.ErrDeadlineExceeded):
				continue
			case errors.Is(err, syscall.EINTR):
				continue
			case errors.Is(err, net.ErrClosed):
				return ErrServerClosed
			default:
				s.log.Error("accept failed", "error", err)
				return ErrServerClosed
			}
		}

		id := uuid.NewString()
		s.addClient(conn, id)
		s.log.Info("accepted", "peer", conn.RemoteAddr().String(), "session", id)
		s.dispatcher.dispatch(conn, id)
		return nil
	}
}

// Close tears the server down: deactivate, best-effort unregister, close the
// listener, release the dispatcher, and forcibly close every client
// connection. It is idempotent and safe to call concurrently with the accept
// loop.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.active.Store(false)

	if s.autoRegister {
		if err := s.registrar.Unregister(s.port); err != nil {
			s.log.Error("error unregistering service", "error", err)
		}
	}

	_ = s.listener.Close()
	s.log.Info("listener closed")

	if err := s.dispatcher.close(); err != nil {
		s.log.Error("error releasing dispatcher", "error", err)
	}

	s.mu.Lock()
	conns := make([]net.Conn, 0, len(s.clients))
	for c := range s.clients {
		conns = append(conns, c)
	}
	s.clients = make(map[net.Conn]string)
	s.mu.Unlock()

	for _, c := range conns {
		shutdownConn(c)
		_ = c.Close()
	}
	return nil
}

func (s *Server) addClient(conn net.Conn, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[conn] = id
}

func (s *Server) removeClient(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, conn)
}

// newSession builds the serve path for one accepted connection.
func (s *Server) newSession(id string) *session {
	return &session{
		id:            id,
		authenticator: s.authenticator,
		runner:        s.runner,
		protocol:      s.protocol,
		log:           s.log,
		onTeardown:    s.removeClient,
	}
}
