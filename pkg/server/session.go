package server

import (
	"log/slog"
	"net"

	"github.com/getlinkd/linkd/pkg/auth"
)

// session is the authenticate-then-serve-then-teardown path for one accepted
// connection. It is shared by the in-process dispatch worker and the
// isolated-process child entrypoint.
type session struct {
	id            string
	authenticator auth.Authenticator
	runner        SessionRunner
	protocol      map[string]any
	log           *slog.Logger

	// onTeardown, if set, is called with the raw accepted connection once
	// the session's sockets are closed. The parent server uses it to drop
	// the connection from its client registry.
	onTeardown func(raw net.Conn)
}

// run serves the connection to completion. Authentication rejection is an
// expected outcome, logged and swallowed; a runner failure is logged as an
// abrupt termination. Teardown always executes.
func (s *session) run(raw net.Conn) {
	conn := raw
	peer := raw.RemoteAddr()

	defer func() {
		shutdownConn(conn)
		_ = conn.Close()
		if conn != raw {
			_ = raw.Close()
		}
		if s.onTeardown != nil {
			s.onTeardown(raw)
		}
	}()

	var creds auth.Credentials
	if s.authenticator != nil {
		authed, c, err := s.authenticator.Authenticate(raw)
		if err != nil {
			s.log.Info("failed to authenticate, rejecting connection",
				"peer", peer, "session", s.id, "error", err)
			return
		}
		s.log.Info("authenticated successfully", "peer", peer, "session", s.id)
		conn = authed
		creds = c
	}

	cfg := make(SessionConfig, len(s.protocol)+1)
	for k, v := range s.protocol {
		cfg[k] = v
	}
	cfg[credentialsKey] = creds

	if creds != nil {
		s.log.Info("welcome", "peer", peer, "session", s.id, "credentials", creds)
	} else {
		s.log.Info("welcome", "peer", peer, "session", s.id)
	}

	if err := s.runner.ServeConn(conn, cfg); err != nil {
		s.log.Error("client connection terminated abruptly",
			"peer", peer, "session", s.id, "error", err)
	}
	s.log.Info("goodbye", "peer", peer, "session", s.id)
}

// shutdownConn attempts a bidirectional shutdown before close so a blocked
// session runner observes a reset. Errors are swallowed; the connection may
// already be gone.
func shutdownConn(conn net.Conn) {
	if cr, ok := conn.(interface{ CloseRead() error }); ok {
		_ = cr.CloseRead()
	}
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		_ = cw.CloseWrite()
	}
}
