package server

import (
	"errors"
	"io"
	"net"

	"github.com/getlinkd/linkd/pkg/auth"
)

// credentialsKey is where a session's credentials land in its SessionConfig.
const credentialsKey = "credentials"

// SessionConfig carries per-session options: the server's protocol options
// merged with the session's credentials. It is passed opaquely to the
// session runner.
type SessionConfig map[string]any

// Credentials returns the authenticator-produced credentials for this
// session, or nil when no authenticator was configured.
func (c SessionConfig) Credentials() auth.Credentials {
	return c[credentialsKey]
}

// SessionRunner runs the RPC protocol on one authenticated connection until
// the peer disconnects or an unrecoverable protocol error occurs. It is a
// single blocking call; the dispatch strategy decides where it executes.
type SessionRunner interface {
	ServeConn(conn net.Conn, cfg SessionConfig) error
}

// RunnerFunc adapts a plain function to the SessionRunner interface.
type RunnerFunc func(conn net.Conn, cfg SessionConfig) error

// ServeConn implements SessionRunner.
func (f RunnerFunc) ServeConn(conn net.Conn, cfg SessionConfig) error {
	return f(conn, cfg)
}

// EchoRunner returns a diagnostic runner that copies every byte back to the
// peer until it disconnects. It exists so a deployed server can be
// smoke-tested end to end without a real protocol runner.
func EchoRunner() SessionRunner {
	return RunnerFunc(func(conn net.Conn, _ SessionConfig) error {
		_, err := io.Copy(conn, conn)
		if err == nil || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
			return nil
		}
		return err
	})
}
