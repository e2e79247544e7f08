// Package auth defines the authentication gate applied to freshly accepted
// connections before they are handed to a session runner.
//
// An Authenticator receives the raw connection and either returns a (possibly
// wrapped) connection plus opaque credentials, or rejects the peer. Rejection
// is an expected, recoverable outcome: the server logs it, closes the
// connection, and keeps accepting.
package auth

import (
	"errors"
	"net"
)

// ErrAuthenticationFailed is the rejection sentinel. Authenticators wrap it
// so callers can detect rejection with errors.Is.
var ErrAuthenticationFailed = errors.New("authentication failed")

// Credentials is the opaque value an authenticator attaches to a session.
// It is forwarded to the session runner for logging and diagnostics.
type Credentials = any

// Authenticator gates a raw connection. On success it returns the connection
// to serve the session on (which may wrap the input, e.g. a TLS channel) and
// the peer's credentials. On rejection it returns an error wrapping
// ErrAuthenticationFailed.
type Authenticator interface {
	Authenticate(conn net.Conn) (net.Conn, Credentials, error)
}

// Func adapts a plain function to the Authenticator interface.
type Func func(conn net.Conn) (net.Conn, Credentials, error)

// Authenticate implements Authenticator.
func (f Func) Authenticate(conn net.Conn) (net.Conn, Credentials, error) {
	return f(conn)
}
