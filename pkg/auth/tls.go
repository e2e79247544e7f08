package auth

import (
	"crypto/tls"
	"fmt"
	"net"
	"time"
)

// DefaultHandshakeTimeout bounds how long an authenticator may hold the
// accept pipeline's worker on a peer that never completes its handshake.
const DefaultHandshakeTimeout = 10 * time.Second

// TLSCredentials describes the authenticated TLS peer.
type TLSCredentials struct {
	// Subject is the subject of the peer's leaf certificate, empty when the
	// handshake did not present one.
	Subject string

	// CipherSuite is the negotiated cipher suite ID.
	CipherSuite uint16

	// State is the full post-handshake connection state.
	State tls.ConnectionState
}

// TLSAuthenticator upgrades accepted connections to server-side TLS. A failed
// or timed-out handshake rejects the peer; a successful one yields the
// secured channel and the peer's certificate identity as credentials.
type TLSAuthenticator struct {
	config  *tls.Config
	timeout time.Duration
}

// NewTLSAuthenticator creates a TLS authenticator from a server-side TLS
// config. Set config.ClientAuth to tls.RequireAndVerifyClientCert for mutual
// TLS; with lesser modes the credentials carry an empty Subject.
func NewTLSAuthenticator(config *tls.Config) *TLSAuthenticator {
	return &TLSAuthenticator{config: config, timeout: DefaultHandshakeTimeout}
}

// SetHandshakeTimeout overrides the handshake deadline. Zero disables it.
func (a *TLSAuthenticator) SetHandshakeTimeout(d time.Duration) {
	a.timeout = d
}

// Authenticate implements Authenticator.
func (a *TLSAuthenticator) Authenticate(conn net.Conn) (net.Conn, Credentials, error) {
	tlsConn := tls.Server(conn, a.config)

	if a.timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(a.timeout)); err != nil {
			return nil, nil, fmt.Errorf("%w: set handshake deadline: %v", ErrAuthenticationFailed, err)
		}
	}
	if err := tlsConn.Handshake(); err != nil {
		return nil, nil, fmt.Errorf("%w: tls handshake: %v", ErrAuthenticationFailed, err)
	}
	if a.timeout > 0 {
		if err := conn.SetDeadline(time.Time{}); err != nil {
			return nil, nil, fmt.Errorf("%w: clear handshake deadline: %v", ErrAuthenticationFailed, err)
		}
	}

	state := tlsConn.ConnectionState()
	creds := TLSCredentials{
		CipherSuite: state.CipherSuite,
		State:       state,
	}
	if len(state.PeerCertificates) > 0 {
		creds.Subject = state.PeerCertificates[0].Subject.String()
	}
	return tlsConn, creds, nil
}
