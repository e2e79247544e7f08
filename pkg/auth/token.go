package auth

import (
	"fmt"
	"net"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// maxTokenLen caps the handshake line a peer may send before being rejected.
const maxTokenLen = 8 * 1024

// TokenAuthenticator expects the peer to send a newline-terminated JWT as the
// first bytes on the connection, signed with a shared HMAC key. The token's
// claims become the session credentials; the connection itself passes through
// unchanged.
type TokenAuthenticator struct {
	key     []byte
	timeout time.Duration
}

// NewTokenAuthenticator creates a token authenticator with the given HMAC
// signing key.
func NewTokenAuthenticator(key []byte) *TokenAuthenticator {
	return &TokenAuthenticator{key: key, timeout: DefaultHandshakeTimeout}
}

// SetHandshakeTimeout overrides the token-read deadline. Zero disables it.
func (a *TokenAuthenticator) SetHandshakeTimeout(d time.Duration) {
	a.timeout = d
}

// Authenticate implements Authenticator.
func (a *TokenAuthenticator) Authenticate(conn net.Conn) (net.Conn, Credentials, error) {
	if a.timeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(a.timeout)); err != nil {
			return nil, nil, fmt.Errorf("%w: set read deadline: %v", ErrAuthenticationFailed, err)
		}
	}

	raw, err := readLine(conn)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read token: %v", ErrAuthenticationFailed, err)
	}

	if a.timeout > 0 {
		if err := conn.SetReadDeadline(time.Time{}); err != nil {
			return nil, nil, fmt.Errorf("%w: clear read deadline: %v", ErrAuthenticationFailed, err)
		}
	}

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (any, error) { return a.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}

	return conn, map[string]any(claims), nil
}

// readLine reads one byte at a time so no session bytes beyond the token's
// trailing newline are consumed from the connection.
func readLine(conn net.Conn) (string, error) {
	buf := make([]byte, 0, 256)
	b := make([]byte, 1)
	for {
		if _, err := conn.Read(b); err != nil {
			return "", err
		}
		if b[0] == '\n' {
			break
		}
		buf = append(buf, b[0])
		if len(buf) > maxTokenLen {
			return "", fmt.Errorf("token exceeds %d bytes", maxTokenLen)
		}
	}
	return string(buf), nil
}
