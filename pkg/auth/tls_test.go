package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// selfSignedCert generates a throwaway server certificate for handshake tests.
func selfSignedCert(t *testing.T) tls.Certificate {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "localhost"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
}

func TestTLSAuthenticator(t *testing.T) {
	t.Parallel()

	t.Run("handshake succeeds and wraps the connection", func(t *testing.T) {
		t.Parallel()
		cert := selfSignedCert(t)
		clientEnd, serverEnd := net.Pipe()
		defer clientEnd.Close()

		done := make(chan error, 1)
		go func() {
			c := tls.Client(clientEnd, &tls.Config{InsecureSkipVerify: true})
			done <- c.Handshake()
		}()

		a := NewTLSAuthenticator(&tls.Config{Certificates: []tls.Certificate{cert}})
		conn, creds, err := a.Authenticate(serverEnd)
		require.NoError(t, err)
		require.NoError(t, <-done)
		defer conn.Close()

		_, ok := conn.(*tls.Conn)
		assert.True(t, ok, "expected a TLS-wrapped connection")

		tlsCreds, ok := creds.(TLSCredentials)
		require.True(t, ok)
		assert.Empty(t, tlsCreds.Subject, "no client certificate was presented")
		assert.NotZero(t, tlsCreds.CipherSuite)
	})

	t.Run("non-TLS peer is rejected", func(t *testing.T) {
		t.Parallel()
		cert := selfSignedCert(t)
		clientEnd, serverEnd := net.Pipe()
		defer clientEnd.Close()
		defer serverEnd.Close()

		go func() {
			_, _ = clientEnd.Write([]byte("plaintext hello\n"))
		}()

		a := NewTLSAuthenticator(&tls.Config{Certificates: []tls.Certificate{cert}})
		a.SetHandshakeTimeout(time.Second)
		_, _, err := a.Authenticate(serverEnd)
		assert.ErrorIs(t, err, ErrAuthenticationFailed)
	})

	t.Run("silent peer is rejected on deadline", func(t *testing.T) {
		t.Parallel()
		cert := selfSignedCert(t)
		clientEnd, serverEnd := net.Pipe()
		defer clientEnd.Close()
		defer serverEnd.Close()

		a := NewTLSAuthenticator(&tls.Config{Certificates: []tls.Certificate{cert}})
		a.SetHandshakeTimeout(50 * time.Millisecond)
		_, _, err := a.Authenticate(serverEnd)
		assert.ErrorIs(t, err, ErrAuthenticationFailed)
	})
}
