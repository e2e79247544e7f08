package cli

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/getlinkd/linkd/pkg/auth"
	"github.com/getlinkd/linkd/pkg/config"
	"github.com/getlinkd/linkd/pkg/logging"
)

// buildLogger creates the base logger from configuration.
func buildLogger(cfg *config.ServerConfiguration) *slog.Logger {
	return logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Format: logging.ParseFormat(cfg.LogFormat),
	})
}

// buildAuthenticator creates the authentication gate selected by the
// configuration, or nil for pass-through.
func buildAuthenticator(cfg *config.ServerConfiguration) (auth.Authenticator, error) {
	switch cfg.Auth {
	case config.AuthNone, "":
		return nil, nil
	case config.AuthToken:
		key, err := os.ReadFile(cfg.TokenKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read token key: %w", err)
		}
		return auth.NewTokenAuthenticator([]byte(strings.TrimSpace(string(key)))), nil
	case config.AuthTLS:
		cert, err := tls.LoadX509KeyPair(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("load tls key pair: %w", err)
		}
		return auth.NewTLSAuthenticator(&tls.Config{
			Certificates: []tls.Certificate{cert},
		}), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Auth)
	}
}
