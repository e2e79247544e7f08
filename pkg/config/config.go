// Package config defines the linkd server configuration and its file loader.
//
// Configuration files may be JSON or YAML; the format is auto-detected from
// the file extension. All fields have working defaults, so an empty
// configuration yields a runnable server.
package config

import (
	"fmt"
)

// Dispatch mode names.
const (
	DispatchWorker  = "worker"
	DispatchProcess = "process"
)

// Authentication mode names.
const (
	AuthNone  = "none"
	AuthToken = "token"
	AuthTLS   = "tls"
)

// ServerConfiguration holds everything needed to construct and run a server.
type ServerConfiguration struct {
	// Service is the primary service name advertised to the registry.
	Service string `json:"service" yaml:"service"`

	// Aliases are additional names the service is advertised under.
	Aliases []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`

	// Host is the bind address. Defaults to all interfaces.
	Host string `json:"host" yaml:"host"`

	// Port is the listening port. 0 picks an ephemeral port, resolved
	// after bind.
	Port int `json:"port" yaml:"port"`

	// Backlog is the requested pending-connection queue depth. The kernel
	// may clamp it; on platforms where the runtime does not expose the
	// listen backlog it is advisory.
	Backlog int `json:"backlog" yaml:"backlog"`

	// ReuseAddr toggles SO_REUSEADDR on the listener.
	ReuseAddr bool `json:"reuseAddr" yaml:"reuseAddr"`

	// Dispatch selects how sessions run concurrently with the accept
	// loop: "worker" (goroutine per connection) or "process" (isolated
	// child process per connection).
	Dispatch string `json:"dispatch" yaml:"dispatch"`

	// AutoRegister enables the background heartbeat that re-advertises
	// the service to the discovery registry.
	AutoRegister bool `json:"autoRegister" yaml:"autoRegister"`

	// RegistryAddr overrides the discovery registry address. Empty uses
	// the default UDP broadcast address.
	RegistryAddr string `json:"registryAddr,omitempty" yaml:"registryAddr,omitempty"`

	// Auth selects the authentication gate: "none", "token", or "tls".
	Auth string `json:"auth" yaml:"auth"`

	// TokenKeyFile is the path to the shared HMAC key for token auth.
	TokenKeyFile string `json:"tokenKeyFile,omitempty" yaml:"tokenKeyFile,omitempty"`

	// TLSCertFile and TLSKeyFile configure TLS auth.
	TLSCertFile string `json:"tlsCertFile,omitempty" yaml:"tlsCertFile,omitempty"`
	TLSKeyFile  string `json:"tlsKeyFile,omitempty" yaml:"tlsKeyFile,omitempty"`

	// LogLevel and LogFormat configure the default logger.
	LogLevel  string `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
	LogFormat string `json:"logFormat,omitempty" yaml:"logFormat,omitempty"`

	// Protocol holds opaque options passed through to every session
	// runner, merged per-session with that session's credentials.
	Protocol map[string]any `json:"protocol,omitempty" yaml:"protocol,omitempty"`
}

// DefaultServerConfiguration returns a runnable default configuration.
func DefaultServerConfiguration() *ServerConfiguration {
	return &ServerConfiguration{
		Service:      "linkd",
		Host:         "0.0.0.0",
		Port:         0,
		Backlog:      10,
		ReuseAddr:    true,
		Dispatch:     DispatchWorker,
		AutoRegister: false,
		Auth:         AuthNone,
	}
}

// Validate checks the configuration for inconsistencies.
func (c *ServerConfiguration) Validate() error {
	if c.Service == "" {
		return fmt.Errorf("service name is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Backlog <= 0 {
		return fmt.Errorf("backlog must be positive, got %d", c.Backlog)
	}
	switch c.Dispatch {
	case DispatchWorker, DispatchProcess:
	default:
		return fmt.Errorf("unknown dispatch mode %q", c.Dispatch)
	}
	switch c.Auth {
	case AuthNone:
	case AuthToken:
		if c.TokenKeyFile == "" {
			return fmt.Errorf("token auth requires tokenKeyFile")
		}
	case AuthTLS:
		if c.TLSCertFile == "" || c.TLSKeyFile == "" {
			return fmt.Errorf("tls auth requires tlsCertFile and tlsKeyFile")
		}
	default:
		return fmt.Errorf("unknown auth mode %q", c.Auth)
	}
	return nil
}
