package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultServerConfiguration(t *testing.T) {
	t.Parallel()
	cfg := DefaultServerConfiguration()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DispatchWorker, cfg.Dispatch)
	assert.Equal(t, AuthNone, cfg.Auth)
	assert.Equal(t, 10, cfg.Backlog)
	assert.True(t, cfg.ReuseAddr)
	assert.False(t, cfg.AutoRegister)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*ServerConfiguration)
		wantErr string
	}{
		{"valid defaults", func(c *ServerConfiguration) {}, ""},
		{"missing service", func(c *ServerConfiguration) { c.Service = "" }, "service name"},
		{"port out of range", func(c *ServerConfiguration) { c.Port = 70000 }, "out of range"},
		{"zero backlog", func(c *ServerConfiguration) { c.Backlog = 0 }, "backlog"},
		{"bad dispatch", func(c *ServerConfiguration) { c.Dispatch = "threads" }, "dispatch mode"},
		{"token without key", func(c *ServerConfiguration) { c.Auth = AuthToken }, "tokenKeyFile"},
		{"tls without cert", func(c *ServerConfiguration) { c.Auth = AuthTLS }, "tlsCertFile"},
		{"bad auth", func(c *ServerConfiguration) { c.Auth = "kerberos" }, "auth mode"},
		{"process dispatch ok", func(c *ServerConfiguration) { c.Dispatch = DispatchProcess }, ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultServerConfiguration()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	t.Run("yaml", func(t *testing.T) {
		t.Parallel()
		path := writeFile(t, "linkd.yaml", `
service: calculator
aliases: [calc, math]
port: 18812
dispatch: worker
autoRegister: true
protocol:
  allowPickle: false
`)
		cfg, err := LoadFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, "calculator", cfg.Service)
		assert.Equal(t, []string{"calc", "math"}, cfg.Aliases)
		assert.Equal(t, 18812, cfg.Port)
		assert.True(t, cfg.AutoRegister)
		assert.Equal(t, false, cfg.Protocol["allowPickle"])
		// Unset fields keep defaults.
		assert.Equal(t, 10, cfg.Backlog)
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()
		path := writeFile(t, "linkd.json", `{"service": "calculator", "port": 18812}`)
		cfg, err := LoadFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, "calculator", cfg.Service)
		assert.Equal(t, 18812, cfg.Port)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.ErrorIs(t, err, ErrFileNotFound)
	})

	t.Run("empty file", func(t *testing.T) {
		t.Parallel()
		path := writeFile(t, "empty.yaml", "  \n")
		_, err := LoadFromFile(path)
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("invalid json", func(t *testing.T) {
		t.Parallel()
		path := writeFile(t, "bad.json", `{"service": `)
		_, err := LoadFromFile(path)
		assert.ErrorIs(t, err, ErrInvalidJSON)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		t.Parallel()
		path := writeFile(t, "bad.yaml", "service: [unclosed")
		_, err := LoadFromFile(path)
		assert.ErrorIs(t, err, ErrInvalidYAML)
	})

	t.Run("invalid configuration rejected", func(t *testing.T) {
		t.Parallel()
		path := writeFile(t, "bad-dispatch.yaml", "dispatch: threads")
		_, err := LoadFromFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dispatch mode")
	})
}
