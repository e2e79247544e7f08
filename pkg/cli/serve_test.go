package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getlinkd/linkd/pkg/config"
)

func TestEffectiveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "linkd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
service: calculator
port: 18812
backlog: 32
`), 0o600))

	t.Run("file values load", func(t *testing.T) {
		f := serveFlags{configFile: path}
		cfg, err := effectiveConfig(serveCmd, &f)
		require.NoError(t, err)
		assert.Equal(t, "calculator", cfg.Service)
		assert.Equal(t, 18812, cfg.Port)
		assert.Equal(t, 32, cfg.Backlog)
	})

	t.Run("flags override the file", func(t *testing.T) {
		f := serveFlags{configFile: path, port: 9000, dispatch: config.DispatchProcess}
		require.NoError(t, serveCmd.Flags().Set("port", "9000"))
		require.NoError(t, serveCmd.Flags().Set("dispatch", config.DispatchProcess))
		t.Cleanup(func() {
			serveCmd.Flags().Lookup("port").Changed = false
			serveCmd.Flags().Lookup("dispatch").Changed = false
		})

		cfg, err := effectiveConfig(serveCmd, &f)
		require.NoError(t, err)
		assert.Equal(t, 9000, cfg.Port)
		assert.Equal(t, config.DispatchProcess, cfg.Dispatch)
		assert.Equal(t, "calculator", cfg.Service, "unset flags keep file values")
	})

	t.Run("invalid merge is rejected", func(t *testing.T) {
		f := serveFlags{dispatch: "threads"}
		require.NoError(t, serveCmd.Flags().Set("dispatch", "threads"))
		t.Cleanup(func() {
			serveCmd.Flags().Lookup("dispatch").Changed = false
		})

		_, err := effectiveConfig(serveCmd, &f)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dispatch mode")
	})
}

func TestWriteWorkerConfig(t *testing.T) {
	cfg := config.DefaultServerConfiguration()
	cfg.Service = "calculator"

	path, cleanup, err := writeWorkerConfig(cfg)
	require.NoError(t, err)
	defer cleanup()

	loaded, err := config.LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "calculator", loaded.Service)

	cleanup()
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "cleanup removes the snapshot")
}

func TestBuildAuthenticator(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		cfg := config.DefaultServerConfiguration()
		a, err := buildAuthenticator(cfg)
		require.NoError(t, err)
		assert.Nil(t, a)
	})

	t.Run("token", func(t *testing.T) {
		keyPath := filepath.Join(t.TempDir(), "key")
		require.NoError(t, os.WriteFile(keyPath, []byte("secret\n"), 0o600))

		cfg := config.DefaultServerConfiguration()
		cfg.Auth = config.AuthToken
		cfg.TokenKeyFile = keyPath
		a, err := buildAuthenticator(cfg)
		require.NoError(t, err)
		assert.NotNil(t, a)
	})

	t.Run("token with missing key file", func(t *testing.T) {
		cfg := config.DefaultServerConfiguration()
		cfg.Auth = config.AuthToken
		cfg.TokenKeyFile = filepath.Join(t.TempDir(), "absent")
		_, err := buildAuthenticator(cfg)
		assert.Error(t, err)
	})
}
