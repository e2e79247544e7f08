package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/getlinkd/linkd/pkg/config"
	"github.com/getlinkd/linkd/pkg/logging"
	"github.com/getlinkd/linkd/pkg/registry"
	"github.com/getlinkd/linkd/pkg/server"
	"github.com/getlinkd/linkd/pkg/service"
)

// serveFlags holds the flag values bound to the serve command.
type serveFlags struct {
	configFile   string
	serviceName  string
	aliases      []string
	host         string
	port         int
	backlog      int
	dispatch     string
	autoRegister bool
	registryAddr string
	authMode     string
	tokenKeyFile string
	tlsCertFile  string
	tlsKeyFile   string
	logLevel     string
	logFormat    string
}

var serveFlagVals serveFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the connection server (foreground)",
	Long: `Start the connection server in the foreground. An interrupt (Ctrl+C) or
SIGTERM triggers a clean shutdown: the service is unregistered, the listener
closes, and every open session is torn down.

The built-in session runner echoes bytes back to the peer, which is enough to
smoke-test deployments; embed pkg/server with your own SessionRunner for a
real protocol.`,
	Example: `  # Serve on an ephemeral port, no registration
  linkd serve --service calculator

  # Fixed port, advertise to the discovery registry
  linkd serve --service calculator --port 18812 --auto-register

  # One isolated process per connection
  linkd serve --service calculator --dispatch process

  # Everything from a config file
  linkd serve --config linkd.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, &serveFlagVals)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := &serveFlagVals
	serveCmd.Flags().StringVarP(&f.configFile, "config", "c", "", "Path to server configuration file (JSON or YAML)")
	serveCmd.Flags().StringVar(&f.serviceName, "service", "", "Primary service name")
	serveCmd.Flags().StringSliceVar(&f.aliases, "alias", nil, "Additional service alias (repeatable)")
	serveCmd.Flags().StringVar(&f.host, "host", "", "Bind address")
	serveCmd.Flags().IntVarP(&f.port, "port", "p", 0, "Listening port (0 = ephemeral)")
	serveCmd.Flags().IntVar(&f.backlog, "backlog", 0, "Pending-connection queue depth")
	serveCmd.Flags().StringVar(&f.dispatch, "dispatch", "", "Dispatch strategy: worker or process")
	serveCmd.Flags().BoolVar(&f.autoRegister, "auto-register", false, "Advertise the service to the discovery registry")
	serveCmd.Flags().StringVar(&f.registryAddr, "registry-addr", "", "Discovery registry address (host:port)")
	serveCmd.Flags().StringVar(&f.authMode, "auth", "", "Authentication mode: none, token, or tls")
	serveCmd.Flags().StringVar(&f.tokenKeyFile, "token-key", "", "Path to the shared HMAC key for token auth")
	serveCmd.Flags().StringVar(&f.tlsCertFile, "tls-cert", "", "Path to TLS certificate file")
	serveCmd.Flags().StringVar(&f.tlsKeyFile, "tls-key", "", "Path to TLS private key file")
	serveCmd.Flags().StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&f.logFormat, "log-format", "", "Log format (text, json)")
}

// effectiveConfig merges the config file (if any) with explicitly set flags;
// flags win.
func effectiveConfig(cmd *cobra.Command, f *serveFlags) (*config.ServerConfiguration, error) {
	cfg := config.DefaultServerConfiguration()
	if f.configFile != "" {
		loaded, err := config.LoadFromFile(f.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	set := cmd.Flags().Changed
	if set("service") {
		cfg.Service = f.serviceName
	}
	if set("alias") {
		cfg.Aliases = f.aliases
	}
	if set("host") {
		cfg.Host = f.host
	}
	if set("port") {
		cfg.Port = f.port
	}
	if set("backlog") {
		cfg.Backlog = f.backlog
	}
	if set("dispatch") {
		cfg.Dispatch = f.dispatch
	}
	if set("auto-register") {
		cfg.AutoRegister = f.autoRegister
	}
	if set("registry-addr") {
		cfg.RegistryAddr = f.registryAddr
	}
	if set("auth") {
		cfg.Auth = f.authMode
	}
	if set("token-key") {
		cfg.TokenKeyFile = f.tokenKeyFile
	}
	if set("tls-cert") {
		cfg.TLSCertFile = f.tlsCertFile
	}
	if set("tls-key") {
		cfg.TLSKeyFile = f.tlsKeyFile
	}
	if set("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if set("log-format") {
		cfg.LogFormat = f.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, f *serveFlags) error {
	cfg, err := effectiveConfig(cmd, f)
	if err != nil {
		return err
	}

	base := buildLogger(cfg)
	authenticator, err := buildAuthenticator(cfg)
	if err != nil {
		return err
	}

	svc := service.NewInfo(cfg.Service, cfg.Aliases...)
	log := logging.ForService(base, svc.Name(), cfg.Port)

	regOpts := []registry.UDPOption{registry.WithLogger(log)}
	if cfg.RegistryAddr != "" {
		regOpts = append(regOpts, registry.WithAddr(cfg.RegistryAddr))
	}

	opts := []server.Option{
		server.WithAddress(cfg.Host, cfg.Port),
		server.WithBacklog(cfg.Backlog),
		server.WithReuseAddr(cfg.ReuseAddr),
		server.WithAutoRegister(cfg.AutoRegister),
		server.WithRegistrar(registry.NewUDPClient(regOpts...)),
		server.WithProtocolConfig(cfg.Protocol),
		server.WithLogger(log),
	}
	if authenticator != nil {
		opts = append(opts, server.WithAuthenticator(authenticator))
	}

	if cfg.Dispatch == config.DispatchProcess {
		workerCfg, cleanup, err := writeWorkerConfig(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("resolve executable: %w", err)
		}
		opts = append(opts, server.WithProcessDispatch(server.ProcessCommand{
			Path: exe,
			Args: []string{"session", "--config", workerCfg},
		}))
	}

	srv, err := server.New(svc, server.EchoRunner(), opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return srv.Start(ctx)
}

// writeWorkerConfig snapshots the effective configuration for session worker
// processes, so every child authenticates and serves with the exact settings
// the parent resolved.
func writeWorkerConfig(cfg *config.ServerConfiguration) (string, func(), error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", nil, fmt.Errorf("encode worker config: %w", err)
	}
	file, err := os.CreateTemp("", "linkd-worker-*.json")
	if err != nil {
		return "", nil, fmt.Errorf("create worker config: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(file.Name())
		return "", nil, fmt.Errorf("write worker config: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return "", nil, fmt.Errorf("close worker config: %w", err)
	}
	return file.Name(), func() { os.Remove(file.Name()) }, nil
}
