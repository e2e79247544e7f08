package cli

import (
	"github.com/spf13/cobra"

	"github.com/getlinkd/linkd/pkg/config"
	"github.com/getlinkd/linkd/pkg/server"
)

var sessionConfigFile string

// sessionCmd is the hidden worker entrypoint used by process dispatch: the
// parent server spawns `linkd session --config <snapshot>` with the accepted
// connection inherited on a fixed descriptor.
var sessionCmd = &cobra.Command{
	Use:    "session",
	Short:  "Serve one inherited connection and exit (internal)",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.DefaultServerConfiguration()
		if sessionConfigFile != "" {
			loaded, err := config.LoadFromFile(sessionConfigFile)
			if err != nil {
				return err
			}
			cfg = loaded
		}

		authenticator, err := buildAuthenticator(cfg)
		if err != nil {
			return err
		}

		cs := &server.ChildSession{
			Runner:        server.EchoRunner(),
			Authenticator: authenticator,
			Protocol:      cfg.Protocol,
			Logger:        buildLogger(cfg),
		}
		return cs.Run()
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.Flags().StringVar(&sessionConfigFile, "config", "", "Path to the worker configuration snapshot")
}
