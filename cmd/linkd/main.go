// linkd - connection-acceptance and dispatch server for RPC services.
package main

import (
	"fmt"
	"os"

	"github.com/getlinkd/linkd/pkg/cli"
)

// Version is set via ldflags at build time.
var Version = "dev"

func main() {
	cli.SetVersion(Version)
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
