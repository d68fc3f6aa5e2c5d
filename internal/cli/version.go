package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

const modulePath = "github.com/mesh-intelligence/gdao"

// Version is set at build time with -ldflags "-X .../internal/cli.Version=...".
var Version = "0.1.0-dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gdao version",
		Args:  cobra.NoArgs,
		// No configuration is needed to print the version.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "gdao v%s\nmodule: %s\ngo: %s\n", Version, modulePath, runtime.Version())
			return nil
		},
	}
}
