// Package version implements the "version" subcommand.
package version

import (
	"fmt"

	"github.com/spf13/cobra"

	runtimectx "github.com/tphakala/gibberlink-gateway/internal/buildinfo"
)

// Command creates the version command.
func Command(runtime *runtimectx.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gateway build version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("gibberlink-gateway %s (built %s, system %s)\n",
				runtime.GetVersion(), runtime.GetBuildDate(), runtime.GetSystemID())
			return nil
		},
	}
}
