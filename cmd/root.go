// root.go viper root command code
package cmd

import (
	"github.com/spf13/cobra"

	runtimectx "github.com/tphakala/gibberlink-gateway/internal/buildinfo"

	"github.com/tphakala/gibberlink-gateway/cmd/auditsearch"
	"github.com/tphakala/gibberlink-gateway/cmd/serve"
	gwversion "github.com/tphakala/gibberlink-gateway/cmd/version"
)

// RootCommand creates and returns the root command.
func RootCommand(runtime *runtimectx.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gibberlink-gateway",
		Short: "Gibberlink protocol gateway",
	}

	serveCmd := serve.Command(runtime)
	auditCmd := auditsearch.Command()
	versionCmd := gwversion.Command(runtime)

	rootCmd.AddCommand(serveCmd, auditCmd, versionCmd)

	return rootCmd
}
