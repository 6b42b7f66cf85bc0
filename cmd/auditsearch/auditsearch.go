// Package auditsearch implements the "audit search" CLI subcommand: a
// supplemented feature (not in spec.md §6's HTTP surface) for operators
// to query the audit journal from the command line without standing up
// the HTTP API, reusing internal/audit's own filtering logic directly.
package auditsearch

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/gibberlink-gateway/internal/audit"
	"github.com/tphakala/gibberlink-gateway/internal/config"
)

// Command creates the audit parent command and its search subcommand.
func Command() *cobra.Command {
	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the gateway's audit journal",
	}
	auditCmd.AddCommand(searchCommand())
	return auditCmd
}

func searchCommand() *cobra.Command {
	var (
		path, actor, route, decision, since, until string
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the audit journal by actor, route, decision, or time range",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				settings, _, err := config.Load("")
				if err != nil {
					return fmt.Errorf("loading config to locate audit log: %w", err)
				}
				path = settings.Audit.LogPath
			}

			filter := audit.Filter{Actor: actor, Route: route, PolicyDecision: decision}
			if since != "" {
				t, err := time.Parse(time.RFC3339, since)
				if err != nil {
					return fmt.Errorf("invalid --since: %w", err)
				}
				filter.Since = t
			}
			if until != "" {
				t, err := time.Parse(time.RFC3339, until)
				if err != nil {
					return fmt.Errorf("invalid --until: %w", err)
				}
				filter.Until = t
			}

			j, err := audit.Open(path, 0, 0)
			if err != nil {
				return fmt.Errorf("opening audit journal at %s: %w", path, err)
			}
			defer j.Close()

			entries, err := j.Search(filter)
			if err != nil {
				return fmt.Errorf("searching audit journal: %w", err)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			for _, e := range entries {
				if err := enc.Encode(e); err != nil {
					return fmt.Errorf("encoding result: %w", err)
				}
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d matching entries\n", len(entries))
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "log-path", "", "Audit log path (defaults to the configured audit.log_path)")
	cmd.Flags().StringVar(&actor, "actor", "", "Filter by actor")
	cmd.Flags().StringVar(&route, "route", "", "Filter by route")
	cmd.Flags().StringVar(&decision, "decision", "", "Filter by policy decision (allow|deny)")
	cmd.Flags().StringVar(&since, "since", "", "Only entries at or after this RFC3339 timestamp")
	cmd.Flags().StringVar(&until, "until", "", "Only entries at or before this RFC3339 timestamp")

	return cmd
}
