package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the scheduler state of a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := client.Snapshot(cmd.Context())
			if err != nil {
				return fmt.Errorf("get snapshot: %w", err)
			}

			out := cmd.OutOrStdout()
			state := "enabled"
			if !snap.Enabled {
				state = "disabled"
			}
			fmt.Fprintf(out, "Scheduler: %s (tick %d, %d passes)\n", state, snap.Tick, snap.Passes)

			if len(snap.Agents) == 0 {
				fmt.Fprintln(out, "No agents registered.")
				return nil
			}

			fmt.Fprintf(out, "%-16s  %-8s  %-9s  %-6s  %s\n", "AGENT", "PRIORITY", "TIMESTAMP", "STATE", "ENTRY")
			fmt.Fprintf(out, "%-16s  %-8s  %-9s  %-6s  %s\n", "-----", "--------", "---------", "-----", "-----")
			for _, a := range snap.Agents {
				st := "busy"
				switch {
				case a.Denied:
					st = "denied"
				case a.Free:
					st = "free"
				}
				fmt.Fprintf(out, "%-16s  %-8d  %-9d  %-6s  %s\n", a.Name, a.Priority, a.Timestamp, st, a.EntryID)
			}

			if len(snap.Entries) > 0 {
				fmt.Fprintln(out, "Active work:")
				for _, e := range snap.Entries {
					kind := "must-run"
					if e.Cancelable {
						kind = "cancelable"
					}
					if e.Idle {
						kind += ", idle"
					}
					fmt.Fprintf(out, "  - %s %s by %s on %v (%s, %s)\n", e.ID, e.Action, e.Owner, e.Resources, e.State, kind)
				}
			}
			if len(snap.Denied) > 0 {
				fmt.Fprintf(out, "Denied queue: %v\n", snap.Denied)
			}
			return nil
		},
	}
}
