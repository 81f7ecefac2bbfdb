package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/me/workmaster/pkg/model"
	"github.com/spf13/cobra"
)

func newJournalCmd() *cobra.Command {
	var (
		journalPath string
		remote      bool
		opts        model.ListOptions
	)

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List recorded scheduler decisions",
		Long: "journal reads decisions from a SQLite journal file, or with --remote\n" +
			"from the /api/v1/journal endpoint of a running server.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				events []model.Event
				total  int
			)
			if remote {
				var err error
				events, total, err = client.Journal(cmd.Context(), opts)
				if err != nil {
					return fmt.Errorf("get journal: %w", err)
				}
			} else {
				if !cmd.Flags().Changed("journal") {
					journalPath = cfg.Journal.Path
				}
				if journalPath == "" {
					return errors.New("no journal: pass --journal, set journal.path, or use --remote")
				}
				st, err := openJournal(cmd.Context(), journalPath)
				if err != nil {
					return err
				}
				defer st.Close()
				events, total, err = st.List(cmd.Context(), opts)
				if err != nil {
					return fmt.Errorf("list journal: %w", err)
				}
			}

			printEvents(cmd.OutOrStdout(), events, total)
			return nil
		},
	}

	cmd.Flags().StringVar(&journalPath, "journal", "", "SQLite journal path (overrides config)")
	cmd.Flags().BoolVar(&remote, "remote", false, "Query the server given by --server instead of a file")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "Only show events of this kind")
	cmd.Flags().StringVar(&opts.Agent, "agent", "", "Only show events for this agent")
	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "Maximum events to show")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Events to skip")

	return cmd
}

func printEvents(w io.Writer, events []model.Event, total int) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events found.")
		return
	}

	fmt.Fprintf(w, "%-6s  %-6s  %-14s  %-16s  %-16s  %s\n", "TICK", "PASS", "KIND", "AGENT", "ACTION", "RESOURCES")
	fmt.Fprintf(w, "%-6s  %-6s  %-14s  %-16s  %-16s  %s\n", "----", "----", "----", "-----", "------", "---------")
	for _, ev := range events {
		line := fmt.Sprintf("%-6d  %-6d  %-14s  %-16s  %-16s  %s",
			ev.Tick, ev.Pass, ev.Kind, ev.Agent, ev.Action, strings.Join(ev.Resources, ","))
		if ev.Detail != "" {
			line += "  (" + ev.Detail + ")"
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}

	if len(events) < total {
		fmt.Fprintf(w, "\n(%d of %d shown)\n", len(events), total)
	}
}
