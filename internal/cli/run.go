package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/me/workmaster/internal/journal"
	"github.com/me/workmaster/internal/scenario"
	"github.com/me/workmaster/pkg/model"
	"github.com/spf13/cobra"
)

// decisionKinds is the order decision counts are printed in.
var decisionKinds = []model.EventKind{
	model.EventAgentAdded,
	model.EventAgentRemoved,
	model.EventAccepted,
	model.EventDenied,
	model.EventIdle,
	model.EventPreempted,
	model.EventCompleted,
	model.EventCanceled,
	model.EventReset,
	model.EventQueryFailed,
	model.EventPassFailed,
}

func newRunCmd() *cobra.Command {
	var (
		vars        []string
		journalPath string
		strict      bool
		interval    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run a scenario to completion and print a decision summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts := scenario.Options{
				Strict:     cfg.Simulation.Strict,
				MaxReplays: cfg.Simulation.MaxReplays,
				Interval:   cfg.Simulation.TickInterval,
			}
			if cmd.Flags().Changed("strict") {
				opts.Strict = strict
			}
			if cmd.Flags().Changed("interval") {
				opts.Interval = interval
			}
			if !cmd.Flags().Changed("journal") {
				journalPath = cfg.Journal.Path
			}

			sc, err := loadScenario(args[0], vars)
			if err != nil {
				return err
			}

			st, err := openJournal(ctx, journalPath)
			if err != nil {
				return err
			}
			var store journal.Store
			if st != nil {
				defer st.Close()
				store = st
				opts.Store = st
			}

			sim, err := scenario.New(sc, opts, logger)
			if err != nil {
				return err
			}
			if err := sim.Run(ctx); err != nil {
				return fmt.Errorf("run scenario %s: %w", sc.Name, err)
			}
			final := sim.Snapshot()
			if err := sim.Shutdown(ctx); err != nil {
				return err
			}

			counts, err := decisionCounts(ctx, store, sim.Events())
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), sc, final, counts)
			if store != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Journal: %s\n", journalPath)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&vars, "var", nil, "Scenario variable key=value (repeatable, HCL only)")
	cmd.Flags().StringVar(&journalPath, "journal", "", "SQLite journal path (overrides config)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Panic on scheduler invariant violations")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Wall-clock delay between ticks")

	return cmd
}

// decisionCounts tallies events per kind, from the store when one is in use.
func decisionCounts(ctx context.Context, st journal.Store, events []model.Event) (map[model.EventKind]int, error) {
	counts := make(map[model.EventKind]int)
	if st == nil {
		for _, ev := range events {
			counts[ev.Kind]++
		}
		return counts, nil
	}
	for _, k := range decisionKinds {
		_, total, err := st.List(ctx, model.ListOptions{Kind: string(k), Limit: 1})
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", k, err)
		}
		counts[k] = total
	}
	return counts, nil
}

func printSummary(w io.Writer, sc *scenario.Scenario, snap model.ControllerSnapshot, counts map[model.EventKind]int) {
	fmt.Fprintf(w, "Scenario: %s\n", sc.Name)
	fmt.Fprintf(w, "  Ticks:   %d\n", snap.Tick)
	fmt.Fprintf(w, "  Passes:  %d\n", snap.Passes)
	fmt.Fprintf(w, "  Running: %d\n", len(snap.Entries))
	fmt.Fprintf(w, "  Denied:  %d\n", len(snap.Denied))
	fmt.Fprintln(w, "Decisions:")
	for _, k := range decisionKinds {
		if n := counts[k]; n > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", k, n)
		}
	}
}
