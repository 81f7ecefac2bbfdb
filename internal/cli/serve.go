package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/me/workmaster/internal/scenario"
	"github.com/me/workmaster/internal/server"
	"github.com/spf13/cobra"
)

// defaultServeInterval paces ticks when serving without a configured interval.
const defaultServeInterval = 250 * time.Millisecond

func newServeCmd() *cobra.Command {
	var (
		vars        []string
		addr        string
		journalPath string
		interval    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve <scenario>",
		Short: "Run a scenario while serving the inspection API",
		Long: "serve runs the scenario in the background, paced by --interval, and\n" +
			"exposes agents, active work, the denied queue and the journal over HTTP.\n" +
			"The API stays up after the scenario finishes until interrupted.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			srvCfg := cfg.Server
			if cmd.Flags().Changed("addr") {
				srvCfg.Addr = addr
			}
			if !cmd.Flags().Changed("journal") {
				journalPath = cfg.Journal.Path
			}
			if journalPath == "" {
				journalPath = ":memory:"
			}
			if !cmd.Flags().Changed("interval") {
				interval = cfg.Simulation.TickInterval
			}
			if interval <= 0 {
				interval = defaultServeInterval
			}

			sc, err := loadScenario(args[0], vars)
			if err != nil {
				return err
			}
			st, err := openJournal(cmd.Context(), journalPath)
			if err != nil {
				return err
			}
			defer st.Close()

			sim, err := scenario.New(sc, scenario.Options{
				Strict:     cfg.Simulation.Strict,
				MaxReplays: cfg.Simulation.MaxReplays,
				Interval:   interval,
				Store:      st,
			}, logger)
			if err != nil {
				return err
			}

			srv := server.New(srvCfg, sim, logger, server.WithJournal(st))
			httpServer := &http.Server{
				Addr:    srvCfg.Addr,
				Handler: srv.Handler(),
			}

			// Graceful shutdown
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			serveErr := make(chan error, 1)
			go func() {
				logger.Info("server starting", "addr", srvCfg.Addr)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			simDone := make(chan error, 1)
			go func() { simDone <- sim.Run(ctx) }()

			var runErr error
			select {
			case err := <-serveErr:
				stop()
				<-simDone
				return fmt.Errorf("server failed: %w", err)
			case runErr = <-simDone:
			}
			if runErr != nil && !errors.Is(runErr, context.Canceled) {
				logger.Error("simulation failed", "error", runErr)
			} else if runErr == nil {
				logger.Info("scenario finished, serving until interrupted", "tick", sim.Now())
			}

			select {
			case <-ctx.Done():
			case err, ok := <-serveErr:
				if ok && err != nil {
					runErr = err
				}
			}
			logger.Info("shutting down")

			if err := sim.Shutdown(context.Background()); err != nil {
				logger.Error("simulation shutdown error", "error", err)
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			logger.Info("server stopped")

			if runErr != nil && !errors.Is(runErr, context.Canceled) {
				return runErr
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&vars, "var", nil, "Scenario variable key=value (repeatable, HCL only)")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	cmd.Flags().StringVar(&journalPath, "journal", "", "SQLite journal path (default in-memory)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Wall-clock delay between ticks")

	return cmd
}
