package cli

import (
	"context"
	"fmt"

	"github.com/me/workmaster/internal/journal"
	"github.com/me/workmaster/internal/scenario"
)

// loadScenario reads a scenario file with --var pairs applied.
func loadScenario(path string, varPairs []string) (*scenario.Scenario, error) {
	vars, err := scenario.ParseVars(varPairs)
	if err != nil {
		return nil, err
	}
	return scenario.Load(path, vars)
}

// openJournal opens and migrates the SQLite journal at path. An empty path
// returns a nil store.
func openJournal(ctx context.Context, path string) (*journal.SQLiteStore, error) {
	if path == "" {
		return nil, nil
	}
	st, err := journal.NewSQLiteStore(path, logger)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	logger.Debug("journal ready", "path", path)
	return st, nil
}
