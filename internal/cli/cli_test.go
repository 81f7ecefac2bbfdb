package cli

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/me/workmaster/internal/config"
	"github.com/me/workmaster/internal/journal"
	"github.com/me/workmaster/internal/server"
	"github.com/me/workmaster/pkg/model"
)

const busScenario = `
name: bus
ticks: 6
agents:
  - name: reader
    priority: 1
    work:
      - name: read
        ticks: 2
        requires: [bus]
  - name: writer
    priority: 5
    work:
      - name: write
        ticks: 1
        requires: [bus]
  - name: bus
`

const hclScenario = `
name  = "solo"
ticks = var.ticks

agent "solo" {
  work "job" {
    ticks = 1
  }
}
`

func writeScenario(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()

	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))

	err := root.Execute()
	return out.String(), err
}

type staticSource struct {
	snap model.ControllerSnapshot
}

func (s staticSource) Snapshot() model.ControllerSnapshot { return s.snap }

// startTestServer serves a fixed snapshot and an in-memory journal.
func startTestServer(t *testing.T) string {
	t.Helper()
	srvLogger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	st, err := journal.NewSQLiteStore(":memory:", srvLogger)
	if err != nil {
		t.Fatalf("open test journal: %v", err)
	}
	ctx := context.Background()
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("migrate test journal: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.Append(ctx, []model.Event{
		{Tick: 0, Pass: 1, Kind: model.EventAccepted, Agent: "crane", Action: "lift", Resources: []string{"crane", "truck"}},
		{Tick: 1, Pass: 2, Kind: model.EventDenied, Agent: "forklift", Action: "load", Resources: []string{"forklift", "truck"}},
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	src := staticSource{snap: model.ControllerSnapshot{
		Tick:    3,
		Passes:  4,
		Enabled: true,
		Agents: []model.AgentStatus{
			{Name: "crane", Priority: 5, Timestamp: 3, EntryID: "we_lift"},
			{Name: "forklift", Priority: 1, Timestamp: 2, Free: true, Denied: true},
		},
		Entries: []model.EntrySnapshot{
			{ID: "we_lift", Owner: "crane", Action: "lift", State: model.EntryStateRunning, Resources: []string{"crane", "truck"}},
		},
		Denied: []string{"forklift"},
	}}

	srv := server.New(config.Default().Server, src, srvLogger, server.WithJournal(st))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func TestRunCommand(t *testing.T) {
	path := writeScenario(t, "bus.yaml", busScenario)

	output, err := runCLI(t, "run", path)
	if err != nil {
		t.Fatalf("run error: %v\noutput: %s", err, output)
	}
	for _, want := range []string{"Scenario: bus", "Ticks:   6", "accepted       2", "completed      2"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
	if strings.Contains(output, "Journal:") {
		t.Errorf("no journal expected, got: %s", output)
	}
}

func TestRunCommandWithJournal(t *testing.T) {
	path := writeScenario(t, "bus.yaml", busScenario)
	dbPath := filepath.Join(t.TempDir(), "journal.db")

	output, err := runCLI(t, "run", path, "--journal", dbPath, "--strict")
	if err != nil {
		t.Fatalf("run error: %v\noutput: %s", err, output)
	}
	if !strings.Contains(output, "accepted       2") {
		t.Errorf("expected accepted count from journal, got: %s", output)
	}
	if !strings.Contains(output, "Journal: "+dbPath) {
		t.Errorf("expected journal path, got: %s", output)
	}

	output, err = runCLI(t, "journal", "--journal", dbPath, "--kind", "accepted")
	if err != nil {
		t.Fatalf("journal error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header and 2 events, got: %s", output)
	}
	if !strings.Contains(lines[2], "writer") || !strings.Contains(lines[3], "reader") {
		t.Errorf("expected writer then reader, got: %s", output)
	}
}

func TestRunCommandHCLVars(t *testing.T) {
	path := writeScenario(t, "solo.hcl", hclScenario)

	output, err := runCLI(t, "run", path, "--var", "ticks=3")
	if err != nil {
		t.Fatalf("run error: %v\noutput: %s", err, output)
	}
	if !strings.Contains(output, "Ticks:   3") {
		t.Errorf("expected 3 ticks, got: %s", output)
	}

	if _, err := runCLI(t, "run", path); err == nil {
		t.Error("expected error without --var ticks")
	}
}

func TestValidateCommand(t *testing.T) {
	good := writeScenario(t, "bus.yaml", busScenario)
	bad := writeScenario(t, "bad.yaml", "ticks: 0\nagents: [{name: a}, {name: a}]\n")

	output, err := runCLI(t, "validate", good)
	if err != nil {
		t.Fatalf("validate error: %v", err)
	}
	if !strings.Contains(output, "ok (3 agents, 0 events, 6 ticks)") {
		t.Errorf("expected ok summary, got: %s", output)
	}

	output, err = runCLI(t, "validate", good, bad)
	if err == nil {
		t.Fatal("expected error for invalid scenario")
	}
	if !strings.Contains(err.Error(), "1 of 2") {
		t.Errorf("err = %v, want 1 of 2 invalid", err)
	}
	for _, want := range []string{bad + ": invalid", "ticks:", "agents[1].name:"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestJournalCommandNoPath(t *testing.T) {
	_, err := runCLI(t, "journal")
	if err == nil || !strings.Contains(err.Error(), "no journal") {
		t.Errorf("err = %v, want no journal error", err)
	}
}

func TestJournalCommandRemote(t *testing.T) {
	url := startTestServer(t)

	output, err := runCLI(t, "--server", url, "journal", "--remote")
	if err != nil {
		t.Fatalf("journal error: %v", err)
	}
	if !strings.Contains(output, "crane") || !strings.Contains(output, "forklift") {
		t.Errorf("expected both events, got: %s", output)
	}

	output, err = runCLI(t, "--server", url, "journal", "--remote", "--agent", "crane")
	if err != nil {
		t.Fatalf("journal error: %v", err)
	}
	if strings.Contains(output, "forklift") {
		t.Errorf("expected crane only, got: %s", output)
	}
}

func TestStatusCommand(t *testing.T) {
	url := startTestServer(t)

	output, err := runCLI(t, "--server", url, "status")
	if err != nil {
		t.Fatalf("status error: %v", err)
	}
	for _, want := range []string{"Scheduler: enabled (tick 3, 4 passes)", "crane", "denied", "we_lift lift by crane", "Denied queue: [forklift]"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestConfigFile(t *testing.T) {
	path := writeScenario(t, "bus.yaml", busScenario)
	badCfg := writeScenario(t, "workmaster.yaml", "log_format: xml\n")

	if _, err := runCLI(t, "--config", badCfg, "run", path); err == nil {
		t.Error("expected error for invalid config")
	}

	dbPath := filepath.Join(t.TempDir(), "journal.db")
	goodCfg := writeScenario(t, "workmaster.yaml", "journal:\n  path: "+dbPath+"\n")
	output, err := runCLI(t, "--config", goodCfg, "run", path)
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if !strings.Contains(output, "Journal: "+dbPath) {
		t.Errorf("expected journal from config, got: %s", output)
	}
}
