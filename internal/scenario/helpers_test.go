package scenario

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/me/workmaster/pkg/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func countEvents(events []model.Event, kind model.EventKind, agent, action string) int {
	n := 0
	for _, ev := range events {
		if ev.Kind != kind {
			continue
		}
		if agent != "" && ev.Agent != agent {
			continue
		}
		if action != "" && ev.Action != action {
			continue
		}
		n++
	}
	return n
}

func firstEvent(events []model.Event, kind model.EventKind) (model.Event, bool) {
	for _, ev := range events {
		if ev.Kind == kind {
			return ev, true
		}
	}
	return model.Event{}, false
}
