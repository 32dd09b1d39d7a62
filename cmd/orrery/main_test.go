package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestSimulateCommandPrintsTicks(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "orrery.yaml")
	if err := os.WriteFile(cfg, []byte("asteroids:\n  count: 0\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, _, err := runRoot(t,
		"--config", cfg,
		"--log-level", "error",
		"simulate",
		"--duration", "2s",
		"--tick", "1s",
		"--start", "2000-01-01T12:00:00Z",
	)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if got := strings.Count(out, "frame="); got != 2 {
		t.Fatalf("printed %d frames, want 2:\n%s", got, out)
	}
	if !strings.Contains(out, "[2000-01-01T12:00:01Z] frame=0") {
		t.Fatalf("first frame header missing:\n%s", out)
	}
	if strings.Count(out, "gmst=") != 2 {
		t.Fatalf("sidereal angle missing:\n%s", out)
	}
	if !strings.Contains(out, "Moon") {
		t.Fatalf("satellite positions missing:\n%s", out)
	}
}

func TestSimulateCommandUsesCatalogFlag(t *testing.T) {
	catalog := filepath.Join(t.TempDir(), "catalog.json")
	body := `{"star": {"name": "Sun", "color": "#ffcc33", "size": 5},
		"planets": [{"name": "Vulcan", "color": "#ff0000", "size": 0.1, "distance": 1, "orbit_speed": 0.5}]}`
	if err := os.WriteFile(catalog, []byte(body), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	out, _, err := runRoot(t, "--catalog", catalog, "--log-level", "error",
		"simulate", "--duration", "1s", "--tick", "1s")
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if !strings.Contains(out, "Vulcan") || strings.Contains(out, "Earth") {
		t.Fatalf("catalog flag not honoured:\n%s", out)
	}
}

func TestSimulateCommandRejectsBadStart(t *testing.T) {
	if _, _, err := runRoot(t, "--log-level", "error", "simulate", "--start", "yesterday"); err == nil {
		t.Fatalf("expected error for unparseable start time")
	}
}

func TestMissingConfigFileFails(t *testing.T) {
	_, _, err := runRoot(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "simulate")
	if err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
