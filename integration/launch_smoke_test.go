package integration_test

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"agentlauncher/integration/harness"
)

func TestLaunchExitCodePropagation(t *testing.T) {
	binPath := harness.BuildBinary(t)

	for _, code := range []int{0, 1, 42} {
		t.Run(fmt.Sprintf("exit_%d", code), func(t *testing.T) {
			wd := harness.NewAgentWorkDir(t, fmt.Sprintf("echo run\nexit %d", code), true)
			out := harness.Run(t, binPath, t.TempDir(), map[string]string{
				"AGENTLAUNCHER_CONFIG": wd.ConfigPath,
			})
			if out.ExitCode != code {
				t.Fatalf("expected exit code %d, got %d\nstderr:\n%s", code, out.ExitCode, out.Stderr)
			}
			if wd.ReadLog(t) != "run\n" {
				t.Fatalf("unexpected agent log %q", wd.ReadLog(t))
			}
		})
	}
}

func TestLaunchMissingMarker(t *testing.T) {
	binPath := harness.BuildBinary(t)
	wd := harness.NewAgentWorkDir(t, ": > invoked", false)

	out := harness.Run(t, binPath, t.TempDir(), nil, "run", "--config", wd.ConfigPath)
	if out.ExitCode != 1 {
		t.Fatalf("expected exit code 1, got %d", out.ExitCode)
	}
	if !strings.Contains(out.Stderr, "environment marker not found") {
		t.Fatalf("expected diagnostic on stderr, got %q", out.Stderr)
	}
	if _, err := os.Stat(filepath.Join(wd.Root, "invoked")); !os.IsNotExist(err) {
		t.Fatalf("agent ran without marker")
	}
	if _, err := os.Stat(filepath.Join(wd.Root, "logs")); err != nil {
		t.Fatalf("log dir missing: %v", err)
	}
	requireAuditEvents(t, filepath.Join(wd.Root, "audit", "launcher.sqlite"), "launch_started", "environment_missing")
}

func TestLaunchAppendsAndUsesWorkDir(t *testing.T) {
	binPath := harness.BuildBinary(t)
	wd := harness.NewAgentWorkDir(t, "echo stdout line\necho stderr line >&2\necho data > produced.txt", true)
	callerDir := t.TempDir()

	for i := 0; i < 2; i++ {
		out := harness.Run(t, binPath, callerDir, nil, "--config", wd.ConfigPath)
		if out.ExitCode != 0 {
			t.Fatalf("run %d: exit code %d\nstderr:\n%s", i+1, out.ExitCode, out.Stderr)
		}
	}

	want := strings.Repeat("stdout line\nstderr line\n", 2)
	if got := wd.ReadLog(t); got != want {
		t.Fatalf("unexpected log:\n%q\nwant:\n%q", got, want)
	}
	if _, err := os.Stat(filepath.Join(wd.Root, "produced.txt")); err != nil {
		t.Fatalf("relative output not in workdir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(callerDir, "produced.txt")); err == nil {
		t.Fatalf("relative output written to caller directory")
	}
	requireAuditEvents(t, filepath.Join(wd.Root, "audit", "launcher.sqlite"), "launch_started", "launch_finished")
}

func requireAuditEvents(t *testing.T, dbPath string, want ...string) {
	t.Helper()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open audit db: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	rows, err := db.Query("SELECT type, COUNT(*) FROM events GROUP BY type")
	if err != nil {
		t.Fatalf("query audit events: %v", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	types := make(map[string]int)
	for rows.Next() {
		var eventType string
		var count int
		if err := rows.Scan(&eventType, &count); err != nil {
			t.Fatalf("scan audit event: %v", err)
		}
		types[eventType] = count
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("iterate audit events: %v", err)
	}
	for _, eventType := range want {
		if types[eventType] == 0 {
			t.Fatalf("missing audit event %s in %s (have %v)", eventType, dbPath, types)
		}
	}
}
