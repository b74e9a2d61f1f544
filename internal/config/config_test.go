package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaultsWithoutPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.WorkDir != DefaultWorkDir {
		t.Fatalf("expected workdir %s, got %s", DefaultWorkDir, cfg.WorkDir)
	}
	if cfg.LogDir != "logs" || cfg.LogFile != "cron.log" {
		t.Fatalf("unexpected log location %s/%s", cfg.LogDir, cfg.LogFile)
	}
	if cfg.Marker != "venv/bin/activate" {
		t.Fatalf("unexpected marker %s", cfg.Marker)
	}
	if len(cfg.Args) != 0 {
		t.Fatalf("expected no agent args, got %v", cfg.Args)
	}
	if cfg.Source != "" {
		t.Fatalf("expected empty source for defaults, got %s", cfg.Source)
	}
}

func TestParseOverridesOnlySetFields(t *testing.T) {
	yml := `
workdir: /tmp/agent
program: other-agent
audit: false
`
	cfg, err := Parse([]byte(yml))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.WorkDir != "/tmp/agent" || cfg.Program != "other-agent" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Audit {
		t.Fatalf("expected audit disabled")
	}
	if cfg.LogFile != DefaultLogFile || cfg.Marker != DefaultMarker {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestParseValidationErrors(t *testing.T) {
	yml := `
program: ""
marker: /abs/venv/bin/activate
log_file: nested/agent.log
log_level: loud
schedule:
  hour: 25
`
	_, err := Parse([]byte(yml))
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var vErrs ValidationErrors
	if !errors.As(err, &vErrs) {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	fields := make(map[string]bool)
	for _, e := range vErrs {
		fields[e.Field] = true
	}
	for _, want := range []string{"program", "marker", "log_file", "log_level", "schedule.hour"} {
		if !fields[want] {
			t.Fatalf("missing validation error for %s in %v", want, err)
		}
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "launcher.yml")
	if err := os.WriteFile(path, []byte("workdir: "+dir+"\nlog_file: agent.log\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.WorkDir != dir || cfg.LogFile != "agent.log" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Source != path {
		t.Fatalf("expected source %s, got %s", path, cfg.Source)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}
