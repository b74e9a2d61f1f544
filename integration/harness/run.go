package harness

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// Outcome is what a launcher invocation produced.
type Outcome struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run executes the binary from dir with the given environment. The parent
// environment is not inherited so a developer's AGENTLAUNCHER_* variables
// cannot leak in.
func Run(t *testing.T, binPath, dir string, env map[string]string, args ...string) Outcome {
	t.Helper()

	cmd := exec.Command(binPath, args...)
	cmd.Dir = dir
	cmd.Env = []string{"PATH=" + os.Getenv("PATH"), "HOME=" + os.Getenv("HOME")}
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	code := 0
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			t.Fatalf("run %s: %v", binPath, err)
		}
		code = exitErr.ExitCode()
	}
	return Outcome{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: code}
}

// AgentWorkDir is a working directory holding a fake agent in venv/bin.
type AgentWorkDir struct {
	Root       string
	ConfigPath string
}

// NewAgentWorkDir writes a shell agent and a config pointing at it. The
// environment marker is written only when withMarker is set.
func NewAgentWorkDir(t *testing.T, script string, withMarker bool) AgentWorkDir {
	t.Helper()
	root := t.TempDir()
	binDir := filepath.Join(root, "venv", "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("create venv: %v", err)
	}
	if withMarker {
		if err := os.WriteFile(filepath.Join(binDir, "activate"), []byte("# activate\n"), 0o644); err != nil {
			t.Fatalf("write marker: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(binDir, "run-agent"), []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatalf("write agent: %v", err)
	}

	cfgPath := filepath.Join(t.TempDir(), "agentlauncher.yml")
	if err := os.WriteFile(cfgPath, []byte("workdir: "+root+"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return AgentWorkDir{Root: root, ConfigPath: cfgPath}
}

// ReadLog returns the agent log content, empty if the file does not exist.
func (w AgentWorkDir) ReadLog(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(w.Root, "logs", "cron.log"))
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("read agent log: %v", err)
	}
	return string(data)
}
