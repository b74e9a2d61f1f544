package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveRequiresDirectory(t *testing.T) {
	root := t.TempDir()

	if _, err := Resolve(filepath.Join(root, "missing"), "logs"); err == nil {
		t.Fatalf("expected error for missing working directory")
	}

	file := filepath.Join(root, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := Resolve(file, "logs"); err == nil {
		t.Fatalf("expected error for non-directory working directory")
	}
}

func TestEnsureLogDirIsIdempotent(t *testing.T) {
	root := t.TempDir()
	ws, err := Resolve(root, filepath.Join("var", "logs"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := ws.EnsureLogDir(); err != nil {
			t.Fatalf("ensure log dir (call %d): %v", i+1, err)
		}
		info, err := os.Stat(filepath.Join(root, "var", "logs"))
		if err != nil {
			t.Fatalf("stat log dir (call %d): %v", i+1, err)
		}
		if !info.IsDir() {
			t.Fatalf("log dir is not a directory")
		}
	}
}

func TestResolvePath(t *testing.T) {
	root := t.TempDir()
	ws, err := Resolve(root, "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ws.LogDir != filepath.Join(root, "logs") {
		t.Fatalf("expected default log dir, got %s", ws.LogDir)
	}

	got, err := ws.ResolvePath("venv/bin/activate")
	if err != nil {
		t.Fatalf("resolve path: %v", err)
	}
	if got != filepath.Join(root, "venv", "bin", "activate") {
		t.Fatalf("unexpected resolved path %s", got)
	}

	got, err = ws.ResolvePath("/etc/hosts")
	if err != nil {
		t.Fatalf("resolve abs path: %v", err)
	}
	if got != "/etc/hosts" {
		t.Fatalf("expected absolute path unchanged, got %s", got)
	}
}
