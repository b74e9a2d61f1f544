package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Workspace is the agent's fixed working directory and the paths derived from it.
type Workspace struct {
	Root        string
	LogDir      string
	AuditDBPath string
}

// Resolve expands and validates the working directory, ensuring it exists.
// logDir is relative to the root.
func Resolve(root, logDir string) (*Workspace, error) {
	abs, err := resolveRoot(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("working directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("working directory is not a directory: %s", abs)
	}
	return newWorkspace(abs, logDir), nil
}

// ResolveRoot resolves the working directory without requiring it to exist.
func ResolveRoot(root string) (string, error) {
	return resolveRoot(root)
}

// EnsureLogDir creates the log directory and any missing parents. Calling it
// again on an existing directory succeeds silently.
func (w *Workspace) EnsureLogDir() error {
	if w == nil {
		return fmt.Errorf("workspace is nil")
	}
	if err := os.MkdirAll(w.LogDir, 0o755); err != nil {
		return fmt.Errorf("ensure %s: %w", w.LogDir, err)
	}
	return nil
}

// LogPath returns the path of a file inside the log directory.
func (w *Workspace) LogPath(name string) string {
	return filepath.Join(w.LogDir, name)
}

// ResolvePath returns an absolute path, resolving relative paths from the root.
func (w *Workspace) ResolvePath(path string) (string, error) {
	if w == nil {
		return "", fmt.Errorf("workspace is nil")
	}
	if strings.TrimSpace(path) == "" {
		return "", nil
	}
	expanded, err := expandHome(path)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(expanded) {
		return filepath.Clean(expanded), nil
	}
	return filepath.Abs(filepath.Join(w.Root, expanded))
}

func newWorkspace(root, logDir string) *Workspace {
	if strings.TrimSpace(logDir) == "" {
		logDir = "logs"
	}
	return &Workspace{
		Root:        root,
		LogDir:      filepath.Join(root, logDir),
		AuditDBPath: filepath.Join(root, "audit", "launcher.sqlite"),
	}
}

func resolveRoot(root string) (string, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return "", fmt.Errorf("working directory is required")
	}
	expanded, err := expandHome(root)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolve working directory: %w", err)
	}
	return abs, nil
}

func expandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:]), nil
	}
	return "", fmt.Errorf("unsupported home expansion: %s", path)
}
