// Package venv resolves the agent's virtual environment and builds the
// environment the agent is spawned with.
//
// Activation here is a pure function from a base Environ to a new one. It
// mirrors what sourcing bin/activate does in a shell, without mutating the
// launcher's own process state.
package venv

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrMarkerMissing matches any *MissingMarkerError.
var ErrMarkerMissing = errors.New("environment marker not found")

// MissingMarkerError reports an absent environment marker.
type MissingMarkerError struct {
	Path string
}

func (e *MissingMarkerError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMarkerMissing, e.Path)
}

func (e *MissingMarkerError) Is(target error) bool {
	return target == ErrMarkerMissing
}

// Activation describes a resolved environment.
type Activation struct {
	Root   string
	BinDir string
	Marker string
}

// Resolve checks for the marker (relative to workDir) and returns the
// environment it belongs to. The marker's directory is the environment's bin
// directory and its parent is the environment root.
func Resolve(workDir, marker string) (*Activation, error) {
	path := marker
	if !filepath.IsAbs(path) {
		path = filepath.Join(workDir, marker)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &MissingMarkerError{Path: path}
		}
		return nil, fmt.Errorf("stat environment marker: %w", err)
	}
	if info.IsDir() {
		return nil, &MissingMarkerError{Path: path}
	}

	binDir := filepath.Dir(path)
	return &Activation{
		Root:   filepath.Dir(binDir),
		BinDir: binDir,
		Marker: path,
	}, nil
}

// Apply returns base with the environment activated: VIRTUAL_ENV set, its bin
// directory first on PATH, and PYTHONHOME cleared. base is not modified.
func (a *Activation) Apply(base Environ) Environ {
	env := base.Clone()
	env.Unset("PYTHONHOME")
	env.Set("VIRTUAL_ENV", a.Root)
	env.Set("VIRTUAL_ENV_PROMPT", filepath.Base(a.Root))
	env.PrependPath(a.BinDir)
	return env
}
