package venv

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when a program is not on the environment's PATH.
var ErrNotFound = errors.New("executable file not found in PATH")

// ErrNotExecutable is returned for a path that exists but cannot be run.
var ErrNotExecutable = errors.New("file is not executable")

// LookPath resolves name against env's PATH rather than the launcher's own.
// Names containing a path separator skip the search; relative ones resolve
// against dir.
func LookPath(name string, env Environ, dir string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("lookup program: %w", ErrNotFound)
	}
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		if err := checkExecutable(path); err != nil {
			return "", fmt.Errorf("lookup %s: %w", name, err)
		}
		return path, nil
	}

	pathVar, _ := env.Get("PATH")
	var firstErr error
	for _, entry := range filepath.SplitList(pathVar) {
		if entry == "" {
			entry = "."
		}
		if !filepath.IsAbs(entry) {
			entry = filepath.Join(dir, entry)
		}
		candidate := filepath.Join(entry, name)
		err := checkExecutable(candidate)
		if err == nil {
			return candidate, nil
		}
		// unsearchable PATH entries are skipped like missing ones
		if firstErr == nil && errors.Is(err, ErrNotExecutable) && !errors.Is(err, fs.ErrPermission) {
			firstErr = err
		}
	}
	if firstErr != nil {
		return "", fmt.Errorf("lookup %s: %w", name, firstErr)
	}
	return "", fmt.Errorf("lookup %s: %w", name, ErrNotFound)
}

func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %w", ErrNotExecutable, err)
	}
	if info.IsDir() || info.Mode()&0o111 == 0 {
		return ErrNotExecutable
	}
	return nil
}
