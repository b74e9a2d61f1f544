package venv

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Environ is an explicit variable set handed to a spawned process. It never
// touches the launcher's own environment.
type Environ map[string]string

// FromOS snapshots the current process environment.
func FromOS() Environ {
	return FromList(os.Environ())
}

// FromList parses KEY=VALUE entries. Later duplicates win.
func FromList(entries []string) Environ {
	env := make(Environ, len(entries))
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}

// Clone returns an independent copy.
func (e Environ) Clone() Environ {
	out := make(Environ, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

func (e Environ) Get(key string) (string, bool) {
	v, ok := e[key]
	return v, ok
}

func (e Environ) Set(key, value string) {
	e[key] = value
}

func (e Environ) Unset(key string) {
	delete(e, key)
}

// PrependPath puts dir at the front of PATH.
func (e Environ) PrependPath(dir string) {
	current, ok := e["PATH"]
	if !ok || current == "" {
		e["PATH"] = dir
		return
	}
	e["PATH"] = dir + string(filepath.ListSeparator) + current
}

// Merge copies vars into e. Existing keys are kept unless override is set.
func (e Environ) Merge(vars map[string]string, override bool) {
	for k, v := range vars {
		if _, exists := e[k]; exists && !override {
			continue
		}
		e[k] = v
	}
}

// List renders the set as sorted KEY=VALUE entries for exec.Cmd.Env.
func (e Environ) List() []string {
	out := make([]string, 0, len(e))
	for k, v := range e {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
