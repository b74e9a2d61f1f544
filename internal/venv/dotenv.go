package venv

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotenv merges KEY=VALUE pairs from path into env without overriding
// variables that are already set. A missing file is not an error; it reports
// whether the file was found. ${VAR} references in the file expand from
// earlier keys and the launcher's own process environment, not from env, so
// they see pre-activation values of PATH and VIRTUAL_ENV.
func LoadDotenv(env Environ, path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat dotenv: %w", err)
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		return true, fmt.Errorf("parse dotenv %s: %w", path, err)
	}
	env.Merge(vars, false)
	return true, nil
}
