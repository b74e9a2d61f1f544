package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the variable consulted when no --config flag is given.
const EnvConfigPath = "AGENTLAUNCHER_CONFIG"

const (
	DefaultWorkDir   = "/srv/content-agent"
	DefaultLogDir    = "logs"
	DefaultLogFile   = "cron.log"
	DefaultMarker    = "venv/bin/activate"
	DefaultProgram   = "run-agent"
	DefaultDotenv    = ".env"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Config is the launcher's fixed configuration. Every field has a compiled-in
// default; a config file only overrides what it sets.
type Config struct {
	WorkDir   string   `yaml:"workdir"`
	LogDir    string   `yaml:"log_dir"`
	LogFile   string   `yaml:"log_file"`
	Marker    string   `yaml:"marker"`
	Program   string   `yaml:"program"`
	Args      []string `yaml:"args,omitempty"`
	Dotenv    string   `yaml:"dotenv"`
	Audit     bool     `yaml:"audit"`
	Notify    bool     `yaml:"notify"`
	LogLevel  string   `yaml:"log_level"`
	LogFormat string   `yaml:"log_format"`
	Schedule  Schedule `yaml:"schedule"`

	// Source is the file the config was read from, empty for defaults.
	Source string `yaml:"-"`
}

// Schedule is the daily time a periodic job runner should invoke the launcher.
type Schedule struct {
	Hour   int `yaml:"hour"`
	Minute int `yaml:"minute"`
}

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		WorkDir:   DefaultWorkDir,
		LogDir:    DefaultLogDir,
		LogFile:   DefaultLogFile,
		Marker:    DefaultMarker,
		Program:   DefaultProgram,
		Dotenv:    DefaultDotenv,
		Audit:     true,
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
		Schedule:  Schedule{Hour: 9, Minute: 0},
	}
}

// Load resolves the config path (explicit path, then $AGENTLAUNCHER_CONFIG)
// and reads it over the defaults. With neither set the defaults are returned.
func Load(path string) (Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(EnvConfigPath))
	}
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	return LoadFile(path)
}

// LoadFile reads a YAML config file over the defaults.
func LoadFile(path string) (Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config file not found: %s", abs)
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", abs, err)
	}
	cfg.Source = abs
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.WorkDir = strings.TrimSpace(c.WorkDir)
	c.LogDir = strings.TrimSpace(c.LogDir)
	c.LogFile = strings.TrimSpace(c.LogFile)
	c.Marker = strings.TrimSpace(c.Marker)
	c.Program = strings.TrimSpace(c.Program)
	c.Dotenv = strings.TrimSpace(c.Dotenv)
	if c.LogDir == "" {
		c.LogDir = DefaultLogDir
	}
	if c.LogFile == "" {
		c.LogFile = DefaultLogFile
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
}

// ValidationError captures a single field-specific validation issue.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates multiple validation problems.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "\n")
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs ValidationErrors
	if c.WorkDir == "" {
		errs = append(errs, ValidationError{Field: "workdir", Message: "is required"})
	}
	if c.Program == "" {
		errs = append(errs, ValidationError{Field: "program", Message: "is required"})
	}
	if c.Marker == "" {
		errs = append(errs, ValidationError{Field: "marker", Message: "is required"})
	} else if filepath.IsAbs(c.Marker) {
		errs = append(errs, ValidationError{Field: "marker", Message: "must be relative to workdir"})
	}
	if filepath.IsAbs(c.LogDir) {
		errs = append(errs, ValidationError{Field: "log_dir", Message: "must be relative to workdir"})
	}
	if strings.ContainsRune(c.LogFile, '/') || strings.ContainsRune(c.LogFile, filepath.Separator) {
		errs = append(errs, ValidationError{Field: "log_file", Message: "must be a file name, not a path"})
	}
	if filepath.IsAbs(c.Dotenv) {
		errs = append(errs, ValidationError{Field: "dotenv", Message: "must be relative to workdir"})
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{Field: "log_level", Message: fmt.Sprintf("unknown level %q", c.LogLevel)})
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{Field: "log_format", Message: fmt.Sprintf("unknown format %q", c.LogFormat)})
	}
	if c.Schedule.Hour < 0 || c.Schedule.Hour > 23 {
		errs = append(errs, ValidationError{Field: "schedule.hour", Message: "must be between 0 and 23"})
	}
	if c.Schedule.Minute < 0 || c.Schedule.Minute > 59 {
		errs = append(errs, ValidationError{Field: "schedule.minute", Message: "must be between 0 and 59"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
