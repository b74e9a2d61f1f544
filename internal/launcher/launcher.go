// Package launcher runs the agent program once: it validates the working
// directory, ensures the log directory, resolves the virtual environment and
// spawns the agent with its combined output appended to the log file.
//
// The sequence is strictly linear. No retries, no timeout and no supervision
// are applied; a hung agent hangs the launcher.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"agentlauncher/internal/audit"
	"agentlauncher/internal/config"
	"agentlauncher/internal/logging"
	"agentlauncher/internal/notify"
	"agentlauncher/internal/venv"
	"agentlauncher/internal/workspace"
)

const auditActor = "launcher"

// Stage names how far a launch got.
type Stage string

const (
	StageNotStarted          Stage = "not-started"
	StageWorkDirSet          Stage = "workdir-set"
	StageLogDirReady         Stage = "log-dir-ready"
	StageEnvironmentResolved Stage = "environment-resolved"
	StageProgramExecuted     Stage = "program-executed"
)

// Exit statuses for launcher-side failures. An agent's own status is passed
// through unchanged.
const (
	ExitEnvironmentMissing = 1
	ExitLaunchFailure      = 1
	ExitNotExecutable      = 126
	ExitNotFound           = 127
)

// LaunchError is a failure of the launcher itself. Stage is the step that
// could not be completed.
type LaunchError struct {
	Stage    Stage
	ExitCode int
	Err      error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// Result describes one launch.
type Result struct {
	ExitCode   int
	Program    string
	WorkDir    string
	LogPath    string
	Stage      Stage
	StartedAt  time.Time
	FinishedAt time.Time
}

// Launcher runs the configured agent program.
type Launcher struct {
	cfg      config.Config
	logger   *slog.Logger
	audit    *audit.Logger
	notifier *notify.Notifier
	baseEnv  venv.Environ
}

// Option customizes a Launcher.
type Option func(*Launcher)

// WithLogger sets the logger for launcher diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Launcher) { l.logger = logger }
}

// WithAudit overrides the audit logger derived from the working directory.
func WithAudit(logger *audit.Logger) Option {
	return func(l *Launcher) { l.audit = logger }
}

// WithNotifier sets the notifier used for failed launches.
func WithNotifier(n *notify.Notifier) Option {
	return func(l *Launcher) { l.notifier = n }
}

// WithBaseEnv replaces the process environment the activation starts from.
func WithBaseEnv(env venv.Environ) Option {
	return func(l *Launcher) { l.baseEnv = env }
}

// New returns a Launcher for cfg.
func New(cfg config.Config, opts ...Option) *Launcher {
	l := &Launcher{cfg: cfg}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = logging.Discard()
	}
	if l.notifier == nil {
		l.notifier = &notify.Notifier{Enabled: cfg.Notify}
	}
	if l.baseEnv == nil {
		l.baseEnv = venv.FromOS()
	}
	return l
}

// Run performs one launch. A non-nil error is always a *LaunchError; an agent
// that exits non-zero is not an error, its status is in Result.ExitCode.
func (l *Launcher) Run(ctx context.Context) (*Result, error) {
	res := &Result{
		Program:   l.cfg.Program,
		Stage:     StageNotStarted,
		StartedAt: time.Now(),
	}

	ws, err := workspace.Resolve(l.cfg.WorkDir, l.cfg.LogDir)
	if err != nil {
		return res, l.fail(res, StageWorkDirSet, ExitLaunchFailure, err)
	}
	res.WorkDir = ws.Root
	res.Stage = StageWorkDirSet
	if l.audit == nil && l.cfg.Audit {
		l.audit = audit.NewLogger(ws.AuditDBPath)
	}

	if err := ws.EnsureLogDir(); err != nil {
		return res, l.fail(res, StageLogDirReady, ExitLaunchFailure, err)
	}
	res.LogPath = ws.LogPath(l.cfg.LogFile)
	res.Stage = StageLogDirReady

	l.record(audit.EventLaunchStarted, map[string]any{
		"workdir":  ws.Root,
		"program":  l.cfg.Program,
		"log_path": res.LogPath,
		"config":   l.cfg.Source,
	})

	env, err := l.resolveEnvironment(ws)
	if err != nil {
		if errors.Is(err, venv.ErrMarkerMissing) {
			return res, l.markerMissing(res, err)
		}
		return res, l.fail(res, StageEnvironmentResolved, ExitLaunchFailure, err)
	}
	res.Stage = StageEnvironmentResolved

	code, err := l.spawn(ctx, ws, env, res.LogPath)
	res.FinishedAt = time.Now()
	if err != nil {
		return res, l.fail(res, StageProgramExecuted, code, err)
	}
	res.ExitCode = code
	res.Stage = StageProgramExecuted

	l.logger.Info("agent finished",
		"program", l.cfg.Program,
		"exit_code", code,
		"duration", res.FinishedAt.Sub(res.StartedAt).String(),
	)
	l.record(audit.EventLaunchFinished, map[string]any{
		"program":   l.cfg.Program,
		"exit_code": code,
		"duration":  res.FinishedAt.Sub(res.StartedAt).String(),
		"log_path":  res.LogPath,
	})
	if code != 0 {
		l.notify(notify.FormatLaunchFailed(l.cfg.Program, code, ""))
	}
	return res, nil
}

func (l *Launcher) resolveEnvironment(ws *workspace.Workspace) (venv.Environ, error) {
	act, err := venv.Resolve(ws.Root, l.cfg.Marker)
	if err != nil {
		return nil, err
	}
	env := act.Apply(l.baseEnv)
	l.logger.Debug("environment activated", "virtual_env", act.Root)

	if l.cfg.Dotenv != "" {
		dotenvPath, err := ws.ResolvePath(l.cfg.Dotenv)
		if err != nil {
			return nil, fmt.Errorf("resolve dotenv path: %w", err)
		}
		found, err := venv.LoadDotenv(env, dotenvPath)
		if err != nil {
			return nil, err
		}
		if found {
			l.logger.Debug("dotenv loaded", "path", dotenvPath)
		}
	}
	return env, nil
}

// spawn runs the agent with stdout and stderr sharing one append-mode file
// descriptor, so their relative order is preserved in the log.
func (l *Launcher) spawn(ctx context.Context, ws *workspace.Workspace, env venv.Environ, logPath string) (int, error) {
	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return ExitLaunchFailure, fmt.Errorf("open log file: %w", err)
	}
	defer func() {
		_ = logFile.Close()
	}()

	path, err := venv.LookPath(l.cfg.Program, env, ws.Root)
	if err != nil {
		code := ExitNotFound
		if errors.Is(err, venv.ErrNotExecutable) {
			code = ExitNotExecutable
		}
		fmt.Fprintf(logFile, "agentlauncher: %v\n", err)
		return code, err
	}

	cmd := exec.CommandContext(ctx, path, l.cfg.Args...)
	cmd.Dir = ws.Root
	cmd.Env = env.List()
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	l.logger.Info("starting agent", "program", path, "workdir", ws.Root, "log", logPath)
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitCodeFromError(exitErr), nil
		}
		fmt.Fprintf(logFile, "agentlauncher: start %s: %v\n", path, err)
		return ExitNotExecutable, fmt.Errorf("start %s: %w", path, err)
	}
	return 0, nil
}

func (l *Launcher) markerMissing(res *Result, err error) error {
	var missing *venv.MissingMarkerError
	marker := l.cfg.Marker
	if errors.As(err, &missing) {
		marker = missing.Path
	}
	res.ExitCode = ExitEnvironmentMissing
	res.FinishedAt = time.Now()

	l.logger.Error("environment marker not found; agent not started", "marker", marker)
	l.record(audit.EventEnvironmentMissing, map[string]any{
		"marker":  marker,
		"program": l.cfg.Program,
	})
	l.notify(notify.FormatEnvironmentMissing(marker))
	return &LaunchError{Stage: StageEnvironmentResolved, ExitCode: ExitEnvironmentMissing, Err: err}
}

func (l *Launcher) fail(res *Result, stage Stage, code int, err error) error {
	res.ExitCode = code
	if res.FinishedAt.IsZero() {
		res.FinishedAt = time.Now()
	}
	l.logger.Error("launch failed", "stage", string(stage), "exit_code", code, "error", err)
	l.record(audit.EventLaunchFailed, map[string]any{
		"stage":     string(stage),
		"program":   l.cfg.Program,
		"exit_code": code,
		"error":     err.Error(),
	})
	l.notify(notify.FormatLaunchFailed(l.cfg.Program, code, err.Error()))
	return &LaunchError{Stage: stage, ExitCode: code, Err: err}
}

func (l *Launcher) record(eventType string, payload map[string]any) {
	if err := l.audit.LogEvent(auditActor, eventType, payload); err != nil {
		l.logger.Warn("audit log failed", "event", eventType, "error", err)
	}
}

func (l *Launcher) notify(title, message string) {
	if err := l.notifier.Send(title, message); err != nil {
		l.logger.Warn("notification failed", "error", err)
	}
}

func exitCodeFromError(exitErr *exec.ExitError) int {
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal())
	}
	if code := exitErr.ExitCode(); code >= 0 {
		return code
	}
	return ExitLaunchFailure
}
