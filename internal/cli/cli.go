// Package cli wires the launcher, its run history and scheduler helpers into
// the agentlauncher command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/urfave/cli/v2"

	"agentlauncher/internal/config"
	"agentlauncher/internal/launcher"
	"agentlauncher/internal/logging"
)

const appName = "agentlauncher"

// Run executes the command line and returns the process exit status. With no
// arguments it launches the agent using the compiled-in configuration.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := NewApp(stdout, stderr)
	err := app.RunContext(ctx, args)
	if err == nil {
		return 0
	}
	var exitErr cli.ExitCoder
	if errors.As(err, &exitErr) {
		if msg := exitErr.Error(); msg != "" {
			fmt.Fprintln(stderr, msg)
		}
		return exitErr.ExitCode()
	}
	fmt.Fprintf(stderr, "%s: %v\n", appName, err)
	return 1
}

// NewApp creates and configures the CLI application.
func NewApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:        appName,
		Usage:       "launch the content agent inside its virtual environment",
		HideVersion: true,
		Writer:      stdout,
		ErrWriter:   stderr,
		// exit codes are translated by Run, never by os.Exit inside the app
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "launcher log level (debug, info, warn, error)",
				EnvVars: []string{"AGENTLAUNCHER_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "launcher log format (text, json)",
				EnvVars: []string{"AGENTLAUNCHER_LOG_FORMAT"},
			},
		},
		Action: runAction,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "run the agent once (default when no command is given)",
				Flags:  []cli.Flag{configFlag()},
				Action: runAction,
			},
			historyCommand(),
			scheduleCommand(),
		},
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "YAML file overriding the built-in configuration (default: $" + config.EnvConfigPath + ")",
	}
}

// configPath returns the --config value set closest to the running command,
// so the flag works both before and after the subcommand name.
func configPath(c *cli.Context) string {
	for _, ctx := range c.Lineage() {
		if ctx.IsSet("config") {
			return ctx.String("config")
		}
	}
	return ""
}

func runAction(c *cli.Context) error {
	cfg, err := config.Load(configPath(c))
	if err != nil {
		return cli.Exit(fmt.Sprintf("%s: %v", appName, err), launcher.ExitLaunchFailure)
	}
	logger, err := newLogger(c, cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("%s: %v", appName, err), launcher.ExitLaunchFailure)
	}

	res, err := launcher.New(cfg, launcher.WithLogger(logger)).Run(c.Context)
	if err != nil {
		var launchErr *launcher.LaunchError
		if errors.As(err, &launchErr) {
			// already reported through the logger
			return cli.Exit("", launchErr.ExitCode)
		}
		return cli.Exit(fmt.Sprintf("%s: %v", appName, err), launcher.ExitLaunchFailure)
	}
	if res.ExitCode != 0 {
		return cli.Exit("", res.ExitCode)
	}
	return nil
}

func newLogger(c *cli.Context, cfg config.Config) (*slog.Logger, error) {
	level := cfg.LogLevel
	if v := c.String("log-level"); v != "" {
		level = v
	}
	format := cfg.LogFormat
	if v := c.String("log-format"); v != "" {
		format = v
	}
	return logging.New(c.App.ErrWriter, level, format)
}
