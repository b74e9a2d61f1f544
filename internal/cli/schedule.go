package cli

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"agentlauncher/internal/config"
	"agentlauncher/internal/schedule"
	"agentlauncher/internal/workspace"
)

func scheduleCommand() *cli.Command {
	entryFlags := func() []cli.Flag {
		return []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "binary",
				Usage: "launcher binary the job runner invokes (default: this executable)",
			},
			&cli.IntFlag{
				Name:  "hour",
				Value: -1,
				Usage: "hour of day, overrides schedule.hour",
			},
			&cli.IntFlag{
				Name:  "minute",
				Value: -1,
				Usage: "minute, overrides schedule.minute",
			},
		}
	}
	plistFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:  "plist",
			Usage: "LaunchAgent path (default: ~/Library/LaunchAgents/<label>.plist)",
		}
	}

	return &cli.Command{
		Name:  "schedule",
		Usage: "render or install the periodic job entry that invokes the launcher",
		Subcommands: []*cli.Command{
			{
				Name:  "cron",
				Usage: "print a crontab line",
				Flags: entryFlags(),
				Action: func(c *cli.Context) error {
					entry, err := scheduleEntry(c)
					if err != nil {
						return err
					}
					line, err := schedule.CronLine(entry)
					if err != nil {
						return cli.Exit(fmt.Sprintf("%s: %v", appName, err), 1)
					}
					fmt.Fprintln(c.App.Writer, line)
					return nil
				},
			},
			{
				Name:  "plist",
				Usage: "print a launchd LaunchAgent plist",
				Flags: entryFlags(),
				Action: func(c *cli.Context) error {
					entry, err := scheduleEntry(c)
					if err != nil {
						return err
					}
					plist, err := schedule.GeneratePlist(entry)
					if err != nil {
						return cli.Exit(fmt.Sprintf("%s: %v", appName, err), 1)
					}
					fmt.Fprint(c.App.Writer, plist)
					return nil
				},
			},
			{
				Name:  "install",
				Usage: "write the LaunchAgent plist, showing a diff when it changes",
				Flags: append(entryFlags(), plistFlag()),
				Action: func(c *cli.Context) error {
					entry, err := scheduleEntry(c)
					if err != nil {
						return err
					}
					path, err := plistPath(c, entry.WorkDir)
					if err != nil {
						return err
					}
					changed, err := schedule.Install(entry, path, c.App.Writer)
					if err != nil {
						return cli.Exit(fmt.Sprintf("%s: %v", appName, err), 1)
					}
					if !changed {
						fmt.Fprintf(c.App.Writer, "unchanged: %s\n", path)
						return nil
					}
					fmt.Fprintf(c.App.Writer, "installed: %s\n", path)
					return nil
				},
			},
			{
				Name:  "uninstall",
				Usage: "remove the LaunchAgent plist",
				Flags: []cli.Flag{configFlag(), plistFlag()},
				Action: func(c *cli.Context) error {
					workDir, err := configuredWorkDir(c)
					if err != nil {
						return err
					}
					path, err := plistPath(c, workDir)
					if err != nil {
						return err
					}
					if err := schedule.Uninstall(path); err != nil {
						return cli.Exit(fmt.Sprintf("%s: %v", appName, err), 1)
					}
					fmt.Fprintf(c.App.Writer, "removed: %s\n", path)
					return nil
				},
			},
			{
				Name:  "start",
				Usage: "load the LaunchAgent with launchctl",
				Flags: []cli.Flag{configFlag(), plistFlag()},
				Action: func(c *cli.Context) error {
					return launchctl(c, schedule.Start)
				},
			},
			{
				Name:  "stop",
				Usage: "unload the LaunchAgent with launchctl",
				Flags: []cli.Flag{configFlag(), plistFlag()},
				Action: func(c *cli.Context) error {
					return launchctl(c, schedule.Stop)
				},
			},
		},
	}
}

func launchctl(c *cli.Context, op func(string) error) error {
	workDir, err := configuredWorkDir(c)
	if err != nil {
		return err
	}
	path, err := plistPath(c, workDir)
	if err != nil {
		return err
	}
	if err := op(path); err != nil {
		return cli.Exit(fmt.Sprintf("%s: %v", appName, err), 1)
	}
	return nil
}

func configuredWorkDir(c *cli.Context) (string, error) {
	cfg, err := config.Load(configPath(c))
	if err != nil {
		return "", cli.Exit(fmt.Sprintf("%s: %v", appName, err), 1)
	}
	root, err := workspace.ResolveRoot(cfg.WorkDir)
	if err != nil {
		return "", cli.Exit(fmt.Sprintf("%s: %v", appName, err), 1)
	}
	return root, nil
}

func scheduleEntry(c *cli.Context) (schedule.Entry, error) {
	cfg, err := config.Load(configPath(c))
	if err != nil {
		return schedule.Entry{}, cli.Exit(fmt.Sprintf("%s: %v", appName, err), 1)
	}
	root, err := workspace.ResolveRoot(cfg.WorkDir)
	if err != nil {
		return schedule.Entry{}, cli.Exit(fmt.Sprintf("%s: %v", appName, err), 1)
	}

	binary := c.String("binary")
	if binary == "" {
		binary, err = os.Executable()
		if err != nil {
			return schedule.Entry{}, cli.Exit(fmt.Sprintf("%s: resolve executable: %v", appName, err), 1)
		}
	}

	entry := schedule.Entry{
		Binary:     binary,
		ConfigPath: cfg.Source,
		WorkDir:    root,
		LogDir:     cfg.LogDir,
		Hour:       cfg.Schedule.Hour,
		Minute:     cfg.Schedule.Minute,
	}
	if h := c.Int("hour"); h >= 0 {
		entry.Hour = h
	}
	if m := c.Int("minute"); m >= 0 {
		entry.Minute = m
	}
	return entry, nil
}

func plistPath(c *cli.Context, workDir string) (string, error) {
	if p := c.String("plist"); p != "" {
		return p, nil
	}
	path, err := schedule.PlistPath(workDir)
	if err != nil {
		return "", cli.Exit(fmt.Sprintf("%s: %v", appName, err), 1)
	}
	return path, nil
}
