package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"agentlauncher/internal/audit"
	"agentlauncher/internal/config"
	"agentlauncher/internal/workspace"
)

type historyEntry struct {
	Time    time.Time       `json:"time"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "show recent launches from the audit log",
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:  "limit",
				Value: 20,
				Usage: "number of events to show",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print one JSON object per event",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(configPath(c))
			if err != nil {
				return cli.Exit(fmt.Sprintf("%s: %v", appName, err), 1)
			}
			ws, err := workspace.Resolve(cfg.WorkDir, cfg.LogDir)
			if err != nil {
				return cli.Exit(fmt.Sprintf("%s: %v", appName, err), 1)
			}
			events, err := audit.NewLogger(ws.AuditDBPath).Recent(c.Int("limit"))
			if err != nil {
				return cli.Exit(fmt.Sprintf("%s: %v", appName, err), 1)
			}

			out := c.App.Writer
			if len(events) == 0 {
				fmt.Fprintln(out, "no launches recorded")
				return nil
			}
			for _, ev := range events {
				if c.Bool("json") {
					line, err := json.Marshal(historyEntry{
						Time:    ev.Time,
						Type:    ev.Type,
						Payload: json.RawMessage(ev.PayloadJSON),
					})
					if err != nil {
						return fmt.Errorf("marshal event: %w", err)
					}
					fmt.Fprintln(out, string(line))
					continue
				}
				fmt.Fprintf(out, "%s  %-20s  %s\n", ev.Time.Local().Format(time.RFC3339), ev.Type, ev.PayloadJSON)
			}
			return nil
		},
	}
}
