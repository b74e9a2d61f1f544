package main

import (
	"context"
	"os"

	"agentlauncher/internal/cli"
)

func main() {
	os.Exit(cli.Run(context.Background(), os.Args, os.Stdout, os.Stderr))
}
