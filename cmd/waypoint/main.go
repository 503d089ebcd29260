package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/hfi/waypoint/internal/cli"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	app := cli.NewApp(cli.BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
	})
	code := app.Run(ctx, os.Args[1:])

	stop()
	os.Exit(code)
}
