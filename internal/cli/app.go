// Package cli maps waypoint subcommands onto the service and renders results.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hfi/waypoint/internal/config"
	"github.com/hfi/waypoint/internal/errs"
	"github.com/hfi/waypoint/internal/logging"
	"github.com/hfi/waypoint/internal/service"
)

// BuildInfo is printed by the version command
type BuildInfo struct {
	Version   string
	GitCommit string
	BuildTime string
}

// App holds the process-level dependencies of the command tree
type App struct {
	Stdout io.Writer
	Stderr io.Writer
	Build  BuildInfo

	root string
	log  zerolog.Logger
	cfg  *config.Config
}

// NewApp creates an App writing to the process streams
func NewApp(build BuildInfo) *App {
	return &App{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Build:  build,
	}
}

// Run executes the command line and returns the process exit code
func (a *App) Run(ctx context.Context, args []string) int {
	cmd := a.Command()
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		var tagged *errs.Error
		if !errors.As(err, &tagged) {
			// anything cobra rejects before our code runs is a usage problem
			err = errs.Usage("%v", err)
		}
		fmt.Fprintf(a.Stderr, "waypoint: %v\n", err)
	}
	return errs.ExitCode(err)
}

// open resolves the config root and builds a service for one command
func (a *App) open(ctx context.Context) (*service.Service, error) {
	root := a.root
	if root == "" {
		var err error
		root, err = config.DefaultRoot()
		if err != nil {
			return nil, errs.Internal(err, "failed to resolve config root")
		}
	}

	paths, err := config.ResolvePaths(root)
	if err != nil {
		return nil, errs.Internal(err, "failed to resolve config paths")
	}

	cfg, err := config.Load(paths)
	if err != nil {
		return nil, errs.Internal(err, "failed to load configuration")
	}
	a.cfg = cfg
	a.log = logging.New(a.Stderr, cfg.Logging.Level)

	return service.Open(ctx, paths, cfg, a.log)
}

// withService opens a service, runs fn and closes the service
func (a *App) withService(cmd *cobra.Command, fn func(svc *service.Service) error) error {
	ctx := cmd.Context()
	svc, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := svc.Close(); cerr != nil {
			a.log.Warn().Err(cerr).Msg("failed to close service")
		}
	}()
	return fn(svc)
}
