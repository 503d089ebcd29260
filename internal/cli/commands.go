package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hfi/waypoint/internal/errs"
	"github.com/hfi/waypoint/internal/service"
)

// Command builds the command tree
func (a *App) Command() *cobra.Command {
	root := &cobra.Command{
		Use:   "waypoint",
		Short: "Bookmark directories and move through visited ones",
		Long: `Waypoint assigns short keys to directories and keeps a back/forward
history of the directories you jump to.

State lives in $WAYPOINT_HOME (default: the user config directory).
A shell wrapper is expected to cd into the paths printed by go, back and forward.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&a.root, "root", "", "configuration root (overrides $WAYPOINT_HOME)")
	root.SetOut(a.Stdout)
	root.SetErr(a.Stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errs.Usage("%v", err)
	})

	root.AddCommand(
		a.addCommand(),
		a.goCommand(),
		a.listCommand(),
		a.removeCommand(),
		a.backCommand(),
		a.forwardCommand(),
		a.visitCommand(),
		a.histCommand(),
		a.envCommand(),
		a.versionCommand(),
	)
	return root
}

// usageArgs turns cobra argument-count errors into usage errors
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return errs.Usage("%s: %v", cmd.Name(), err)
		}
		return nil
	}
}

func parseSteps(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 0, errs.Usage("step count must be a positive integer, got %q", args[0])
	}
	return n, nil
}

func (a *App) addCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "add <key> <path>",
		Short: "Bookmark a directory under a key",
		Args:  usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(svc *service.Service) error {
				entry, err := svc.Add(cmd.Context(), args[0], args[1], force)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.Stdout, "%s\t%s\n", entry.Key, entry.Path)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "bookmark the path even if it does not exist")
	return cmd
}

func (a *App) goCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "go <key>",
		Short: "Print a bookmarked directory and record the visit",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(svc *service.Service) error {
				path, err := svc.Go(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(a.Stdout, path)
				return nil
			})
		},
	}
}

func (a *App) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List bookmarks with their positions",
		Args:    usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withService(cmd, func(svc *service.Service) error {
				entries, err := svc.List(cmd.Context())
				if err != nil {
					return err
				}
				for i, e := range entries {
					fmt.Fprintf(a.Stdout, "%d\t%s\t%s\n", i, e.Key, e.Path)
				}
				return nil
			})
		},
	}
}

func (a *App) removeCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <index-or-key>",
		Aliases: []string{"rm"},
		Short:   "Remove a bookmark by list position or key",
		Args:    usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(svc *service.Service) error {
				entry, err := svc.Remove(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(a.Stdout, "%s\t%s\n", entry.Key, entry.Path)
				return nil
			})
		},
	}
}

func (a *App) backCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "back [n]",
		Short: "Move n steps back in the history and print the directory",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseSteps(args)
			if err != nil {
				return err
			}
			return a.withService(cmd, func(svc *service.Service) error {
				path, err := svc.Back(cmd.Context(), n)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.Stdout, path)
				return nil
			})
		},
	}
}

func (a *App) forwardCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "forward [n]",
		Aliases: []string{"fwd"},
		Short:   "Move n steps forward in the history and print the directory",
		Args:    usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseSteps(args)
			if err != nil {
				return err
			}
			return a.withService(cmd, func(svc *service.Service) error {
				path, err := svc.Forward(cmd.Context(), n)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.Stdout, path)
				return nil
			})
		},
	}
}

func (a *App) visitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "visit [path]",
		Short: "Record a visit to a directory (default: the working directory)",
		Long: `Record a visit without a bookmark. Intended for a shell cd hook so that
back and forward cover every directory change.`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) == 1 {
				path = args[0]
			}
			return a.withService(cmd, func(svc *service.Service) error {
				_, err := svc.Visit(cmd.Context(), path)
				return err
			})
		},
	}
}

func (a *App) histCommand() *cobra.Command {
	var before, after int
	cmd := &cobra.Command{
		Use:   "hist",
		Short: "Show the history around the current directory",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withService(cmd, func(svc *service.Service) error {
				if !cmd.Flags().Changed("before") {
					before = a.cfg.History.Before
				}
				if !cmd.Flags().Changed("after") {
					after = a.cfg.History.After
				}
				rows, err := svc.Hist(cmd.Context(), before, after)
				if err != nil {
					return err
				}
				for _, r := range rows {
					marker := " "
					if r.Current {
						marker = "*"
					}
					fmt.Fprintf(a.Stdout, "%s %d\t%s\n", marker, r.Index, r.Path)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&before, "before", "b", 0, "entries to show before the current one (default from config)")
	cmd.Flags().IntVarP(&after, "after", "a", 0, "entries to show after the current one (default from config)")
	return cmd
}

func (a *App) envCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Print the current, previous and next directories for the shell",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			render, ok := envFormats[format]
			if !ok {
				return errs.Usage("unknown env format %q (want one of: sh, json)", format)
			}
			return a.withService(cmd, func(svc *service.Service) error {
				env, err := svc.Env(cmd.Context())
				if err != nil {
					return err
				}
				return render(a.Stdout, env)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "sh", "output format: sh or json")
	return cmd
}

func (a *App) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  usageArgs(cobra.NoArgs),
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(a.Stdout, "Waypoint %s\n", a.Build.Version)
			fmt.Fprintf(a.Stdout, "Git Commit: %s\n", a.Build.GitCommit)
			fmt.Fprintf(a.Stdout, "Build Time: %s\n", a.Build.BuildTime)
		},
	}
}
