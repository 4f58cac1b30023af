package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/repairshop-backend/pkg/config"
	"github.com/angelmondragon/repairshop-backend/pkg/db"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
	"github.com/angelmondragon/repairshop-backend/pkg/migrate"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

type options struct {
	dir string
}

// source is the embedded set unless --dir points at a checkout.
func (o *options) source() fs.FS {
	if o.dir == "" {
		return migrate.Migrations()
	}
	return os.DirFS(o.dir)
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply and author goose migrations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.dir, "dir", "", "read migrations from this directory instead of the embedded set")

	cmd.AddCommand(
		runnerCommand(opts, "up", "Apply all pending migrations", cobra.NoArgs,
			func(ctx context.Context, r *migrate.Runner, _ []string) ([]migrate.Applied, error) {
				return r.Up(ctx)
			}),
		runnerCommand(opts, "down", "Roll back the latest migration", cobra.NoArgs,
			func(ctx context.Context, r *migrate.Runner, _ []string) ([]migrate.Applied, error) {
				m, err := r.Down(ctx)
				if err != nil || m == nil {
					return nil, err
				}
				return []migrate.Applied{*m}, nil
			}),
		runnerCommand(opts, "to <version>", "Migrate up or down to a YYYYMMDDHHMMSS version", cobra.ExactArgs(1),
			func(ctx context.Context, r *migrate.Runner, args []string) ([]migrate.Applied, error) {
				target, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return nil, fmt.Errorf("version %q: %w", args[0], err)
				}
				return r.To(ctx, target)
			}),
		statusCommand(opts),
		versionCommand(opts),
		createCommand(opts),
		validateCommand(opts),
	)
	return cmd
}

type runFunc func(ctx context.Context, r *migrate.Runner, args []string) ([]migrate.Applied, error)

func runnerCommand(opts *options, use, short string, args cobra.PositionalArgs, run runFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd.Context(), opts, func(ctx context.Context, r *migrate.Runner) error {
				applied, err := run(ctx, r, args)
				if err != nil {
					return err
				}
				if len(applied) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "nothing to do")
				}
				for _, m := range applied {
					fmt.Fprintf(cmd.OutOrStdout(), "%-4s %d %s (%s)\n", m.Direction, m.Version, m.Path, m.Duration.Round(time.Millisecond))
				}
				return nil
			})
		},
	}
}

func statusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRunner(cmd.Context(), opts, func(ctx context.Context, r *migrate.Runner) error {
				statuses, err := r.Status(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tFILE")
				for _, s := range statuses {
					state, at := "pending", ""
					if s.Applied {
						state, at = "applied", s.AppliedAt.UTC().Format(time.RFC3339)
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Version, state, at, s.Path)
				}
				return tw.Flush()
			})
		},
	}
}

func versionCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the current database version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRunner(cmd.Context(), opts, func(ctx context.Context, r *migrate.Runner) error {
				v, err := r.Version(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			})
		},
	}
}

func createCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Write an empty SQL migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := opts.dir
			if dir == "" {
				dir = migrate.SourceDir
			}
			path, err := migrate.CreateSQLMigration(dir, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "created", path)
			return nil
		},
	}
}

func validateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check migration names and goose annotations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := migrate.Validate(opts.source()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations ok")
			return nil
		},
	}
}

func withRunner(ctx context.Context, opts *options, fn func(context.Context, *migrate.Runner) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer client.Close()

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	runner, err := migrate.NewRunner(sqlDB, opts.source())
	if err != nil {
		return err
	}
	return fn(ctx, runner)
}
