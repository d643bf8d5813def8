package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"NewsCollector/internal/app"
	"NewsCollector/internal/usecase"
)

func newCollectCommand(root *rootOptions) *cobra.Command {
	var (
		sources []string
		limit   int
		now     string
	)
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Run one collection over active sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			clock, err := parseNow(now)
			if err != nil {
				return err
			}
			if limit < 0 {
				return fmt.Errorf("--limit must not be negative")
			}
			return root.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				result, err := a.Collect(ctx, usecase.RunOptions{SourceIDs: sources, Limit: limit, Now: clock})
				if perr := printJSON(cmd.OutOrStdout(), result); perr != nil {
					return perr
				}
				return err
			})
		},
	}
	cmd.Flags().StringSliceVar(&sources, "source", nil, "restrict to these source IDs (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", 0, "per-source candidate cap (0 uses collector.limit)")
	cmd.Flags().StringVar(&now, "now", "", "pin the run clock (RFC3339 or YYYY-MM-DD)")
	return cmd
}

func newServeCommand(root *rootOptions) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the cron scheduler and the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return root.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				if migrate {
					if _, err := a.Migrate(ctx, true); err != nil {
						return err
					}
				}
				return a.Serve(ctx)
			})
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply migrations and seed before serving")
	return cmd
}

func newMigrateCommand(root *rootOptions) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return root.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				version, err := a.Migrate(ctx, seed)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "upsert configured industries and sources")
	return cmd
}

func newDiscoverCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "discover <url>",
		Short: "Find RSS/Atom feeds for a site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				feeds, err := a.Discover(ctx, args[0])
				if err != nil {
					return err
				}
				if len(feeds) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no feeds found")
					return nil
				}
				for _, f := range feeds {
					fmt.Fprintln(cmd.OutOrStdout(), f)
				}
				return nil
			})
		},
	}
}

func newBackfillCommand(root *rootOptions) *cobra.Command {
	var (
		source string
		key    string
		now    string
	)
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Replay an archived listing snapshot for one source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			clock, err := parseNow(now)
			if err != nil {
				return err
			}
			if clock.IsZero() {
				clock = time.Now()
			}
			return root.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				result, err := a.Backfill(ctx, source, key, clock)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "source ID")
	cmd.Flags().StringVar(&key, "snapshot", "", "snapshot key, e.g. <source>/20250610T080000Z.html")
	cmd.Flags().StringVar(&now, "now", "", "run clock for relative dates (RFC3339 or YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("snapshot")
	return cmd
}
