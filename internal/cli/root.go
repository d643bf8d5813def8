package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"NewsCollector/internal/app"
	"NewsCollector/internal/config"
	"NewsCollector/internal/logging"
)

type rootOptions struct {
	configFile string
	logLevel   string
}

// NewRootCommand assembles the newscollector command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "newscollector",
		Short:         "Collect industry news from configured sources",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file (default: $NEWS_COLLECTOR_CONFIG)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level")

	root.AddCommand(
		newCollectCommand(opts),
		newServeCommand(opts),
		newMigrateCommand(opts),
		newDiscoverCommand(opts),
		newBackfillCommand(opts),
	)
	return root
}

// Execute runs the command tree with ctx, printing a failure to stderr.
func Execute(ctx context.Context) error {
	cmd := NewRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	return nil
}

func (o *rootOptions) load() (config.Config, *slog.Logger) {
	if o.configFile != "" {
		_ = os.Setenv("NEWS_COLLECTOR_CONFIG", o.configFile)
	}
	cfg := config.Load()
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	return cfg, logging.NewWithWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
}

// withApp builds the application for one command and closes it afterwards.
func (o *rootOptions) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.Application) error) error {
	cfg, logger := o.load()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Warn("close application", "error", cerr)
		}
	}()
	return fn(ctx, a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// parseNow accepts RFC3339 or a bare date (midnight UTC); empty means zero.
func parseNow(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid --now %q: want RFC3339 or YYYY-MM-DD", raw)
}
