package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"calplan/internal/calendar"
	"calplan/internal/capture"
	"calplan/internal/config"
	appLog "calplan/internal/log"
	"calplan/internal/planner"
	"calplan/internal/store"
)

// nowFunc is the clock handed to the planner; tests pin it.
var nowFunc = time.Now

func main() {
	if err := newRootCmd().Execute(); err != nil {
		appLog.Error("calplan failed", err)
		appLog.Sync()
		os.Exit(1)
	}
	appLog.Sync()
}

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "calplan",
		Short: "Month planner with a web UI, JSON API and terminal views",
		Long: `calplan keeps a personal event collection and shows it as a month grid
with a per-day agenda.

Run "calplan serve" for the web planner, or use the subcommands to work
with events from the terminal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath(), "Path to config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(
		newServeCmd(opts),
		newMonthCmd(opts),
		newAgendaCmd(opts),
		newAddCmd(opts),
		newEditCmd(opts),
		newDeleteCmd(opts),
		newTagsCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newBackupCmd(opts),
		newCaptureCmd(opts),
	)
	return cmd
}

// app is the wiring shared by subcommands: config, storage and planner.
type app struct {
	cfg     *config.Config
	kv      store.KV
	store   *store.EventStore
	planner *planner.Planner
}

func openApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", opts.configPath, err)
	}

	level := appLog.ParseLevel(cfg.LogLevel)
	if opts.verbose {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	kv, err := store.OpenKV(ctx, cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	st, err := store.Open(ctx, kv, cfg.Storage.Key)
	if err != nil {
		kv.Close()
		return nil, err
	}

	appLog.Debug("effective config",
		"config_path", opts.configPath,
		"listen", cfg.Listen,
		"timezone", loc.String(),
		"storage_driver", cfg.Storage.Driver,
		"storage_path", cfg.Storage.Path,
		"tags", len(cfg.Tags),
		"backup_cron", cfg.Backup.Cron,
		"capture_cron", cfg.Capture.Cron,
	)

	return &app{
		cfg:     cfg,
		kv:      kv,
		store:   st,
		planner: planner.New(st, cfg.Tags, planner.WithLocation(loc), planner.WithClock(nowFunc)),
	}, nil
}

func (a *app) Close() error {
	return a.kv.Close()
}

func (a *app) captureOptions() capture.Options {
	opts := capture.Options{
		URL:        a.cfg.Capture.URL,
		OutputPath: a.cfg.Capture.Output,
		Width:      a.cfg.Capture.Width,
		Height:     a.cfg.Capture.Height,
	}
	if a.cfg.BasicAuth != nil {
		opts.Username = a.cfg.BasicAuth.Username
		opts.Password = a.cfg.BasicAuth.Password
	}
	return opts
}

// parseDay reads a YYYY-MM-DD flag value; empty means today.
func (a *app) parseDay(s string) (time.Time, error) {
	if s == "" {
		return calendar.StartOfDay(a.planner.Now()), nil
	}
	day, err := calendar.ParseDayKey(s, a.planner.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: want YYYY-MM-DD", s)
	}
	return day, nil
}
