package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"calplan/internal/jobs"
	appLog "calplan/internal/log"
	"calplan/internal/web"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web planner and scheduled jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			// CLI --listen overrides config file listen if provided.
			if listen != "" {
				a.cfg.Listen = listen
			}
			return runServe(ctx, a)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

// runServe runs the HTTP server and the scheduler until ctx is canceled or
// either of them fails.
func runServe(ctx context.Context, a *app) error {
	sched := jobs.NewScheduler(a.planner.Location())
	if err := sched.Add("backup", a.cfg.Backup.Cron, jobs.BackupJob(a.store, a.cfg.Backup.Dir, a.cfg.Backup.Keep)); err != nil {
		return err
	}
	if err := sched.Add("capture", a.cfg.Capture.Cron, jobs.CaptureJob(a.captureOptions())); err != nil {
		return err
	}

	httpSrv := web.NewServer(a.cfg, a.planner, a.store).HTTPServer()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		appLog.Info("starting HTTP server", "listen", "http://"+a.cfg.Listen, "events", a.store.Len())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		appLog.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return sched.Run(gctx)
	})

	err := g.Wait()
	appLog.Info("calplan exiting")
	return err
}
