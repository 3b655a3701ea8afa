package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"schoolplanner/internal/log"
	"schoolplanner/internal/metrics"
	"schoolplanner/internal/scheduler"
	"schoolplanner/internal/web"
)

func newServeCmd(a *app) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the planner web UI, JSON API and calendar feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen != "" {
				a.cfg.Listen = listen
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	log.Info("schoolplanner starting",
		"listen", a.cfg.Listen,
		"storage", a.cfg.Storage.Backend,
		"store", a.cfg.Storage.Path,
		"horizon_days", a.cfg.HorizonDays,
		"page_size", a.cfg.Print.PageSize,
		"backup_cron", a.cfg.Backup.Cron,
		"basic_auth", a.cfg.BasicAuth != nil,
	)

	m := metrics.New()
	sess, err := a.open(ctx, m)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sess.Close(closeCtx); err != nil {
			log.Error("final save failed", err)
			return
		}
		log.Info("store saved, exiting")
	}()

	sched := scheduler.New()
	if a.cfg.Backup.Cron != "" {
		b := &scheduler.Backup{
			Source:  sess.planner,
			Dir:     a.cfg.Backup.Dir,
			Keep:    a.cfg.Backup.Keep,
			Observe: m.Backup,
		}
		if err := sched.Add(a.cfg.Backup.Cron, func() { _, _ = b.Run() }); err != nil {
			return fmt.Errorf("backup schedule %q: %w", a.cfg.Backup.Cron, err)
		}
	}
	sched.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := sched.Stop(stopCtx); err != nil {
			log.Warn("scheduler stop timed out", "err", err)
		}
	}()

	return web.NewServer(a.cfg, sess.planner, m).Serve(ctx)
}
