package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"schoolplanner/internal/config"
	"schoolplanner/internal/log"
	"schoolplanner/internal/metrics"
	"schoolplanner/internal/persist"
	"schoolplanner/internal/planner"
	"schoolplanner/internal/service"
)

// app carries the state shared by every subcommand.
type app struct {
	configPath string
	logLevel   string

	cfg *config.Config
	now func() time.Time
}

func newRootCmd() *cobra.Command {
	a := &app{now: time.Now}

	root := &cobra.Command{
		Use:   "schoolplanner",
		Short: "SchoolPlanner Pro – a weekday activity planner for the classroom",
		Long: `schoolplanner keeps a date-keyed school schedule with repeating
activities, a browser UI with drag and drop, printable fortnight sheets,
JSON backup/restore and iCalendar import/export.

The store lives in a JSON file or a SQLite database, selected in the
YAML config (created with defaults on first run).`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(*cobra.Command, []string) error { return a.load() },
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "./config.yaml", "path to config YAML")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(a),
		newAddCmd(a),
		newListCmd(a),
		newToggleCmd(a),
		newCloneCmd(a),
		newMoveCmd(a),
		newRemoveCmd(a),
		newMoodCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newBackupCmd(a),
		newPrintCmd(a),
		newICSCmd(a),
	)
	return root
}

func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	log.SetLevel(log.ParseLevel(cfg.LogLevel))
	log.Debug("config loaded",
		"path", a.configPath,
		"storage", cfg.Storage.Backend,
		"store", cfg.Storage.Path,
		"horizon_days", cfg.HorizonDays,
	)
	for _, w := range cfg.Warnings() {
		log.Warn("config: " + w)
	}
	a.cfg = cfg
	return nil
}

// session is an opened store with its background saver.
type session struct {
	planner *service.Planner
	backend persist.Backend
	saver   *persist.AsyncSaver
}

// open loads the configured store. m may be nil.
func (a *app) open(ctx context.Context, m *metrics.Metrics) (*session, error) {
	backend, err := persist.Open(ctx, a.cfg.Storage)
	if err != nil {
		return nil, err
	}
	days, err := backend.Load(ctx)
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("load store: %w", err)
	}

	var observe persist.ObserveFunc
	if m != nil {
		observe = m.ObserveSave
	}
	saver := persist.NewAsyncSaver(backend, observe)
	p := service.New(days, planner.Options{HorizonDays: a.cfg.HorizonDays}, saver, m)
	return &session{planner: p, backend: backend, saver: saver}, nil
}

// Close waits for pending saves and releases the backend.
func (s *session) Close(ctx context.Context) error {
	err := s.saver.Close(ctx)
	if cerr := s.backend.Close(); err == nil {
		err = cerr
	}
	return err
}

// withPlanner runs fn against the store and waits for its changes to be
// written before returning.
func (a *app) withPlanner(ctx context.Context, fn func(p *service.Planner) error) error {
	sess, err := a.open(ctx, nil)
	if err != nil {
		return err
	}
	runErr := fn(sess.planner)

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := sess.Close(closeCtx); err != nil {
		if runErr == nil {
			runErr = fmt.Errorf("save store: %w", err)
		} else {
			log.Error("save store failed", err)
		}
	}
	return runErr
}
