package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"schoolplanner/internal/capture"
	"schoolplanner/internal/log"
	"schoolplanner/internal/planner"
	"schoolplanner/internal/service"
	"schoolplanner/internal/web"
)

func newPrintCmd(a *app) *cobra.Command {
	var (
		month   string
		output  string
		baseURL string
	)
	cmd := &cobra.Command{
		Use:   "print",
		Short: "Render the printable schedule of a month to PDF or PNG",
		Long: `Render the print view (two school weeks per page) with headless Chromium.

Without --url a temporary local server is started on the current store;
with --url a running "schoolplanner serve" is used instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := resolveMonth(month, a.now())
			if err != nil {
				return err
			}
			if output == "" {
				output = "school-schedule-" + m.Format(planner.MonthLayout) + ".pdf"
			}
			opts := capture.Options{
				OutputPath: output,
				Timeout:    time.Duration(a.cfg.Chromium.TimeoutSec) * time.Second,
			}
			if a.cfg.BasicAuth != nil {
				opts.Username = a.cfg.BasicAuth.Username
				opts.Password = a.cfg.BasicAuth.Password
			}

			render := func(base string) error {
				opts.URL = printURL(base, m)
				if err := capture.Render(cmd.Context(), opts); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Printed %s to %s\n", m.Format("January 2006"), output)
				return nil
			}
			if baseURL != "" {
				return render(baseURL)
			}
			return a.withPlanner(cmd.Context(), func(p *service.Planner) error {
				return servePrivately(cmd.Context(), a, p, render)
			})
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month to print as yyyy-MM, or any date in it (default current)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output .pdf or .png (default school-schedule-<month>.pdf)")
	cmd.Flags().StringVar(&baseURL, "url", "", "base URL of a running server, e.g. http://127.0.0.1:8080")
	return cmd
}

func printURL(base string, month time.Time) string {
	q := url.Values{"month": {month.Format(planner.MonthLayout)}}
	return strings.TrimRight(base, "/") + "/print?" + q.Encode()
}

// servePrivately runs the web UI on a loopback port for the duration of fn.
func servePrivately(ctx context.Context, a *app, p *service.Planner, fn func(base string) error) error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	s := web.NewServer(a.cfg, p, nil)
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	log.Debug("print server listening", "addr", ln.Addr().String())

	runErr := fn("http://" + ln.Addr().String())

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("print server shutdown", "err", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Warn("print server stopped", "err", err)
	}
	return runErr
}
