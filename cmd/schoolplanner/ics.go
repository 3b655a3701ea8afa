package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"schoolplanner/internal/config"
	"schoolplanner/internal/ics"
	"schoolplanner/internal/planner"
	"schoolplanner/internal/service"
)

func newICSCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ics",
		Short: "Exchange the schedule with iCalendar (.ics) calendars",
	}
	cmd.AddCommand(newICSExportCmd(a), newICSImportCmd(a))
	return cmd
}

func newICSExportCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the schedule as an iCalendar file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withPlanner(cmd.Context(), func(p *service.Planner) error {
				body := ics.Encode(p.Snapshot(), time.Local, a.now())
				if output == "" {
					_, err := fmt.Fprint(cmd.OutOrStdout(), body)
					return err
				}
				if err := config.WriteFileAtomic(output, []byte(body)); err != nil {
					return fmt.Errorf("write calendar: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newICSImportCmd(a *app) *cobra.Command {
	var (
		from string
		days int
	)
	cmd := &cobra.Command{
		Use:   "import <url|file>",
		Short: "Add the weekday events of a school calendar as activities",
		Long: `Add the events of an iCalendar feed or file as activities. Recurring
events are expanded, weekend dates are skipped, and each calendar event
becomes one series so it can be removed as a whole. Remote feeds are
cached and revalidated with ETag/Last-Modified.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := resolveDate(from, a.now())
			if err != nil {
				return err
			}
			start, _ := planner.ParseDateKey(key)
			if days <= 0 {
				days = a.cfg.HorizonDays
			}

			im := &ics.Importer{
				Fetcher:  ics.NewFetcher(a.cfg.ICS.CacheDir),
				NewID:    planner.NewID,
				Location: time.Local,
			}
			body, err := im.Read(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			batch, err := im.Batch(body, start, days)
			if err != nil {
				return err
			}
			return a.withPlanner(cmd.Context(), func(p *service.Planner) error {
				n, err := p.InsertBatch("ics_import", batch)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d activit%s on %d day%s\n",
					n, plural(n, "y", "ies"), len(batch), plural(len(batch), "", "s"))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first date to import (default today)")
	cmd.Flags().IntVar(&days, "days", 0, "number of days to import (default horizon_days)")
	return cmd
}
