package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"schoolplanner/internal/config"
	"schoolplanner/internal/scheduler"
	"schoolplanner/internal/service"
	"schoolplanner/internal/transfer"
)

func newExportCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the whole schedule as JSON",
		Long: `Write the whole schedule as a JSON document keyed by date. Without
--output the document goes to stdout; "--output auto" uses the dated
file name school-schedule-YYYY-MM-DD.json.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withPlanner(cmd.Context(), func(p *service.Planner) error {
				data, err := p.Export()
				if err != nil {
					return err
				}
				switch output {
				case "":
					_, err = cmd.OutOrStdout().Write(append(data, '\n'))
					return err
				case "auto":
					output = transfer.Filename(a.now())
				}
				if err := config.WriteFileAtomic(output, data); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (\"auto\" for a dated name)")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Merge a JSON export into the schedule",
		Long: `Merge a JSON export into the schedule. Every date in the file replaces
that date in the store; other dates are left alone.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return a.withPlanner(cmd.Context(), func(p *service.Planner) error {
				n, err := p.Import(data)
				if err != nil {
					return fmt.Errorf("import %s: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Schedule imported successfully! (%d day%s)\n", n, plural(n, "", "s"))
				return nil
			})
		},
	}
}

func newBackupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Write one timestamped backup into the backup directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withPlanner(cmd.Context(), func(p *service.Planner) error {
				b := &scheduler.Backup{Source: p, Dir: a.cfg.Backup.Dir, Keep: a.cfg.Backup.Keep, Now: a.now}
				path, err := b.Run()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", path)
				return nil
			})
		},
	}
}
