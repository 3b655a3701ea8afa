package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"schoolplanner/internal/model"
	"schoolplanner/internal/planner"
	"schoolplanner/internal/service"
)

func newAddCmd(a *app) *cobra.Command {
	var (
		date     string
		preset   string
		days     string
		req      planner.AddRequest
		repeat   string
		allDay   bool
		useColor string
	)
	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Add an activity, optionally repeating on school days",
		Example: `  schoolplanner add "Math Quiz" --date tomorrow --time 10:30 --repeat weekly
  schoolplanner add --preset Lunch --date 2024-03-04
  schoolplanner add "Swim" --repeat custom --days mon,wed`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := resolveDate(date, a.now())
			if err != nil {
				return err
			}
			if preset == "" && len(args) == 0 {
				return errors.New("a title or --preset is required")
			}
			if len(args) == 1 {
				req.Title = args[0]
			}
			req.Repeat = model.RepeatMode(repeat)
			req.IsAllDay = allDay
			req.Color = useColor
			if days != "" {
				if req.CustomDays, err = parseWeekdays(days); err != nil {
					return err
				}
			}
			if req.Repeat == model.RepeatCustom && len(req.CustomDays) == 0 {
				d, _ := planner.ParseDateKey(key)
				req.CustomDays = append(req.CustomDays, d.Weekday())
			}

			return a.withPlanner(cmd.Context(), func(p *service.Planner) error {
				var res planner.AddResult
				if preset != "" {
					res, err = p.QuickAdd(key, preset)
				} else {
					res, err = p.Add(key, req)
				}
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Added %d activit%s", len(res.IDs), plural(len(res.IDs), "y", "ies"))
				if res.SeriesID != "" {
					fmt.Fprintf(out, " (series %s, %s to %s)", res.SeriesID, res.Dates[0], res.Dates[len(res.Dates)-1])
				} else {
					fmt.Fprintf(out, " on %s: %s", res.Dates[0], res.IDs[0])
				}
				fmt.Fprintln(out)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&date, "date", "", "anchor date: yyyy-MM-dd or a phrase like \"next monday\" (default today)")
	f.StringVar(&preset, "preset", "", "quick-add preset: Math, QOTD, Lunch or Reading")
	f.StringVar(&req.Time, "time", planner.DefaultTime, "start time HH:MM")
	f.BoolVar(&allDay, "all-day", false, "all-day activity")
	f.StringVar(&req.Icon, "icon", "✏️", "icon")
	f.StringVar(&useColor, "color", "bg-indigo-100", "preset color class")
	f.StringVar(&req.CustomColor, "custom-color", "", "custom background color, e.g. #ff8800")
	f.StringVar(&repeat, "repeat", string(model.RepeatNone), "none, daily, weekly or custom")
	f.StringVar(&days, "days", "", "school days for --repeat custom, e.g. mon,wed,fri")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "list [date]",
		Short: "List activities of a day or a date range",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := a.now()
			if len(args) == 1 {
				from, to = args[0], args[0]
			}
			fromKey, err := resolveDate(from, now)
			if err != nil {
				return err
			}
			toKey := fromKey
			if to != "" {
				if toKey, err = resolveDate(to, now); err != nil {
					return err
				}
			}
			return a.withPlanner(cmd.Context(), func(p *service.Planner) error {
				days, err := p.Range(fromKey, toKey)
				if err != nil {
					return err
				}
				if len(days) == 0 {
					fromDay, _ := p.Day(fromKey)
					days = model.Days{fromKey: fromDay}
				}
				writeDays(cmd.OutOrStdout(), days)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first date (default today)")
	cmd.Flags().StringVar(&to, "to", "", "last date (default --from)")
	return cmd
}

func newToggleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <date> <id>",
		Short: "Mark an activity done, or not done",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := resolveDate(args[0], a.now())
			if err != nil {
				return err
			}
			return a.withPlanner(cmd.Context(), func(p *service.Planner) error {
				act, err := p.Toggle(key, args[1])
				if err != nil {
					return err
				}
				state := "not done"
				if act.Completed {
					state = "done"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is %s\n", act.Title, state)
				return nil
			})
		},
	}
}

func newCloneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clone <date> <id>",
		Short: "Duplicate an activity on the same day",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := resolveDate(args[0], a.now())
			if err != nil {
				return err
			}
			return a.withPlanner(cmd.Context(), func(p *service.Planner) error {
				act, err := p.Clone(key, args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cloned %s: %s\n", act.Title, act.ID)
				return nil
			})
		},
	}
}

func newMoveCmd(a *app) *cobra.Command {
	var copyOnly bool
	cmd := &cobra.Command{
		Use:   "move <from> <to> <id>",
		Short: "Move an activity to another day (--copy keeps the original)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := a.now()
			fromKey, err := resolveDate(args[0], now)
			if err != nil {
				return err
			}
			toKey, err := resolveDate(args[1], now)
			if err != nil {
				return err
			}
			return a.withPlanner(cmd.Context(), func(p *service.Planner) error {
				act, err := p.Relocate(fromKey, toKey, args[2], planner.Modifiers{Alt: copyOnly})
				if err != nil {
					return err
				}
				verb := "Moved"
				if copyOnly {
					verb = "Copied"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s to %s: %s\n", verb, act.Title, toKey, act.ID)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&copyOnly, "copy", false, "copy instead of move")
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	var series, single bool
	cmd := &cobra.Command{
		Use:   "remove <date> <id>",
		Short: "Remove an activity or its whole repeating series",
		Long: `Remove an activity. For a repeating activity you are asked whether to
delete the entire series unless --series or --single is given.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if series && single {
				return errors.New("--series and --single are mutually exclusive")
			}
			key, err := resolveDate(args[0], a.now())
			if err != nil {
				return err
			}
			var scope planner.Scope
			switch {
			case series:
				scope = planner.ScopeSeries
			case single:
				scope = planner.ScopeSingle
			}
			return a.withPlanner(cmd.Context(), func(p *service.Planner) error {
				_, removed, err := p.Remove(key, args[1], scope)
				if errors.Is(err, service.ErrScopeRequired) {
					scope = planner.ScopeSingle
					if confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Delete the ENTIRE RECURRING SERIES? (no removes just this one)") {
						scope = planner.ScopeSeries
					}
					_, removed, err = p.Remove(key, args[1], scope)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d activit%s\n", removed, plural(removed, "y", "ies"))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&series, "series", false, "remove every instance of the series")
	cmd.Flags().BoolVar(&single, "single", false, "remove only this instance")
	return cmd
}

func newMoodCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "mood <date> [happy|silly|calm|sad|tired|excited]",
		Short:     "Set the mood of a day; omit the mood to clear it",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{"happy", "silly", "calm", "sad", "tired", "excited"},
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := resolveDate(args[0], a.now())
			if err != nil {
				return err
			}
			var mood model.Mood
			if len(args) == 2 {
				mood = model.Mood(strings.ToLower(args[1]))
			}
			return a.withPlanner(cmd.Context(), func(p *service.Planner) error {
				return p.SetMood(key, mood)
			})
		},
	}
}

func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	line, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func writeDays(w io.Writer, days model.Days) {
	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		rec := days[key]
		header := key
		if d, err := planner.ParseDateKey(key); err == nil {
			header += " " + d.Weekday().String()
		}
		if rec.Mood != "" {
			header += " (" + string(rec.Mood) + ")"
		}
		fmt.Fprintln(w, header)
		acts := planner.Sorted(rec.Activities)
		if len(acts) == 0 {
			fmt.Fprintln(w, "  no tasks yet")
			continue
		}
		for _, act := range acts {
			check := " "
			if act.Completed {
				check = "x"
			}
			at := act.Time
			if act.IsAllDay {
				at = "All Day"
			}
			line := fmt.Sprintf("  [%s] %-7s %s %s  %s", check, at, act.Icon, act.Title, act.ID)
			if act.SeriesID != "" {
				line += " ↻"
			}
			fmt.Fprintln(w, line)
		}
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
