package web

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"schoolplanner/internal/log"
	"schoolplanner/internal/model"
	"schoolplanner/internal/planner"
)

// gridPreview is how many activities a month cell shows before "+N items".
const gridPreview = 4

var moods = []model.Mood{
	model.MoodHappy, model.MoodSilly, model.MoodCalm,
	model.MoodSad, model.MoodTired, model.MoodExcited,
}

var moodIcons = map[model.Mood]string{
	model.MoodHappy:   "😊",
	model.MoodSilly:   "🤪",
	model.MoodCalm:    "😌",
	model.MoodSad:     "😢",
	model.MoodTired:   "😴",
	model.MoodExcited: "🤩",
}

var templateFuncs = template.FuncMap{
	"moodIcon": func(m model.Mood) string { return moodIcons[m] },
}

type activityView struct {
	model.Activity
	Date      string
	Border    string
	TimeLabel string
}

type cellView struct {
	Date       string
	DayNum     int
	InMonth    bool
	Selected   bool
	Today      bool
	Mood       model.Mood
	Activities []activityView
	More       int
}

type dayPanelView struct {
	Date       string
	Weekday    string
	Title      string
	Mood       model.Mood
	Activities []activityView
}

type indexView struct {
	MonthTitle string
	Month      string
	PrevMonth  string
	NextMonth  string
	Weekdays   []string
	Cells      []cellView
	Day        dayPanelView
	Moods      []model.Mood
	QuickAdd   []model.IconOption
	Colors     []model.ColorTheme
	Icons      []model.IconOption
}

type printDayView struct {
	Weekday    string
	Label      string
	Activities []activityView
}

type printPageView struct {
	Range string
	Days  []printDayView
}

type printView struct {
	Month string
	Pages []printPageView
	Auto  bool
}

// GET /?month=YYYY-MM&date=YYYY-MM-DD
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	today := s.today()

	selected := today
	if v := q.Get("date"); v != "" {
		d, err := planner.ParseDateKey(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		selected = d
	}
	month := time.Date(selected.Year(), selected.Month(), 1, 0, 0, 0, 0, time.UTC)
	if v := q.Get("month"); v != "" {
		m, err := planner.ParseMonth(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		month = m
	}

	snap := s.planner.Snapshot()
	selKey := planner.DateKey(selected)
	todayKey := planner.DateKey(today)

	view := indexView{
		MonthTitle: month.Format("January 2006"),
		Month:      month.Format(planner.MonthLayout),
		PrevMonth:  month.AddDate(0, -1, 0).Format(planner.MonthLayout),
		NextMonth:  month.AddDate(0, 1, 0).Format(planner.MonthLayout),
		Weekdays:   []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"},
		Moods:      moods,
		QuickAdd:   quickAddPresets(),
		Colors:     model.SchoolColors,
		Icons:      model.IconOptions,
	}

	for _, d := range planner.MonthWeekdays(month) {
		key := planner.DateKey(d)
		rec := planner.Day(snap, key)
		cell := cellView{
			Date:     key,
			DayNum:   d.Day(),
			InMonth:  planner.InMonth(d, month),
			Selected: key == selKey,
			Today:    key == todayKey,
			Mood:     rec.Mood,
		}
		acts := rec.Activities
		if len(acts) > gridPreview {
			cell.More = len(acts) - gridPreview
			acts = acts[:gridPreview]
		}
		cell.Activities = activityViews(key, acts)
		view.Cells = append(view.Cells, cell)
	}

	rec := planner.Day(snap, selKey)
	view.Day = dayPanelView{
		Date:       selKey,
		Weekday:    selected.Weekday().String(),
		Title:      selected.Format("January ") + ordinal(selected.Day()),
		Mood:       rec.Mood,
		Activities: activityViews(selKey, planner.Sorted(rec.Activities)),
	}

	s.render(w, "index.html", view)
}

// GET /print?month=YYYY-MM[&auto=1]
func (s *Server) handlePrint(w http.ResponseWriter, r *http.Request) {
	month, err := s.monthParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	snap := s.planner.Snapshot()

	view := printView{
		Month: month.Format(planner.MonthLayout),
		Auto:  r.URL.Query().Get("auto") == "1",
	}
	for _, page := range planner.PrintPages(month, s.pageSize()) {
		pv := printPageView{Range: rangeLabel(page)}
		for _, d := range page {
			key := planner.DateKey(d)
			pv.Days = append(pv.Days, printDayView{
				Weekday:    d.Weekday().String(),
				Label:      d.Format("Jan 2"),
				Activities: activityViews(key, planner.Sorted(planner.Day(snap, key).Activities)),
			})
		}
		view.Pages = append(view.Pages, pv)
	}

	s.render(w, "print.html", view)
}

// render executes into a buffer first so a template error never leaves a
// half-written page behind.
func (s *Server) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		log.Error("template render failed", err, "template", name)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func activityViews(dateKey string, acts []model.Activity) []activityView {
	out := make([]activityView, 0, len(acts))
	for _, a := range acts {
		v := activityView{Activity: a, Date: dateKey, TimeLabel: a.Time}
		if a.IsAllDay {
			v.TimeLabel = "All Day"
		}
		v.Border = "border-slate-200"
		if a.CustomColor == "" {
			v.Border = model.BorderForColor(a.Color)
		}
		out = append(out, v)
	}
	return out
}

// rangeLabel renders "Mar 4 – Mar 15, 2024" for a page of dates.
func rangeLabel(page []time.Time) string {
	if len(page) == 0 {
		return ""
	}
	return page[0].Format("Jan 2") + " – " + page[len(page)-1].Format("Jan 2, 2006")
}

func ordinal(n int) string {
	suffix := "th"
	switch {
	case n%100 >= 11 && n%100 <= 13:
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
