package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"regexp"
	"time"

	"schoolplanner/internal/ics"
	"schoolplanner/internal/log"
	"schoolplanner/internal/model"
	"schoolplanner/internal/planner"
	"schoolplanner/internal/service"
	"schoolplanner/internal/transfer"
)

const maxImportBytes = 10 << 20

var (
	errBadRequest = errors.New("bad request")
	hexColor      = regexp.MustCompile(`^#[0-9a-fA-F]{3}([0-9a-fA-F]{3})?$`)
)

// addBody is the JSON body of POST /api/days/{date}/activities. When
// Preset names a quick-add icon the other fields are ignored.
type addBody struct {
	Preset      string           `json:"preset,omitempty"`
	Title       string           `json:"title"`
	Time        string           `json:"time"`
	IsAllDay    bool             `json:"isAllDay"`
	Icon        string           `json:"icon"`
	Color       string           `json:"color"`
	CustomColor string           `json:"customColor"`
	Repeat      model.RepeatMode `json:"repeat"`
	CustomDays  []int            `json:"customDays"`
}

type addResponse struct {
	SeriesID string   `json:"seriesId,omitempty"`
	Dates    []string `json:"dates"`
	IDs      []string `json:"ids"`
}

type removeResponse struct {
	Removed int                 `json:"removed"`
	Plan    planner.RemovalPlan `json:"plan"`
}

type scopeRequiredResponse struct {
	Error string `json:"error"`
	planner.RemovalPlan
}

type relocateBody struct {
	ActivityID string `json:"activityId"`
	From       string `json:"from"`
	To         string `json:"to"`
	planner.Modifiers
}

type moodBody struct {
	Mood model.Mood `json:"mood"`
}

type importResponse struct {
	Imported int    `json:"imported"`
	Message  string `json:"message"`
}

type printPageDTO struct {
	Start string        `json:"start"`
	End   string        `json:"end"`
	Range string        `json:"range"`
	Days  []printDayDTO `json:"days"`
}

type printDayDTO struct {
	Date       string           `json:"date"`
	Weekday    string           `json:"weekday"`
	Activities []model.Activity `json:"activities"`
}

type paletteResponse struct {
	Colors   []model.ColorTheme `json:"colors"`
	Icons    []model.IconOption `json:"icons"`
	QuickAdd []model.IconOption `json:"quickAdd"`
	Moods    []model.Mood       `json:"moods"`
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

// GET /api/days?from=YYYY-MM-DD&to=YYYY-MM-DD
func (s *Server) handleListDays(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}
	days, err := s.planner.Range(from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

func (s *Server) handleGetDay(w http.ResponseWriter, r *http.Request) {
	rec, err := s.planner.Day(r.PathValue("date"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	var body addBody
	if err := decodeJSON(r, &body); err != nil {
		writeServiceError(w, err)
		return
	}

	var (
		res planner.AddResult
		err error
	)
	if body.Preset != "" {
		res, err = s.planner.QuickAdd(date, body.Preset)
		if err != nil && !errors.Is(err, planner.ErrInvalidDateKey) {
			err = fmt.Errorf("%w: %v", errBadRequest, err)
		}
	} else {
		var req planner.AddRequest
		req, err = body.request()
		if err == nil {
			res, err = s.planner.Add(date, req)
		}
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, addResponse{SeriesID: res.SeriesID, Dates: res.Dates, IDs: res.IDs})
}

func (b addBody) request() (planner.AddRequest, error) {
	if b.CustomColor != "" && !hexColor.MatchString(b.CustomColor) {
		return planner.AddRequest{}, fmt.Errorf("%w: customColor must be #rgb or #rrggbb", errBadRequest)
	}
	days := make([]time.Weekday, 0, len(b.CustomDays))
	for _, d := range b.CustomDays {
		if d < 0 || d > 6 {
			return planner.AddRequest{}, fmt.Errorf("%w: customDays entries must be 0-6", errBadRequest)
		}
		days = append(days, time.Weekday(d))
	}
	if b.IsAllDay && b.Time == "" {
		b.Time = planner.DefaultTime
	}
	return planner.AddRequest{
		Title:       b.Title,
		Time:        b.Time,
		IsAllDay:    b.IsAllDay,
		Icon:        b.Icon,
		Color:       b.Color,
		CustomColor: b.CustomColor,
		Repeat:      b.Repeat,
		CustomDays:  days,
	}, nil
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	a, err := s.planner.Toggle(r.PathValue("date"), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleClone(w http.ResponseWriter, r *http.Request) {
	a, err := s.planner.Clone(r.PathValue("date"), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// DELETE /api/days/{date}/activities/{id}?scope=single|series
//
// A series member without a scope gets 409 and the removal plan; the
// client asks the user and repeats the request with a scope.
func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	scope := planner.Scope(r.URL.Query().Get("scope"))
	plan, removed, err := s.planner.Remove(r.PathValue("date"), r.PathValue("id"), scope)
	if errors.Is(err, service.ErrScopeRequired) {
		writeJSON(w, http.StatusConflict, scopeRequiredResponse{Error: err.Error(), RemovalPlan: plan})
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, removeResponse{Removed: removed, Plan: plan})
}

func (s *Server) handleMood(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	var body moodBody
	if err := decodeJSON(r, &body); err != nil {
		writeServiceError(w, err)
		return
	}
	if err := s.planner.SetMood(date, body.Mood); err != nil {
		writeServiceError(w, err)
		return
	}
	rec, _ := s.planner.Day(date)
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleRelocate(w http.ResponseWriter, r *http.Request) {
	var body relocateBody
	if err := decodeJSON(r, &body); err != nil {
		writeServiceError(w, err)
		return
	}
	a, err := s.planner.Relocate(body.From, body.To, body.ActivityID, body.Modifiers)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	data, err := s.planner.Export()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	name := transfer.Filename(s.Now())
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	_, _ = w.Write(data)
}

// POST /api/import accepts the export document either as the raw request
// body or as the "file" field of a multipart form.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	var (
		data []byte
		err  error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		data, err = readFormFile(r, "file")
	} else {
		data, err = io.ReadAll(r.Body)
	}
	if err != nil {
		log.Warn("import upload unreadable", "err", err)
		writeError(w, http.StatusBadRequest, "Invalid file format.")
		return
	}

	n, err := s.planner.Import(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid file format.")
		return
	}
	writeJSON(w, http.StatusOK, importResponse{Imported: n, Message: "Schedule imported successfully!"})
}

func readFormFile(r *http.Request, field string) ([]byte, error) {
	f, _, err := r.FormFile(field)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// GET /api/print-pages?month=YYYY-MM
func (s *Server) handlePrintPages(w http.ResponseWriter, r *http.Request) {
	month, err := s.monthParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	size := parseIntDefault(r.URL.Query().Get("pageSize"), s.pageSize())
	if size <= 0 {
		size = s.pageSize()
	}

	snap := s.planner.Snapshot()
	pages := planner.PrintPages(month, size)
	out := make([]printPageDTO, 0, len(pages))
	for _, page := range pages {
		dto := printPageDTO{
			Start: planner.DateKey(page[0]),
			End:   planner.DateKey(page[len(page)-1]),
			Range: rangeLabel(page),
			Days:  make([]printDayDTO, 0, len(page)),
		}
		for _, d := range page {
			key := planner.DateKey(d)
			dto.Days = append(dto.Days, printDayDTO{
				Date:       key,
				Weekday:    d.Weekday().String(),
				Activities: planner.Sorted(planner.Day(snap, key).Activities),
			})
		}
		out = append(out, dto)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePalette(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, paletteResponse{
		Colors:   model.SchoolColors,
		Icons:    model.IconOptions,
		QuickAdd: quickAddPresets(),
		Moods:    moods,
	})
}

func (s *Server) handleICS(w http.ResponseWriter, _ *http.Request) {
	body := ics.Encode(s.planner.Snapshot(), s.Location, s.Now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="school-schedule.ics"`)
	_, _ = io.WriteString(w, body)
}

// monthParam reads ?month=YYYY-MM, defaulting to the current month.
func (s *Server) monthParam(r *http.Request) (time.Time, error) {
	v := r.URL.Query().Get("month")
	if v == "" {
		t := s.today()
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	}
	return planner.ParseMonth(v)
}

func quickAddPresets() []model.IconOption {
	out := make([]model.IconOption, 0, len(model.QuickAddLabels))
	for _, label := range model.QuickAddLabels {
		if o, ok := model.IconByLabel(label); ok {
			out = append(out, o)
		}
	}
	return out
}
