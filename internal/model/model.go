package model

// Activity is one scheduled item on one day. JSON names follow the
// persisted planner document so exports stay readable by older builds.
type Activity struct {
	ID string `json:"id"`

	// SeriesID links every instance generated by one recurrence request.
	// Empty for one-off activities and clones.
	SeriesID string `json:"seriesId,omitempty"`

	Title    string `json:"title"`
	Time     string `json:"time"` // HH:MM
	IsAllDay bool   `json:"isAllDay"`

	Icon        string `json:"icon"`
	Color       string `json:"color"`
	CustomColor string `json:"customColor,omitempty"`

	Completed bool `json:"completed"`
}

// Mood is an optional per-day annotation.
type Mood string

const (
	MoodHappy   Mood = "happy"
	MoodSilly   Mood = "silly"
	MoodCalm    Mood = "calm"
	MoodSad     Mood = "sad"
	MoodTired   Mood = "tired"
	MoodExcited Mood = "excited"
)

// Valid reports whether m is empty or one of the known moods.
func (m Mood) Valid() bool {
	switch m {
	case "", MoodHappy, MoodSilly, MoodCalm, MoodSad, MoodTired, MoodExcited:
		return true
	}
	return false
}

// DayRecord holds the activities of one calendar date.
type DayRecord struct {
	Date       string     `json:"date"` // yyyy-MM-dd, always equal to its key in Days
	Mood       Mood       `json:"mood,omitempty"`
	Activities []Activity `json:"activities"`
}

// Days is the whole activity store, keyed by date key.
//
// Values of this type are treated as immutable by the planner package:
// every transformation returns a new map and never writes into its input.
type Days map[string]DayRecord

// Clone returns a shallow copy of the map. DayRecords are values, but their
// Activities slices are shared, so callers must replace, not append in place.
func (d Days) Clone() Days {
	out := make(Days, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// RepeatMode selects how a new activity is expanded into a series.
type RepeatMode string

const (
	RepeatNone   RepeatMode = "none"
	RepeatDaily  RepeatMode = "daily"
	RepeatWeekly RepeatMode = "weekly"
	RepeatCustom RepeatMode = "custom"
)

// Valid reports whether r is one of the supported repeat modes.
func (r RepeatMode) Valid() bool {
	switch r {
	case RepeatNone, RepeatDaily, RepeatWeekly, RepeatCustom:
		return true
	}
	return false
}

// ColorTheme is one of the preset activity background colors.
type ColorTheme struct {
	Name   string `json:"name"`
	Class  string `json:"class"`
	Border string `json:"border"`
	Hex    string `json:"hex"`
}

// IconOption is an icon preset with its default color.
type IconOption struct {
	Label string `json:"label"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

var SchoolColors = []ColorTheme{
	{Name: "Sky", Class: "bg-sky-200", Border: "border-sky-300", Hex: "#bae6fd"},
	{Name: "Emerald", Class: "bg-emerald-200", Border: "border-emerald-300", Hex: "#a7f3d0"},
	{Name: "Amber", Class: "bg-amber-200", Border: "border-amber-300", Hex: "#fde68a"},
	{Name: "Rose", Class: "bg-rose-200", Border: "border-rose-300", Hex: "#fecdd3"},
	{Name: "Indigo", Class: "bg-indigo-200", Border: "border-indigo-300", Hex: "#c7d2fe"},
	{Name: "Orange", Class: "bg-orange-200", Border: "border-orange-300", Hex: "#fed7aa"},
	{Name: "Purple", Class: "bg-purple-200", Border: "border-purple-300", Hex: "#e9d5ff"},
}

var IconOptions = []IconOption{
	{Label: "Math", Icon: "🧮", Color: "bg-blue-200"},
	{Label: "Writing", Icon: "✏️", Color: "bg-yellow-200"},
	{Label: "Reading", Icon: "📖", Color: "bg-green-200"},
	{Label: "Life Skills", Icon: "🧹", Color: "bg-orange-200"},
	{Label: "SLP", Icon: "🗣️", Color: "bg-purple-200"},
	{Label: "OT", Icon: "🧩", Color: "bg-pink-200"},
	{Label: "Field Trip", Icon: "🚌", Color: "bg-red-200"},
	{Label: "Biology", Icon: "🔬", Color: "bg-emerald-200"},
	{Label: "Theater", Icon: "🎭", Color: "bg-indigo-200"},
	{Label: "Pathways", Icon: "🛤️", Color: "bg-cyan-200"},
	{Label: "Advisory", Icon: "🤝", Color: "bg-amber-200"},
	{Label: "Lunch", Icon: "🍱", Color: "bg-rose-200"},
	{Label: "QOTD", Icon: "❓", Color: "bg-sky-200"},
}

// QuickAddLabels are the presets offered for one-click adding.
var QuickAddLabels = []string{"Math", "QOTD", "Lunch", "Reading"}

// IconByLabel looks up an icon preset by its label.
func IconByLabel(label string) (IconOption, bool) {
	for _, o := range IconOptions {
		if o.Label == label {
			return o, true
		}
	}
	return IconOption{}, false
}

// BorderForColor returns the border class paired with a preset color class.
func BorderForColor(class string) string {
	for _, c := range SchoolColors {
		if c.Class == class {
			return c.Border
		}
	}
	return "border-slate-200"
}
