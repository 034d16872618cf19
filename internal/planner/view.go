package planner

import (
	"net/url"
	"strings"
	"time"

	"calplan/internal/calendar"
)

// View is the root-view state: which month the grid shows, which day is
// selected, which event (if any) is being edited and the active tag filter.
// Transitions return a new View and never touch the store.
type View struct {
	Month     time.Time
	Selected  time.Time
	EditingID string
	ActiveTag string
}

// NewView starts on today's month with today selected.
func NewView(now time.Time) View {
	today := calendar.StartOfDay(now)
	return View{Month: today, Selected: today}
}

// SelectDay selects d, moves the grid to d's month and leaves edit mode.
func (v View) SelectDay(d time.Time) View {
	day := calendar.StartOfDay(d)
	v.Selected = day
	v.Month = day
	v.EditingID = ""
	return v
}

func (v View) ShiftMonth(offset int) View {
	v.Month = calendar.AddMonths(v.Month, offset)
	return v
}

func (v View) Today(now time.Time) View {
	return v.SelectDay(now.In(v.Selected.Location()))
}

// ToggleTag activates tag, or clears the filter when tag is already active.
func (v View) ToggleTag(tag string) View {
	if v.ActiveTag == tag {
		v.ActiveTag = ""
	} else {
		v.ActiveTag = tag
	}
	return v
}

func (v View) ClearTag() View {
	v.ActiveTag = ""
	return v
}

func (v View) CancelEdit() View {
	v.EditingID = ""
	return v
}

func (v View) Editing() bool {
	return v.EditingID != ""
}

// Values encodes the view as URL query parameters.
func (v View) Values() url.Values {
	q := url.Values{}
	q.Set("month", calendar.DayKey(v.Month))
	q.Set("day", calendar.DayKey(v.Selected))
	if v.EditingID != "" {
		q.Set("edit", v.EditingID)
	}
	if v.ActiveTag != "" {
		q.Set("tag", v.ActiveTag)
	}
	return q
}

// Query is Values encoded, ready to append after "?".
func (v View) Query() string {
	return v.Values().Encode()
}

// ParseView rebuilds a View from query parameters. Missing or malformed
// dates fall back to today; a missing month follows the selected day.
func ParseView(q url.Values, now time.Time, loc *time.Location) View {
	if loc == nil {
		loc = time.Local
	}
	v := NewView(now.In(loc))

	if d, err := calendar.ParseDayKey(q.Get("day"), loc); err == nil {
		v.Selected = d
		v.Month = d
	}
	if m, err := calendar.ParseDayKey(q.Get("month"), loc); err == nil {
		v.Month = m
	}
	v.EditingID = strings.TrimSpace(q.Get("edit"))
	v.ActiveTag = strings.TrimSpace(q.Get("tag"))
	return v
}
