package ics

import (
	"errors"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"calplan/internal/calendar"
	appLog "calplan/internal/log"
	"calplan/internal/model"
)

const (
	defaultMaxOccurrencesPerSeries = 500

	untitled = "(untitled)"
)

// FlattenConfig controls how imported events become planner events.
type FlattenConfig struct {
	// Location is the planner's display zone. If nil, time.Local is used.
	Location *time.Location

	// RangeStart / RangeEnd bound the imported window, inclusive.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerSeries caps how many instances one RRULE series may
	// contribute. If zero, defaultMaxOccurrencesPerSeries is used.
	MaxOccurrencesPerSeries int
}

type FlattenResult struct {
	Events []model.CalendarEvent
	// Truncated records UIDs that hit MaxOccurrencesPerSeries.
	Truncated []string
}

// Flatten converts parsed VEVENTs into independent one-off events inside the
// configured window. Recurring series are expanded (RRULE with EXDATE and
// RECURRENCE-ID overrides applied); each instance becomes its own event, so
// the planner never stores a rule.
func Flatten(events []ParsedEvent, cfg FlattenConfig) (FlattenResult, error) {
	var result FlattenResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("flatten: RangeEnd is before RangeStart")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxOccurrencesPerSeries <= 0 {
		cfg.MaxOccurrencesPerSeries = defaultMaxOccurrencesPerSeries
	}

	// Group base events and overrides by UID, keeping first-seen order so
	// the import is deterministic.
	var order []string
	baseByUID := make(map[string][]ParsedEvent)
	overridesByUID := make(map[string][]ParsedEvent)
	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
			continue
		}
		if _, seen := baseByUID[ev.UID]; !seen {
			order = append(order, ev.UID)
		}
		baseByUID[ev.UID] = append(baseByUID[ev.UID], ev)
	}

	out := make([]model.CalendarEvent, 0)
	for _, uid := range order {
		ov := overridesByUID[uid]
		truncated := false
		for _, ev := range baseByUID[uid] {
			var occ []model.CalendarEvent
			hitCap := false
			if ev.RawRRule == "" {
				occ = flattenSingle(ev, ov, cfg)
			} else {
				occ, hitCap = flattenSeries(ev, ov, cfg)
			}
			truncated = truncated || hitCap
			out = append(out, occ...)
		}
		if truncated {
			result.Truncated = append(result.Truncated, uid)
			appLog.Error("flatten: series truncated",
				errors.New("max occurrences reached"),
				"uid", uid,
				"cap", cfg.MaxOccurrencesPerSeries,
			)
		}
	}

	result.Events = out
	return result, nil
}

func flattenSingle(ev ParsedEvent, overrides []ParsedEvent, cfg FlattenConfig) []model.CalendarEvent {
	if !overlaps(ev.Start, ev.End, cfg.RangeStart, cfg.RangeEnd) {
		return nil
	}
	start, end := ev.Start, ev.End
	if o, ok := findOverride(overrides, start); ok {
		ev, start, end = o, o.Start, o.End
	}
	return []model.CalendarEvent{toEvent(ev, start, end, cfg.Location)}
}

func flattenSeries(ev ParsedEvent, overrides []ParsedEvent, cfg FlattenConfig) ([]model.CalendarEvent, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("flatten: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	rangeStart := cfg.RangeStart.In(ev.Start.Location())
	rangeEnd := cfg.RangeEnd.In(ev.Start.Location())
	starts := set.Between(rangeStart, rangeEnd, true)

	hitCap := false
	if len(starts) > cfg.MaxOccurrencesPerSeries {
		starts = starts[:cfg.MaxOccurrencesPerSeries]
		hitCap = true
	}

	dur := ev.End.Sub(ev.Start)
	out := make([]model.CalendarEvent, 0, len(starts))
	for _, s := range starts {
		base, start, end := ev, s, s.Add(dur)
		if o, ok := findOverride(overrides, s); ok {
			base, start, end = o, o.Start, o.End
		}
		out = append(out, toEvent(base, start, end, cfg.Location))
	}
	return out, hitCap
}

// findOverride finds the override whose RECURRENCE-ID equals start.
func findOverride(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

// toEvent maps one concrete instance onto a planner event in loc. All-day
// instances keep their calendar date; timed ones get HH:MM clocks, with an
// end clock only when the instance ends later on the same day.
func toEvent(ev ParsedEvent, start, end time.Time, loc *time.Location) model.CalendarEvent {
	out := model.CalendarEvent{
		Title:       strings.TrimSpace(ev.Summary),
		Description: describe(ev),
	}
	if out.Title == "" {
		out.Title = untitled
	}
	if len(ev.Categories) > 0 {
		out.Tag = ev.Categories[0]
	}

	if ev.AllDay {
		y, m, d := start.Date()
		out.StartDate = time.Date(y, m, d, 0, 0, 0, 0, loc)
		return out
	}

	localStart := start.In(loc)
	out.StartDate = localStart
	out.StartTime = localStart.Format("15:04")

	if end.After(start) {
		localEnd := end.In(loc)
		out.EndDate = &localEnd
		if calendar.SameDay(localStart, localEnd) {
			out.EndTime = localEnd.Format("15:04")
		}
	}
	return out
}

func describe(ev ParsedEvent) string {
	desc := strings.TrimSpace(ev.Description)
	loc := strings.TrimSpace(ev.Location)
	switch {
	case loc == "":
		return desc
	case desc == "":
		return "Location: " + loc
	default:
		return desc + "\nLocation: " + loc
	}
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aEnd.Before(bStart) {
		return false
	}
	if bEnd.Before(aStart) {
		return false
	}
	return true
}

// DefaultWindow is the import range used when none is given: one year on
// either side of now's day.
func DefaultWindow(now time.Time) (start, end time.Time) {
	day := calendar.StartOfDay(now)
	return day.AddDate(-1, 0, 0), day.AddDate(1, 0, 0)
}

// Convert parses body and flattens the result with cfg.
func Convert(src Source, body []byte, cfg FlattenConfig) (FlattenResult, error) {
	parsed, err := ParseICS(src, body)
	if err != nil {
		return FlattenResult{}, err
	}
	return Flatten(parsed, cfg)
}
