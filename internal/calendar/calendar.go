// Package calendar holds the date arithmetic behind the month grid and
// agenda: week-aligned month matrices, day keys and day membership.
package calendar

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"calplan/internal/model"
)

const (
	// Rows and Cols of a month matrix. 6 full weeks always cover a month
	// plus its leading/trailing overflow days.
	Rows = 6
	Cols = 7

	// DayKeyLayout is the normalized day representation used for every
	// day comparison.
	DayKeyLayout = time.DateOnly
)

// WeekdayLabels are the grid column headers, Monday first.
var WeekdayLabels = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

var ErrInvalidClock = errors.New("invalid time of day")

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayKey formats t as "YYYY-MM-DD" in its own location.
func DayKey(t time.Time) string {
	return t.Format(DayKeyLayout)
}

// ParseDayKey parses a "YYYY-MM-DD" key as midnight in loc.
func ParseDayKey(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(DayKeyLayout, strings.TrimSpace(s), loc)
}

func SameDay(a, b time.Time) bool {
	return DayKey(a) == DayKey(b)
}

// startOfWeek returns the Monday on or before t.
func startOfWeek(t time.Time) time.Time {
	day := StartOfDay(t)
	// time.Weekday is Sunday=0; shift so Monday=0.
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// BuildMonthMatrix returns a 6x7 grid of consecutive days whose first cell
// is the Monday on or before the first of ref's month.
func BuildMonthMatrix(ref time.Time) [][]time.Time {
	first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	start := startOfWeek(first)

	weeks := make([][]time.Time, Rows)
	for r := 0; r < Rows; r++ {
		week := make([]time.Time, Cols)
		for c := 0; c < Cols; c++ {
			// AddDate normalizes calendar fields, so DST never skews a cell
			// off midnight.
			week[c] = start.AddDate(0, 0, r*Cols+c)
		}
		weeks[r] = week
	}
	return weeks
}

// InMonth reports whether day falls in ref's year and month.
func InMonth(day, ref time.Time) bool {
	return day.Year() == ref.Year() && day.Month() == ref.Month()
}

func IsToday(day, now time.Time) bool {
	return SameDay(day, now.In(day.Location()))
}

// AddMonths shifts t by n months, clamping to the last day of the target
// month, and returns the start of that day.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	last := firstOfTarget.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d, 0, 0, 0, 0, t.Location())
}

// EventsForDate returns the events whose start falls on day, in input order.
func EventsForDate(day time.Time, events []model.CalendarEvent) []model.CalendarEvent {
	key := DayKey(day)
	out := make([]model.CalendarEvent, 0)
	for _, ev := range events {
		if ev.DayKey(day.Location()) == key {
			out = append(out, ev)
		}
	}
	return out
}

// ParseClock parses an "HH:MM" time of day.
func ParseClock(s string) (hour, minute int, err error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	hour, err = strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	minute, err = strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return hour, minute, nil
}

// CombineDateTime places an optional "HH:MM" clock on day. An empty clock
// yields the start of day.
func CombineDateTime(day time.Time, clock string) (time.Time, error) {
	base := StartOfDay(day)
	if strings.TrimSpace(clock) == "" {
		return base, nil
	}
	h, m, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(base.Year(), base.Month(), base.Day(), h, m, 0, 0, base.Location()), nil
}

// compareAgenda orders two events of the same day: by StartTime when both
// have one, by start instant otherwise.
func compareAgenda(a, b model.CalendarEvent) int {
	if a.StartTime != "" && b.StartTime != "" {
		return strings.Compare(a.StartTime, b.StartTime)
	}
	return a.StartDate.Compare(b.StartDate)
}

// SortAgenda sorts events in place, stable.
func SortAgenda(events []model.CalendarEvent) {
	slices.SortStableFunc(events, compareAgenda)
}

// TagOptions returns the distinct non-empty tags across events, sorted.
func TagOptions(events []model.CalendarEvent) []string {
	seen := make(map[string]struct{})
	tags := make([]string, 0)
	for _, ev := range events {
		if !ev.HasTag() {
			continue
		}
		if _, ok := seen[ev.Tag]; ok {
			continue
		}
		seen[ev.Tag] = struct{}{}
		tags = append(tags, ev.Tag)
	}
	slices.Sort(tags)
	return tags
}

// FilterByTag keeps events carrying tag. An empty tag keeps everything.
func FilterByTag(events []model.CalendarEvent, tag string) []model.CalendarEvent {
	if tag == "" {
		return slices.Clone(events)
	}
	out := make([]model.CalendarEvent, 0, len(events))
	for _, ev := range events {
		if ev.Tag == tag {
			out = append(out, ev)
		}
	}
	return out
}
