package model

import (
	"encoding/json"
	"time"
)

// CalendarEvent is a single user-created planner entry.
//
// The JSON shape matches the array persisted under the storage key, so a
// collection written by an older build (null for unset fields, millisecond
// ISO timestamps) decodes without translation.
type CalendarEvent struct {
	ID    string `json:"id"`
	Title string `json:"title"`

	// StartDate is always present. When StartTime is empty only the date
	// part is meaningful.
	StartDate time.Time  `json:"startDate"`
	EndDate   *time.Time `json:"endDate,omitempty"`

	// StartTime / EndTime are "HH:MM" wall-clock strings on StartDate's day.
	StartTime string `json:"startTime,omitempty"`
	EndTime   string `json:"endTime,omitempty"`

	Description string `json:"description,omitempty"`
	Tag         string `json:"tag,omitempty"`
}

// eventJSON mirrors CalendarEvent with nullable strings so that explicit
// JSON nulls are accepted on decode.
type eventJSON struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	StartDate   time.Time  `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	StartTime   *string    `json:"startTime"`
	EndTime     *string    `json:"endTime"`
	Description *string    `json:"description"`
	Tag         *string    `json:"tag"`
}

func (e *CalendarEvent) UnmarshalJSON(data []byte) error {
	var raw eventJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = CalendarEvent{
		ID:          raw.ID,
		Title:       raw.Title,
		StartDate:   raw.StartDate,
		EndDate:     raw.EndDate,
		StartTime:   deref(raw.StartTime),
		EndTime:     deref(raw.EndTime),
		Description: deref(raw.Description),
		Tag:         deref(raw.Tag),
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// HasTag reports whether the event carries a category label.
func (e CalendarEvent) HasTag() bool {
	return e.Tag != ""
}

// DayKey returns the "YYYY-MM-DD" key of StartDate in loc.
func (e CalendarEvent) DayKey(loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return e.StartDate.In(loc).Format(time.DateOnly)
}

// Clone returns a deep copy (EndDate is a pointer).
func (e CalendarEvent) Clone() CalendarEvent {
	out := e
	if e.EndDate != nil {
		end := *e.EndDate
		out.EndDate = &end
	}
	return out
}
