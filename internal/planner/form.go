package planner

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"calplan/internal/calendar"
	"calplan/internal/model"
)

var (
	ErrTitleRequired = errors.New("event title is required")
	ErrInvalidTime   = errors.New("time must be HH:MM")
	ErrUnknownTag    = errors.New("unknown tag")
)

// Form is a create/edit submission. The date comes from the selected day.
type Form struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	StartTime   string `json:"startTime,omitempty"`
	EndTime     string `json:"endTime,omitempty"`
	Tag         string `json:"tag,omitempty"`
}

// FormFromEvent pre-fills a form for editing ev.
func FormFromEvent(ev model.CalendarEvent) Form {
	return Form{
		Title:       ev.Title,
		Description: ev.Description,
		StartTime:   ev.StartTime,
		EndTime:     ev.EndTime,
		Tag:         ev.Tag,
	}
}

// Normalize trims all fields and drops an end time that has no start time.
func (f Form) Normalize() Form {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	f.StartTime = strings.TrimSpace(f.StartTime)
	f.EndTime = strings.TrimSpace(f.EndTime)
	f.Tag = strings.TrimSpace(f.Tag)
	if f.StartTime == "" {
		f.EndTime = ""
	}
	return f
}

// Validate checks a normalized form. presets restricts tags when non-empty;
// current is the edited event's tag, which stays valid even when it is not a
// preset (imported categories).
func (f Form) Validate(presets []string, current string) error {
	if f.Title == "" {
		return ErrTitleRequired
	}
	if f.StartTime != "" {
		if _, _, err := calendar.ParseClock(f.StartTime); err != nil {
			return fmt.Errorf("%w: start %q", ErrInvalidTime, f.StartTime)
		}
	}
	if f.EndTime != "" {
		if _, _, err := calendar.ParseClock(f.EndTime); err != nil {
			return fmt.Errorf("%w: end %q", ErrInvalidTime, f.EndTime)
		}
	}
	if f.Tag != "" && f.Tag != current && len(presets) > 0 && !slices.Contains(presets, f.Tag) {
		return fmt.Errorf("%w %q", ErrUnknownTag, f.Tag)
	}
	return nil
}

// Event derives the stored record for day. EndDate is set only when both
// times are present; an end earlier than the start runs past midnight and
// lands on the next day. The form must be normalized and valid.
func (f Form) Event(day time.Time) (model.CalendarEvent, error) {
	start, err := calendar.CombineDateTime(day, f.StartTime)
	if err != nil {
		return model.CalendarEvent{}, err
	}
	ev := model.CalendarEvent{
		Title:       f.Title,
		StartDate:   start,
		StartTime:   f.StartTime,
		EndTime:     f.EndTime,
		Description: f.Description,
		Tag:         f.Tag,
	}
	if f.StartTime != "" && f.EndTime != "" {
		end, err := calendar.CombineDateTime(day, f.EndTime)
		if err != nil {
			return model.CalendarEvent{}, err
		}
		// Zero-padded HH:MM compares correctly as a string.
		if f.EndTime < f.StartTime {
			end = end.AddDate(0, 0, 1)
		}
		ev.EndDate = &end
	}
	return ev, nil
}
