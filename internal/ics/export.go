package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"calplan/internal/model"
)

const defaultProductID = "-//calplan//planner//EN"

type ExportOptions struct {
	ProductID string
	// Name becomes X-WR-CALNAME when set.
	Name string
	// Stamp is written as DTSTAMP on every event. Zero means time.Now.
	Stamp time.Time
}

// Export renders events as a VCALENDAR. Events with a start time become
// timed VEVENTs; the rest become all-day VEVENTs spanning their date.
func Export(events []model.CalendarEvent, opts ExportOptions) string {
	if opts.ProductID == "" {
		opts.ProductID = defaultProductID
	}
	if opts.Stamp.IsZero() {
		opts.Stamp = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(opts.ProductID)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}

	for _, ev := range events {
		vev := cal.AddEvent(ev.ID)
		vev.SetDtStampTime(opts.Stamp)
		vev.SetSummary(ev.Title)
		if ev.Description != "" {
			vev.SetDescription(ev.Description)
		}
		if ev.Tag != "" {
			vev.AddProperty(ical.ComponentPropertyCategories, ev.Tag)
		}

		if ev.StartTime == "" {
			day := ev.StartDate
			vev.SetAllDayStartAt(day)
			vev.SetAllDayEndAt(day.AddDate(0, 0, 1))
			continue
		}
		vev.SetStartAt(ev.StartDate)
		if ev.EndDate != nil && ev.EndDate.After(ev.StartDate) {
			vev.SetEndAt(*ev.EndDate)
		}
	}

	return cal.Serialize()
}
