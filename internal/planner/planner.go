// Package planner implements the root-view behavior of the planner: the
// create/update/delete transitions over the event collection, the day
// agenda with its tag filter and the month grid model.
package planner

import (
	"context"
	"fmt"
	"time"

	"calplan/internal/calendar"
	appLog "calplan/internal/log"
	"calplan/internal/model"
)

// MaxPreviews is how many events a grid cell lists before "+N more".
const MaxPreviews = 2

// Repository is the slice of the event store the planner needs.
type Repository interface {
	All() []model.CalendarEvent
	Get(id string) (model.CalendarEvent, bool)
	Create(ctx context.Context, ev model.CalendarEvent) (model.CalendarEvent, error)
	Update(ctx context.Context, id string, ev model.CalendarEvent) (model.CalendarEvent, bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type Planner struct {
	repo    Repository
	presets []string
	loc     *time.Location
	now     func() time.Time
}

type Option func(*Planner)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) { p.now = now }
}

func WithLocation(loc *time.Location) Option {
	return func(p *Planner) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// New builds a Planner. presets is the fixed label set offered by the form.
func New(repo Repository, presets []string, opts ...Option) *Planner {
	p := &Planner{
		repo:    repo,
		presets: append([]string(nil), presets...),
		loc:     time.Local,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Planner) Now() time.Time {
	return p.now().In(p.loc)
}

func (p *Planner) Location() *time.Location {
	return p.loc
}

// NewView returns the initial view for the current clock.
func (p *Planner) NewView() View {
	return NewView(p.Now())
}

func (p *Planner) Presets() []string {
	return append([]string(nil), p.presets...)
}

// TagOptions lists the tags present across all events.
func (p *Planner) TagOptions() []string {
	return calendar.TagOptions(p.repo.All())
}

func (p *Planner) prepare(day time.Time, form Form, currentTag string) (model.CalendarEvent, error) {
	form = form.Normalize()
	if err := form.Validate(p.presets, currentTag); err != nil {
		return model.CalendarEvent{}, err
	}
	return form.Event(day.In(p.loc))
}

// Create stores a new event on day.
func (p *Planner) Create(ctx context.Context, day time.Time, form Form) (model.CalendarEvent, error) {
	ev, err := p.prepare(day, form, "")
	if err != nil {
		return model.CalendarEvent{}, err
	}
	created, err := p.repo.Create(ctx, ev)
	if err != nil {
		// The in-memory collection already holds the event.
		appLog.Error("persist after create failed", err, "id", created.ID)
	}
	appLog.Info("event created", "id", created.ID, "day", calendar.DayKey(ev.StartDate))
	return created, nil
}

// Update replaces the event id with the form's content on day. ok is false
// when id does not exist. The event's existing tag is accepted even when it
// is not a preset.
func (p *Planner) Update(ctx context.Context, id string, day time.Time, form Form) (model.CalendarEvent, bool, error) {
	existing, found := p.repo.Get(id)
	if !found {
		return model.CalendarEvent{}, false, nil
	}
	ev, err := p.prepare(day, form, existing.Tag)
	if err != nil {
		return model.CalendarEvent{}, false, err
	}
	updated, ok, err := p.repo.Update(ctx, id, ev)
	if err != nil {
		appLog.Error("persist after update failed", err, "id", id)
	}
	if ok {
		appLog.Info("event updated", "id", id)
	}
	return updated, ok, nil
}

// Delete removes event id; ok is false on a miss.
func (p *Planner) Delete(ctx context.Context, id string) bool {
	ok, err := p.repo.Delete(ctx, id)
	if err != nil {
		appLog.Error("persist after delete failed", err, "id", id)
	}
	if ok {
		appLog.Info("event deleted", "id", id)
	}
	return ok
}

// Submit applies the form for v: an update of the edited event when editing,
// a create on the selected day otherwise. Edit mode ends either way. Only
// validation errors are returned, with v unchanged.
func (p *Planner) Submit(ctx context.Context, v View, form Form) (View, error) {
	if v.Editing() {
		if _, _, err := p.Update(ctx, v.EditingID, v.Selected, form); err != nil {
			return v, err
		}
		return v.CancelEdit(), nil
	}
	if _, err := p.Create(ctx, v.Selected, form); err != nil {
		return v, err
	}
	return v.CancelEdit(), nil
}

// Remove deletes the edited event and exits edit mode. Without an edited
// event it does nothing.
func (p *Planner) Remove(ctx context.Context, v View) View {
	if !v.Editing() {
		return v
	}
	p.Delete(ctx, v.EditingID)
	return v.CancelEdit()
}

// BeginEdit puts v in edit mode for id and selects the event's day. An
// unknown id leaves v unchanged.
func (p *Planner) BeginEdit(v View, id string) View {
	ev, ok := p.repo.Get(id)
	if !ok {
		return v
	}
	v.Selected = calendar.StartOfDay(ev.StartDate.In(p.loc))
	v.EditingID = ev.ID
	return v
}

// Editing returns the event v is editing, if it still exists.
func (p *Planner) Editing(v View) (model.CalendarEvent, bool) {
	if !v.Editing() {
		return model.CalendarEvent{}, false
	}
	return p.repo.Get(v.EditingID)
}

// AgendaItem is one line of the day agenda.
type AgendaItem struct {
	Event     model.CalendarEvent `json:"event"`
	TimeLabel string              `json:"timeLabel"`
}

// Agenda lists the selected day's events, tag-filtered and ordered.
func (p *Planner) Agenda(v View) []AgendaItem {
	return p.AgendaFor(v.Selected, v.ActiveTag)
}

func (p *Planner) AgendaFor(day time.Time, tag string) []AgendaItem {
	events := calendar.EventsForDate(day, p.repo.All())
	events = calendar.FilterByTag(events, tag)
	calendar.SortAgenda(events)

	items := make([]AgendaItem, 0, len(events))
	for _, ev := range events {
		items = append(items, AgendaItem{Event: ev, TimeLabel: TimeLabel(ev, day.Location())})
	}
	return items
}

// TimeLabel renders an event's time range for lists.
func TimeLabel(ev model.CalendarEvent, loc *time.Location) string {
	switch {
	case ev.StartTime != "" && ev.EndTime != "":
		return ev.StartTime + " – " + ev.EndTime
	case ev.StartTime != "":
		return ev.StartTime
	default:
		return ev.StartDate.In(loc).Format("3:04 PM")
	}
}

// PreviewLabel is the compact cell preview: "09:00 · Title" or "Title".
func PreviewLabel(ev model.CalendarEvent) string {
	if ev.StartTime != "" {
		return ev.StartTime + " · " + ev.Title
	}
	return ev.Title
}

type Preview struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type DayCell struct {
	Date     time.Time `json:"date"`
	Key      string    `json:"key"`
	Day      int       `json:"day"`
	InMonth  bool      `json:"inMonth"`
	Today    bool      `json:"today"`
	Selected bool      `json:"selected"`
	Count    int       `json:"count"`
	Previews []Preview `json:"previews"`
	More     int       `json:"more"`
}

// MoreLabel is "+N more" when a cell has hidden events.
func (c DayCell) MoreLabel() string {
	if c.More <= 0 {
		return ""
	}
	return fmt.Sprintf("+%d more", c.More)
}

type MonthView struct {
	Title    string      `json:"title"`
	Weekdays []string    `json:"weekdays"`
	Weeks    [][]DayCell `json:"weeks"`
}

// Month builds the grid for v.Month with v.Selected highlighted.
func (p *Planner) Month(v View) MonthView {
	now := p.Now()
	events := p.repo.All()
	matrix := calendar.BuildMonthMatrix(v.Month)

	weeks := make([][]DayCell, 0, len(matrix))
	for _, row := range matrix {
		cells := make([]DayCell, 0, len(row))
		for _, day := range row {
			dayEvents := calendar.EventsForDate(day, events)
			cell := DayCell{
				Date:     day,
				Key:      calendar.DayKey(day),
				Day:      day.Day(),
				InMonth:  calendar.InMonth(day, v.Month),
				Today:    calendar.IsToday(day, now),
				Selected: calendar.SameDay(day, v.Selected),
				Count:    len(dayEvents),
				Previews: make([]Preview, 0, MaxPreviews),
			}
			for i, ev := range dayEvents {
				if i == MaxPreviews {
					cell.More = len(dayEvents) - MaxPreviews
					break
				}
				cell.Previews = append(cell.Previews, Preview{ID: ev.ID, Label: PreviewLabel(ev)})
			}
			cells = append(cells, cell)
		}
		weeks = append(weeks, cells)
	}

	return MonthView{
		Title:    v.Month.Format("January 2006"),
		Weekdays: append([]string(nil), calendar.WeekdayLabels...),
		Weeks:    weeks,
	}
}
