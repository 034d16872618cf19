package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"slices"
	"strings"

	appLog "calplan/internal/log"
	"calplan/internal/planner"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type cellLink struct {
	planner.DayCell
	URL string
}

type filterLink struct {
	Label  string
	URL    string
	Active bool
}

type agendaRow struct {
	planner.AgendaItem
	EditURL string
	Editing bool
}

type hiddenView struct {
	Month string
	Day   string
	Edit  string
	Tag   string
}

type pageData struct {
	Title    string
	PrevURL  string
	NextURL  string
	TodayURL string
	Weekdays []string
	Weeks    [][]cellLink

	DayHeading string
	DayShort   string
	DayBadge   string
	CountLabel string

	AllURL    string
	AllActive bool
	Filters   []filterLink

	Agenda []agendaRow

	Editing bool
	Form    planner.Form
	Presets []string
	// ExtraTag is the form's tag when it is not a preset, offered as an
	// additional option so an edit keeps it.
	ExtraTag string
	View     hiddenView
	Error    string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	v := planner.ParseView(r.URL.Query(), s.planner.Now(), s.planner.Location())

	var form planner.Form
	if ev, ok := s.planner.Editing(v); ok {
		form = planner.FormFromEvent(ev)
	} else {
		// A stale edit id is dropped.
		v = v.CancelEdit()
	}
	s.renderPage(w, http.StatusOK, v, form, "")
}

// handleFormSubmit applies a page form post and redirects back to the
// resulting view. action is save, delete or cancel.
func (s *Server) handleFormSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	v := planner.ParseView(r.PostForm, s.planner.Now(), s.planner.Location())

	switch action := r.PostForm.Get("action"); action {
	case "delete":
		v = s.planner.Remove(r.Context(), v)
	case "cancel":
		v = v.CancelEdit()
	case "save", "":
		form := planner.Form{
			Title:       r.PostForm.Get("title"),
			Description: r.PostForm.Get("description"),
			StartTime:   r.PostForm.Get("startTime"),
			EndTime:     r.PostForm.Get("endTime"),
			Tag:         r.PostForm.Get("eventTag"),
		}
		next, err := s.planner.Submit(r.Context(), v, form)
		if err != nil {
			status := statusFor(err)
			if status != http.StatusUnprocessableEntity {
				appLog.Error("form submit failed", err)
			}
			s.renderPage(w, status, v, form, err.Error())
			return
		}
		v = next
	default:
		http.Error(w, fmt.Sprintf("unknown action %q", action), http.StatusBadRequest)
		return
	}

	http.Redirect(w, r, "/?"+v.Query(), http.StatusSeeOther)
}

func (s *Server) renderPage(w http.ResponseWriter, status int, v planner.View, form planner.Form, errMsg string) {
	data := s.buildPage(v, form, errMsg)

	var buf bytes.Buffer
	if err := pageTmpl.ExecuteTemplate(&buf, "page.html", data); err != nil {
		appLog.Error("render page failed", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) buildPage(v planner.View, form planner.Form, errMsg string) pageData {
	month := s.planner.Month(v)

	weeks := make([][]cellLink, 0, len(month.Weeks))
	for _, row := range month.Weeks {
		cells := make([]cellLink, 0, len(row))
		for _, c := range row {
			cells = append(cells, cellLink{DayCell: c, URL: "/?" + v.SelectDay(c.Date).Query()})
		}
		weeks = append(weeks, cells)
	}

	agenda := s.planner.Agenda(v)
	rows := make([]agendaRow, 0, len(agenda))
	for _, item := range agenda {
		rows = append(rows, agendaRow{
			AgendaItem: item,
			EditURL:    "/?" + s.planner.BeginEdit(v, item.Event.ID).Query(),
			Editing:    item.Event.ID == v.EditingID,
		})
	}

	presets := s.planner.Presets()
	var extraTag string
	if form.Tag != "" && !slices.Contains(presets, form.Tag) {
		extraTag = form.Tag
	}

	tags := s.planner.TagOptions()
	filters := make([]filterLink, 0, len(tags))
	for _, tag := range tags {
		filters = append(filters, filterLink{
			Label:  tag,
			URL:    "/?" + v.ToggleTag(tag).Query(),
			Active: v.ActiveTag == tag,
		})
	}

	return pageData{
		Title:    month.Title,
		PrevURL:  "/?" + v.ShiftMonth(-1).Query(),
		NextURL:  "/?" + v.ShiftMonth(1).Query(),
		TodayURL: "/?" + v.Today(s.planner.Now()).Query(),
		Weekdays: month.Weekdays,
		Weeks:    weeks,

		DayHeading: v.Selected.Format("Monday, January 2"),
		DayShort:   v.Selected.Format("Jan 2, 2006"),
		DayBadge:   v.Selected.Format("Jan 2"),
		CountLabel: countLabel(len(agenda)),

		AllURL:    "/?" + v.ClearTag().Query(),
		AllActive: v.ActiveTag == "",
		Filters:   filters,

		Agenda: rows,

		Editing:  v.Editing(),
		Form:     form,
		Presets:  presets,
		ExtraTag: extraTag,
		View:     hiddenFromView(v),
		Error:    capitalize(errMsg),
	}
}

func hiddenFromView(v planner.View) hiddenView {
	q := v.Values()
	return hiddenView{
		Month: q.Get("month"),
		Day:   q.Get("day"),
		Edit:  q.Get("edit"),
		Tag:   q.Get("tag"),
	}
}

func countLabel(n int) string {
	if n == 1 {
		return "1 event"
	}
	return fmt.Sprintf("%d events", n)
}

func capitalize(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
