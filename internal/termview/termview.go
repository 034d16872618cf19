// Package termview renders the month grid and day agenda for a terminal.
package termview

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"calplan/internal/planner"
)

const cellWidth = 5

// Styles groups the lipgloss styles used by the renderers.
type Styles struct {
	Title    lipgloss.Style
	Header   lipgloss.Style
	Day      lipgloss.Style
	Outside  lipgloss.Style
	Today    lipgloss.Style
	Selected lipgloss.Style
	Time     lipgloss.Style
	Tag      lipgloss.Style
	Muted    lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Header:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Bold(true),
		Day:      lipgloss.NewStyle().Foreground(lipgloss.Color("15")),
		Outside:  lipgloss.NewStyle().Faint(true),
		Today:    lipgloss.NewStyle().Bold(true).Underline(true),
		Selected: lipgloss.NewStyle().Reverse(true),
		Time:     lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
		Tag:      lipgloss.NewStyle().Foreground(lipgloss.Color("218")),
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	}
}

// RenderMonth draws the 6x7 grid. Days with events carry a dot, or "+"
// when they have more than MaxPreviews.
func RenderMonth(m planner.MonthView, st Styles) string {
	var b strings.Builder
	gridWidth := cellWidth * len(m.Weekdays)

	b.WriteString(st.Title.Width(gridWidth).Align(lipgloss.Center).Render(m.Title))
	b.WriteString("\n")

	headers := make([]string, 0, len(m.Weekdays))
	for _, wd := range m.Weekdays {
		headers = append(headers, st.Header.Width(cellWidth).Align(lipgloss.Center).Render(wd))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, headers...))
	b.WriteString("\n")

	for _, week := range m.Weeks {
		cells := make([]string, 0, len(week))
		for _, c := range week {
			cells = append(cells, renderCell(c, st))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		b.WriteString("\n")
	}
	return b.String()
}

func renderCell(c planner.DayCell, st Styles) string {
	marker := " "
	switch {
	case c.More > 0:
		marker = "+"
	case c.Count > 0:
		marker = "•"
	}

	style := st.Day
	if !c.InMonth {
		style = st.Outside
	}
	if c.Today {
		style = style.Inherit(st.Today)
	}
	if c.Selected {
		style = style.Inherit(st.Selected)
	}
	label := style.Render(fmt.Sprintf("%2d", c.Day)) + marker
	return lipgloss.NewStyle().Width(cellWidth).Align(lipgloss.Center).Render(label)
}

// RenderAgenda lists one day's items under a "Monday, January 2" heading.
func RenderAgenda(day time.Time, items []planner.AgendaItem, st Styles) string {
	var b strings.Builder
	b.WriteString(st.Title.Render(day.Format("Monday, January 2")))
	b.WriteString(" ")
	b.WriteString(st.Muted.Render(countLabel(len(items))))
	b.WriteString("\n")

	if len(items) == 0 {
		b.WriteString(st.Muted.Render("No plans yet."))
		b.WriteString("\n")
		return b.String()
	}

	for _, it := range items {
		line := st.Time.Render(it.TimeLabel) + "  " + it.Event.Title
		if it.Event.Tag != "" {
			line += " " + st.Tag.Render("#"+it.Event.Tag)
		}
		b.WriteString(line)
		b.WriteString("\n")
		if it.Event.Description != "" {
			b.WriteString(st.Muted.PaddingLeft(2).Render(it.Event.Description))
			b.WriteString("\n")
		}
		b.WriteString(st.Muted.Render("  id: " + it.Event.ID))
		b.WriteString("\n")
	}
	return b.String()
}

func countLabel(n int) string {
	if n == 1 {
		return "(1 event)"
	}
	return fmt.Sprintf("(%d events)", n)
}
