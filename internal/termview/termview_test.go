package termview

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calplan/internal/model"
	"calplan/internal/planner"
)

// plainStyles renders without any escape sequences.
func plainStyles() Styles {
	s := lipgloss.NewStyle()
	return Styles{Title: s, Header: s, Day: s, Outside: s, Today: s, Selected: s, Time: s, Tag: s, Muted: s}
}

func sampleMonth() planner.MonthView {
	start := time.Date(2025, time.September, 29, 0, 0, 0, 0, time.UTC)
	weeks := make([][]planner.DayCell, 0, 6)
	for w := 0; w < 6; w++ {
		row := make([]planner.DayCell, 0, 7)
		for d := 0; d < 7; d++ {
			day := start.AddDate(0, 0, w*7+d)
			row = append(row, planner.DayCell{
				Date:    day,
				Day:     day.Day(),
				InMonth: day.Month() == time.October,
			})
		}
		weeks = append(weeks, row)
	}
	weeks[2][1].Count = 1
	weeks[2][2].Count = 4
	weeks[2][2].More = 2
	return planner.MonthView{
		Title:    "October 2025",
		Weekdays: []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"},
		Weeks:    weeks,
	}
}

func TestRenderMonth(t *testing.T) {
	out := RenderMonth(sampleMonth(), plainStyles())
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 8)

	assert.Contains(t, lines[0], "October 2025")
	assert.Contains(t, lines[1], "Mon")
	assert.Contains(t, lines[1], "Sun")
	assert.Contains(t, lines[2], "29")
	assert.Contains(t, lines[4], "14•")
	assert.Contains(t, lines[4], "15+")
}

func TestRenderAgenda(t *testing.T) {
	day := time.Date(2025, time.October, 14, 0, 0, 0, 0, time.UTC)
	items := []planner.AgendaItem{
		{Event: model.CalendarEvent{ID: "a", Title: "Standup", Tag: "Focus", Description: "daily"}, TimeLabel: "09:00 – 09:15"},
		{Event: model.CalendarEvent{ID: "b", Title: "Lunch"}, TimeLabel: "12:00"},
	}
	out := RenderAgenda(day, items, plainStyles())
	assert.Contains(t, out, "Tuesday, October 14 (2 events)")
	assert.Contains(t, out, "09:00 – 09:15  Standup #Focus")
	assert.Contains(t, out, "daily")
	assert.Contains(t, out, "id: b")

	empty := RenderAgenda(day, nil, plainStyles())
	assert.Contains(t, empty, "(0 events)")
	assert.Contains(t, empty, "No plans yet.")
}
