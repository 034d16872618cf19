package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calplan/internal/model"
)

const seriesICS = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:series-1\r\n" +
	"DTSTAMP:20251001T000000Z\r\n" +
	"DTSTART:20251006T090000Z\r\n" +
	"DTEND:20251006T093000Z\r\n" +
	"RRULE:FREQ=WEEKLY;BYDAY=MO;COUNT=3\r\n" +
	"EXDATE:20251013T090000Z\r\n" +
	"SUMMARY:Standup\r\n" +
	"CATEGORIES:Focus,Work\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:series-1\r\n" +
	"DTSTAMP:20251001T000000Z\r\n" +
	"RECURRENCE-ID:20251020T090000Z\r\n" +
	"DTSTART:20251020T100000Z\r\n" +
	"DTEND:20251020T103000Z\r\n" +
	"SUMMARY:Standup moved\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:trip\r\n" +
	"DTSTAMP:20251001T000000Z\r\n" +
	"DTSTART;VALUE=DATE:20251020\r\n" +
	"DTEND;VALUE=DATE:20251021\r\n" +
	"SUMMARY:Trip\r\n" +
	"LOCATION:Lisbon\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"DTSTAMP:20251001T000000Z\r\n" +
	"DTSTART:20251021T090000Z\r\n" +
	"SUMMARY:No uid\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func october() FlattenConfig {
	return FlattenConfig{
		Location:   time.UTC,
		RangeStart: time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2025, time.October, 31, 23, 59, 59, 0, time.UTC),
	}
}

func TestParseICSSkipsBrokenEvents(t *testing.T) {
	parsed, err := ParseICS(Source{ID: "test"}, []byte(seriesICS))
	require.NoError(t, err)
	require.Len(t, parsed, 3)

	assert.Equal(t, "series-1", parsed[0].UID)
	assert.Equal(t, []string{"Focus", "Work"}, parsed[0].Categories)
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO;COUNT=3", parsed[0].RawRRule)
	require.Len(t, parsed[0].ExDates, 1)

	assert.True(t, parsed[1].IsOverride)
	assert.True(t, parsed[2].AllDay)
}

func TestParseICSEmptyBody(t *testing.T) {
	_, err := ParseICS(Source{}, []byte("  \n"))
	require.Error(t, err)
}

func TestFlattenSeries(t *testing.T) {
	parsed, err := ParseICS(Source{ID: "test"}, []byte(seriesICS))
	require.NoError(t, err)

	res, err := Flatten(parsed, october())
	require.NoError(t, err)
	require.Len(t, res.Events, 3)
	assert.Empty(t, res.Truncated)

	first := res.Events[0]
	assert.Equal(t, "Standup", first.Title)
	assert.Equal(t, "09:00", first.StartTime)
	assert.Equal(t, "09:30", first.EndTime)
	assert.Equal(t, "Focus", first.Tag)
	assert.Equal(t, 6, first.StartDate.Day())

	// The 13th is excluded and the 20th is replaced by its override.
	moved := res.Events[1]
	assert.Equal(t, "Standup moved", moved.Title)
	assert.Equal(t, "10:00", moved.StartTime)
	assert.Equal(t, 20, moved.StartDate.Day())

	trip := res.Events[2]
	assert.Equal(t, "Trip", trip.Title)
	assert.Empty(t, trip.StartTime)
	assert.Nil(t, trip.EndDate)
	assert.Equal(t, "Location: Lisbon", trip.Description)
	assert.True(t, trip.StartDate.Equal(time.Date(2025, time.October, 20, 0, 0, 0, 0, time.UTC)))
}

func TestFlattenCapsSeries(t *testing.T) {
	start := time.Date(2025, time.October, 1, 8, 0, 0, 0, time.UTC)
	parsed := []ParsedEvent{{
		UID:      "daily",
		Summary:  "Walk",
		Start:    start,
		End:      start.Add(time.Hour),
		RawRRule: "FREQ=DAILY;COUNT=10",
	}}
	cfg := october()
	cfg.MaxOccurrencesPerSeries = 3

	res, err := Flatten(parsed, cfg)
	require.NoError(t, err)
	assert.Len(t, res.Events, 3)
	assert.Equal(t, []string{"daily"}, res.Truncated)
}

func TestFlattenRejectsInvertedRange(t *testing.T) {
	cfg := october()
	cfg.RangeStart, cfg.RangeEnd = cfg.RangeEnd, cfg.RangeStart
	_, err := Flatten(nil, cfg)
	require.Error(t, err)
}

func TestFlattenDropsOutOfRangeAndUntitled(t *testing.T) {
	in := time.Date(2025, time.October, 3, 12, 0, 0, 0, time.UTC)
	out := time.Date(2025, time.December, 3, 12, 0, 0, 0, time.UTC)
	parsed := []ParsedEvent{
		{UID: "in", Start: in, End: in},
		{UID: "out", Summary: "Later", Start: out, End: out},
	}
	res, err := Flatten(parsed, october())
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	assert.Equal(t, untitled, res.Events[0].Title)
	assert.Nil(t, res.Events[0].EndDate)
}

func TestExportRoundTrip(t *testing.T) {
	start := time.Date(2025, time.October, 14, 9, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)
	events := []model.CalendarEvent{
		{
			ID:          "a",
			Title:       "Standup",
			StartDate:   start,
			EndDate:     &end,
			StartTime:   "09:00",
			EndTime:     "09:30",
			Description: "Daily",
			Tag:         "Focus",
		},
		{
			ID:        "b",
			Title:     "Dentist",
			StartDate: time.Date(2025, time.October, 15, 0, 0, 0, 0, time.UTC),
		},
	}

	body := Export(events, ExportOptions{Name: "Planner", Stamp: start})
	assert.Contains(t, body, "METHOD:PUBLISH")
	assert.Contains(t, body, "CATEGORIES:Focus")
	assert.Contains(t, body, "X-WR-CALNAME:Planner")

	parsed, err := ParseICS(Source{ID: "export"}, []byte(body))
	require.NoError(t, err)
	res, err := Flatten(parsed, october())
	require.NoError(t, err)
	require.Len(t, res.Events, 2)

	timed := res.Events[0]
	assert.Equal(t, "Standup", timed.Title)
	assert.Equal(t, "09:00", timed.StartTime)
	assert.Equal(t, "09:30", timed.EndTime)
	assert.Equal(t, "Focus", timed.Tag)
	assert.Equal(t, "Daily", timed.Description)

	allDay := res.Events[1]
	assert.Equal(t, "Dentist", allDay.Title)
	assert.Empty(t, allDay.StartTime)
	assert.Equal(t, "2025-10-15", allDay.StartDate.Format(time.DateOnly))
}

func TestFetcherLoad(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cal.ics" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = w.Write([]byte(seriesICS))
	}))
	defer srv.Close()

	f := NewFetcher()
	body, src, err := f.Load(context.Background(), srv.URL+"/cal.ics")
	require.NoError(t, err)
	assert.Equal(t, seriesICS, string(body))
	assert.Equal(t, srv.URL+"/cal.ics", src.URL)

	_, _, err = f.Load(context.Background(), srv.URL+"/missing.ics")
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "cal.ics")
	require.NoError(t, os.WriteFile(path, []byte(seriesICS), 0o600))
	body, src, err = f.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, seriesICS, string(body))
	assert.Empty(t, src.URL)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://calendar.example.com/...(redacted)",
		redactURL("https://calendar.example.com/private/secret/basic.ics?token=x"))
	assert.Equal(t, "", redactURL(""))
	assert.Equal(t, "ics://...(redacted)", redactURL("not a url"))
}
