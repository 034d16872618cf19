package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"calplan/internal/calendar"
	"calplan/internal/ics"
	appLog "calplan/internal/log"
	"calplan/internal/model"
	"calplan/internal/planner"
)

const maxRequestBytes = 10 << 20

// eventRequest is the JSON body of POST/PUT /api/events. Date is a day key;
// it is required on create and defaults to the event's current day on update.
type eventRequest struct {
	Date string `json:"date"`
	planner.Form
}

type eventsResponse struct {
	Events []model.CalendarEvent `json:"events"`
}

type agendaResponse struct {
	Day   string               `json:"day"`
	Count int                  `json:"count"`
	Items []planner.AgendaItem `json:"items"`
}

type tagsResponse struct {
	Tags    []string `json:"tags"`
	Presets []string `json:"presets"`
}

type importResponse struct {
	Imported  int      `json:"imported"`
	Truncated []string `json:"truncated_uids,omitempty"`
}

// handleListEvents returns the agenda for ?day= or, without it, every event.
// ?tag= filters both forms.
//
// GET /api/events?day=2025-10-14&tag=Focus
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tag := q.Get("tag")

	if raw := q.Get("day"); raw != "" {
		day, err := calendar.ParseDayKey(raw, s.planner.Location())
		if err != nil {
			writeError(w, http.StatusBadRequest, "day must be YYYY-MM-DD")
			return
		}
		items := s.planner.AgendaFor(day, tag)
		writeJSON(w, http.StatusOK, agendaResponse{
			Day:   calendar.DayKey(day),
			Count: len(items),
			Items: items,
		})
		return
	}

	events := calendar.FilterByTag(s.store.All(), tag)
	writeJSON(w, http.StatusOK, eventsResponse{Events: events})
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.store.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	req, err := decodeEventRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	day, err := calendar.ParseDayKey(req.Date, s.planner.Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	ev, err := s.planner.Create(r.Context(), day, req.Form)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, ok := s.store.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	req, err := decodeEventRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	day := calendar.StartOfDay(existing.StartDate.In(s.planner.Location()))
	if req.Date != "" {
		day, err = calendar.ParseDayKey(req.Date, s.planner.Location())
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
	}

	ev, ok, err := s.planner.Update(r.Context(), id, day, req.Form)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if !s.planner.Delete(r.Context(), r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTags(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, tagsResponse{
		Tags:    s.planner.TagOptions(),
		Presets: s.planner.Presets(),
	})
}

// handleMonth returns the grid model for the month containing ?date=
// (default today), with that date selected.
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	q := url.Values{}
	if raw := r.URL.Query().Get("date"); raw != "" {
		if _, err := calendar.ParseDayKey(raw, s.planner.Location()); err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		q.Set("day", raw)
	}
	v := planner.ParseView(q, s.planner.Now(), s.planner.Location())
	writeJSON(w, http.StatusOK, s.planner.Month(v))
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	body := ics.Export(s.store.All(), ics.ExportOptions{Name: "calplan"})
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calplan.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

// handleImport flattens a text/calendar body into one-off events.
//
// POST /api/import?from=2025-01-01&to=2025-12-31
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	loc := s.planner.Location()
	from, to := ics.DefaultWindow(s.planner.Now())
	q := r.URL.Query()
	var err error
	if raw := q.Get("from"); raw != "" {
		if from, err = calendar.ParseDayKey(raw, loc); err != nil {
			writeError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return
		}
	}
	if raw := q.Get("to"); raw != "" {
		if to, err = calendar.ParseDayKey(raw, loc); err != nil {
			writeError(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
			return
		}
		// Inclusive of the whole last day.
		to = to.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	res, err := ics.Convert(ics.Source{ID: "upload"}, body, ics.FlattenConfig{
		Location:   loc,
		RangeStart: from,
		RangeEnd:   to,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid calendar: %v", err))
		return
	}

	imported, err := s.store.Import(r.Context(), res.Events)
	if err != nil {
		appLog.Error("persist after import failed", err, "count", len(imported))
	}
	appLog.Info("ics import completed", "count", len(imported), "truncated", len(res.Truncated))
	writeJSON(w, http.StatusOK, importResponse{Imported: len(imported), Truncated: res.Truncated})
}

func decodeEventRequest(r *http.Request) (eventRequest, error) {
	var req eventRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return req, errors.New("request body is empty")
		}
		return req, fmt.Errorf("invalid JSON: %v", err)
	}
	return req, nil
}
