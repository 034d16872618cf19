package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	appLog "calplan/internal/log"
	"calplan/internal/model"
)

// DefaultKey is the versioned storage key of the event collection.
const DefaultKey = "calendar-app-events@v1"

// EventStore is the in-memory, ordered event collection mirrored to a KV
// key. The whole collection is re-serialized on every mutation.
type EventStore struct {
	kv  KV
	key string

	mu     sync.RWMutex
	events []model.CalendarEvent

	newID func() string
}

// Open loads the collection stored under key. A missing key or malformed
// content yields an empty collection; only KV read errors are returned.
func Open(ctx context.Context, kv KV, key string) (*EventStore, error) {
	if key == "" {
		key = DefaultKey
	}
	s := &EventStore{
		kv:     kv,
		key:    key,
		events: []model.CalendarEvent{},
		newID:  uuid.NewString,
	}

	data, err := kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			appLog.Debug("no stored events", "key", key)
			return s, nil
		}
		return nil, fmt.Errorf("load events: %w", err)
	}

	events, err := decodeEvents(data)
	if err != nil {
		appLog.Error("stored events malformed; starting empty", err, "key", key, "bytes", len(data))
		return s, nil
	}
	s.events = events
	appLog.Info("events loaded", "key", key, "count", len(events))
	return s, nil
}

func decodeEvents(data []byte) ([]model.CalendarEvent, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []model.CalendarEvent{}, nil
	}
	var events []model.CalendarEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, err
	}
	if events == nil {
		events = []model.CalendarEvent{}
	}
	return events, nil
}

// All returns a copy of the collection in stored order.
func (s *EventStore) All() []model.CalendarEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.events)
}

func (s *EventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func (s *EventStore) Get(id string) (model.CalendarEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.events[i].Clone(), true
	}
	return model.CalendarEvent{}, false
}

// Create assigns a fresh id to ev, appends it and persists.
func (s *EventStore) Create(ctx context.Context, ev model.CalendarEvent) (model.CalendarEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev = ev.Clone()
	ev.ID = s.newID()
	s.events = append(s.events, ev)
	return ev.Clone(), s.persistLocked(ctx)
}

// Update replaces the record with the given id, keeping that id. ok is
// false when no record matches; nothing is written then.
func (s *EventStore) Update(ctx context.Context, id string, ev model.CalendarEvent) (updated model.CalendarEvent, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return model.CalendarEvent{}, false, nil
	}
	ev = ev.Clone()
	ev.ID = id
	s.events[i] = ev
	return ev.Clone(), true, s.persistLocked(ctx)
}

// Delete removes the record with the given id. ok is false on a miss.
func (s *EventStore) Delete(ctx context.Context, id string) (ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false, nil
	}
	s.events = append(s.events[:i:i], s.events[i+1:]...)
	return true, s.persistLocked(ctx)
}

// Import appends evs with fresh ids in a single write.
func (s *EventStore) Import(ctx context.Context, evs []model.CalendarEvent) ([]model.CalendarEvent, error) {
	if len(evs) == 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	added := make([]model.CalendarEvent, 0, len(evs))
	for _, ev := range evs {
		ev = ev.Clone()
		ev.ID = s.newID()
		s.events = append(s.events, ev)
		added = append(added, ev.Clone())
	}
	return added, s.persistLocked(ctx)
}

// Snapshot returns the JSON serialization of the whole collection.
func (s *EventStore) Snapshot() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.Marshal(s.events)
}

func (s *EventStore) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.events {
		if s.events[i].ID == id {
			return i
		}
	}
	return -1
}

// persistLocked writes the whole collection; caller holds mu.
func (s *EventStore) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(s.events)
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("persist events: %w", err)
	}
	appLog.Debug("events persisted", "key", s.key, "count", len(s.events), "bytes", len(data))
	return nil
}

func cloneAll(events []model.CalendarEvent) []model.CalendarEvent {
	out := make([]model.CalendarEvent, len(events))
	for i, ev := range events {
		out[i] = ev.Clone()
	}
	return out
}
