package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calplan/internal/model"
)

func sampleEvents() []model.CalendarEvent {
	start := time.Date(2025, 4, 7, 9, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)
	return []model.CalendarEvent{
		{
			Title:       "Deep work block",
			StartDate:   start,
			EndDate:     &end,
			StartTime:   "09:00",
			EndTime:     "10:30",
			Description: "write the quarterly plan",
			Tag:         "Focus",
		},
		{
			Title:     "Groceries",
			StartDate: time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC),
		},
	}
}

func openMemory(t *testing.T) (*EventStore, *MemoryKV) {
	t.Helper()
	kv := NewMemoryKV()
	s, err := Open(context.Background(), kv, DefaultKey)
	require.NoError(t, err)
	return s, kv
}

func TestOpen_MissingKeyIsEmpty(t *testing.T) {
	t.Parallel()

	s, _ := openMemory(t)
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.All())
}

func TestOpen_MalformedContentIsEmpty(t *testing.T) {
	t.Parallel()

	for name, payload := range map[string]string{
		"garbage":     "{not json",
		"object":      `{"id":"x"}`,
		"bad_date":    `[{"id":"1","title":"t","startDate":"yesterday"}]`,
		"truncated":   `[{"id":"1","title":"t"`,
		"wrong_types": `[{"id":1}]`,
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			kv := NewMemoryKV()
			require.NoError(t, kv.Set(context.Background(), DefaultKey, []byte(payload)))

			s, err := Open(context.Background(), kv, DefaultKey)
			require.NoError(t, err)
			assert.Equal(t, 0, s.Len())
		})
	}
}

func TestOpen_NullAndEmpty(t *testing.T) {
	t.Parallel()

	for _, payload := range []string{"", "  ", "null", "[]"} {
		kv := NewMemoryKV()
		require.NoError(t, kv.Set(context.Background(), DefaultKey, []byte(payload)))
		s, err := Open(context.Background(), kv, DefaultKey)
		require.NoError(t, err)
		assert.Equal(t, 0, s.Len(), "payload %q", payload)
	}
}

type failingKV struct{ MemoryKV }

var errBoom = errors.New("boom")

func (f *failingKV) Get(context.Context, string) ([]byte, error) { return nil, errBoom }

func TestOpen_ReadErrorIsReturned(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), &failingKV{}, DefaultKey)
	assert.ErrorIs(t, err, errBoom)
}

func TestOpen_AcceptsBrowserFormat(t *testing.T) {
	t.Parallel()

	payload := `[{"id":"3f1c","title":"Run","startDate":"2025-04-07T06:30:00.000Z","endDate":null,` +
		`"startTime":"08:30","endTime":null,"description":null,"tag":"Health"}]`
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(context.Background(), DefaultKey, []byte(payload)))

	s, err := Open(context.Background(), kv, DefaultKey)
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())

	ev, ok := s.Get("3f1c")
	require.True(t, ok)
	assert.Equal(t, "Run", ev.Title)
	assert.Equal(t, "08:30", ev.StartTime)
	assert.Empty(t, ev.EndTime)
	assert.Empty(t, ev.Description)
	assert.Nil(t, ev.EndDate)
	assert.Equal(t, "Health", ev.Tag)
	assert.True(t, ev.StartDate.Equal(time.Date(2025, 4, 7, 6, 30, 0, 0, time.UTC)))
}

func TestCreateThenDeleteRestoresCollection(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _ := openMemory(t)
	for _, ev := range sampleEvents() {
		_, err := s.Create(ctx, ev)
		require.NoError(t, err)
	}
	before := s.All()

	created, err := s.Create(ctx, model.CalendarEvent{Title: "Temp", StartDate: time.Now()})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, len(before)+1, s.Len())

	ok, err := s.Delete(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, ok)

	if diff := cmp.Diff(before, s.All()); diff != "" {
		t.Fatalf("collection changed after create+delete (-before +after):\n%s", diff)
	}
}

func TestCreate_AssignsUniqueIDs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _ := openMemory(t)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		ev, err := s.Create(ctx, model.CalendarEvent{ID: "caller-supplied", Title: "x", StartDate: time.Now()})
		require.NoError(t, err)
		assert.NotEqual(t, "caller-supplied", ev.ID)
		assert.False(t, seen[ev.ID], "duplicate id %s", ev.ID)
		seen[ev.ID] = true
	}
}

func TestUpdate_PreservesIDAndPosition(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _ := openMemory(t)
	var ids []string
	for _, ev := range sampleEvents() {
		created, err := s.Create(ctx, ev)
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}

	replacement := model.CalendarEvent{ID: "ignored", Title: "Gym", StartDate: time.Date(2025, 4, 8, 0, 0, 0, 0, time.UTC), Tag: "Health"}
	updated, ok, err := s.Update(ctx, ids[0], replacement)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ids[0], updated.ID)

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, ids[0], all[0].ID)
	assert.Equal(t, "Gym", all[0].Title)
	assert.Equal(t, "Health", all[0].Tag)
	assert.Nil(t, all[0].EndDate)
	assert.Equal(t, ids[1], all[1].ID)
}

func TestUpdateDelete_MissIsNoop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, kv := openMemory(t)

	_, ok, err := s.Update(ctx, "missing", model.CalendarEvent{Title: "x"})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Delete(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = kv.Get(ctx, DefaultKey)
	assert.ErrorIs(t, err, ErrNotFound, "a miss must not write")
}

func TestAll_ReturnsCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _ := openMemory(t)
	created, err := s.Create(ctx, sampleEvents()[0])
	require.NoError(t, err)

	all := s.All()
	all[0].Title = "mutated"
	*all[0].EndDate = time.Time{}

	got, ok := s.Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, "Deep work block", got.Title)
	assert.False(t, got.EndDate.IsZero())
}

func TestRoundTrip_AllBackends(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backends := map[string]func(t *testing.T) KV{
		"memory": func(t *testing.T) KV { return NewMemoryKV() },
		"file": func(t *testing.T) KV {
			kv, err := NewFileKV(t.TempDir())
			require.NoError(t, err)
			return kv
		},
		"sqlite": func(t *testing.T) KV {
			kv, err := NewSQLiteKV(ctx, filepath.Join(t.TempDir(), "calplan.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = kv.Close() })
			return kv
		},
	}

	for name, mk := range backends {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			kv := mk(t)

			s, err := Open(ctx, kv, DefaultKey)
			require.NoError(t, err)
			for _, ev := range sampleEvents() {
				_, err := s.Create(ctx, ev)
				require.NoError(t, err)
			}
			want := s.All()

			reloaded, err := Open(ctx, kv, DefaultKey)
			require.NoError(t, err)

			// cmp uses time.Time.Equal, so location differences after
			// decoding do not count.
			if diff := cmp.Diff(want, reloaded.All()); diff != "" {
				t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestImport_SingleWriteFreshIDs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, kv := openMemory(t)

	added, err := s.Import(ctx, sampleEvents())
	require.NoError(t, err)
	require.Len(t, added, 2)
	assert.NotEqual(t, added[0].ID, added[1].ID)

	reloaded, err := Open(ctx, kv, DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Len())
}

func TestFileKV_GetMissing(t *testing.T) {
	t.Parallel()

	kv, err := NewFileKV(t.TempDir())
	require.NoError(t, err)
	_, err = kv.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Set(context.Background(), "a/b", []byte("1")))
	got, err := kv.Get(context.Background(), "a/b")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)
}

func TestOpenKV_UnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := OpenKV(context.Background(), "redis", "")
	assert.Error(t, err)
}
