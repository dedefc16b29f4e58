package annotations

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/acadworld/internal/apperr"
	"github.com/starford/acadworld/internal/models"
	"github.com/starford/acadworld/internal/storecfg"
)

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Minute)
	return c.t
}

func testStore(t *testing.T, opts ...Option) *SQLite {
	t.Helper()
	f, err := os.CreateTemp("", "acadworld-notes-*.db")
	require.NoError(t, err)
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	cfg := storecfg.Config{Driver: storecfg.DriverSQLite, Path: f.Name()}
	s, err := OpenSQLite(cfg.SQLiteDSN(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.EnsureSchema(context.Background()))
	return s
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"hello", "hello", true},
		{"  padded \n", "padded", true},
		{"", "", false},
		{" \t\n ", "", false},
	}
	for _, tt := range tests {
		got, ok := normalize(tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
	}
}

func TestSQLite_EnsureSchemaIdempotent(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.EnsureSchema(context.Background()))
}

func TestSQLite_StampNotBeforeCall(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	before := time.Now()
	_, err := s.AddNote(ctx, "Ada", "hello")
	require.NoError(t, err)

	notes, err := s.NotesForFaculty(ctx, "Ada")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.False(t, notes[0].CreatedAt.Before(before), "stamp %s before call %s", notes[0].CreatedAt, before)
}

func TestSQLite_AddNoteTrimsAndStampsUTC(t *testing.T) {
	clock := &stepClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.FixedZone("X", 3600))}
	s := testStore(t, WithClock(clock.Now))
	ctx := context.Background()

	status, err := s.AddNote(ctx, "Ada", "  great advisor  ")
	require.NoError(t, err)
	assert.Equal(t, models.StatusWritten, status)

	notes, err := s.NotesForFaculty(ctx, "Ada")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "great advisor", notes[0].Text)
	assert.Equal(t, "Ada", notes[0].Faculty)
	assert.NotEmpty(t, notes[0].ID)
	assert.Equal(t, time.UTC, notes[0].CreatedAt.Location())
	assert.True(t, notes[0].CreatedAt.Equal(time.Date(2024, 3, 1, 8, 1, 0, 0, time.UTC)))
}

func TestSQLite_WhitespaceNoteIsNoOp(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, text := range []string{"", "   ", "\n\t"} {
		status, err := s.AddNote(ctx, "Ada", text)
		require.NoError(t, err)
		assert.Equal(t, models.StatusNoOp, status)
	}

	notes, err := s.NotesForFaculty(ctx, "Ada")
	require.NoError(t, err)
	assert.Empty(t, notes)
	assert.NotNil(t, notes)
}

func TestSQLite_NotesNewestFirst(t *testing.T) {
	clock := &stepClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := testStore(t, WithClock(clock.Now))
	ctx := context.Background()

	for _, text := range []string{"first", "second", "third"} {
		_, err := s.AddNote(ctx, "Ada", text)
		require.NoError(t, err)
	}
	_, err := s.AddNote(ctx, "Grace", "other")
	require.NoError(t, err)

	notes, err := s.NotesForFaculty(ctx, "Ada")
	require.NoError(t, err)
	texts := make([]string, len(notes))
	for i, n := range notes {
		texts[i] = n.Text
	}
	assert.Equal(t, []string{"third", "second", "first"}, texts)
}

func TestSQLite_SameTimestampKeepsInsertOrder(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := testStore(t, WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	for _, text := range []string{"a", "b"} {
		_, err := s.AddNote(ctx, "Ada", text)
		require.NoError(t, err)
	}
	notes, err := s.NotesForFaculty(ctx, "Ada")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "b", notes[0].Text)
}

func TestSQLite_NoteTextStoredVerbatim(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	body := "line one\nline two ' \" ; DROP TABLE faculty_notes; --"

	_, err := s.AddNote(ctx, "O'Brien", body)
	require.NoError(t, err)

	notes, err := s.NotesForFaculty(ctx, "O'Brien")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, strings.TrimSpace(body), notes[0].Text)
}

func TestSQLite_ClosedStoreIsUnavailable(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.Close())

	_, err := s.NotesForFaculty(context.Background(), "Ada")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrUnavailable)

	_, err = s.AddNote(context.Background(), "Ada", "x")
	assert.ErrorIs(t, err, apperr.ErrUnavailable)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), storecfg.Config{Driver: "redis"})
	require.Error(t, err)
}
