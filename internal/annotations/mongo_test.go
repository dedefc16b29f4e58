package annotations

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/starford/acadworld/internal/models"
	"github.com/starford/acadworld/internal/storecfg"
)

func TestMongo_WhitespaceNoteSkipsWrite(t *testing.T) {
	// No collection: a write attempt would panic.
	m := &Mongo{now: time.Now}

	status, err := m.AddNote(context.Background(), "Ada", "   \n")
	require.NoError(t, err)
	assert.Equal(t, models.StatusNoOp, status)
}

func TestNoteDocToModel(t *testing.T) {
	id := bson.NewObjectID()
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("X", -7200))
	n := noteDoc{ID: id, Faculty: "Ada", Text: "hi", Timestamp: ts}.toModel()

	assert.Equal(t, id.Hex(), n.ID)
	assert.Equal(t, "Ada", n.Faculty)
	assert.Equal(t, time.UTC, n.CreatedAt.Location())
	assert.True(t, n.CreatedAt.Equal(ts))
}

func TestCeilMillis(t *testing.T) {
	exact := time.Date(2024, 1, 1, 0, 0, 0, 123_000_000, time.UTC)
	assert.Equal(t, exact, ceilMillis(exact))

	call := time.Date(2024, 1, 1, 0, 0, 0, 123_456_789, time.UTC)
	got := ceilMillis(call)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 124_000_000, time.UTC), got)

	// The stamp survives a BSON round trip without falling behind the call.
	raw, err := bson.Marshal(noteDoc{ID: bson.NewObjectID(), Faculty: "Ada", Text: "hi", Timestamp: got})
	require.NoError(t, err)
	var back noteDoc
	require.NoError(t, bson.Unmarshal(raw, &back))
	assert.False(t, back.toModel().CreatedAt.Before(call))
}

// TestMongo_Integration runs against a live server when ACADWORLD_TEST_MONGO_URI is set.
// The test collection is dropped first.
func TestMongo_Integration(t *testing.T) {
	uri := os.Getenv("ACADWORLD_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("ACADWORLD_TEST_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clock := &stepClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	store, err := OpenMongo(ctx, storecfg.Config{
		Driver:     storecfg.DriverMongo,
		URI:        uri,
		Database:   "acadworld_test",
		Collection: "faculty_notes_test",
	}, WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.notes.Drop(ctx))
	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.EnsureSchema(ctx))

	status, err := store.AddNote(ctx, "Ada", "  older ")
	require.NoError(t, err)
	assert.Equal(t, models.StatusWritten, status)
	_, err = store.AddNote(ctx, "Ada", "newer")
	require.NoError(t, err)
	status, err = store.AddNote(ctx, "Ada", "   ")
	require.NoError(t, err)
	assert.Equal(t, models.StatusNoOp, status)

	notes, err := store.NotesForFaculty(ctx, "Ada")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "newer", notes[0].Text)
	assert.Equal(t, "older", notes[1].Text)

	live, err := OpenMongo(ctx, storecfg.Config{
		Driver:     storecfg.DriverMongo,
		URI:        uri,
		Database:   "acadworld_test",
		Collection: "faculty_notes_test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { live.Close() })

	before := time.Now()
	_, err = live.AddNote(ctx, "Grace", "hello")
	require.NoError(t, err)
	notes, err = live.NotesForFaculty(ctx, "Grace")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.False(t, notes[0].CreatedAt.Before(before), "stamp %s before call %s", notes[0].CreatedAt, before)
}
