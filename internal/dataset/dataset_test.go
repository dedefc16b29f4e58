package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/acadworld/internal/models"
	storetest "github.com/starford/acadworld/internal/testutil"
)

const sample = `
universities:
  - id: 1
    name: University of Illinois
faculty:
  - id: 1
    name: Ada Lovelace
    position: Professor
    photo_url: https://img.example/ada.png
    university_id: 1
  - id: 2
    name: Alan Turing
    position: Associate Professor
publications:
  - id: 10
    title: Analytical Engines
    year: 2019
    authors: [1, 2]
  - id: 11
    title: Orphan
    year: 2020
`

func TestParse(t *testing.T) {
	ds, err := Parse([]byte(sample))
	require.NoError(t, err)

	require.Len(t, ds.Faculty, 2)
	assert.Equal(t, models.Faculty{
		ID: 1, Name: "Ada Lovelace", Position: "Professor",
		PhotoURL: "https://img.example/ada.png", UniversityID: 1,
	}, ds.Faculty[0])
	assert.Zero(t, ds.Faculty[1].UniversityID)
	assert.Equal(t, []int64{1, 2}, ds.Publications[0].Authors)
	assert.Empty(t, ds.Publications[1].Authors)
}

func TestParseEmpty(t *testing.T) {
	ds, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, ds.Faculty)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", "faculty:\n  - id: 1\n    name: A\n    office: 12\n"},
		{"bad yaml", "faculty: [\n"},
		{"missing name", "faculty:\n  - id: 1\n"},
		{"duplicate faculty id", "faculty:\n  - {id: 1, name: A}\n  - {id: 1, name: B}\n"},
		{"duplicate faculty name", "faculty:\n  - {id: 1, name: A}\n  - {id: 2, name: A}\n"},
		{"unknown university", "faculty:\n  - {id: 1, name: A, university_id: 9}\n"},
		{"unknown author", "faculty:\n  - {id: 1, name: A}\npublications:\n  - {id: 5, title: T, year: 2020, authors: [1, 2]}\n"},
		{"bad year", "publications:\n  - {id: 5, title: T, year: 20}\n"},
		{"duplicate publication", "publications:\n  - {id: 5, title: T, year: 2020}\n  - {id: 5, title: U, year: 2021}\n"},
		{"duplicate university", "universities:\n  - {id: 1, name: U}\n  - {id: 1, name: V}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	ds, sum, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, ds.Publications, 2)
	assert.Len(t, sum, 64)
}

func TestApplyLoadsEveryStore(t *testing.T) {
	st := storetest.EmptyStores(t)
	ctx := context.Background()
	ds, err := Parse([]byte(sample))
	require.NoError(t, err)

	require.NoError(t, Apply(ctx, ds,
		Target{Name: "graph", Loader: st.Graph},
		Target{Name: "relational", Loader: st.Pubs},
	))
	// Idempotent.
	require.NoError(t, Apply(ctx, ds,
		Target{Name: "graph", Loader: st.Graph},
		Target{Name: "relational", Loader: st.Pubs},
	))

	names, err := st.Graph.ListFacultyNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ada Lovelace", "Alan Turing"}, names)

	papers, err := st.Pubs.PapersForFaculty(ctx, "Alan Turing")
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, int64(10), papers[0].ID)
}

type failingLoader struct{ calls int }

func (f *failingLoader) Load(context.Context, *models.Dataset) error {
	f.calls++
	return errors.New("boom")
}

func TestApplyStopsAtFirstFailure(t *testing.T) {
	first, second := &failingLoader{}, &failingLoader{}

	err := Apply(context.Background(), &models.Dataset{},
		Target{Name: "graph", Loader: first},
		Target{Name: "relational", Loader: second},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "graph")
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls)
}
