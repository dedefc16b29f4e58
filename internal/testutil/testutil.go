// Package testutil provides shared test helpers that set up SQLite-backed stores.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/starford/acadworld/internal/annotations"
	"github.com/starford/acadworld/internal/graphstore"
	"github.com/starford/acadworld/internal/models"
	"github.com/starford/acadworld/internal/pubstore"
	"github.com/starford/acadworld/internal/storecfg"
)

// Stores is one embedded instance of each store.
type Stores struct {
	Graph *graphstore.SQLite
	Pubs  *pubstore.Store
	Notes *annotations.SQLite
}

// StoreConfig returns an embedded SQLite config for a file under dir.
func StoreConfig(dir, name string) storecfg.Config {
	return storecfg.Config{Driver: storecfg.DriverSQLite, Path: filepath.Join(dir, name)}
}

// EmptyStores opens all three stores in a temp directory with their
// startup schema in place but no data. They are closed on cleanup.
func EmptyStores(t *testing.T, notesOpts ...annotations.Option) *Stores {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	graphCfg := StoreConfig(dir, "graph.db")
	graph, err := graphstore.OpenSQLite(graphCfg.SQLiteDSN())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { graph.Close() })

	pubs, err := pubstore.Open(ctx, StoreConfig(dir, "relational.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { pubs.Close() })
	if err := pubs.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}

	notesCfg := StoreConfig(dir, "notes.db")
	notes, err := annotations.OpenSQLite(notesCfg.SQLiteDSN(), notesOpts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { notes.Close() })
	if err := notes.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}

	return &Stores{Graph: graph, Pubs: pubs, Notes: notes}
}

// SeededStores is EmptyStores loaded with Dataset.
func SeededStores(t *testing.T, notesOpts ...annotations.Option) *Stores {
	t.Helper()
	s := EmptyStores(t, notesOpts...)
	ctx := context.Background()
	ds := Dataset()
	if err := s.Graph.Load(ctx, ds); err != nil {
		t.Fatal(err)
	}
	if err := s.Pubs.Load(ctx, ds); err != nil {
		t.Fatal(err)
	}
	return s
}

// Dataset is a small academic world:
//
//	Ada Lovelace co-authored 10 and 11 with Alan Turing and 12 with Grace Hopper.
//	Solo Scholar has one single-author paper; 15 has no authors.
func Dataset() *models.Dataset {
	return &models.Dataset{
		Universities: []models.University{
			{ID: 1, Name: "University of Illinois"},
			{ID: 2, Name: "MIT"},
		},
		Faculty: []models.Faculty{
			{ID: 1, Name: "Ada Lovelace", Position: "Professor", PhotoURL: "https://img.example/ada.png", UniversityID: 1},
			{ID: 2, Name: "Alan Turing", Position: "Associate Professor", UniversityID: 2},
			{ID: 3, Name: "Grace Hopper", Position: "Professor", UniversityID: 1},
			{ID: 4, Name: "Solo Scholar", Position: "Lecturer", UniversityID: 2},
		},
		Publications: []models.Publication{
			{ID: 10, Title: "Analytical Engines", Year: 2019, Authors: []int64{1, 2}},
			{ID: 11, Title: "Computable Numbers", Year: 2020, Authors: []int64{2, 1}},
			{ID: 12, Title: "Compilers", Year: 2020, Authors: []int64{3, 1}},
			{ID: 13, Title: "Machines", Year: 2021, Authors: []int64{1}},
			{ID: 14, Title: "Alone", Year: 2021, Authors: []int64{4}},
			{ID: 15, Title: "Orphan", Year: 2022},
		},
	}
}
