package internal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/acadworld/internal/explorer"
	"github.com/starford/acadworld/internal/pubstore"
	"github.com/starford/acadworld/internal/storecfg"
)

const seedYAML = `
universities:
  - {id: 1, name: University of Illinois}
faculty:
  - {id: 1, name: Ada Lovelace, position: Professor, university_id: 1}
  - {id: 2, name: Alan Turing, position: Professor, university_id: 1}
publications:
  - {id: 10, title: Analytical Engines, year: 2019, authors: [1, 2]}
`

func embeddedConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.App.LogLevel = 8 // errors only
	cfg.Graph = storecfg.Config{Driver: storecfg.DriverSQLite, Path: filepath.Join(dir, "graph.db")}
	cfg.Relational = storecfg.Config{Driver: storecfg.DriverSQLite, Path: filepath.Join(dir, "relational.db")}
	cfg.Annotations = storecfg.Config{Driver: storecfg.DriverSQLite, Path: filepath.Join(dir, "notes.db")}
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestRunRequiresConfig(t *testing.T) {
	assert.ErrorIs(t, Run(context.Background()), errConfigRequired)
	assert.ErrorIs(t, Seed(context.Background()), errConfigRequired)
}

func TestSeedRequiresDataset(t *testing.T) {
	err := Seed(context.Background(), WithConfig(embeddedConfig(t)))
	require.Error(t, err)
}

func TestSeedThenBrowse(t *testing.T) {
	cfg := embeddedConfig(t)
	path := filepath.Join(t.TempDir(), "dataset.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o644))
	ctx := context.Background()

	require.NoError(t, Seed(ctx, WithConfig(cfg), WithDataset(path, false)))
	// Seeding twice is harmless.
	require.NoError(t, Seed(ctx, WithConfig(cfg), WithDataset(path, false)))

	st, err := openStores(ctx, cfg)
	require.NoError(t, err)
	defer st.Close()

	v := st.explorer(cfg).View(ctx, "Ada Lovelace")
	assert.Empty(t, v.Failures)
	require.Len(t, v.TopCoauthors, 1)
	assert.Equal(t, "Alan Turing", v.TopCoauthors[0].Name)
	require.Len(t, v.TopInstitutes, 1)
	assert.Equal(t, int64(1), v.TopInstitutes[0].Publications)
}

func TestOpenStoresFailsCleanly(t *testing.T) {
	cfg := embeddedConfig(t)
	cfg.Relational.Path = filepath.Join(t.TempDir(), "missing", "dir", "relational.db")

	_, err := openStores(context.Background(), cfg)
	require.Error(t, err)
}

func TestOpenStoresStartsWithServerDown(t *testing.T) {
	cfg := embeddedConfig(t)
	cfg.App.StoreTimeout = 2 * time.Second
	// Nothing listens on port 1.
	cfg.Relational = storecfg.Config{
		Driver:   storecfg.DriverMySQL,
		Host:     "127.0.0.1",
		Port:     1,
		User:     "root",
		Database: "academicworld",
	}
	require.NoError(t, cfg.Validate())
	ctx := context.Background()

	st, err := openStores(ctx, cfg)
	require.NoError(t, err)
	defer st.Close()
	require.Len(t, st.pending, 1)
	assert.Equal(t, pubstore.Name, st.pending[0].name)

	svc := st.explorer(cfg)
	_, err = svc.AddNote(ctx, "Ada Lovelace", "still reachable")
	require.NoError(t, err)

	v := svc.View(ctx, "Ada Lovelace")
	require.Len(t, v.Notes, 1)
	var failed []string
	for _, f := range v.Failures {
		assert.Equal(t, explorer.StoreRelational, f.Store)
		assert.Equal(t, "unavailable", f.Kind)
		failed = append(failed, f.Field)
	}
	assert.ElementsMatch(t, []string{
		explorer.FieldPublicationsPerYear,
		explorer.FieldTopInstitutes,
		explorer.FieldPapers,
		explorer.FieldReviewedPaperIDs,
	}, failed)

	retryCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	st.ensurePending(retryCtx, cfg, 10*time.Millisecond)
	assert.Len(t, st.pending, 1)
}

func TestWithDatasetFallsBackToConfig(t *testing.T) {
	cfg := embeddedConfig(t)
	cfg.Dataset = DatasetConfig{Path: "from-config.yaml", Watch: true}

	app, err := newApplication([]Option{WithConfig(cfg)})
	require.NoError(t, err)
	assert.Equal(t, "from-config.yaml", app.datasetPath)
	assert.True(t, app.watch)

	app, err = newApplication([]Option{WithConfig(cfg), WithDataset("flag.yaml", false)})
	require.NoError(t, err)
	assert.Equal(t, "flag.yaml", app.datasetPath)
}
