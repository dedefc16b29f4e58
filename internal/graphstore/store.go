// Package graphstore reads faculty profiles and co-authorship from the graph store.
package graphstore

import (
	"context"
	"fmt"

	"github.com/starford/acadworld/internal/apperr"
	"github.com/starford/acadworld/internal/models"
	"github.com/starford/acadworld/internal/storecfg"
)

// Name identifies this store in errors, logs and metrics.
const Name = "graph"

// Store is the read contract of the graph store.
type Store interface {
	// ListFacultyNames returns every faculty name in ascending order.
	ListFacultyNames(ctx context.Context) ([]string, error)
	// FacultyProfile returns nil, nil when no faculty member has that exact name.
	FacultyProfile(ctx context.Context, name string) (*models.FacultyProfile, error)
	// TopCoauthors ranks collaborators by distinct joint publications,
	// descending, ties by name ascending, at most limit entries.
	TopCoauthors(ctx context.Context, name string, limit int) ([]models.Coauthor, error)
	Ping(ctx context.Context) error
	Close() error
}

// Loader writes seed data. Profiles are otherwise read-only.
type Loader interface {
	Load(ctx context.Context, ds *models.Dataset) error
}

// Backend is a Store that can also be seeded.
type Backend interface {
	Store
	Loader
}

// Open connects to the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg storecfg.Config) (Backend, error) {
	switch cfg.Driver {
	case storecfg.DriverNeo4j:
		s, err := OpenNeo4j(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case storecfg.DriverSQLite:
		s, err := OpenSQLite(cfg.SQLiteDSN())
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("graphstore: unsupported driver %q", cfg.Driver)
	}
}

// Connect is Open without the connectivity check: a Neo4j server that is down
// surfaces as ErrUnavailable from each call instead. The embedded backend is
// opened as usual.
func Connect(cfg storecfg.Config) (Backend, error) {
	if cfg.Driver != storecfg.DriverNeo4j {
		return Open(context.Background(), cfg)
	}
	s, err := NewNeo4j(cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func checkLimit(op string, limit int) error {
	if limit < 1 {
		return apperr.Invalid(Name, op, "limit must be at least 1, got %d", limit)
	}
	return nil
}
