package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/acadworld/internal/annotations"
	"github.com/starford/acadworld/internal/dataset"
	"github.com/starford/acadworld/internal/explorer"
	"github.com/starford/acadworld/internal/graphstore"
	"github.com/starford/acadworld/internal/models"
	"github.com/starford/acadworld/internal/pubstore"
	"github.com/starford/acadworld/internal/storecfg"
)

var errConfigRequired = errors.New("config is required")

// stores holds one open connection pool per backing store.
type stores struct {
	graph graphstore.Backend
	pubs  *pubstore.Store
	notes annotations.Store

	// pending holds schema steps skipped because the server was unreachable.
	pending []storeCheck
}

type storeCheck struct {
	name   string
	driver string
	ping   func(context.Context) error
	ensure func(context.Context) error
}

// openStores creates a client for every store, pings each and runs the
// startup schema steps. A networked store that does not answer is logged and
// left in place so its reads degrade to ErrUnavailable; its schema step is
// kept in pending. An embedded store that cannot be opened is an error.
// On failure, whatever was already opened is closed.
func openStores(ctx context.Context, cfg *Config) (_ *stores, err error) {
	s := &stores{}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	if s.graph, err = graphstore.Connect(cfg.Graph); err != nil {
		return nil, fmt.Errorf("open graph store: %w", err)
	}
	if s.pubs, err = pubstore.Connect(cfg.Relational); err != nil {
		return nil, fmt.Errorf("open relational store: %w", err)
	}
	if s.notes, err = annotations.Connect(cfg.Annotations); err != nil {
		return nil, fmt.Errorf("open annotation store: %w", err)
	}

	for _, c := range s.checks(cfg) {
		checkCtx, cancel := context.WithTimeout(ctx, storeTimeout(cfg))
		err = c.ping(checkCtx)
		if err == nil && c.ensure != nil {
			if err = c.ensure(checkCtx); err != nil {
				cancel()
				return nil, fmt.Errorf("%s schema: %w", c.name, err)
			}
		}
		cancel()
		if err == nil {
			continue
		}
		if c.driver == storecfg.DriverSQLite {
			return nil, fmt.Errorf("open %s store: %w", c.name, err)
		}
		slog.Warn("store unreachable at startup, serving degraded",
			slog.String("store", c.name),
			slog.String("driver", c.driver),
			slog.String("error", err.Error()))
		if c.ensure != nil {
			s.pending = append(s.pending, c)
		}
		err = nil
	}

	slog.Info("stores ready",
		slog.String("graph", cfg.Graph.Driver),
		slog.String("relational", cfg.Relational.Driver),
		slog.String("annotations", cfg.Annotations.Driver),
		slog.Int("pending_schema", len(s.pending)))
	return s, nil
}

func (s *stores) checks(cfg *Config) []storeCheck {
	return []storeCheck{
		{name: graphstore.Name, driver: cfg.Graph.Driver, ping: s.graph.Ping},
		{name: pubstore.Name, driver: cfg.Relational.Driver, ping: s.pubs.Ping, ensure: s.pubs.EnsureSchema},
		{name: annotations.Name, driver: cfg.Annotations.Driver, ping: s.notes.Ping, ensure: s.notes.EnsureSchema},
	}
}

// ensurePending retries the schema steps skipped at startup until each one
// succeeds or ctx is done.
func (s *stores) ensurePending(ctx context.Context, cfg *Config, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for len(s.pending) > 0 {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		remaining := s.pending[:0]
		for _, c := range s.pending {
			checkCtx, cancel := context.WithTimeout(ctx, storeTimeout(cfg))
			err := c.ensure(checkCtx)
			cancel()
			if err != nil {
				remaining = append(remaining, c)
				continue
			}
			slog.Info("store schema ready", slog.String("store", c.name))
		}
		s.pending = remaining
	}
}

// Close closes every open store.
func (s *stores) Close() {
	closeStore := func(name string, c interface{ Close() error }) {
		if err := c.Close(); err != nil {
			slog.Warn("close store failed", slog.String("store", name), slog.String("error", err.Error()))
		}
	}
	if s.graph != nil {
		closeStore(graphstore.Name, s.graph)
	}
	if s.pubs != nil {
		closeStore(pubstore.Name, s.pubs)
	}
	if s.notes != nil {
		closeStore(annotations.Name, s.notes)
	}
}

// explorer builds the facade over the stores.
func (s *stores) explorer(cfg *Config, opts ...explorer.Option) *explorer.Service {
	opts = append([]explorer.Option{
		explorer.WithStoreTimeout(cfg.App.StoreTimeout),
		explorer.WithLimits(cfg.App.CoauthorLimit, cfg.App.InstituteLimit),
	}, opts...)
	return explorer.NewService(s.graph, s.pubs, s.notes, opts...)
}

// targets lists the stores the dataset is loaded into.
func (s *stores) targets() []dataset.Target {
	return []dataset.Target{
		{Name: graphstore.Name, Loader: s.graph},
		{Name: pubstore.Name, Loader: s.pubs},
	}
}

func (s *stores) apply(ctx context.Context, ds *models.Dataset) error {
	return dataset.Apply(ctx, ds, s.targets()...)
}

func storeTimeout(cfg *Config) time.Duration {
	if cfg.App.StoreTimeout <= 0 {
		return explorer.DefaultStoreTimeout
	}
	return cfg.App.StoreTimeout
}
