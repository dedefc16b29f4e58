// Package annotations stores free-text notes about faculty members.
package annotations

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/acadworld/internal/apperr"
	"github.com/starford/acadworld/internal/models"
	"github.com/starford/acadworld/internal/storecfg"
)

// Name identifies this store in errors, logs and metrics.
const Name = "annotations"

// Store is the append-only note contract.
type Store interface {
	// NotesForFaculty returns the faculty member's notes, newest first.
	NotesForFaculty(ctx context.Context, faculty string) ([]models.Note, error)
	// AddNote stores the trimmed text with a server-assigned UTC timestamp.
	// Whitespace-only text is not written and yields models.StatusNoOp.
	AddNote(ctx context.Context, faculty, text string) (models.WriteStatus, error)
	EnsureSchema(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Option configures a backend.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the source of note timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open connects to the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg storecfg.Config, opts ...Option) (Store, error) {
	switch cfg.Driver {
	case storecfg.DriverMongo:
		m, err := OpenMongo(ctx, cfg, opts...)
		if err != nil {
			return nil, err
		}
		return m, nil
	case storecfg.DriverSQLite:
		s, err := OpenSQLite(cfg.SQLiteDSN(), opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("annotations: unsupported driver %q", cfg.Driver)
	}
}

// Connect is Open without the MongoDB ping; an unreachable server surfaces as
// ErrUnavailable from each call instead.
func Connect(cfg storecfg.Config, opts ...Option) (Store, error) {
	if cfg.Driver != storecfg.DriverMongo {
		return Open(context.Background(), cfg, opts...)
	}
	m, err := NewMongo(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// normalize trims text and reports whether anything is left to store.
func normalize(text string) (string, bool) {
	t := strings.TrimSpace(text)
	return t, t != ""
}

func fail(ctx context.Context, op string, err error, attrs ...slog.Attr) error {
	attrs = append(attrs, slog.String("store", Name), slog.String("op", op), slog.String("error", err.Error()))
	slog.LogAttrs(ctx, slog.LevelError, "annotation store query failed", attrs...)
	return apperr.E(Name, op, apperr.ErrUnavailable, err)
}
