// Package explorer aggregates the graph, relational and annotation stores
// into the views and writes the dashboard needs.
package explorer

import (
	"context"
	"time"

	"github.com/starford/acadworld/internal/metrics"
	"github.com/starford/acadworld/internal/models"
)

// Store names used in failures and metrics.
const (
	StoreGraph       = "graph"
	StoreRelational  = "relational"
	StoreAnnotations = "annotations"
)

// Defaults used when an option is not set.
const (
	DefaultCoauthorLimit  = 5
	DefaultInstituteLimit = 10
	DefaultStoreTimeout   = 5 * time.Second
)

// GraphStore is what the explorer reads from the faculty graph.
type GraphStore interface {
	ListFacultyNames(ctx context.Context) ([]string, error)
	FacultyProfile(ctx context.Context, name string) (*models.FacultyProfile, error)
	TopCoauthors(ctx context.Context, name string, limit int) ([]models.Coauthor, error)
	Ping(ctx context.Context) error
}

// PublicationStore is the relational side: publication metadata and review state.
type PublicationStore interface {
	PublicationsPerYear(ctx context.Context, faculty string) ([]models.YearCount, error)
	TopInstitutes(ctx context.Context, limit int) ([]models.InstituteCount, error)
	PapersForFaculty(ctx context.Context, faculty string) ([]models.Paper, error)
	MarkReviewed(ctx context.Context, paperID int64) error
	ReviewedPapersForFaculty(ctx context.Context, faculty string) ([]int64, error)
	Ping(ctx context.Context) error
}

// NoteStore holds free-text annotations.
type NoteStore interface {
	NotesForFaculty(ctx context.Context, faculty string) ([]models.Note, error)
	AddNote(ctx context.Context, faculty, text string) (models.WriteStatus, error)
	Ping(ctx context.Context) error
}

// Notifier is told about successful writes.
type Notifier interface {
	PublishChange(kind, faculty string)
}

// Service coordinates the three stores.
type Service struct {
	graph    GraphStore
	pubs     PublicationStore
	notes    NoteStore
	notifier Notifier
	metrics  *metrics.Collector

	coauthorLimit  int
	instituteLimit int
	timeout        time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets where change events go.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithMetrics records every store call on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Service) { s.metrics = c }
}

// WithLimits overrides the co-author and institute ranking sizes used by View.
// Values below 1 keep the default.
func WithLimits(coauthors, institutes int) Option {
	return func(s *Service) {
		if coauthors > 0 {
			s.coauthorLimit = coauthors
		}
		if institutes > 0 {
			s.instituteLimit = institutes
		}
	}
}

// WithStoreTimeout bounds each request's store work. Zero disables it.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// NewService creates a new explorer service.
func NewService(graph GraphStore, pubs PublicationStore, notes NoteStore, opts ...Option) *Service {
	s := &Service{
		graph:          graph,
		pubs:           pubs,
		notes:          notes,
		coauthorLimit:  DefaultCoauthorLimit,
		instituteLimit: DefaultInstituteLimit,
		timeout:        DefaultStoreTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Service) notify(kind, faculty string) {
	if s.notifier != nil {
		s.notifier.PublishChange(kind, faculty)
	}
}

// observe runs fn and records its latency and outcome.
func (s *Service) observe(store, op string, fn func() error) error {
	start := time.Now()
	err := fn()
	s.metrics.ObserveStore(store, op, time.Since(start), err)
	return err
}
