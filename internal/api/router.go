package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/starford/acadworld/internal/explorer"
	"github.com/starford/acadworld/internal/metrics"
	"github.com/starford/acadworld/internal/models"
)

// Explorer is the facade the handlers call.
type Explorer interface {
	FacultyNames(ctx context.Context) ([]string, error)
	View(ctx context.Context, faculty string) *explorer.View
	TopCoauthors(ctx context.Context, faculty string, limit int) ([]models.Coauthor, error)
	TopInstitutes(ctx context.Context, limit int) ([]models.InstituteCount, error)
	AddNote(ctx context.Context, faculty, text string) (*explorer.NotesRefresh, error)
	MarkReviewed(ctx context.Context, faculty string, paperID int64) (*explorer.ReviewsRefresh, error)
	Health(ctx context.Context) []explorer.StoreHealth
}

// NewRouter creates a chi router with the dashboard routes. events, if
// non-nil, is mounted at GET /events.
func NewRouter(svc Explorer, events http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()

	r.Get("/faculty", h.ListFaculty)
	r.Get("/faculty/{name}", h.FacultyView)
	r.Get("/faculty/{name}/coauthors", h.TopCoauthors)
	r.Post("/faculty/{name}/notes", h.AddNote)
	r.Post("/faculty/{name}/reviews", h.MarkReviewed)
	r.Get("/institutes/top", h.TopInstitutes)

	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}

	return r
}

// NewServer builds the full HTTP handler: middleware, health checks,
// metrics and the dashboard routes under /api.
func NewServer(svc Explorer, events http.Handler, collector *metrics.Collector) http.Handler {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(Metrics(collector))

	r.Get("/health/live", h.Live)
	r.Get("/health/ready", h.Ready)
	if collector != nil {
		r.Method(http.MethodGet, "/metrics", collector.Handler())
	}

	r.Mount("/api", NewRouter(svc, events))
	return r
}
