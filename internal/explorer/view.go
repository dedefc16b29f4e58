package explorer

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/starford/acadworld/internal/apperr"
	"github.com/starford/acadworld/internal/models"
)

// View fields, in the order failures are reported.
const (
	FieldProfile             = "profile"
	FieldTopCoauthors        = "top_coauthors"
	FieldPublicationsPerYear = "publications_per_year"
	FieldTopInstitutes       = "top_institutes"
	FieldPapers              = "papers"
	FieldReviewedPaperIDs    = "reviewed_paper_ids"
	FieldNotes               = "notes"
)

var fieldOrder = map[string]int{
	FieldProfile:             0,
	FieldTopCoauthors:        1,
	FieldPublicationsPerYear: 2,
	FieldTopInstitutes:       3,
	FieldPapers:              4,
	FieldReviewedPaperIDs:    5,
	FieldNotes:               6,
}

// Failure describes why one part of a view or refresh is empty.
type Failure struct {
	Field   string `json:"field"`
	Store   string `json:"store"`
	Op      string `json:"op"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// View is everything the dashboard shows for one faculty member.
// Fields whose store failed are empty and listed in Failures.
type View struct {
	Faculty             string                  `json:"faculty"`
	Profile             *models.FacultyProfile  `json:"profile"`
	TopCoauthors        []models.Coauthor       `json:"top_coauthors"`
	PublicationsPerYear []models.YearCount      `json:"publications_per_year"`
	TopInstitutes       []models.InstituteCount `json:"top_institutes"`
	Papers              []models.Paper          `json:"papers"`
	ReviewedPaperIDs    []int64                 `json:"reviewed_paper_ids"`
	Notes               []models.Note           `json:"notes"`
	Failures            []Failure               `json:"failures"`
}

// Degraded reports whether any field could not be loaded.
func (v *View) Degraded() bool {
	return len(v.Failures) > 0
}

// View loads every part of the faculty view concurrently. It never fails as a
// whole: each part degrades to empty on its own.
func (s *Service) View(ctx context.Context, faculty string) *View {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	v := &View{
		Faculty:             faculty,
		TopCoauthors:        []models.Coauthor{},
		PublicationsPerYear: []models.YearCount{},
		TopInstitutes:       []models.InstituteCount{},
		Papers:              []models.Paper{},
		ReviewedPaperIDs:    []int64{},
		Notes:               []models.Note{},
		Failures:            []Failure{},
	}

	var mu sync.Mutex
	fail := func(field, store, op string, err error) {
		f := toFailure(field, store, op, err)
		slog.LogAttrs(ctx, slog.LevelWarn, "view field degraded",
			slog.String("faculty", faculty),
			slog.String("field", field),
			slog.String("store", store),
			slog.String("kind", f.Kind),
			slog.String("error", f.Message),
		)
		mu.Lock()
		v.Failures = append(v.Failures, f)
		mu.Unlock()
	}

	// Plain group: one failing read must not cancel the others.
	var g errgroup.Group

	g.Go(func() error {
		err := s.observe(StoreGraph, "faculty_profile", func() (err error) {
			v.Profile, err = s.graph.FacultyProfile(ctx, faculty)
			return err
		})
		if err != nil {
			v.Profile = nil
			fail(FieldProfile, StoreGraph, "faculty_profile", err)
		}
		return nil
	})
	g.Go(func() error {
		var rows []models.Coauthor
		err := s.observe(StoreGraph, "top_coauthors", func() (err error) {
			rows, err = s.graph.TopCoauthors(ctx, faculty, s.coauthorLimit)
			return err
		})
		if err != nil {
			fail(FieldTopCoauthors, StoreGraph, "top_coauthors", err)
		} else if rows != nil {
			v.TopCoauthors = rows
		}
		return nil
	})
	g.Go(func() error {
		var rows []models.YearCount
		err := s.observe(StoreRelational, "publications_per_year", func() (err error) {
			rows, err = s.pubs.PublicationsPerYear(ctx, faculty)
			return err
		})
		if err != nil {
			fail(FieldPublicationsPerYear, StoreRelational, "publications_per_year", err)
		} else if rows != nil {
			v.PublicationsPerYear = rows
		}
		return nil
	})
	g.Go(func() error {
		var rows []models.InstituteCount
		err := s.observe(StoreRelational, "top_institutes", func() (err error) {
			rows, err = s.pubs.TopInstitutes(ctx, s.instituteLimit)
			return err
		})
		if err != nil {
			fail(FieldTopInstitutes, StoreRelational, "top_institutes", err)
		} else if rows != nil {
			v.TopInstitutes = rows
		}
		return nil
	})
	g.Go(func() error {
		var rows []models.Paper
		err := s.observe(StoreRelational, "papers_for_faculty", func() (err error) {
			rows, err = s.pubs.PapersForFaculty(ctx, faculty)
			return err
		})
		if err != nil {
			fail(FieldPapers, StoreRelational, "papers_for_faculty", err)
		} else if rows != nil {
			v.Papers = rows
		}
		return nil
	})
	g.Go(func() error {
		var ids []int64
		err := s.observe(StoreRelational, "reviewed_papers_for_faculty", func() (err error) {
			ids, err = s.pubs.ReviewedPapersForFaculty(ctx, faculty)
			return err
		})
		if err != nil {
			fail(FieldReviewedPaperIDs, StoreRelational, "reviewed_papers_for_faculty", err)
		} else if ids != nil {
			v.ReviewedPaperIDs = ids
		}
		return nil
	})
	g.Go(func() error {
		var notes []models.Note
		err := s.observe(StoreAnnotations, "notes_for_faculty", func() (err error) {
			notes, err = s.notes.NotesForFaculty(ctx, faculty)
			return err
		})
		if err != nil {
			fail(FieldNotes, StoreAnnotations, "notes_for_faculty", err)
		} else if notes != nil {
			v.Notes = notes
		}
		return nil
	})

	_ = g.Wait()

	sort.Slice(v.Failures, func(i, j int) bool {
		return fieldOrder[v.Failures[i].Field] < fieldOrder[v.Failures[j].Field]
	})
	return v
}

// FacultyNames lists every faculty member for the selector.
func (s *Service) FacultyNames(ctx context.Context) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var names []string
	err := s.observe(StoreGraph, "list_faculty_names", func() (err error) {
		names, err = s.graph.ListFacultyNames(ctx)
		return err
	})
	if err != nil {
		return nil, apperr.Normalize(StoreGraph, "list_faculty_names", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// TopCoauthors returns a ranking of faculty's collaborators of the given size.
func (s *Service) TopCoauthors(ctx context.Context, faculty string, limit int) ([]models.Coauthor, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rows []models.Coauthor
	err := s.observe(StoreGraph, "top_coauthors", func() (err error) {
		rows, err = s.graph.TopCoauthors(ctx, faculty, limit)
		return err
	})
	if err != nil {
		return nil, apperr.Normalize(StoreGraph, "top_coauthors", err)
	}
	if rows == nil {
		rows = []models.Coauthor{}
	}
	return rows, nil
}

// TopInstitutes returns universities ranked by publication count.
func (s *Service) TopInstitutes(ctx context.Context, limit int) ([]models.InstituteCount, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rows []models.InstituteCount
	err := s.observe(StoreRelational, "top_institutes", func() (err error) {
		rows, err = s.pubs.TopInstitutes(ctx, limit)
		return err
	})
	if err != nil {
		return nil, apperr.Normalize(StoreRelational, "top_institutes", err)
	}
	if rows == nil {
		rows = []models.InstituteCount{}
	}
	return rows, nil
}

func toFailure(field, store, op string, err error) Failure {
	f := Failure{Field: field, Store: store, Op: op, Kind: kindName(err), Message: err.Error()}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		f.Store, f.Op = ae.Store, ae.Op
		if ae.Err != nil {
			f.Message = ae.Err.Error()
		}
	}
	return f
}

func kindName(err error) string {
	switch apperr.KindOf(err) {
	case apperr.ErrNotFound:
		return "not_found"
	case apperr.ErrInvalid:
		return "invalid"
	default:
		return "unavailable"
	}
}
