package explorer

import (
	"context"
	"errors"
	"sync"

	"github.com/starford/acadworld/internal/apperr"
	"github.com/starford/acadworld/internal/models"
)

var errDown = errors.New("connection refused")

// downGraph, downPubs and downNotes fail every call.
type downGraph struct{}

func (downGraph) ListFacultyNames(context.Context) ([]string, error) {
	return nil, apperr.E(StoreGraph, "list_faculty_names", apperr.ErrUnavailable, errDown)
}

func (downGraph) FacultyProfile(context.Context, string) (*models.FacultyProfile, error) {
	return nil, apperr.E(StoreGraph, "faculty_profile", apperr.ErrUnavailable, errDown)
}

func (downGraph) TopCoauthors(context.Context, string, int) ([]models.Coauthor, error) {
	return nil, apperr.E(StoreGraph, "top_coauthors", apperr.ErrUnavailable, errDown)
}

func (downGraph) Ping(context.Context) error { return errDown }

type downPubs struct{}

func (downPubs) PublicationsPerYear(context.Context, string) ([]models.YearCount, error) {
	return nil, errDown
}

func (downPubs) TopInstitutes(context.Context, int) ([]models.InstituteCount, error) {
	return nil, errDown
}

func (downPubs) PapersForFaculty(context.Context, string) ([]models.Paper, error) {
	return nil, errDown
}

func (downPubs) MarkReviewed(context.Context, int64) error { return errDown }

func (downPubs) ReviewedPapersForFaculty(context.Context, string) ([]int64, error) {
	return nil, errDown
}

func (downPubs) Ping(context.Context) error { return errDown }

type downNotes struct{}

func (downNotes) NotesForFaculty(context.Context, string) ([]models.Note, error) {
	return nil, errDown
}

func (downNotes) AddNote(context.Context, string, string) (models.WriteStatus, error) {
	return models.StatusNoOp, errDown
}

func (downNotes) Ping(context.Context) error { return errDown }

// readFailNotes accepts writes but cannot read them back.
type readFailNotes struct{ downNotes }

func (readFailNotes) AddNote(context.Context, string, string) (models.WriteStatus, error) {
	return models.StatusWritten, nil
}

// slowGraph blocks until the caller's context ends.
type slowGraph struct{ downGraph }

func (slowGraph) FacultyProfile(ctx context.Context, _ string) (*models.FacultyProfile, error) {
	<-ctx.Done()
	return nil, apperr.E(StoreGraph, "faculty_profile", apperr.ErrUnavailable, ctx.Err())
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) PublishChange(kind, faculty string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, kind+":"+faculty)
}

func (n *recordingNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}
