package explorer

import (
	"context"
	"log/slog"

	"github.com/starford/acadworld/internal/apperr"
	"github.com/starford/acadworld/internal/models"
	"github.com/starford/acadworld/internal/sse"
)

// NotesRefresh is the result of adding a note: the write status and the
// faculty member's notes as they are now.
type NotesRefresh struct {
	Faculty string        `json:"faculty"`
	Status  string        `json:"status"`
	Notes   []models.Note `json:"notes"`
	Failure *Failure      `json:"failure,omitempty"`
}

// ReviewsRefresh is the result of marking a paper reviewed.
type ReviewsRefresh struct {
	Faculty          string   `json:"faculty"`
	PaperID          int64    `json:"paper_id"`
	ReviewedPaperIDs []int64  `json:"reviewed_paper_ids"`
	Failure          *Failure `json:"failure,omitempty"`
}

// AddNote stores a note for faculty and re-reads the faculty member's notes.
// Blank text is a no-op, not an error. If the write succeeds but the re-read
// fails, the refresh carries a Failure instead of an error.
func (s *Service) AddNote(ctx context.Context, faculty, text string) (*NotesRefresh, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var status models.WriteStatus
	err := s.observe(StoreAnnotations, "add_note", func() (err error) {
		status, err = s.notes.AddNote(ctx, faculty, text)
		return err
	})
	if err != nil {
		s.metrics.ObserveWrite("note", "failed")
		return nil, apperr.Normalize(StoreAnnotations, "add_note", err)
	}
	s.metrics.ObserveWrite("note", status.String())
	if status == models.StatusWritten {
		slog.Info("note added", slog.String("faculty", faculty))
		s.notify(sse.KindNotes, faculty)
	}

	out := &NotesRefresh{Faculty: faculty, Status: status.String(), Notes: []models.Note{}}
	var notes []models.Note
	err = s.observe(StoreAnnotations, "notes_for_faculty", func() (err error) {
		notes, err = s.notes.NotesForFaculty(ctx, faculty)
		return err
	})
	if err != nil {
		f := toFailure(FieldNotes, StoreAnnotations, "notes_for_faculty", err)
		out.Failure = &f
		return out, nil
	}
	if notes != nil {
		out.Notes = notes
	}
	return out, nil
}

// MarkReviewed records paperID as reviewed and re-reads the reviewed ids of
// the selected faculty member. The record's owner is decided by the
// relational store and may be a different co-author.
func (s *Service) MarkReviewed(ctx context.Context, faculty string, paperID int64) (*ReviewsRefresh, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.observe(StoreRelational, "mark_reviewed", func() error {
		return s.pubs.MarkReviewed(ctx, paperID)
	})
	if err != nil {
		s.metrics.ObserveWrite("review", "failed")
		return nil, apperr.Normalize(StoreRelational, "mark_reviewed", err)
	}
	s.metrics.ObserveWrite("review", models.StatusWritten.String())
	slog.Info("paper marked reviewed", slog.String("faculty", faculty), slog.Int64("paper_id", paperID))
	s.notify(sse.KindReviews, faculty)

	out := &ReviewsRefresh{Faculty: faculty, PaperID: paperID, ReviewedPaperIDs: []int64{}}
	var ids []int64
	err = s.observe(StoreRelational, "reviewed_papers_for_faculty", func() (err error) {
		ids, err = s.pubs.ReviewedPapersForFaculty(ctx, faculty)
		return err
	})
	if err != nil {
		f := toFailure(FieldReviewedPaperIDs, StoreRelational, "reviewed_papers_for_faculty", err)
		out.Failure = &f
		return out, nil
	}
	if ids != nil {
		out.ReviewedPaperIDs = ids
	}
	return out, nil
}

// StoreHealth is the reachability of one store.
type StoreHealth struct {
	Store string `json:"store"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Health pings every store.
func (s *Service) Health(ctx context.Context) []StoreHealth {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	check := func(name string, ping func(context.Context) error) StoreHealth {
		err := s.observe(name, "ping", func() error { return ping(ctx) })
		if err != nil {
			return StoreHealth{Store: name, Error: err.Error()}
		}
		return StoreHealth{Store: name, OK: true}
	}
	return []StoreHealth{
		check(StoreGraph, s.graph.Ping),
		check(StoreRelational, s.pubs.Ping),
		check(StoreAnnotations, s.notes.Ping),
	}
}
