package pubstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/starford/acadworld/internal/models"
)

// Load replaces the dataset tables with ds in one transaction. Review records
// survive for publications that still have an author; their owner is
// re-derived from the new authorship.
func (s *Store) Load(ctx context.Context, ds *models.Dataset) error {
	if err := s.exec(ctx, "load_schema", s.d.baseDDL); err != nil {
		return err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pubstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	for _, table := range []string{"faculty_publication", "publication", "faculty", "university"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("pubstore: clear %s: %w", table, err)
		}
	}

	upsertUniversity := s.d.rebind(s.d.upsert("university", 1, "id", "name"))
	for _, u := range ds.Universities {
		if _, err := tx.ExecContext(ctx, upsertUniversity, u.ID, u.Name); err != nil {
			return fmt.Errorf("pubstore: upsert university %d: %w", u.ID, err)
		}
	}

	upsertFaculty := s.d.rebind(s.d.upsert("faculty", 1, "id", "name", "position", "photo_url", "university_id"))
	for _, f := range ds.Faculty {
		uni := sql.NullInt64{Int64: f.UniversityID, Valid: f.UniversityID != 0}
		if _, err := tx.ExecContext(ctx, upsertFaculty, f.ID, f.Name, f.Position, f.PhotoURL, uni); err != nil {
			return fmt.Errorf("pubstore: upsert faculty %d: %w", f.ID, err)
		}
	}

	upsertPublication := s.d.rebind(s.d.upsert("publication", 1, "id", "title", "year"))
	linkAuthor := s.d.rebind(s.d.upsert("faculty_publication", 2, "faculty_id", "publication_id"))
	for _, p := range ds.Publications {
		if _, err := tx.ExecContext(ctx, upsertPublication, p.ID, p.Title, p.Year); err != nil {
			return fmt.Errorf("pubstore: upsert publication %d: %w", p.ID, err)
		}
		for _, author := range p.Authors {
			if _, err := tx.ExecContext(ctx, linkAuthor, author, p.ID); err != nil {
				return fmt.Errorf("pubstore: link faculty %d to publication %d: %w", author, p.ID, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM publication_review
		WHERE publication_id NOT IN (SELECT publication_id FROM faculty_publication)
	`); err != nil {
		return fmt.Errorf("pubstore: drop orphaned reviews: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE publication_review
		SET faculty_id = (
			SELECT MIN(fp.faculty_id)
			FROM faculty_publication fp
			WHERE fp.publication_id = publication_review.publication_id
		)
	`); err != nil {
		return fmt.Errorf("pubstore: re-derive review owners: %w", err)
	}

	return tx.Commit()
}
