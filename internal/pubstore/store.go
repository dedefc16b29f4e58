// Package pubstore reads publication metadata and tracks review state in the
// relational store.
package pubstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/acadworld/internal/apperr"
	"github.com/starford/acadworld/internal/models"
	"github.com/starford/acadworld/internal/storecfg"
)

// Name identifies this store in errors, logs and metrics.
const Name = "relational"

// Store runs the publication queries against a database/sql pool.
type Store struct {
	db  *sql.DB
	d   dialect
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the source of review timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open connects to the database selected by cfg.Driver and pings it.
// It does not create any table; call EnsureSchema once at startup.
func Open(ctx context.Context, cfg storecfg.Config, opts ...Option) (*Store, error) {
	s, err := Connect(cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.Ping(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Connect prepares the pool without contacting the server.
func Connect(cfg storecfg.Config, opts ...Option) (*Store, error) {
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(d.driver, dataSource(cfg))
	if err != nil {
		return nil, fmt.Errorf("pubstore: open db: %w", err)
	}
	return newStore(db, d, opts...), nil
}

func newStore(db *sql.DB, d dialect, opts ...Option) *Store {
	s := &Store{db: db, d: d, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func dataSource(cfg storecfg.Config) string {
	switch cfg.Driver {
	case storecfg.DriverSQLite:
		return cfg.SQLiteDSN()
	case storecfg.DriverPostgres:
		return cfg.PostgresURL()
	default:
		if cfg.URI != "" {
			return cfg.URI
		}
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = cfg.Addr()
		mc.DBName = cfg.Database
		mc.ParseTime = true
		mc.Loc = time.UTC
		return mc.FormatDSN()
	}
}

// Close closes the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return apperr.E(Name, "ping", apperr.ErrUnavailable, err)
	}
	return nil
}

// EnsureSchema creates the review table if it does not exist. It is
// idempotent and runs at startup, never from the write path.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.exec(ctx, "ensure_schema", s.d.reviewDDL)
}

func (s *Store) exec(ctx context.Context, op string, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fail(ctx, op, err)
		}
	}
	return nil
}

// PublicationsPerYear counts a faculty member's publications per year,
// ascending. Years without publications are absent.
func (s *Store) PublicationsPerYear(ctx context.Context, faculty string) ([]models.YearCount, error) {
	const op = "publications_per_year"
	rows, err := s.db.QueryContext(ctx, s.d.rebind(`
		SELECT p.year, COUNT(DISTINCT p.id)
		FROM publication p
		  JOIN faculty_publication fp ON p.id = fp.publication_id
		  JOIN faculty f ON fp.faculty_id = f.id
		WHERE f.name = ?
		GROUP BY p.year
		ORDER BY p.year
	`), faculty)
	if err != nil {
		return nil, fail(ctx, op, err, slog.String("faculty", faculty))
	}
	defer rows.Close()

	out := []models.YearCount{}
	for rows.Next() {
		var yc models.YearCount
		if err := rows.Scan(&yc.Year, &yc.Count); err != nil {
			return nil, fail(ctx, op, err, slog.String("faculty", faculty))
		}
		out = append(out, yc)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(ctx, op, err, slog.String("faculty", faculty))
	}
	return out, nil
}

// TopInstitutes ranks universities by distinct publications of their
// faculty, descending, ties by name ascending.
func (s *Store) TopInstitutes(ctx context.Context, limit int) ([]models.InstituteCount, error) {
	const op = "top_institutes"
	if limit < 1 {
		return nil, apperr.Invalid(Name, op, "limit must be at least 1, got %d", limit)
	}
	rows, err := s.db.QueryContext(ctx, s.d.rebind(`
		SELECT u.name, COUNT(DISTINCT p.id) AS cnt
		FROM university u
		  JOIN faculty f ON f.university_id = u.id
		  JOIN faculty_publication fp ON fp.faculty_id = f.id
		  JOIN publication p ON p.id = fp.publication_id
		GROUP BY u.name
		ORDER BY cnt DESC, u.name ASC
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, fail(ctx, op, err, slog.Int("limit", limit))
	}
	defer rows.Close()

	out := []models.InstituteCount{}
	for rows.Next() {
		var ic models.InstituteCount
		if err := rows.Scan(&ic.Name, &ic.Publications); err != nil {
			return nil, fail(ctx, op, err, slog.Int("limit", limit))
		}
		out = append(out, ic)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(ctx, op, err, slog.Int("limit", limit))
	}
	return out, nil
}

// PapersForFaculty lists a faculty member's papers, newest year first, then by title.
func (s *Store) PapersForFaculty(ctx context.Context, faculty string) ([]models.Paper, error) {
	const op = "papers_for_faculty"
	rows, err := s.db.QueryContext(ctx, s.d.rebind(`
		SELECT DISTINCT p.id, p.title, p.year
		FROM publication p
		  JOIN faculty_publication fp ON p.id = fp.publication_id
		  JOIN faculty f ON fp.faculty_id = f.id
		WHERE f.name = ?
		ORDER BY p.year DESC, p.title ASC, p.id ASC
	`), faculty)
	if err != nil {
		return nil, fail(ctx, op, err, slog.String("faculty", faculty))
	}
	defer rows.Close()

	out := []models.Paper{}
	for rows.Next() {
		var p models.Paper
		if err := rows.Scan(&p.ID, &p.Title, &p.Year); err != nil {
			return nil, fail(ctx, op, err, slog.String("faculty", faculty))
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(ctx, op, err, slog.String("faculty", faculty))
	}
	return out, nil
}

// MarkReviewed records that paperID was reviewed now. The record is owned by
// the author with the lowest faculty id; marking again refreshes the
// timestamp. A publication without any known author yields apperr.ErrNotFound
// and leaves the table untouched.
func (s *Store) MarkReviewed(ctx context.Context, paperID int64) error {
	const op = "mark_reviewed"
	if paperID < 1 {
		return apperr.Invalid(Name, op, "paper id must be positive, got %d", paperID)
	}
	attr := slog.Int64("paper_id", paperID)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fail(ctx, op, err, attr)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var owner sql.NullInt64
	err = tx.QueryRowContext(ctx, s.d.rebind(`
		SELECT MIN(f.id)
		FROM faculty_publication fp
		  JOIN faculty f ON f.id = fp.faculty_id
		WHERE fp.publication_id = ?
	`), paperID).Scan(&owner)
	if err != nil {
		return fail(ctx, op, err, attr)
	}
	if !owner.Valid {
		slog.WarnContext(ctx, "mark reviewed on publication without author", attr)
		return apperr.NotFound(Name, op, "publication %d has no associated faculty", paperID)
	}

	upsert := s.d.rebind(s.d.upsert("publication_review", 1, "publication_id", "faculty_id", "reviewed_at"))
	if _, err := tx.ExecContext(ctx, upsert, paperID, owner.Int64, s.now().UTC()); err != nil {
		return fail(ctx, op, err, attr)
	}
	if err := tx.Commit(); err != nil {
		return fail(ctx, op, err, attr)
	}
	return nil
}

// ReviewedPapersForFaculty returns the ids of papers whose review record the
// faculty member owns, most recently reviewed first.
func (s *Store) ReviewedPapersForFaculty(ctx context.Context, faculty string) ([]int64, error) {
	const op = "reviewed_papers_for_faculty"
	rows, err := s.db.QueryContext(ctx, s.d.rebind(`
		SELECT r.publication_id
		FROM publication_review r
		  JOIN faculty f ON f.id = r.faculty_id
		WHERE f.name = ?
		ORDER BY r.reviewed_at DESC, r.publication_id DESC
	`), faculty)
	if err != nil {
		return nil, fail(ctx, op, err, slog.String("faculty", faculty))
	}
	defer rows.Close()

	out := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fail(ctx, op, err, slog.String("faculty", faculty))
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(ctx, op, err, slog.String("faculty", faculty))
	}
	return out, nil
}

// ReviewRecord returns the review record for paperID or apperr.ErrNotFound.
func (s *Store) ReviewRecord(ctx context.Context, paperID int64) (*models.ReviewRecord, error) {
	const op = "review_record"
	var r models.ReviewRecord
	err := s.db.QueryRowContext(ctx, s.d.rebind(`
		SELECT publication_id, faculty_id, reviewed_at
		FROM publication_review
		WHERE publication_id = ?
	`), paperID).Scan(&r.PublicationID, &r.FacultyID, &r.ReviewedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound(Name, op, "no review record for publication %d", paperID)
	}
	if err != nil {
		return nil, fail(ctx, op, err, slog.Int64("paper_id", paperID))
	}
	r.ReviewedAt = r.ReviewedAt.UTC()
	return &r, nil
}

func fail(ctx context.Context, op string, err error, attrs ...slog.Attr) error {
	attrs = append(attrs, slog.String("store", Name), slog.String("op", op), slog.String("error", err.Error()))
	slog.LogAttrs(ctx, slog.LevelError, "relational store query failed", attrs...)
	return apperr.E(Name, op, apperr.ErrUnavailable, err)
}
