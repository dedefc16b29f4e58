package annotations

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/acadworld/internal/apperr"
	"github.com/starford/acadworld/internal/models"
)

// SQLite keeps notes in a local table. Used for embedded runs and tests.
type SQLite struct {
	conn *sql.DB
	now  func() time.Time
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (or creates) the database. Call EnsureSchema before use.
func OpenSQLite(dsn string, opts ...Option) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("annotations: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, apperr.E(Name, "open", apperr.ErrUnavailable, err)
	}
	o := buildOptions(opts)
	return &SQLite{conn: conn, now: o.now}, nil
}

func (s *SQLite) EnsureSchema(ctx context.Context) error {
	_, err := s.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS faculty_notes (
			id         TEXT PRIMARY KEY,
			faculty    TEXT NOT NULL,
			text       TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_faculty_notes_faculty ON faculty_notes(faculty, created_at);
	`)
	if err != nil {
		return fail(ctx, "ensure_schema", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.conn.Close()
}

func (s *SQLite) Ping(ctx context.Context) error {
	if err := s.conn.PingContext(ctx); err != nil {
		return apperr.E(Name, "ping", apperr.ErrUnavailable, err)
	}
	return nil
}

func (s *SQLite) NotesForFaculty(ctx context.Context, faculty string) ([]models.Note, error) {
	const op = "notes_for_faculty"
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, faculty, text, created_at
		FROM faculty_notes
		WHERE faculty = ?
		ORDER BY created_at DESC, rowid DESC
	`, faculty)
	if err != nil {
		return nil, fail(ctx, op, err, slog.String("faculty", faculty))
	}
	defer rows.Close()

	out := []models.Note{}
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.Faculty, &n.Text, &n.CreatedAt); err != nil {
			return nil, fail(ctx, op, err, slog.String("faculty", faculty))
		}
		n.CreatedAt = n.CreatedAt.UTC()
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(ctx, op, err, slog.String("faculty", faculty))
	}
	return out, nil
}

func (s *SQLite) AddNote(ctx context.Context, faculty, text string) (models.WriteStatus, error) {
	body, ok := normalize(text)
	if !ok {
		return models.StatusNoOp, nil
	}
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO faculty_notes (id, faculty, text, created_at) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), faculty, body, s.now().UTC())
	if err != nil {
		return models.StatusNoOp, fail(ctx, "add_note", err, slog.String("faculty", faculty))
	}
	return models.StatusWritten, nil
}
