package graphstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/acadworld/internal/apperr"
	"github.com/starford/acadworld/internal/models"
)

// The embedded graph keeps nodes and PUBLISH edges in three tables so it can
// share a database file with the other embedded stores.
const sqliteSchemaSQL = `
CREATE TABLE IF NOT EXISTS graph_faculty (
	name      TEXT PRIMARY KEY,
	position  TEXT NOT NULL DEFAULT '',
	photo_url TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS graph_publication (
	id    TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	year  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS graph_publish (
	faculty     TEXT NOT NULL,
	publication TEXT NOT NULL,
	UNIQUE(faculty, publication)
);

CREATE INDEX IF NOT EXISTS idx_graph_publish_publication ON graph_publish(publication);
`

// SQLite is an embedded graph backend used for local runs and tests.
type SQLite struct {
	conn *sql.DB
}

var _ Backend = (*SQLite)(nil)

// OpenSQLite opens (or creates) the database and applies the graph schema.
func OpenSQLite(dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("graphstore: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, apperr.E(Name, "open", apperr.ErrUnavailable, err)
	}
	if _, err := conn.Exec(sqliteSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("graphstore: apply schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

func (s *SQLite) Ping(ctx context.Context) error {
	if err := s.conn.PingContext(ctx); err != nil {
		return apperr.E(Name, "ping", apperr.ErrUnavailable, err)
	}
	return nil
}

func (s *SQLite) ListFacultyNames(ctx context.Context) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT name FROM graph_faculty ORDER BY name`)
	if err != nil {
		return nil, fail(ctx, "list_faculty_names", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fail(ctx, "list_faculty_names", err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(ctx, "list_faculty_names", err)
	}
	return out, nil
}

func (s *SQLite) FacultyProfile(ctx context.Context, name string) (*models.FacultyProfile, error) {
	var p models.FacultyProfile
	err := s.conn.QueryRowContext(ctx,
		`SELECT name, position, photo_url FROM graph_faculty WHERE name = ?`, name,
	).Scan(&p.Name, &p.Position, &p.PhotoURL)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fail(ctx, "faculty_profile", err, slog.String("faculty", name))
	}
	return &p, nil
}

func (s *SQLite) TopCoauthors(ctx context.Context, name string, limit int) ([]models.Coauthor, error) {
	if err := checkLimit("top_coauthors", limit); err != nil {
		return nil, err
	}
	rows, err := s.conn.QueryContext(ctx, `
		SELECT co.faculty, COUNT(DISTINCT co.publication) AS joint
		FROM graph_publish me
		JOIN graph_publish co
		  ON co.publication = me.publication AND co.faculty <> me.faculty
		WHERE me.faculty = ?
		GROUP BY co.faculty
		ORDER BY joint DESC, co.faculty ASC
		LIMIT ?
	`, name, limit)
	if err != nil {
		return nil, fail(ctx, "top_coauthors", err, slog.String("faculty", name))
	}
	defer rows.Close()

	out := []models.Coauthor{}
	for rows.Next() {
		var c models.Coauthor
		if err := rows.Scan(&c.Name, &c.JointPublications); err != nil {
			return nil, fail(ctx, "top_coauthors", err, slog.String("faculty", name))
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(ctx, "top_coauthors", err, slog.String("faculty", name))
	}
	return out, nil
}

// Load replaces the graph with the dataset's faculty and publication nodes and
// their PUBLISH edges in one transaction.
func (s *SQLite) Load(ctx context.Context, ds *models.Dataset) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("graphstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	for _, table := range []string{"graph_publish", "graph_publication", "graph_faculty"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("graphstore: clear %s: %w", table, err)
		}
	}

	for _, f := range ds.Faculty {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO graph_faculty (name, position, photo_url)
			VALUES (?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				position  = excluded.position,
				photo_url = excluded.photo_url
		`, f.Name, f.Position, f.PhotoURL)
		if err != nil {
			return fmt.Errorf("graphstore: upsert faculty %q: %w", f.Name, err)
		}
	}

	byID := ds.FacultyByID()
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO graph_publish (faculty, publication) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("graphstore: prepare edge insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range ds.Publications {
		id := strconv.FormatInt(p.ID, 10)
		_, err := tx.ExecContext(ctx, `
			INSERT INTO graph_publication (id, title, year)
			VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				year  = excluded.year
		`, id, p.Title, p.Year)
		if err != nil {
			return fmt.Errorf("graphstore: upsert publication %d: %w", p.ID, err)
		}
		for _, author := range p.Authors {
			f, ok := byID[author]
			if !ok {
				return fmt.Errorf("graphstore: publication %d: unknown author id %d", p.ID, author)
			}
			if _, err := stmt.ExecContext(ctx, f.Name, id); err != nil {
				return fmt.Errorf("graphstore: insert edge: %w", err)
			}
		}
	}

	return tx.Commit()
}

func fail(ctx context.Context, op string, err error, attrs ...slog.Attr) error {
	attrs = append(attrs, slog.String("store", Name), slog.String("op", op), slog.String("error", err.Error()))
	slog.LogAttrs(ctx, slog.LevelError, "graph store query failed", attrs...)
	return apperr.E(Name, op, apperr.ErrUnavailable, err)
}
