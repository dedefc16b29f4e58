package pubstore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/starford/acadworld/internal/storecfg"
)

// dialect holds the handful of statements that differ between engines.
// Queries are written with ? placeholders and rebound for PostgreSQL.
type dialect struct {
	name        string
	driver      string
	dollarBinds bool
	reviewDDL   []string
	baseDDL     []string
	upsertTail  func(keys, rest []string) string
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case storecfg.DriverSQLite:
		return sqliteDialect, nil
	case storecfg.DriverMySQL:
		return mysqlDialect, nil
	case storecfg.DriverPostgres:
		return postgresDialect, nil
	default:
		return dialect{}, fmt.Errorf("pubstore: unsupported driver %q", driver)
	}
}

func (d dialect) rebind(query string) string {
	if !d.dollarBinds {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// upsert builds INSERT INTO table (cols) VALUES (?, ...) plus the engine's
// conflict clause. The first nkeys columns form the conflict key; every other
// column is overwritten on conflict.
func (d dialect) upsert(table string, nkeys int, cols ...string) string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) %s",
		table, strings.Join(cols, ", "), marks, d.upsertTail(cols[:nkeys], cols[nkeys:]))
}

func excludedTail(keys, rest []string) string {
	if len(rest) == 0 {
		return fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", strings.Join(keys, ", "))
	}
	sets := make([]string, len(rest))
	for i, c := range rest {
		sets[i] = fmt.Sprintf("%s = excluded.%s", c, c)
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(keys, ", "), strings.Join(sets, ", "))
}

func mysqlTail(keys, rest []string) string {
	if len(rest) == 0 {
		return fmt.Sprintf("ON DUPLICATE KEY UPDATE %s = %s", keys[0], keys[0])
	}
	sets := make([]string, len(rest))
	for i, c := range rest {
		sets[i] = fmt.Sprintf("%s = VALUES(%s)", c, c)
	}
	return "ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
}

var sqliteDialect = dialect{
	name:       "sqlite3",
	driver:     "sqlite3",
	upsertTail: excludedTail,
	reviewDDL: []string{
		`CREATE TABLE IF NOT EXISTS publication_review (
			publication_id INTEGER PRIMARY KEY,
			faculty_id     INTEGER NOT NULL,
			reviewed_at    DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_publication_review_faculty ON publication_review(faculty_id, reviewed_at)`,
	},
	baseDDL: []string{
		`CREATE TABLE IF NOT EXISTS university (
			id   INTEGER PRIMARY KEY,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS faculty (
			id            INTEGER PRIMARY KEY,
			name          TEXT NOT NULL,
			position      TEXT NOT NULL DEFAULT '',
			photo_url     TEXT NOT NULL DEFAULT '',
			university_id INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS publication (
			id    INTEGER PRIMARY KEY,
			title TEXT NOT NULL,
			year  INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS faculty_publication (
			faculty_id     INTEGER NOT NULL,
			publication_id INTEGER NOT NULL,
			PRIMARY KEY (faculty_id, publication_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_faculty_publication_pub ON faculty_publication(publication_id)`,
	},
}

var postgresDialect = dialect{
	name:        "postgres",
	driver:      "pgx",
	dollarBinds: true,
	upsertTail:  excludedTail,
	reviewDDL: []string{
		`CREATE TABLE IF NOT EXISTS publication_review (
			publication_id BIGINT PRIMARY KEY,
			faculty_id     BIGINT NOT NULL,
			reviewed_at    TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_publication_review_faculty ON publication_review(faculty_id, reviewed_at)`,
	},
	baseDDL: []string{
		`CREATE TABLE IF NOT EXISTS university (
			id   BIGINT PRIMARY KEY,
			name VARCHAR(512) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS faculty (
			id            BIGINT PRIMARY KEY,
			name          VARCHAR(512) NOT NULL,
			position      VARCHAR(512) NOT NULL DEFAULT '',
			photo_url     VARCHAR(1024) NOT NULL DEFAULT '',
			university_id BIGINT
		)`,
		`CREATE TABLE IF NOT EXISTS publication (
			id    BIGINT PRIMARY KEY,
			title TEXT NOT NULL,
			year  INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS faculty_publication (
			faculty_id     BIGINT NOT NULL,
			publication_id BIGINT NOT NULL,
			PRIMARY KEY (faculty_id, publication_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_faculty_publication_pub ON faculty_publication(publication_id)`,
	},
}

var mysqlDialect = dialect{
	name:       "mysql",
	driver:     "mysql",
	upsertTail: mysqlTail,
	reviewDDL: []string{
		`CREATE TABLE IF NOT EXISTS publication_review (
			publication_id INT PRIMARY KEY,
			faculty_id     INT NOT NULL,
			reviewed_at    DATETIME(6) NOT NULL,
			INDEX idx_publication_review_faculty (faculty_id, reviewed_at)
		)`,
	},
	baseDDL: []string{
		`CREATE TABLE IF NOT EXISTS university (
			id   INT PRIMARY KEY,
			name VARCHAR(512) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS faculty (
			id            INT PRIMARY KEY,
			name          VARCHAR(512) NOT NULL,
			position      VARCHAR(512) NOT NULL DEFAULT '',
			photo_url     VARCHAR(1024) NOT NULL DEFAULT '',
			university_id INT
		)`,
		`CREATE TABLE IF NOT EXISTS publication (
			id    INT PRIMARY KEY,
			title TEXT NOT NULL,
			year  INT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS faculty_publication (
			faculty_id     INT NOT NULL,
			publication_id INT NOT NULL,
			PRIMARY KEY (faculty_id, publication_id),
			INDEX idx_faculty_publication_pub (publication_id)
		)`,
	},
}
