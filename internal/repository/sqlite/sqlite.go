// Package sqlite implements the repository interfaces on top of SQLite using
// the pure-Go modernc.org/sqlite driver behind database/sql.
//
// The schema carries every invariant that must hold under concurrent writes:
// UNIQUE constraints for usernames, emails, slugs, (genre, title) and
// (author, title); a CHECK that rejects the reserved username "me"; a CHECK on
// the review score range; and foreign keys with the cascade/set-null rules of
// the data model.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/yamdb/internal/apperror"
)

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/yamdb.db" → file-based database
//   - ":memory:"      → in-memory database, used by tests
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// One connection: SQLite serialises writers anyway, and pragmas and
	// in-memory databases are per connection.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. Cascades depend on them.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			username          TEXT NOT NULL UNIQUE CHECK (length(username) <= 150),
			email             TEXT NOT NULL UNIQUE CHECK (length(email) <= 254),
			first_name        TEXT NOT NULL DEFAULT '',
			last_name         TEXT NOT NULL DEFAULT '',
			bio               TEXT NOT NULL DEFAULT '',
			role              TEXT NOT NULL DEFAULT 'user'
			                  CHECK (role IN ('user', 'moderator', 'admin')),
			confirmation_code TEXT NOT NULL DEFAULT '',
			is_superuser      INTEGER NOT NULL DEFAULT 0,
			date_joined       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT username_is_not_me CHECK (lower(username) <> 'me')
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS categories (
			id   INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL CHECK (length(name) <= 256),
			slug TEXT NOT NULL UNIQUE CHECK (length(slug) <= 30)
		);
		CREATE TABLE IF NOT EXISTS genres (
			id   INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL CHECK (length(name) <= 256),
			slug TEXT NOT NULL UNIQUE CHECK (length(slug) <= 30)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating category and genre tables: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS titles (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			name        TEXT NOT NULL CHECK (length(name) <= 256),
			year        INTEGER NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category_id INTEGER REFERENCES categories(id) ON DELETE SET NULL
		);
		CREATE INDEX IF NOT EXISTS idx_titles_year ON titles(year);
		CREATE INDEX IF NOT EXISTS idx_titles_category_id ON titles(category_id);

		CREATE TABLE IF NOT EXISTS genre_title (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			genre_id INTEGER NOT NULL REFERENCES genres(id) ON DELETE CASCADE,
			title_id INTEGER NOT NULL REFERENCES titles(id) ON DELETE CASCADE,
			CONSTRAINT unique_genre_title UNIQUE (genre_id, title_id)
		);
		CREATE INDEX IF NOT EXISTS idx_genre_title_title_id ON genre_title(title_id);
	`)
	if err != nil {
		return fmt.Errorf("creating title tables: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS reviews (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			title_id  INTEGER NOT NULL REFERENCES titles(id) ON DELETE CASCADE,
			author_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			text      TEXT NOT NULL,
			score     INTEGER NOT NULL CONSTRAINT score_range CHECK (score BETWEEN 1 AND 10),
			pub_date  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT unique_review UNIQUE (author_id, title_id)
		);
		CREATE INDEX IF NOT EXISTS idx_reviews_title_id ON reviews(title_id);

		CREATE TABLE IF NOT EXISTS comments (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			review_id INTEGER NOT NULL REFERENCES reviews(id) ON DELETE CASCADE,
			author_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			text      TEXT NOT NULL,
			pub_date  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_comments_review_id ON comments(review_id);
	`)
	if err != nil {
		return fmt.Errorf("creating review tables: %w", err)
	}

	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn in a transaction, committing on success. Inside fn only tx
// may be used: the pool holds a single connection.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// checkMessages maps CHECK constraint names to the field and reason a client
// should see.
var checkMessages = map[string]struct{ field, message string }{
	"username_is_not_me": {"username", `Username "me" is not allowed.`},
	"score_range":        {"score", "Acceptable evaluation are from 1 to 10!"},
}

// translateErr converts driver errors into domain errors. Constraint failures
// become apperror values; anything else is wrapped with op for context.
func translateErr(op string, err error) error {
	var se *sqlitedriver.Error
	if !errors.As(err, &se) || se.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return fmt.Errorf("sqlite: %s: %w", op, err)
	}

	msg := se.Error()
	detail := constraintDetail(msg)

	if strings.Contains(msg, "CHECK constraint failed") {
		if m, ok := checkMessages[detail]; ok {
			return apperror.ValidationFailed(m.field, m.message)
		}
		return apperror.ValidationFailed("", "invalid value: "+detail)
	}

	return apperror.ConstraintViolation(detail, err)
}

// constraintDetail extracts "users.username" from
// "... UNIQUE constraint failed: users.username (2067)".
func constraintDetail(msg string) string {
	i := strings.LastIndex(msg, "constraint failed: ")
	if i < 0 {
		return msg
	}
	detail := msg[i+len("constraint failed: "):]
	if j := strings.LastIndex(detail, " ("); j >= 0 {
		detail = detail[:j]
	}
	return strings.TrimSpace(detail)
}

// checkAffected turns "zero rows affected" into a NotFound error.
func checkAffected(result sql.Result, resource, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}

// likeContains builds a LIKE pattern matching s anywhere, escaping the LIKE
// wildcards. Use together with ESCAPE '\'.
func likeContains(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
