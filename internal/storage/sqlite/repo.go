package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"moviesetl/internal/movie"
	"moviesetl/internal/storage"
)

// Repo implements storage.Repository for SQLite.
//
// Differences from the Postgres backend:
//   - "INTEGER PRIMARY KEY" aliases the rowid, so surrogate ids are
//     auto-generated without a sequence.
//   - Idempotent inserts use INSERT OR IGNORE against the UNIQUE/PK
//     constraints instead of ON CONFLICT clauses.
//   - Foreign key enforcement requires PRAGMA foreign_keys=ON per connection;
//     New pins the pool to one connection and issues the pragma there.
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

// New opens a SQLite database and verifies connectivity.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	// The foreign_keys pragma is connection-scoped. A single-connection pool
	// keeps it in effect for every statement (and keeps :memory: databases
	// from silently splitting into one database per connection).
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

var dropOrder = []string{
	storage.TableMovieGenres,
	storage.TableMovieStars,
	storage.TableMovieDirectors,
	storage.TableMovies,
	storage.TableGenres,
	storage.TablePersons,
}

var createStatements = []string{
	`CREATE TABLE persons (
		person_id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE genres (
		genre_id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE movies (
		movie_id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		year TEXT,
		rating REAL,
		description TEXT,
		votes INTEGER,
		runtime INTEGER,
		gross REAL
	)`,
	`CREATE TABLE movie_directors (
		movie_id INTEGER NOT NULL REFERENCES movies(movie_id),
		person_id INTEGER NOT NULL REFERENCES persons(person_id),
		PRIMARY KEY (movie_id, person_id)
	)`,
	`CREATE TABLE movie_stars (
		movie_id INTEGER NOT NULL REFERENCES movies(movie_id),
		person_id INTEGER NOT NULL REFERENCES persons(person_id),
		PRIMARY KEY (movie_id, person_id)
	)`,
	`CREATE TABLE movie_genres (
		movie_id INTEGER NOT NULL REFERENCES movies(movie_id),
		genre_id INTEGER NOT NULL REFERENCES genres(genre_id),
		PRIMARY KEY (movie_id, genre_id)
	)`,
}

// ResetSchema drops and recreates the six destination tables.
func (r *Repo) ResetSchema(ctx context.Context) error {
	for _, t := range dropOrder {
		if _, err := r.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+t); err != nil {
			return fmt.Errorf("drop table %s: %w", t, err)
		}
	}
	for _, stmt := range createStatements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

// Conservative chunk size to stay far below the driver's bound-variable
// limit.
const chunk = 2000

// EnsureNames inserts missing dimension names via INSERT OR IGNORE.
func (r *Repo) EnsureNames(ctx context.Context, table string, names []string) error {
	if len(names) == 0 {
		return nil
	}
	if _, ok := storage.NameIDColumn(table); !ok {
		return fmt.Errorf("EnsureNames: %s is not a dimension table", table)
	}

	for start := 0; start < len(names); start += chunk {
		end := start + chunk
		if end > len(names) {
			end = len(names)
		}

		var b strings.Builder
		b.WriteString("INSERT OR IGNORE INTO ")
		b.WriteString(table)
		b.WriteString(" (name) VALUES ")

		part := names[start:end]
		args := make([]any, 0, len(part))
		for i, n := range part {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("(?)")
			args = append(args, n)
		}

		if _, err := r.db.ExecContext(ctx, b.String(), args...); err != nil {
			return fmt.Errorf("EnsureNames: insert into %s: %w", table, err)
		}
	}
	return nil
}

// SelectNameIDs returns the full name -> id mapping for a dimension table.
func (r *Repo) SelectNameIDs(ctx context.Context, table string) (map[string]int64, error) {
	idCol, ok := storage.NameIDColumn(table)
	if !ok {
		return nil, fmt.Errorf("SelectNameIDs: %s is not a dimension table", table)
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf("SELECT name, %s FROM %s", idCol, table))
	if err != nil {
		return nil, fmt.Errorf("SelectNameIDs: query %s: %w", table, err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var name string
		var id int64
		if err := rows.Scan(&name, &id); err != nil {
			return nil, fmt.Errorf("SelectNameIDs: scan %s: %w", table, err)
		}
		out[name] = id
	}
	return out, rows.Err()
}

// InsertMovie inserts one movie row and returns the rowid-backed id.
func (r *Repo) InsertMovie(ctx context.Context, rec movie.Record) (int64, error) {
	const q = `INSERT INTO movies (title, year, rating, description, votes, runtime, gross)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, q,
		rec.Title, rec.Year.String(), rec.Rating, rec.Description,
		rec.Votes, rec.Runtime, rec.Gross,
	)
	if err != nil {
		return 0, fmt.Errorf("insert movie %q: %w", rec.Title, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert movie %q: last insert id: %w", rec.Title, err)
	}
	return id, nil
}

// InsertLinks bulk-inserts junction rows; duplicate pairs are ignored via the
// composite primary key.
func (r *Repo) InsertLinks(ctx context.Context, table string, links []storage.Link) (int64, error) {
	if len(links) == 0 {
		return 0, nil
	}
	refCol, ok := storage.JunctionRefColumn(table)
	if !ok {
		return 0, fmt.Errorf("InsertLinks: %s is not a junction table", table)
	}

	var total int64
	for start := 0; start < len(links); start += chunk {
		end := start + chunk
		if end > len(links) {
			end = len(links)
		}

		var b strings.Builder
		b.WriteString("INSERT OR IGNORE INTO ")
		b.WriteString(table)
		b.WriteString(" (movie_id, ")
		b.WriteString(refCol)
		b.WriteString(") VALUES ")

		part := links[start:end]
		args := make([]any, 0, len(part)*2)
		for i, l := range part {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("(?, ?)")
			args = append(args, l.MovieID, l.RefID)
		}

		res, err := r.db.ExecContext(ctx, b.String(), args...)
		if err != nil {
			return total, fmt.Errorf("InsertLinks: insert into %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}
