package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"moviesetl/internal/movie"
	"moviesetl/internal/storage"
)

// Repo implements storage.Repository for Postgres on top of pgxpool.
//
// Idempotency of dimension and junction inserts uses ON CONFLICT DO NOTHING
// against the schema's UNIQUE and composite-PK constraints.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a Postgres-backed Repo and verifies connectivity.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Repo{pool: pool}, nil
}

// Close closes the connection pool.
func (r *Repo) Close() {
	r.pool.Close()
}

// dropOrder lists tables children-first so foreign keys never block a drop.
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
		person_id SERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE genres (
		genre_id SERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE movies (
		movie_id SERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		year TEXT,
		rating DECIMAL(3,1),
		description TEXT,
		votes BIGINT,
		runtime INTEGER,
		gross NUMERIC
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
//
// DROP ... CASCADE keeps the reset robust even when a previous run left the
// schema in a partial state. Sequences restart with the tables, so surrogate
// ids are dense again after every reset.
func (r *Repo) ResetSchema(ctx context.Context) error {
	for _, t := range dropOrder {
		if _, err := r.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", t)); err != nil {
			return fmt.Errorf("drop table %s: %w", t, err)
		}
	}
	for _, stmt := range createStatements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

// Conservative chunk size to keep statements small and stay far below the
// Postgres parameter limit.
const chunk = 2000

// EnsureNames inserts missing dimension names using ON CONFLICT DO NOTHING.
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
		sql, args := buildEnsureNamesSQL(table, names[start:end])
		if _, err := r.pool.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("EnsureNames: insert into %s: %w", table, err)
		}
	}
	return nil
}

// buildEnsureNamesSQL constructs the idempotent dimension insert.
//
// Pure and deterministic so placeholder numbering and the conflict clause can
// be unit tested without a database.
func buildEnsureNamesSQL(table string, names []string) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (name) VALUES ")

	args := make([]any, 0, len(names))
	for i, n := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "($%d)", i+1)
		args = append(args, n)
	}
	b.WriteString(" ON CONFLICT (name) DO NOTHING")
	return b.String(), args
}

// SelectNameIDs returns the full name -> id mapping for a dimension table.
func (r *Repo) SelectNameIDs(ctx context.Context, table string) (map[string]int64, error) {
	idCol, ok := storage.NameIDColumn(table)
	if !ok {
		return nil, fmt.Errorf("SelectNameIDs: %s is not a dimension table", table)
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf("SELECT name, %s FROM %s", idCol, table))
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("SelectNameIDs: rows %s: %w", table, err)
	}
	return out, nil
}

// InsertMovie inserts one movie row and returns the generated id.
//
// The statement runs in autocommit mode on its own: a failed insert leaves
// nothing behind, which is what lets the orchestrator skip bad rows without
// poisoning the rest of the load.
func (r *Repo) InsertMovie(ctx context.Context, rec movie.Record) (int64, error) {
	const q = `INSERT INTO movies (title, year, rating, description, votes, runtime, gross)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING movie_id`

	var id int64
	err := r.pool.QueryRow(ctx, q,
		rec.Title, rec.Year.String(), rec.Rating, rec.Description,
		rec.Votes, rec.Runtime, rec.Gross,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert movie %q: %w", rec.Title, err)
	}
	return id, nil
}

// InsertLinks bulk-inserts junction rows, ignoring duplicate pairs via the
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
		sql, args := buildInsertLinksSQL(table, refCol, links[start:end])
		cmd, err := r.pool.Exec(ctx, sql, args...)
		if err != nil {
			return total, fmt.Errorf("InsertLinks: insert into %s: %w", table, err)
		}
		total += cmd.RowsAffected()
	}
	return total, nil
}

// buildInsertLinksSQL constructs the junction insert, pure for testability.
func buildInsertLinksSQL(table, refCol string, links []storage.Link) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (movie_id, ")
	b.WriteString(refCol)
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(links)*2)
	p := 1
	for i, l := range links {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "($%d, $%d)", p, p+1)
		args = append(args, l.MovieID, l.RefID)
		p += 2
	}
	b.WriteString(" ON CONFLICT (movie_id, ")
	b.WriteString(refCol)
	b.WriteString(") DO NOTHING")
	return b.String(), args
}
