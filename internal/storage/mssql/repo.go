package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"moviesetl/internal/movie"
	"moviesetl/internal/storage"
)

// Repo implements storage.Repository for Microsoft SQL Server.
//
// SQL Server has no ON CONFLICT clause, so idempotent dimension and junction
// inserts use an insert-where-not-exists pattern over a VALUES table. MERGE
// is deliberately avoided.
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("mssql", New)
}

// New opens a SQL Server connection pool and verifies connectivity.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}

	// Conservative defaults for ETL-style bursty loads.
	db.SetMaxOpenConns(64)
	db.SetMaxIdleConns(64)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() {
	if r == nil || r.db == nil {
		return
	}
	_ = r.db.Close()
}

var dropOrder = []string{
	storage.TableMovieGenres,
	storage.TableMovieStars,
	storage.TableMovieDirectors,
	storage.TableMovies,
	storage.TableGenres,
	storage.TablePersons,
}

// name columns are NVARCHAR(450) so the UNIQUE index stays inside SQL
// Server's 900-byte key limit.
var createStatements = []string{
	`CREATE TABLE persons (
		person_id INT IDENTITY(1,1) PRIMARY KEY,
		name NVARCHAR(450) NOT NULL UNIQUE
	)`,
	`CREATE TABLE genres (
		genre_id INT IDENTITY(1,1) PRIMARY KEY,
		name NVARCHAR(450) NOT NULL UNIQUE
	)`,
	`CREATE TABLE movies (
		movie_id INT IDENTITY(1,1) PRIMARY KEY,
		title NVARCHAR(MAX) NOT NULL,
		year NVARCHAR(32),
		rating DECIMAL(3,1),
		description NVARCHAR(MAX),
		votes BIGINT,
		runtime INT,
		gross NUMERIC(18,2)
	)`,
	`CREATE TABLE movie_directors (
		movie_id INT NOT NULL REFERENCES movies(movie_id),
		person_id INT NOT NULL REFERENCES persons(person_id),
		PRIMARY KEY (movie_id, person_id)
	)`,
	`CREATE TABLE movie_stars (
		movie_id INT NOT NULL REFERENCES movies(movie_id),
		person_id INT NOT NULL REFERENCES persons(person_id),
		PRIMARY KEY (movie_id, person_id)
	)`,
	`CREATE TABLE movie_genres (
		movie_id INT NOT NULL REFERENCES movies(movie_id),
		genre_id INT NOT NULL REFERENCES genres(genre_id),
		PRIMARY KEY (movie_id, genre_id)
	)`,
}

// ResetSchema drops and recreates the six destination tables.
func (r *Repo) ResetSchema(ctx context.Context) error {
	for _, t := range dropOrder {
		if _, err := r.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+t); err != nil {
			return fmt.Errorf("mssql: drop table %s: %w", t, err)
		}
	}
	for _, stmt := range createStatements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("mssql: create table: %w", err)
		}
	}
	return nil
}

// SQL Server has a hard limit of 2100 parameters per statement; stay well
// below it.
const chunk = 1000

// EnsureNames inserts missing dimension names using insert-where-not-exists.
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
		q, args := buildEnsureNamesSQL(table, names[start:end])
		if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("EnsureNames: insert into %s: %w", table, err)
		}
	}
	return nil
}

// buildEnsureNamesSQL builds the anti-semi-join insert. Pure for testability.
func buildEnsureNamesSQL(table string, names []string) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (name) SELECT v.name FROM (VALUES ")

	args := make([]any, 0, len(names))
	for i, n := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "(@p%d)", i+1)
		args = append(args, n)
	}
	b.WriteString(") AS v(name) WHERE NOT EXISTS (SELECT 1 FROM ")
	b.WriteString(table)
	b.WriteString(" t WHERE t.name = v.name)")
	return b.String(), args
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

// InsertMovie inserts one movie row and returns the identity value via
// OUTPUT INSERTED.
func (r *Repo) InsertMovie(ctx context.Context, rec movie.Record) (int64, error) {
	const q = `INSERT INTO movies (title, year, rating, description, votes, runtime, gross)
		OUTPUT INSERTED.movie_id
		VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7)`

	var id int64
	err := r.db.QueryRowContext(ctx, q,
		rec.Title, rec.Year.String(), rec.Rating, rec.Description,
		rec.Votes, rec.Runtime, rec.Gross,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("mssql: insert movie %q: %w", rec.Title, err)
	}
	return id, nil
}

// InsertLinks bulk-inserts junction rows, skipping pairs that already exist.
func (r *Repo) InsertLinks(ctx context.Context, table string, links []storage.Link) (int64, error) {
	if len(links) == 0 {
		return 0, nil
	}
	refCol, ok := storage.JunctionRefColumn(table)
	if !ok {
		return 0, fmt.Errorf("InsertLinks: %s is not a junction table", table)
	}

	var total int64
	for start := 0; start < len(links); start += chunk / 2 {
		end := start + chunk/2
		if end > len(links) {
			end = len(links)
		}
		q, args := buildInsertLinksSQL(table, refCol, links[start:end])
		res, err := r.db.ExecContext(ctx, q, args...)
		if err != nil {
			return total, fmt.Errorf("InsertLinks: insert into %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// buildInsertLinksSQL builds the junction anti-semi-join insert.
func buildInsertLinksSQL(table, refCol string, links []storage.Link) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (movie_id, ")
	b.WriteString(refCol)
	b.WriteString(") SELECT v.movie_id, v.ref_id FROM (VALUES ")

	args := make([]any, 0, len(links)*2)
	p := 1
	for i, l := range links {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "(@p%d, @p%d)", p, p+1)
		args = append(args, l.MovieID, l.RefID)
		p += 2
	}
	b.WriteString(") AS v(movie_id, ref_id) WHERE NOT EXISTS (SELECT 1 FROM ")
	b.WriteString(table)
	b.WriteString(" t WHERE t.movie_id = v.movie_id AND t.")
	b.WriteString(refCol)
	b.WriteString(" = v.ref_id)")
	return b.String(), args
}
