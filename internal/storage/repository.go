// Package storage defines the backend-agnostic repository interface for the
// normalized movie schema and the factory registry backends plug into.
package storage

import (
	"context"
	"fmt"
	"sync"

	"moviesetl/internal/movie"
)

// Table names of the normalized schema.
const (
	TablePersons        = "persons"
	TableGenres         = "genres"
	TableMovies         = "movies"
	TableMovieDirectors = "movie_directors"
	TableMovieStars     = "movie_stars"
	TableMovieGenres    = "movie_genres"
)

// Config is the minimal configuration needed to create a repository.
//
// Kind must match a registered backend kind. DSN is passed through to the
// backend factory; validation is backend-specific.
type Config struct {
	Kind string
	DSN  string
}

// Link is one junction row tying a movie to a person or genre.
type Link struct {
	MovieID int64
	RefID   int64
}

// Repository is the backend-agnostic store for the normalized movie model.
//
// The interface is intentionally minimal: exactly the operations the load
// orchestrator needs. Each backend implements the semantics in its own
// idiomatic way (Postgres ON CONFLICT, SQLite OR IGNORE, SQL Server
// insert-where-not-exists).
type Repository interface {
	// Close releases backend resources. Call once at process shutdown.
	Close()

	// ResetSchema drops and recreates the six destination tables. The
	// pipeline owns the schema lifecycle; every run starts from empty
	// tables with fresh identifier sequences.
	ResetSchema(ctx context.Context) error

	// EnsureNames inserts any of the given dimension names that do not yet
	// exist in table (persons or genres). Idempotent: re-ensuring the same
	// names is a no-op and never disturbs existing identifiers.
	EnsureNames(ctx context.Context, table string, names []string) error

	// SelectNameIDs returns the complete name -> surrogate id mapping for a
	// dimension table.
	SelectNameIDs(ctx context.Context, table string) (map[string]int64, error)

	// InsertMovie inserts one movie row and returns the store-assigned id.
	// Each call commits independently so a failed insert persists nothing.
	InsertMovie(ctx context.Context, rec movie.Record) (int64, error)

	// InsertLinks bulk-inserts junction rows into table, ignoring duplicate
	// pairs. Returns the number of rows actually inserted.
	InsertLinks(ctx context.Context, table string, links []Link) (int64, error)
}

// JunctionRefColumn maps a junction table to the name of its non-movie key
// column. The second result is false for non-junction tables.
func JunctionRefColumn(table string) (string, bool) {
	switch table {
	case TableMovieDirectors, TableMovieStars:
		return "person_id", true
	case TableMovieGenres:
		return "genre_id", true
	}
	return "", false
}

// NameIDColumn maps a dimension table to its surrogate key column.
func NameIDColumn(table string) (string, bool) {
	switch table {
	case TablePersons:
		return "person_id", true
	case TableGenres:
		return "genre_id", true
	}
	return "", false
}

// ---- backend factories ----

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	factoryMu sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind (e.g. "postgres", "sqlite").
//
// Call from an init() in a backend package. Registering an empty kind, a nil
// factory, or the same kind twice panics: backend selection must never be
// ambiguous.
func Register(kind string, f factory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New constructs a Repository using the registered backend factory.
//
// Safe for concurrent use with Register. Returns an error when cfg.Kind is
// empty or not registered, otherwise whatever the factory returns.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing Kind")
	}

	factoryMu.RLock()
	f := factories[cfg.Kind]
	factoryMu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
