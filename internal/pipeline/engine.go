// Package pipeline orchestrates a full load run: read raw rows, normalize
// them, resolve dimension entities and load movies plus their junction links.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"moviesetl/internal/config"
	"moviesetl/internal/listing"
	"moviesetl/internal/metrics"
	"moviesetl/internal/movie"
	csvparser "moviesetl/internal/parser/csv"
	"moviesetl/internal/storage"
)

// Run states, in execution order. FATAL is terminal for any stage error that
// cannot be isolated to a single row.
const (
	StateRead             = "READ"
	StateTransformed      = "TRANSFORMED"
	StateDimensionsBuilt  = "DIMENSIONS_BUILT"
	StateEntitiesResolved = "ENTITIES_RESOLVED"
	StateMoviesLoaded     = "MOVIES_LOADED"
	StateJunctionsLoaded  = "JUNCTIONS_LOADED"
	StateDone             = "DONE"
	StateFatal            = "FATAL"
)

// Logger is the minimal logging interface used by the engine.
// *log.Logger satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

// RowFn receives one raw row. Returning a non-nil error stops the stream.
type RowFn = csvparser.RowFn

// StreamFn is a seam for providing raw row streams.
//
// Production runs resolve the stream from the pipeline config (CSV file or
// saved listing page). Tests inject a deterministic stream without file I/O.
type StreamFn func(ctx context.Context, cfg config.Pipeline, fn RowFn, onErr func(line int, err error)) error

// Summary reports what a run did. Counters are cumulative over the whole run.
type Summary struct {
	State string

	RowsRead        int64
	RowsTransformed int64
	MoviesInserted  int64
	RowsFailed      int64

	Persons int
	Genres  int

	DirectorLinks int64
	StarLinks     int64
	GenreLinks    int64
}

// Engine drives one pipeline run against a storage repository.
type Engine struct {
	Repo   storage.Repository
	Logger Logger

	// Stream is an optional seam to make Engine unit-testable.
	// When nil, the stream is resolved from the pipeline config.
	Stream StreamFn
}

// Run executes the load plan. A failed stage returns with Summary.State set
// to FATAL; individual bad rows are logged, counted and skipped without
// aborting the run.
func (e *Engine) Run(ctx context.Context, cfg config.Pipeline) (Summary, error) {
	sum := Summary{State: StateFatal}
	if e.Repo == nil {
		return sum, fmt.Errorf("pipeline: Repo is required")
	}

	logf := e.logger()
	job := cfg.Job

	ddlStart := time.Now()
	err := e.Repo.ResetSchema(ctx)
	metrics.RecordStep(job, "ddl", err, time.Since(ddlStart))
	if err != nil {
		return sum, fmt.Errorf("reset schema: %w", err)
	}
	logf("stage=ddl ok duration=%s", durMS(ddlStart))

	readStart := time.Now()
	raws, readErrs, err := e.readRows(ctx, cfg)
	metrics.RecordStep(job, "read", err, time.Since(readStart))
	if err != nil {
		return sum, fmt.Errorf("read rows: %w", err)
	}
	sum.State = StateRead
	sum.RowsRead = int64(len(raws))
	sum.RowsFailed += readErrs
	metrics.RecordRow(job, "read", sum.RowsRead)
	metrics.RecordRow(job, "failed", readErrs)
	logf("stage=read ok rows=%d errors=%d duration=%s", len(raws), readErrs, durMS(readStart))

	// The transform never drops rows: every raw row becomes a record, so the
	// row=%d positions logged by later stages line up with input order and the
	// store stays the only per-row failure source.
	transformStart := time.Now()
	recs := make([]movie.Record, 0, len(raws))
	for _, raw := range raws {
		recs = append(recs, movie.FromRaw(raw))
	}
	metrics.RecordStep(job, "transform", nil, time.Since(transformStart))
	sum.State = StateTransformed
	sum.RowsTransformed = int64(len(recs))
	metrics.RecordRow(job, "transformed", sum.RowsTransformed)
	logf("stage=transform ok rows=%d duration=%s", len(recs), durMS(transformStart))

	persons, genres := movie.Dimensions(recs)
	sum.State = StateDimensionsBuilt
	sum.Persons = len(persons)
	sum.Genres = len(genres)
	logf("stage=dimensions ok persons=%d genres=%d", len(persons), len(genres))

	resolveStart := time.Now()
	personIDs, genreIDs, err := e.resolveEntities(ctx, persons, genres)
	metrics.RecordStep(job, "resolve_entities", err, time.Since(resolveStart))
	if err != nil {
		sum.State = StateFatal
		return sum, fmt.Errorf("resolve entities: %w", err)
	}
	sum.State = StateEntitiesResolved
	metrics.RecordBatches(job, 2)
	logf("stage=resolve_entities ok persons=%d genres=%d duration=%s", len(personIDs), len(genreIDs), durMS(resolveStart))

	moviesStart := time.Now()
	loaded := make([]loadedMovie, 0, len(recs))
	for i, rec := range recs {
		id, err := e.Repo.InsertMovie(ctx, rec)
		if err != nil {
			sum.RowsFailed++
			logf("stage=load_movies skip row=%d title=%q err=%v", i+1, rec.Title, err)
			continue
		}
		loaded = append(loaded, loadedMovie{id: id, rec: rec})
	}
	metrics.RecordStep(job, "load_movies", nil, time.Since(moviesStart))
	sum.State = StateMoviesLoaded
	sum.MoviesInserted = int64(len(loaded))
	metrics.RecordRow(job, "inserted", sum.MoviesInserted)
	metrics.RecordRow(job, "failed", sum.RowsFailed)
	logf("stage=load_movies ok rows=%d duration=%s", len(loaded), durMS(moviesStart))

	linksStart := time.Now()
	linkCounts, batches, err := e.loadLinks(ctx, loaded, personIDs, genreIDs, batchSize(cfg), logf)
	metrics.RecordStep(job, "load_links", err, time.Since(linksStart))
	if err != nil {
		sum.State = StateFatal
		return sum, fmt.Errorf("load links: %w", err)
	}
	sum.State = StateJunctionsLoaded
	sum.DirectorLinks = linkCounts.directors
	sum.StarLinks = linkCounts.stars
	sum.GenreLinks = linkCounts.genres
	metrics.RecordRow(job, "links", linkCounts.directors+linkCounts.stars+linkCounts.genres)
	metrics.RecordBatches(job, batches)
	logf("stage=load_links ok directors=%d stars=%d genres=%d duration=%s",
		linkCounts.directors, linkCounts.stars, linkCounts.genres, durMS(linksStart))

	sum.State = StateDone
	return sum, nil
}

type loadedMovie struct {
	id  int64
	rec movie.Record
}

type linkTotals struct {
	directors int64
	stars     int64
	genres    int64
}

// readRows collects every raw row the configured stream yields. Malformed
// rows are counted, not fatal.
func (e *Engine) readRows(ctx context.Context, cfg config.Pipeline) ([]movie.Raw, int64, error) {
	var raws []movie.Raw
	var errCount int64

	fn := func(line int, raw movie.Raw) error {
		raws = append(raws, raw)
		return nil
	}
	onErr := func(line int, err error) {
		errCount++
		e.logger()("stage=read skip line=%d err=%v", line, err)
	}

	stream := e.Stream
	if stream == nil {
		stream = streamFromConfig
	}
	if err := stream(ctx, cfg, fn, onErr); err != nil {
		return nil, errCount, err
	}
	return raws, errCount, nil
}

// streamFromConfig opens the configured source file and routes it through
// the parser the config names.
func streamFromConfig(ctx context.Context, cfg config.Pipeline, fn RowFn, onErr func(line int, err error)) error {
	f, err := os.Open(cfg.Source.File.Path)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	switch cfg.Parser.Kind {
	case "csv":
		return csvparser.StreamRawRows(ctx, f, cfg.Parser.Options, fn, onErr)

	case "html":
		raws, err := listing.ExtractRecords(f)
		if err != nil {
			return fmt.Errorf("extract listing: %w", err)
		}
		for i, raw := range raws {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(i+1, raw); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("unsupported parser kind %q", cfg.Parser.Kind)
	}
}

// resolveEntities runs the two bulk phases per dimension table: ensure every
// name exists, then fetch the full name to id mapping.
func (e *Engine) resolveEntities(ctx context.Context, persons, genres []string) (personIDs, genreIDs map[string]int64, _ error) {
	if err := e.Repo.EnsureNames(ctx, storage.TablePersons, persons); err != nil {
		return nil, nil, err
	}
	if err := e.Repo.EnsureNames(ctx, storage.TableGenres, genres); err != nil {
		return nil, nil, err
	}

	personIDs, err := e.Repo.SelectNameIDs(ctx, storage.TablePersons)
	if err != nil {
		return nil, nil, err
	}
	genreIDs, err = e.Repo.SelectNameIDs(ctx, storage.TableGenres)
	if err != nil {
		return nil, nil, err
	}
	return personIDs, genreIDs, nil
}

// loadLinks builds and bulk-inserts the three junction tables in batches of
// size batch. A name that resolves to no id is logged and skipped; the movie
// row itself stays.
func (e *Engine) loadLinks(ctx context.Context, loaded []loadedMovie, personIDs, genreIDs map[string]int64, batch int, logf func(format string, v ...any)) (linkTotals, int64, error) {
	var totals linkTotals
	var batches int64

	collect := func(movieID int64, names []string, ids map[string]int64, table string) []storage.Link {
		out := make([]storage.Link, 0, len(names))
		for _, name := range names {
			id, ok := ids[name]
			if !ok {
				logf("stage=load_links skip table=%s movie_id=%d name=%q reason=unresolved", table, movieID, name)
				continue
			}
			out = append(out, storage.Link{MovieID: movieID, RefID: id})
		}
		return out
	}

	var directors, stars, genreLinks []storage.Link
	for _, m := range loaded {
		directors = append(directors, collect(m.id, m.rec.Directors, personIDs, storage.TableMovieDirectors)...)
		stars = append(stars, collect(m.id, m.rec.Stars, personIDs, storage.TableMovieStars)...)
		genreLinks = append(genreLinks, collect(m.id, m.rec.Genres, genreIDs, storage.TableMovieGenres)...)
	}

	insert := func(table string, links []storage.Link) (int64, error) {
		var total int64
		for len(links) > 0 {
			n := batch
			if n > len(links) {
				n = len(links)
			}
			affected, err := e.Repo.InsertLinks(ctx, table, links[:n])
			if err != nil {
				return total, err
			}
			total += affected
			batches++
			links = links[n:]
		}
		return total, nil
	}

	n, err := insert(storage.TableMovieDirectors, directors)
	if err != nil {
		return totals, batches, err
	}
	totals.directors = n

	n, err = insert(storage.TableMovieStars, stars)
	if err != nil {
		return totals, batches, err
	}
	totals.stars = n

	n, err = insert(storage.TableMovieGenres, genreLinks)
	if err != nil {
		return totals, batches, err
	}
	totals.genres = n

	return totals, batches, nil
}

func batchSize(cfg config.Pipeline) int {
	if cfg.Runtime.BatchSize > 0 {
		return cfg.Runtime.BatchSize
	}
	return 1024
}

func (e *Engine) logger() func(format string, v ...any) {
	if e.Logger == nil {
		l := log.New(discardWriter{}, "", 0)
		return l.Printf
	}
	return e.Logger.Printf
}

func durMS(start time.Time) time.Duration { return time.Since(start).Truncate(time.Millisecond) }

type discardWriter struct{}

func (discardWriter) Write(p []byte) (n int, err error) { return len(p), nil }
