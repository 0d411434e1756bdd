package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"moviesetl/internal/config"
	"moviesetl/internal/movie"
	"moviesetl/internal/storage"
)

// fakeRepo is an in-memory Repository for engine tests.
type fakeRepo struct {
	resetCalls int
	resetErr   error

	ensured map[string][]string
	ids     map[string]map[string]int64
	nextID  map[string]int64

	movies      []movie.Record
	nextMovieID int64
	movieErrFor map[string]error

	omitFromSelect map[string]bool

	links map[string][]storage.Link
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		ensured:     map[string][]string{},
		ids:         map[string]map[string]int64{},
		nextID:      map[string]int64{},
		movieErrFor: map[string]error{},
		links:       map[string][]storage.Link{},
	}
}

func (f *fakeRepo) Close() {}

func (f *fakeRepo) ResetSchema(ctx context.Context) error {
	f.resetCalls++
	return f.resetErr
}

func (f *fakeRepo) EnsureNames(ctx context.Context, table string, names []string) error {
	f.ensured[table] = append(f.ensured[table], names...)
	m := f.ids[table]
	if m == nil {
		m = map[string]int64{}
		f.ids[table] = m
	}
	for _, n := range names {
		if _, ok := m[n]; !ok {
			f.nextID[table]++
			m[n] = f.nextID[table]
		}
	}
	return nil
}

func (f *fakeRepo) SelectNameIDs(ctx context.Context, table string) (map[string]int64, error) {
	out := map[string]int64{}
	for k, v := range f.ids[table] {
		if f.omitFromSelect[k] {
			continue
		}
		out[k] = v
	}
	return out, nil
}

func (f *fakeRepo) InsertMovie(ctx context.Context, rec movie.Record) (int64, error) {
	if err := f.movieErrFor[rec.Title]; err != nil {
		return 0, err
	}
	f.movies = append(f.movies, rec)
	f.nextMovieID++
	return f.nextMovieID, nil
}

func (f *fakeRepo) InsertLinks(ctx context.Context, table string, links []storage.Link) (int64, error) {
	f.links[table] = append(f.links[table], links...)
	return int64(len(links)), nil
}

func streamOf(raws []movie.Raw, parseErrs int) StreamFn {
	return func(ctx context.Context, cfg config.Pipeline, fn RowFn, onErr func(line int, err error)) error {
		line := 0
		for i := 0; i < parseErrs; i++ {
			line++
			onErr(line, errors.New("bad row"))
		}
		for _, r := range raws {
			line++
			if err := fn(line, r); err != nil {
				return err
			}
		}
		return nil
	}
}

func testConfig() config.Pipeline {
	var cfg config.Pipeline
	cfg.Job = "movies"
	cfg.Parser.Kind = "csv"
	cfg.Storage.Kind = "sqlite"
	return cfg
}

func TestRunHappyPath(t *testing.T) {
	repo := newFakeRepo()
	raws := []movie.Raw{
		{Title: "Alpha", Year: "(2019)", Genre: "Drama, Crime", Rating: "8.1", Votes: "1,234",
			Credits: "Director: Ada Smith | Stars: Bo Lee, Cy Park"},
		{Title: "Beta", Year: "(2018- )", Genre: "Drama", Rating: "7.0", Votes: "99",
			Credits: "Directors: Ada Smith, Di Wu | Stars: Bo Lee"},
		{Title: "Gamma", Year: "(2020)", Genre: "Sci-Fi", Rating: "6.5", Votes: "10",
			Credits: "Director: Di Wu | Star: Ed Young"},
	}

	e := &Engine{Repo: repo, Stream: streamOf(raws, 0)}
	sum, err := e.Run(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sum.State != StateDone {
		t.Errorf("state = %s", sum.State)
	}
	if sum.RowsRead != 3 || sum.RowsTransformed != 3 || sum.MoviesInserted != 3 || sum.RowsFailed != 0 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.Persons != 5 {
		t.Errorf("persons = %d", sum.Persons)
	}
	if sum.Genres != 3 {
		t.Errorf("genres = %d", sum.Genres)
	}

	if repo.resetCalls != 1 {
		t.Errorf("resetCalls = %d", repo.resetCalls)
	}
	if got := len(repo.links[storage.TableMovieDirectors]); got != 4 {
		t.Errorf("director links = %d", got)
	}
	if got := len(repo.links[storage.TableMovieStars]); got != 4 {
		t.Errorf("star links = %d", got)
	}
	if got := len(repo.links[storage.TableMovieGenres]); got != 4 {
		t.Errorf("genre links = %d", got)
	}
	if sum.DirectorLinks != 4 || sum.StarLinks != 4 || sum.GenreLinks != 4 {
		t.Errorf("link summary = %+v", sum)
	}
}

func TestRunRowFailureIsolated(t *testing.T) {
	repo := newFakeRepo()
	repo.movieErrFor["Bad"] = errors.New("constraint violation")

	raws := []movie.Raw{
		{Title: "Good", Year: "(2019)", Genre: "Drama", Credits: "Director: Ada Smith | Stars: Bo Lee"},
		{Title: "Bad", Year: "(2019)", Genre: "Drama", Credits: "Director: Ada Smith | Stars: Bo Lee"},
	}

	var logs strings.Builder
	e := &Engine{Repo: repo, Stream: streamOf(raws, 0), Logger: printfTo(&logs)}
	sum, err := e.Run(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sum.State != StateDone {
		t.Errorf("state = %s", sum.State)
	}
	if sum.MoviesInserted != 1 || sum.RowsFailed != 1 {
		t.Errorf("summary = %+v", sum)
	}
	// Failed movie must leave no junction rows behind.
	if got := len(repo.links[storage.TableMovieDirectors]); got != 1 {
		t.Errorf("director links = %d", got)
	}
	if !strings.Contains(logs.String(), `title="Bad"`) {
		t.Errorf("missing skip log, got %q", logs.String())
	}
}

func TestRunCountsParseFailures(t *testing.T) {
	repo := newFakeRepo()
	raws := []movie.Raw{
		{Title: "Good", Year: "(2019)"},
		{Title: "   ", Year: "(2019)"}, // collapses to empty title
	}

	e := &Engine{Repo: repo, Stream: streamOf(raws, 2)}
	sum, err := e.Run(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The blank title still transforms and loads: only the parser and the
	// store reject rows.
	if sum.RowsRead != 2 || sum.RowsTransformed != 2 || sum.MoviesInserted != 2 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.RowsFailed != 2 {
		t.Errorf("failed = %d", sum.RowsFailed)
	}
}

// Row positions in load failure logs match input order even when an earlier
// row carries an empty title.
func TestRunRowPositionsStable(t *testing.T) {
	repo := newFakeRepo()
	repo.movieErrFor["Bad"] = errors.New("constraint violation")

	raws := []movie.Raw{
		{Title: "  ", Year: "(2019)"},
		{Title: "Bad", Year: "(2019)"},
	}

	var logs strings.Builder
	e := &Engine{Repo: repo, Stream: streamOf(raws, 0), Logger: printfTo(&logs)}
	sum, err := e.Run(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sum.RowsTransformed != 2 || sum.MoviesInserted != 1 || sum.RowsFailed != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if len(repo.movies) != 1 || repo.movies[0].Title != "" {
		t.Errorf("movies = %+v", repo.movies)
	}
	if !strings.Contains(logs.String(), `row=2 title="Bad"`) {
		t.Errorf("missing positioned skip log, got %q", logs.String())
	}
}

func TestRunUnresolvedNameSkipsLink(t *testing.T) {
	repo := newFakeRepo()
	repo.omitFromSelect = map[string]bool{"Bo Lee": true}

	raws := []movie.Raw{
		{Title: "Alpha", Genre: "Drama", Credits: "Director: Ada Smith | Stars: Bo Lee"},
	}

	var logs strings.Builder
	e := &Engine{Repo: repo, Stream: streamOf(raws, 0), Logger: printfTo(&logs)}
	sum, err := e.Run(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.DirectorLinks != 1 || sum.StarLinks != 0 || sum.GenreLinks != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if !strings.Contains(logs.String(), "reason=unresolved") {
		t.Errorf("missing unresolved log, got %q", logs.String())
	}
}

func TestRunRequiresRepo(t *testing.T) {
	e := &Engine{}
	if _, err := e.Run(context.Background(), testConfig()); err == nil {
		t.Fatal("expected error for nil Repo")
	}
}

func TestRunResetSchemaErrorIsFatal(t *testing.T) {
	repo := newFakeRepo()
	repo.resetErr = errors.New("connection refused")

	e := &Engine{Repo: repo, Stream: streamOf(nil, 0)}
	sum, err := e.Run(context.Background(), testConfig())
	if err == nil {
		t.Fatal("expected error")
	}
	if sum.State != StateFatal {
		t.Errorf("state = %s", sum.State)
	}
}

func TestRunStreamsCSVFromConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "movies.csv")
	data := "MOVIES,YEAR,GENRE,RATING,ONE-LINE,STARS,VOTES,RunTime,Gross\n" +
		"Alpha,(2019),Drama,8.1,A fine film.,Director: Ada Smith | Stars: Bo Lee,\"1,234\",120,$12.30M\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.Source.File.Path = path

	repo := newFakeRepo()
	e := &Engine{Repo: repo}
	sum, err := e.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.RowsRead != 1 || sum.MoviesInserted != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if len(repo.movies) != 1 || repo.movies[0].Gross != 12_300_000 {
		t.Errorf("movies = %+v", repo.movies)
	}
}

func TestRunUnsupportedParserKind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "movies.xml")
	if err := os.WriteFile(path, []byte("<x/>"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.Parser.Kind = "xml"
	cfg.Source.File.Path = path

	e := &Engine{Repo: newFakeRepo()}
	if _, err := e.Run(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unsupported parser kind")
	}
}

func TestLoadLinksBatching(t *testing.T) {
	repo := newFakeRepo()
	countingRepo := &callCountRepo{fakeRepo: repo}

	raws := make([]movie.Raw, 0, 5)
	for i := 0; i < 5; i++ {
		raws = append(raws, movie.Raw{
			Title:   fmt.Sprintf("Movie %d", i),
			Genre:   "Drama",
			Credits: "Director: Ada Smith",
		})
	}

	cfg := testConfig()
	cfg.Runtime.BatchSize = 2

	e := &Engine{Repo: countingRepo, Stream: streamOf(raws, 0)}
	sum, err := e.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.DirectorLinks != 5 || sum.GenreLinks != 5 {
		t.Errorf("summary = %+v", sum)
	}
	// 5 links per junction at batch size 2 gives 3 calls each for the two
	// populated tables; stars is empty and gets none.
	if countingRepo.linkCalls != 6 {
		t.Errorf("link calls = %d", countingRepo.linkCalls)
	}
}

type callCountRepo struct {
	*fakeRepo
	linkCalls int
}

func (c *callCountRepo) InsertLinks(ctx context.Context, table string, links []storage.Link) (int64, error) {
	c.linkCalls++
	return c.fakeRepo.InsertLinks(ctx, table, links)
}

type printfFunc func(format string, v ...any)

func (f printfFunc) Printf(format string, v ...any) { f(format, v...) }

func printfTo(b *strings.Builder) Logger {
	return printfFunc(func(format string, v ...any) {
		fmt.Fprintf(b, format+"\n", v...)
	})
}
