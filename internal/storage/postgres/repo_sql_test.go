package postgres

import (
	"reflect"
	"testing"

	"moviesetl/internal/storage"
)

func TestBuildEnsureNamesSQL(t *testing.T) {
	sql, args := buildEnsureNamesSQL("persons", []string{"A", "B", "C"})

	wantSQL := "INSERT INTO persons (name) VALUES ($1), ($2), ($3) ON CONFLICT (name) DO NOTHING"
	if sql != wantSQL {
		t.Errorf("sql = %q\nwant  %q", sql, wantSQL)
	}
	if !reflect.DeepEqual(args, []any{"A", "B", "C"}) {
		t.Errorf("args = %v", args)
	}
}

func TestBuildEnsureNamesSQLSingle(t *testing.T) {
	sql, args := buildEnsureNamesSQL("genres", []string{"Drama"})
	wantSQL := "INSERT INTO genres (name) VALUES ($1) ON CONFLICT (name) DO NOTHING"
	if sql != wantSQL {
		t.Errorf("sql = %q", sql)
	}
	if len(args) != 1 || args[0] != "Drama" {
		t.Errorf("args = %v", args)
	}
}

func TestBuildInsertLinksSQL(t *testing.T) {
	links := []storage.Link{{MovieID: 1, RefID: 10}, {MovieID: 1, RefID: 11}}
	sql, args := buildInsertLinksSQL("movie_stars", "person_id", links)

	wantSQL := "INSERT INTO movie_stars (movie_id, person_id) VALUES ($1, $2), ($3, $4)" +
		" ON CONFLICT (movie_id, person_id) DO NOTHING"
	if sql != wantSQL {
		t.Errorf("sql = %q\nwant  %q", sql, wantSQL)
	}
	if !reflect.DeepEqual(args, []any{int64(1), int64(10), int64(1), int64(11)}) {
		t.Errorf("args = %v", args)
	}
}

func TestBuildInsertLinksSQLGenres(t *testing.T) {
	sql, _ := buildInsertLinksSQL("movie_genres", "genre_id", []storage.Link{{MovieID: 7, RefID: 3}})
	wantSQL := "INSERT INTO movie_genres (movie_id, genre_id) VALUES ($1, $2)" +
		" ON CONFLICT (movie_id, genre_id) DO NOTHING"
	if sql != wantSQL {
		t.Errorf("sql = %q", sql)
	}
}
