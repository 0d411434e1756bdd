package storage

import (
	"context"
	"strings"
	"testing"
)

type stubRepo struct{ Repository }

func TestRegisterAndNew(t *testing.T) {
	Register("stub", func(ctx context.Context, cfg Config) (Repository, error) {
		return stubRepo{}, nil
	})

	repo, err := New(context.Background(), Config{Kind: "stub", DSN: "x"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := repo.(stubRepo); !ok {
		t.Fatalf("New returned %T", repo)
	}
}

func TestNewMissingKind(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("want error for empty kind")
	}
}

func TestNewUnknownKind(t *testing.T) {
	_, err := New(context.Background(), Config{Kind: "nope"})
	if err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("err = %v", err)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("duplicate Register did not panic")
		}
	}()
	f := func(ctx context.Context, cfg Config) (Repository, error) { return stubRepo{}, nil }
	Register("dup", f)
	Register("dup", f)
}

func TestJunctionRefColumn(t *testing.T) {
	tests := []struct {
		table string
		want  string
		ok    bool
	}{
		{TableMovieDirectors, "person_id", true},
		{TableMovieStars, "person_id", true},
		{TableMovieGenres, "genre_id", true},
		{TableMovies, "", false},
	}
	for _, tt := range tests {
		got, ok := JunctionRefColumn(tt.table)
		if got != tt.want || ok != tt.ok {
			t.Errorf("JunctionRefColumn(%s) = %q, %v", tt.table, got, ok)
		}
	}
}

func TestNameIDColumn(t *testing.T) {
	if col, ok := NameIDColumn(TablePersons); !ok || col != "person_id" {
		t.Errorf("persons -> %q, %v", col, ok)
	}
	if col, ok := NameIDColumn(TableGenres); !ok || col != "genre_id" {
		t.Errorf("genres -> %q, %v", col, ok)
	}
	if _, ok := NameIDColumn(TableMovies); ok {
		t.Error("movies should not be a dimension")
	}
}
