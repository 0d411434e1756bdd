package movie

import (
	"reflect"
	"testing"

	"moviesetl/internal/normalize"
)

func TestFromRaw(t *testing.T) {
	in := Raw{
		Title:       "  The Matrix ",
		Year:        "(1999)",
		Genre:       "Action, Sci-Fi",
		Rating:      "8.7",
		Description: "A computer hacker learns\nabout the true nature of reality.",
		Votes:       "1,800,000",
		Runtime:     "136",
		Gross:       "$171.48M",
		Credits:     "Directors: Lana Wachowski, Lilly Wachowski | Stars: Keanu Reeves, Laurence Fishburne",
	}

	got := FromRaw(in)

	if got.Title != "The Matrix" {
		t.Errorf("Title = %q", got.Title)
	}
	if got.Year != (normalize.YearLabel{Kind: normalize.YearSingle, Start: 1999}) {
		t.Errorf("Year = %+v", got.Year)
	}
	if want := []string{"Action", "Sci-Fi"}; !reflect.DeepEqual(got.Genres, want) {
		t.Errorf("Genres = %v, want %v", got.Genres, want)
	}
	if got.Rating != 8.7 {
		t.Errorf("Rating = %v", got.Rating)
	}
	if got.Description != "A computer hacker learns about the true nature of reality." {
		t.Errorf("Description = %q", got.Description)
	}
	if got.Votes != 1_800_000 {
		t.Errorf("Votes = %d", got.Votes)
	}
	if got.Runtime != 136 {
		t.Errorf("Runtime = %d", got.Runtime)
	}
	if got.Gross != 171_480_000 {
		t.Errorf("Gross = %v", got.Gross)
	}
	if want := []string{"Lana Wachowski", "Lilly Wachowski"}; !reflect.DeepEqual(got.Directors, want) {
		t.Errorf("Directors = %v, want %v", got.Directors, want)
	}
	if want := []string{"Keanu Reeves", "Laurence Fishburne"}; !reflect.DeepEqual(got.Stars, want) {
		t.Errorf("Stars = %v, want %v", got.Stars, want)
	}
}

// A hostile row must still transform without panicking and with zeroed fields.
func TestFromRawHostileInput(t *testing.T) {
	got := FromRaw(Raw{
		Title:   "Untitled",
		Year:    "TBA",
		Genre:   "nan",
		Rating:  "n/a",
		Votes:   "unknown",
		Runtime: "999999999999999",
		Gross:   "$?",
	})

	if got.Year.Kind != normalize.YearUnknown {
		t.Errorf("Year.Kind = %v", got.Year.Kind)
	}
	if len(got.Genres) != 0 {
		t.Errorf("Genres = %v", got.Genres)
	}
	if got.Rating != 0 || got.Votes != 0 || got.Runtime != 0 || got.Gross != 0 {
		t.Errorf("numerics not zeroed: %+v", got)
	}
	if len(got.Directors) != 0 || len(got.Stars) != 0 {
		t.Errorf("credits not empty: %+v", got)
	}
}

func TestDimensions(t *testing.T) {
	recs := []Record{
		{
			Directors: []string{"Bong Joon Ho"},
			Stars:     []string{"Song Kang-ho", "Bong Joon Ho"},
			Genres:    []string{"Thriller", "Drama"},
		},
		{
			Directors: []string{"Greta Gerwig"},
			Stars:     []string{"Saoirse Ronan"},
			Genres:    []string{"Drama"},
		},
	}

	persons, genres := Dimensions(recs)

	wantPersons := []string{"Bong Joon Ho", "Greta Gerwig", "Saoirse Ronan", "Song Kang-ho"}
	if !reflect.DeepEqual(persons, wantPersons) {
		t.Errorf("persons = %v, want %v", persons, wantPersons)
	}
	wantGenres := []string{"Drama", "Thriller"}
	if !reflect.DeepEqual(genres, wantGenres) {
		t.Errorf("genres = %v, want %v", genres, wantGenres)
	}

	// Running the extraction again over the same input changes nothing.
	persons2, genres2 := Dimensions(recs)
	if !reflect.DeepEqual(persons, persons2) || !reflect.DeepEqual(genres, genres2) {
		t.Error("Dimensions is not idempotent")
	}
}

func TestDimensionsCaseSensitive(t *testing.T) {
	persons, _ := Dimensions([]Record{
		{Stars: []string{"Tom Hardy", "tom hardy"}},
	})
	if len(persons) != 2 {
		t.Fatalf("persons = %v, want two distinct entries", persons)
	}
}
