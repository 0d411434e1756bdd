package normalize

import (
	"reflect"
	"testing"
)

func TestSplitGenres(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"plain", "Action, Crime, Drama", []string{"Action", "Crime", "Drama"}},
		{"embedded newline", "Animation,\nAction, Adventure", []string{"Animation", "Action", "Adventure"}},
		{"nan placeholder dropped", "nan", nil},
		{"mixed nan", "Drama, nan, Thriller", []string{"Drama", "Thriller"}},
		{"duplicates within row", "Drama, Drama", []string{"Drama"}},
		{"empty", "", nil},
		{"trailing comma", "Comedy,", []string{"Comedy"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SplitGenres(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("SplitGenres(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCollapseWhitespace(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  a  b\n c ", "a b c"},
		{"", ""},
		{"one", "one"},
	}
	for _, tt := range tests {
		if got := CollapseWhitespace(tt.in); got != tt.want {
			t.Errorf("CollapseWhitespace(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStripTags(t *testing.T) {
	if got := StripTags(`A <b>bold</b> plot`); got != "A bold plot" {
		t.Fatalf("StripTags = %q", got)
	}
}
