package normalize

import (
	"regexp"
	"strings"
)

var (
	directorMarkerRe = regexp.MustCompile(`Directors?:`)
	starMarkerRe     = regexp.MustCompile(`Stars?:`)
)

// ParseCredits splits a combined credits field into director and star names.
//
// The source packs both roles into one pipe-delimited field:
//
//	"Director: Lana Wachowski | Stars: Keanu Reeves, Carrie-Anne Moss"
//	"Directors: Joel Coen, Ethan Coen | Stars: ..."
//	"Stars: Millie Bobby Brown, Finn Wolfhard"
//
// Each pipe segment is classified by its role marker. The director marker is
// checked before the star marker because a segment carrying "Directors:" must
// not fall through to the star branch. Segments with neither marker are
// ignored. Names are comma-split and trimmed; empties are dropped.
//
// Both return slices are non-nil so callers can range without nil checks.
func ParseCredits(text string) (directors, stars []string) {
	directors = []string{}
	stars = []string{}

	for _, seg := range strings.Split(text, "|") {
		switch {
		case directorMarkerRe.MatchString(seg):
			directors = append(directors, splitNames(directorMarkerRe.ReplaceAllString(seg, ""))...)
		case starMarkerRe.MatchString(seg):
			stars = append(stars, splitNames(starMarkerRe.ReplaceAllString(seg, ""))...)
		}
	}
	return directors, stars
}

func splitNames(s string) []string {
	var out []string
	for _, n := range strings.Split(s, ",") {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		out = append(out, n)
	}
	return out
}
