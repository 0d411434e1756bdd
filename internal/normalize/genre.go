package normalize

import "strings"

// SplitGenres parses a comma-delimited genre annotation into a per-row set.
//
// The scraper leaves embedded newlines and padding inside the field, and
// writes the literal placeholder "nan" for missing genres. Both are dropped,
// as are duplicates within the same row. Order of first appearance is kept.
func SplitGenres(text string) []string {
	s := strings.ReplaceAll(text, "\n", " ")

	var out []string
	seen := map[string]struct{}{}
	for _, g := range strings.Split(s, ",") {
		g = strings.TrimSpace(g)
		if g == "" || strings.EqualFold(g, "nan") {
			continue
		}
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}
