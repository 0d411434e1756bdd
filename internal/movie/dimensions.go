package movie

import "sort"

// Dimensions computes the global person and genre dimensions over a batch of
// records.
//
// Persons are the union of all director and star names; the same name in both
// roles yields one entry. Matching is case-sensitive exact: "Tom Hardy" and
// "tom hardy" are distinct persons by design, since the source is assumed to
// spell names consistently.
//
// Both slices come back deduplicated and sorted so repeated calls over the
// same input produce identical output and upsert batches stay stable.
func Dimensions(recs []Record) (persons, genres []string) {
	personSet := map[string]struct{}{}
	genreSet := map[string]struct{}{}

	for _, r := range recs {
		for _, d := range r.Directors {
			personSet[d] = struct{}{}
		}
		for _, s := range r.Stars {
			personSet[s] = struct{}{}
		}
		for _, g := range r.Genres {
			genreSet[g] = struct{}{}
		}
	}

	persons = make([]string, 0, len(personSet))
	for p := range personSet {
		persons = append(persons, p)
	}
	genres = make([]string, 0, len(genreSet))
	for g := range genreSet {
		genres = append(genres, g)
	}
	sort.Strings(persons)
	sort.Strings(genres)
	return persons, genres
}
