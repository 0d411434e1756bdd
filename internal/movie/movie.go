// Package movie defines the domain model for one scraped movie row and the
// transform from raw source text to a typed, load-ready record.
package movie

import "moviesetl/internal/normalize"

// Raw is one source record as read from the listing export, untyped.
//
// Field names follow the canonical column set produced by the parsers; absent
// source columns arrive as empty strings.
type Raw struct {
	Title       string
	Year        string
	Genre       string
	Rating      string
	Description string
	Votes       string
	Runtime     string
	Gross       string
	Credits     string
}

// Record is a fully normalized movie row.
//
// Every numeric field is always present and finite; the normalizers map
// missing or hostile input to zero values rather than failing. Directors and
// Stars preserve source order, Genres is a per-row set.
type Record struct {
	Title       string
	Year        normalize.YearLabel
	Genres      []string
	Rating      float64
	Description string
	Votes       int64
	Runtime     int32
	Gross       float64
	Directors   []string
	Stars       []string
}

// FromRaw applies the full set of field normalizers to one raw row.
//
// The transform is total: it never fails, whatever the input looks like.
// A row with a garbage year, unparseable gross and no credits still becomes a
// loadable Record with zeroed fields.
func FromRaw(r Raw) Record {
	directors, stars := normalize.ParseCredits(r.Credits)

	return Record{
		Title:       normalize.CollapseWhitespace(r.Title),
		Year:        normalize.ParseYearLabel(r.Year),
		Genres:      normalize.SplitGenres(r.Genre),
		Rating:      normalize.ParseRating(r.Rating),
		Description: normalize.CollapseWhitespace(r.Description),
		Votes:       normalize.ParseVotes(r.Votes),
		Runtime:     int32(normalize.BoundedInt(r.Runtime, normalize.MaxInt)),
		Gross:       normalize.ParseGross(r.Gross),
		Directors:   directors,
		Stars:       stars,
	}
}
