// Package normalize contains the field-level normalizers applied to raw
// scraped movie metadata before loading.
//
// All functions in this package are total: any input string, however
// malformed, maps to a well-defined zero-ish output rather than an error.
package normalize

import (
	"regexp"
	"strconv"
)

// YearKind discriminates the shapes a release-year label can take.
type YearKind int

const (
	// YearUnknown means no usable year information was found.
	YearUnknown YearKind = iota
	// YearSingle is a plain single release year.
	YearSingle
	// YearRange is a closed series range with start and end years.
	YearRange
	// YearOngoing is a series that started and has no end year yet.
	YearOngoing
)

// YearLabel is the structured form of a release-year annotation.
//
// The raw source mixes several shapes in one text column: "(2019)",
// "(2010–2022)", "(2021– )", roman-numeral disambiguators like "(II) (2019)",
// and free garbage. YearLabel keeps the parsed shape explicit so callers can
// branch on Kind; the flat string the store expects is produced by String.
type YearLabel struct {
	Kind  YearKind
	Start int
	End   int
}

var (
	romanPrefixRe = regexp.MustCompile(`^\([IVX]+\)\s*`)
	ongoingRe     = regexp.MustCompile(`\((\d{4})[–-]\s*\)`)
	closedRangeRe = regexp.MustCompile(`\((\d{4})[–-](\d{4})\)`)
	anyYearRe     = regexp.MustCompile(`(\d{4})`)
)

// ParseYearLabel extracts a YearLabel from a raw year annotation.
//
// Resolution order matters: the ongoing form must be tried before the closed
// range (both contain a dash), and the bare four-digit fallback runs last so
// trailing annotations like "(2019) (TV Special)" still resolve to 2019.
func ParseYearLabel(text string) YearLabel {
	s := romanPrefixRe.ReplaceAllString(text, "")

	if m := ongoingRe.FindStringSubmatch(s); m != nil {
		start, _ := strconv.Atoi(m[1])
		return YearLabel{Kind: YearOngoing, Start: start}
	}
	if m := closedRangeRe.FindStringSubmatch(s); m != nil {
		start, _ := strconv.Atoi(m[1])
		end, _ := strconv.Atoi(m[2])
		return YearLabel{Kind: YearRange, Start: start, End: end}
	}
	if m := anyYearRe.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		return YearLabel{Kind: YearSingle, Start: y}
	}
	return YearLabel{Kind: YearUnknown}
}

// String renders the label in the flat form stored in the movies table.
//
// Unknown years render as "0" so the column is never empty; ranges use an
// en-dash regardless of the dash used in the source.
func (y YearLabel) String() string {
	switch y.Kind {
	case YearSingle:
		return strconv.Itoa(y.Start)
	case YearRange:
		return strconv.Itoa(y.Start) + "–" + strconv.Itoa(y.End)
	case YearOngoing:
		return strconv.Itoa(y.Start) + " - Present"
	default:
		return "0"
	}
}
