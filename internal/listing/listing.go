// Package listing extracts raw movie rows from a saved listing page.
//
// The CSV export this pipeline normally consumes is itself scraped from a
// movie listing site. When only the page source is at hand, this package
// reads the same fields straight out of the HTML so the rest of the pipeline
// is unchanged: one *.lister-item block becomes one movie.Raw.
package listing

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"moviesetl/internal/movie"
)

const recordSelector = ".lister-item"

// ExtractRecords parses a listing page and returns one raw row per item
// block, in DOM order.
//
// Missing nodes produce empty fields, never errors; a partially rendered
// item still yields a row the normalizers can handle.
func ExtractRecords(r io.Reader) ([]movie.Raw, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse listing html: %w", err)
	}

	var out []movie.Raw
	doc.Find(recordSelector).Each(func(_ int, item *goquery.Selection) {
		raw := extractItem(item)
		if raw.Title == "" {
			// A block without a title link is decoration, not a record.
			return
		}
		out = append(out, raw)
	})
	return out, nil
}

func extractItem(item *goquery.Selection) movie.Raw {
	text := func(sel string) string {
		return strings.TrimSpace(item.Find(sel).First().Text())
	}

	raw := movie.Raw{
		Title:   text(".lister-item-header a"),
		Year:    text(".lister-item-year"),
		Genre:   text(".genre"),
		Rating:  text(".ratings-imdb-rating strong"),
		Runtime: strings.TrimSuffix(text(".runtime"), " min"),
	}

	// Votes and gross share the same span name. For votes, data-value carries
	// the undecorated count. For gross, data-value holds the absolute dollar
	// amount while the visible text is the "$N.NNM" form the CSV export (and
	// so the gross normalizer) uses; take the text there.
	item.Find("span[name=nv]").Each(func(i int, sel *goquery.Selection) {
		switch i {
		case 0:
			v, ok := sel.Attr("data-value")
			if !ok {
				v = strings.TrimSpace(sel.Text())
			}
			raw.Votes = v
		case 1:
			raw.Gross = strings.TrimSpace(sel.Text())
		}
	})

	// The description and the credits line are sibling paragraphs with no
	// distinguishing class of their own. Classify by content: the credits
	// paragraph carries a role marker, the first unmarked one is the blurb.
	item.Find(".lister-item-content p").Each(func(_ int, sel *goquery.Selection) {
		t := strings.TrimSpace(sel.Text())
		if t == "" {
			return
		}
		if strings.Contains(t, "Director") || strings.Contains(t, "Stars:") || strings.Contains(t, "Star:") {
			if raw.Credits == "" {
				raw.Credits = t
			}
			return
		}
		// The metadata line holds the genre/runtime spans; skip it.
		if sel.Find("span.genre, span.runtime").Length() > 0 {
			return
		}
		if raw.Description == "" {
			raw.Description = t
		}
	})

	return raw
}
