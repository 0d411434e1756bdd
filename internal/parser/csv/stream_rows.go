// Package csv streams raw movie rows out of a delimited listing export.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"moviesetl/internal/config"
	"moviesetl/internal/movie"
	"moviesetl/internal/normalize"
)

// defaultHeaderMap maps the listing export's header spelling onto canonical
// field names. An explicit "header_map" option overrides individual entries.
var defaultHeaderMap = map[string]string{
	"MOVIES":   "title",
	"YEAR":     "year",
	"GENRE":    "genre",
	"RATING":   "rating",
	"ONE-LINE": "description",
	"VOTES":    "votes",
	"RunTime":  "runtime",
	"Gross":    "gross",
	"STARS":    "credits",
}

// canonical field order used to index into parsed records.
var canonicalFields = []string{
	"title", "year", "genre", "rating", "description",
	"votes", "runtime", "gross", "credits",
}

// RowFn receives one raw row with its 1-based source line number.
//
// A non-nil return stops the stream and is surfaced by StreamRawRows.
type RowFn func(line int, raw movie.Raw) error

// StreamRawRows reads a CSV export sequentially and hands each data row to fn.
//
// Options:
//
//	has_header        bool   default true
//	comma             string one character, default ","
//	trim_space        bool   default true
//	lazy_quotes       bool   default false
//	fields_per_record int    default -1 (variable)
//	encoding          string "", "windows-1252", "latin-1"
//	header_map        map    source header -> canonical field name
//
// Header cells are trimmed, the first is stripped of a UTF-8 BOM, then mapped
// through header_map (falling back to the built-in listing mapping, then to
// lower-case with spaces as underscores). Unmapped source columns are
// ignored; canonical fields missing from the header stay empty on every row.
//
// Malformed rows are reported through onErr and skipped; only reader-fatal
// conditions end the stream with an error.
func StreamRawRows(
	ctx context.Context,
	src io.Reader,
	opt config.Options,
	fn RowFn,
	onErr func(line int, err error),
) error {
	hasHeader := opt.Bool("has_header", true)
	trim := opt.Bool("trim_space", true)
	hm := opt.StringMap("header_map")

	r, err := decodeReader(src, opt.String("encoding", ""))
	if err != nil {
		return err
	}

	cr := csv.NewReader(r)
	cr.Comma = opt.Rune("comma", ',')
	cr.ReuseRecord = true
	cr.LazyQuotes = opt.Bool("lazy_quotes", false)
	if n := opt.Int("fields_per_record", 0); n != 0 {
		cr.FieldsPerRecord = n
	} else {
		cr.FieldsPerRecord = -1
	}

	colIx := make([]int, len(canonicalFields))
	for i := range colIx {
		colIx[i] = -1
	}

	line := 0
	readRec := func() ([]string, error) {
		line++
		return cr.Read()
	}

	if hasHeader {
		hdr, err := readRec()
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		srcToIdx := make(map[string]int, len(hdr))
		for i, h := range hdr {
			if normalize.HasEdgeSpace(h) {
				h = strings.TrimSpace(h)
			}
			if i == 0 {
				h = strings.TrimPrefix(h, "\uFEFF")
			}
			if mapped, ok := hm[h]; ok {
				h = mapped
			} else if mapped, ok := defaultHeaderMap[h]; ok {
				h = mapped
			} else {
				h = strings.ReplaceAll(strings.ToLower(h), " ", "_")
			}
			srcToIdx[h] = i
		}
		for t, target := range canonicalFields {
			if si, ok := srcToIdx[target]; ok {
				colIx[t] = si
			}
		}
	} else {
		for i := range colIx {
			colIx[i] = i
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rec, err := readRec()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if onErr != nil {
				onErr(line, fmt.Errorf("csv read: %w", err))
			}
			continue
		}

		field := func(t int) string {
			si := colIx[t]
			if si < 0 || si >= len(rec) {
				return ""
			}
			v := rec[si]
			if trim && normalize.HasEdgeSpace(v) {
				v = strings.TrimSpace(v)
			}
			return v
		}

		raw := movie.Raw{
			Title:       field(0),
			Year:        field(1),
			Genre:       field(2),
			Rating:      field(3),
			Description: field(4),
			Votes:       field(5),
			Runtime:     field(6),
			Gross:       field(7),
			Credits:     field(8),
		}

		if err := fn(line, raw); err != nil {
			return err
		}
	}
}

// decodeReader wraps src with a charset decoder when the export is not UTF-8.
func decodeReader(src io.Reader, name string) (io.Reader, error) {
	var enc encoding.Encoding
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return src, nil
	case "windows-1252", "cp1252":
		enc = charmap.Windows1252
	case "latin-1", "iso-8859-1":
		enc = charmap.ISO8859_1
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return transform.NewReader(src, enc.NewDecoder()), nil
}
