package normalize

import (
	"strconv"
	"strings"
)

// ParseGross converts a scraped gross-revenue annotation into absolute dollars.
//
// The source encodes gross as millions with decoration, e.g. "$92.35M" or
// "$1,025.47M". We strip the currency sign, the magnitude suffix and any
// thousands separators, then scale by 1e6.
//
// Any parse failure yields 0.0. Callers cannot distinguish "unknown" from a
// true zero gross; the load model accepts that.
func ParseGross(text string) float64 {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "M")
	s = strings.TrimSpace(s)

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v * 1_000_000
}
