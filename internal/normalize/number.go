package normalize

import (
	"math"
	"strconv"
	"strings"
)

// Column width limits for the numeric movie fields. Values whose magnitude
// exceeds the destination column's range are zeroed instead of failing the
// insert at the store.
const (
	MaxBigint int64 = 9223372036854775807
	MaxInt    int64 = 2147483647
)

// BoundedInt parses text into an integer that fits a column of the given
// width limit.
//
// The parse is float-tolerant: scraped counts sometimes arrive as "12345.0".
// Parse failure, non-finite values, and magnitudes beyond ±limit all yield 0.
func BoundedInt(text string, limit int64) int64 {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	// float64(math.MaxInt64) rounds up to 2^63, so the ±limit comparison must
	// happen in int64 space. Anything at or beyond 2^63 cannot convert exactly
	// and is out of range for every supported limit.
	if f >= 9223372036854775808.0 || f <= -9223372036854775808.0 {
		return 0
	}
	i := int64(f)
	if i > limit || i < -limit {
		return 0
	}
	return i
}

// DigitRun returns the first run of consecutive ASCII digits in text, or ""
// when there is none. Vote counts are pre-filtered through this after comma
// removal so labels like "1234 votes" still parse.
func DigitRun(text string) string {
	start := -1
	for i, r := range text {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			return text[start:i]
		}
	}
	if start >= 0 {
		return text[start:]
	}
	return ""
}

// ParseVotes extracts a vote count. Commas are thousands separators, not
// field delimiters, so they are removed before taking the digit run.
func ParseVotes(text string) int64 {
	s := strings.ReplaceAll(text, ",", "")
	return BoundedInt(DigitRun(s), MaxBigint)
}

// ParseRating coerces a rating to float64, with 0.0 on failure. A zero result
// is indistinguishable from a true zero rating by contract.
func ParseRating(text string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
