package summary

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	floatPrefix = regexp.MustCompile(`^[+-]?(Infinity|(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?)`)
	intPrefix   = regexp.MustCompile(`^[+-]?\d+`)
)

// parseFloat reads the longest numeric prefix of s, ignoring leading
// whitespace, the way loosely typed spreadsheet cells are usually read:
// "5 ppm" is 5 and "1e400" is +Inf.
func parseFloat(s string) (float64, bool) {
	prefix := floatPrefix.FindString(strings.TrimLeftFunc(s, unicode.IsSpace))
	if prefix == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(prefix, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return v, true
		}
		return 0, false
	}
	return v, true
}

// parseInt reads the leading integer of s and reports whether one exists.
func parseInt(s string) (float64, bool) {
	prefix := intPrefix.FindString(strings.TrimLeftFunc(s, unicode.IsSpace))
	if prefix == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(prefix, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// boundable reports whether v may move a range bound. Values in [1e18, 1e21)
// are excluded: they print in plain decimal form but no longer round-trip
// through exponential notation. Larger values print in exponential form and
// are kept.
func boundable(v float64) bool {
	return v < 1e18 || v >= 1e21
}

// jsonNumber renders v for a JSON document. Non-finite values become null.
func jsonNumber(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
