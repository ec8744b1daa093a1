package core

import (
	"strconv"
	"strings"
)

// FormatFloat formats a float64 with appropriate precision
// Returns a string representation of the float
func FormatFloat(value float64, precision int) string {
	return strconv.FormatFloat(value, 'f', precision, 64)
}

// ParseFloat parses a string into a float64
// Returns the float value and any error encountered
func ParseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// FormatWithOptimalPrecision formats a float using its inherent precision
// It determines the number of decimal places automatically
func FormatWithOptimalPrecision(value float64) string {
	precision := int(NumDecPlaces(value))
	return FormatFloat(value, precision)
}

// NumDecPlaces returns the number of decimal places in a float64's shortest
// round-trip decimal representation.
func NumDecPlaces(v float64) int64 {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	i := strings.IndexByte(s, '.')
	if i > -1 {
		return int64(len(s) - i - 1)
	}
	return 0
}

