package incapacity

import (
	"fmt"
	"regexp"
	"strconv"
)

// Incapacity numbers follow INC-YYYY-NNNN: a 4-digit zero-padded
// sequence, gapless and strictly increasing within a year, resetting to
// 0001 at the year boundary. The format is a compatibility contract for
// downstream reports and documents; do not change it.

var numberPattern = regexp.MustCompile(`^INC-(\d{4})-(\d{4})$`)

// FormatNumber renders the human-readable identifier for a year/sequence
// pair.
func FormatNumber(year, seq int) string {
	return fmt.Sprintf("INC-%d-%04d", year, seq)
}

// ParseNumber extracts the year and sequence from a formatted number.
func ParseNumber(number string) (year, seq int, err error) {
	m := numberPattern.FindStringSubmatch(number)
	if m == nil {
		return 0, 0, fmt.Errorf("malformed incapacity number %q", number)
	}
	year, _ = strconv.Atoi(m[1])
	seq, _ = strconv.Atoi(m[2])
	return year, seq, nil
}
