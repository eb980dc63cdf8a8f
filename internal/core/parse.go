package core

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseLeadingInt reads an optional sign followed by decimal digits at the
// start of s, after leading whitespace. Trailing characters are ignored, so
// "50abc" and "3.7" parse as 50 and 3. It reports false when no digit is found.
func ParseLeadingInt(s string) (int, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseAmount converts the amount field to an integer, 0 when unparsable.
func ParseAmount(s string) int {
	n, _ := ParseLeadingInt(s)
	return n
}

// ParsePct converts the pct field, falling back to DefaultPct when it is
// missing, unparsable or zero.
func ParsePct(s string) int {
	n, ok := ParseLeadingInt(s)
	if !ok || n == 0 {
		return DefaultPct
	}
	return n
}
