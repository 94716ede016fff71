package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var durationRx = regexp.MustCompile(`^\s*(\d+)\s*([smhdw])\s*$`)

// ParseDuration parses the compact administrative duration format
// "<int><unit>" where unit is one of s, m, h, d, w.
func ParseDuration(raw string) (time.Duration, error) {
	m := durationRx.FindStringSubmatch(strings.ToLower(raw))
	if m == nil {
		return 0, fmt.Errorf("invalid duration %q: use formats like 30m, 2h, 1d, 1w", raw)
	}

	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid duration %q: must be positive", raw)
	}

	var unit time.Duration
	switch m[2] {
	case "s":
		unit = time.Second
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	case "w":
		unit = 7 * 24 * time.Hour
	}

	return time.Duration(n) * unit, nil
}
