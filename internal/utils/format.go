package utils

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

var rateLimitPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)([KMG])$`)

// ParseRate converts a rate limit such as "500K" or "2M" into bytes per
// second. Suffixes are binary (K = 1024). An empty string means unlimited
// and returns 0.
func ParseRate(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, nil
	}
	m := rateLimitPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid rate limit %q: use a number followed by K, M or G (e.g. 500K)", s)
	}
	n, err := humanize.ParseBytes(m[1] + m[2] + "iB")
	if err != nil {
		return 0, fmt.Errorf("invalid rate limit %q: %w", s, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("invalid rate limit %q: must be positive", s)
	}
	return int64(n), nil
}

// FormatSpeed renders bytes per second, e.g. "1.5 MiB/s".
func FormatSpeed(bytesPerSec float64) string {
	if bytesPerSec <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(bytesPerSec)) + "/s"
}

// FormatSize renders a byte count, e.g. "12 MiB".
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(bytes))
}

// FormatETA renders remaining seconds as a short duration.
func FormatETA(seconds int64) string {
	if seconds <= 0 {
		return "-"
	}
	return (time.Duration(seconds) * time.Second).String()
}

// FormatAge renders a unix timestamp relative to now, e.g. "3 minutes ago".
func FormatAge(unix int64) string {
	if unix <= 0 {
		return "-"
	}
	return humanize.Time(time.Unix(unix, 0))
}

// ShortID returns the first 8 characters of a task id.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Truncate shortens s to max runes, appending an ellipsis.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}
