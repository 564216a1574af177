package kibi

// Package kibi formats and parses human-friendly binary byte sizes
// ("256 MB", "2 gb"). Config values like the image cache memory budget
// are written in this form.

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var digitRegex = regexp.MustCompile(`^\d+`)

var ErrInvalidByteSizeString = fmt.Errorf("Invalid byte size string")

var suffixes = []string{"bytes", "KB", "MB", "GB", "TB", "PB"}

// FormatBytes returns b formatted with the largest suffix that keeps the
// number >= 1, eg 35651584 -> "35 MB".
func FormatBytes(b int64) string {
	scaled := b
	i := 0
	for i < len(suffixes)-1 && scaled >= 1024 {
		scaled /= 1024
		i++
	}
	return fmt.Sprintf("%v %v", scaled, suffixes[i])
}

// ParseBytes parses strings such as "50", "50 bytes", "50kb", "50 MB", "2g".
// Suffixes are case insensitive, and a bare first letter ("k", "m", ...) is
// accepted.
func ParseBytes(v string) (int64, error) {
	v = strings.TrimSpace(v)
	digits := digitRegex.FindString(v)
	if digits == "" {
		return 0, ErrInvalidByteSizeString
	}
	value, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, err
	}
	suffix := strings.ToLower(strings.TrimSpace(v[len(digits):]))
	if suffix == "" || suffix == "bytes" {
		return value, nil
	}
	for i, s := range suffixes[1:] {
		long := strings.ToLower(s)
		if suffix == long || suffix == long[:1] {
			mult := int64(1024)
			for j := 0; j < i; j++ {
				mult *= 1024
			}
			return value * mult, nil
		}
	}
	return 0, ErrInvalidByteSizeString
}
