package dump

import (
	"strings"
	"time"
	"unicode"
)

// maxIDLength caps the flash ID part of generated names
const maxIDLength = 64

// DefaultName returns "chiprocker_dump_<YYYYmmdd_HHMMSS>_<flashID>.bin".
// The flash ID is reduced to a single safe path element of at most 64 bytes;
// an empty ID is omitted.
func DefaultName(now time.Time, flashID string) string {
	stamp := now.Format("20060102_150405")
	id := sanitize(flashID)
	if id == "" {
		return "chiprocker_dump_" + stamp + ".bin"
	}
	return "chiprocker_dump_" + stamp + "_" + id + ".bin"
}

func sanitize(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxIDLength {
		s = s[:maxIDLength]
	}
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			return r
		case r == '-' || r == '.':
			return r
		default:
			return '_'
		}
	}, s)
	// ".." or "." would escape or collapse the path element
	return strings.Trim(mapped, "._")
}
