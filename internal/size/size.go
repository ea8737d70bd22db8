// Package size converts the byte amounts and offsets typed at the prompt.
package size

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"k8s.io/apimachinery/pkg/api/resource"
)

const (
	KiB int64 = 1024
	MiB       = 1024 * KiB
	GiB       = 1024 * MiB
)

var multipliers = map[string]int64{
	"b":  1,
	"kb": KiB,
	"mb": MiB,
	"gb": GiB,
}

// ErrUnknownUnit is returned for units other than b, kb, mb and gb.
var ErrUnknownUnit = errors.New("unknown unit")

// Multiplier returns the number of bytes in one unit.
func Multiplier(unit string) (int64, error) {
	m, ok := multipliers[strings.ToLower(strings.TrimSpace(unit))]
	if !ok {
		return 0, fmt.Errorf("%w %q (want b, kb, mb or gb)", ErrUnknownUnit, unit)
	}
	return m, nil
}

// ParseSize multiplies a decimal amount by the unit multiplier, truncating
// toward zero: ParseSize("2", "mb") is 2097152 and ParseSize("1.5", "kb") is 1536.
func ParseSize(amount, unit string) (int64, error) {
	m, err := Multiplier(unit)
	if err != nil {
		return 0, err
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(amount), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse amount %q: %w", amount, err)
	}
	if f < 0 || math.IsNaN(f) {
		return 0, fmt.Errorf("amount %q must not be negative", amount)
	}

	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold
	bytes := f * float64(m)
	if bytes >= math.MaxInt64 {
		return 0, fmt.Errorf("amount %q %s overflows", amount, unit)
	}
	return int64(bytes), nil
}

// binarySuffixes are the quantity suffixes accepted for byte counts. Decimal
// SI suffixes are refused: "8m" would be milli and "8M" 8000000.
var binarySuffixes = []string{"", "Ki", "Mi", "Gi", "Ti", "Pi", "Ei"}

// ParseQuantity parses a quantity string such as "8Mi", "512Ki" or "4096" to
// bytes. Only binary suffixes are accepted and the result must be a whole
// number of bytes.
func ParseQuantity(s string) (int64, error) {
	s = strings.TrimSpace(s)
	q, err := resource.ParseQuantity(s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse quantity %q: %w", s, err)
	}
	suffix := s[len(strings.TrimRightFunc(s, unicode.IsLetter)):]
	if !slices.Contains(binarySuffixes, suffix) {
		return 0, fmt.Errorf("quantity %q: unsupported suffix %q (want Ki, Mi, Gi or Ti)", s, suffix)
	}
	if q.Sign() < 0 {
		return 0, fmt.Errorf("quantity %q must not be negative", s)
	}
	v := q.Value()
	if q.Cmp(*resource.NewQuantity(v, resource.BinarySI)) != 0 {
		return 0, fmt.Errorf("quantity %q is not a whole number of bytes", s)
	}
	return v, nil
}

// ParseAmount accepts either a plain number, scaled by unit, or a quantity
// carrying its own suffix ("8Mi"), which ignores unit.
func ParseAmount(amount, unit string) (int64, error) {
	amount = strings.TrimSpace(amount)
	if _, err := strconv.ParseFloat(amount, 64); err == nil {
		return ParseSize(amount, unit)
	}
	return ParseQuantity(amount)
}

// ParseOffset parses a byte offset with base prefixes: 0x for hex, 0o or a
// leading 0 for octal, 0b for binary, decimal otherwise.
func ParseOffset(s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse offset %q: %w", s, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("offset %q must not be negative", s)
	}
	return v, nil
}

// Format renders a byte count for humans, e.g. "8.0 MiB".
func Format(bytes int64) string {
	switch {
	case bytes >= GiB:
		return fmt.Sprintf("%.1f GiB", float64(bytes)/float64(GiB))
	case bytes >= MiB:
		return fmt.Sprintf("%.1f MiB", float64(bytes)/float64(MiB))
	case bytes >= KiB:
		return fmt.Sprintf("%.1f KiB", float64(bytes)/float64(KiB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
