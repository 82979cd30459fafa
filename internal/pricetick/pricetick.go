// Package pricetick converts between decimal bond prices and the US Treasury
// fractional tick notation "HANDLE-XXy", where XX is 32nds (two digits) and y
// is eighths of a 32nd, with '+' standing for 4/8 (a half tick).
package pricetick

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Tick is the smallest representable increment: 1/256 of a point.
const Tick = 1.0 / 256.0

// ErrInvalidTick is returned when a string is not a well-formed price tick.
var ErrInvalidTick = errors.New("invalid price tick")

// Parse converts a tick string such as "99-16+" or "101-317" into a decimal
// price. The eighths digit is optional ("100-00" is accepted).
func Parse(s string) (float64, error) {
	s = strings.TrimSpace(s)
	dash := strings.IndexByte(s, '-')
	if dash <= 0 || dash == len(s)-1 {
		return 0, fmt.Errorf("pricetick: parse %q: %w", s, ErrInvalidTick)
	}

	whole, err := strconv.Atoi(s[:dash])
	if err != nil || whole < 0 {
		return 0, fmt.Errorf("pricetick: parse %q: %w", s, ErrInvalidTick)
	}

	frac := s[dash+1:]
	if len(frac) != 2 && len(frac) != 3 {
		return 0, fmt.Errorf("pricetick: parse %q: %w", s, ErrInvalidTick)
	}

	thirtySeconds, err := strconv.Atoi(frac[:2])
	if err != nil || thirtySeconds < 0 || thirtySeconds > 31 {
		return 0, fmt.Errorf("pricetick: parse %q: %w", s, ErrInvalidTick)
	}

	eighths := 0
	if len(frac) == 3 {
		switch c := frac[2]; {
		case c == '+':
			eighths = 4
		case c >= '0' && c <= '7':
			eighths = int(c - '0')
		default:
			return 0, fmt.Errorf("pricetick: parse %q: %w", s, ErrInvalidTick)
		}
	}

	return float64(whole) + float64(thirtySeconds)/32.0 + float64(eighths)/256.0, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(s string) float64 {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Format renders a decimal price in tick notation, truncating toward the
// nearest lower 1/256. The eighths digit is omitted when it is zero.
func Format(p float64) string {
	whole := math.Floor(p)
	// epsilon absorbs float noise on values that sit exactly on a tick
	units := int(math.Floor((p-whole)*256 + 1e-9))
	if units >= 256 {
		whole++
		units -= 256
	}

	thirtySeconds := units / 8
	eighths := units % 8

	var b strings.Builder
	b.WriteString(strconv.Itoa(int(whole)))
	b.WriteByte('-')
	if thirtySeconds < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.Itoa(thirtySeconds))
	switch {
	case eighths == 4:
		b.WriteByte('+')
	case eighths != 0:
		b.WriteByte(byte('0' + eighths))
	}
	return b.String()
}
