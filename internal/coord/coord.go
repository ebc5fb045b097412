// Package coord converts between "A1"-style well coordinates and 1-based
// (row, column) pairs. The letter names the tray row (A=1), the digits name
// the column. This package is the single source of truth for well naming.
package coord

import (
	"errors"
	"fmt"
)

// ErrBadCoordinate is wrapped by all decode/encode failures.
var ErrBadCoordinate = errors.New("invalid well coordinate")

// maxRows is the single-letter convention limit (A-Z).
const maxRows = 26

// Decode parses a coordinate like "A1" or "H12" into (row, column).
// The format is exactly one uppercase letter followed by one or more digits.
// Lowercase letters, multi-letter runs, and non-positive columns are rejected.
func Decode(s string) (row, col int, err error) {
	if len(s) < 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadCoordinate, s)
	}

	letters := 0
	for letters < len(s) && isLetter(s[letters]) {
		letters++
	}
	if letters == 0 || letters == len(s) {
		return 0, 0, fmt.Errorf("%w: %q must be a letter followed by digits", ErrBadCoordinate, s)
	}
	if letters > 1 {
		return 0, 0, fmt.Errorf("%w: %q uses more than one row letter", ErrBadCoordinate, s)
	}

	c := s[0]
	if c < 'A' || c > 'Z' {
		return 0, 0, fmt.Errorf("%w: %q row letter must be A-Z", ErrBadCoordinate, s)
	}
	row = int(c-'A') + 1

	col = 0
	for i := letters; i < len(s); i++ {
		d := s[i]
		if d < '0' || d > '9' {
			return 0, 0, fmt.Errorf("%w: %q column must be numeric", ErrBadCoordinate, s)
		}
		col = col*10 + int(d-'0')
	}
	if col < 1 {
		return 0, 0, fmt.Errorf("%w: %q column must be positive", ErrBadCoordinate, s)
	}

	return row, col, nil
}

// Encode renders (row, column) back into coordinate form, e.g. (8, 12) -> "H12".
// Rows beyond Z are rejected under the single-letter convention.
func Encode(row, col int) (string, error) {
	if row < 1 || col < 1 {
		return "", fmt.Errorf("%w: row %d col %d must be positive", ErrBadCoordinate, row, col)
	}
	if row > maxRows {
		return "", fmt.Errorf("%w: row %d exceeds single-letter range A-Z", ErrBadCoordinate, row)
	}
	return fmt.Sprintf("%c%d", 'A'+byte(row-1), col), nil
}

// Valid reports whether s decodes cleanly.
func Valid(s string) bool {
	_, _, err := Decode(s)
	return err == nil
}

func isLetter(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}
