// Package workbook opens raw spreadsheet bytes and exposes them as ordered
// rows of typed cells. It is the only package that touches the xlsx format
// directly; everything downstream works off the Cell variant.
package workbook

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ErrFormat is wrapped by all failures to open or read a workbook.
var ErrFormat = errors.New("unreadable workbook")

// Kind enumerates the closed set of cell value types.
type Kind int

const (
	KindEmpty Kind = iota
	KindString
	KindFloat
	KindInt
	KindTime
)

// Cell is a single typed spreadsheet cell. Exactly one of the value fields
// is meaningful, selected by Kind.
type Cell struct {
	Kind Kind
	Str  string
	Num  float64
	Time time.Time
}

// Text returns the trimmed string value of a string cell.
// Whitespace-only strings report false.
func (c Cell) Text() (string, bool) {
	if c.Kind != KindString {
		return "", false
	}
	s := strings.TrimSpace(c.Str)
	if s == "" {
		return "", false
	}
	return s, true
}

// Number returns the numeric value of a float or integer cell.
func (c Cell) Number() (float64, bool) {
	if c.Kind != KindFloat && c.Kind != KindInt {
		return 0, false
	}
	return c.Num, true
}

// Integer returns the value of an integer cell, or a float cell rounded to
// the nearest integer. Non-finite and out-of-range floats report false.
func (c Cell) Integer() (int, bool) {
	switch c.Kind {
	case KindInt:
		return int(c.Num), true
	case KindFloat:
		r := math.Round(c.Num)
		if math.IsNaN(r) || math.IsInf(r, 0) || r < math.MinInt32 || r > math.MaxInt32 {
			return 0, false
		}
		return int(r), true
	default:
		return 0, false
	}
}

// Timestamp returns the value of a native date-time cell.
func (c Cell) Timestamp() (time.Time, bool) {
	if c.Kind != KindTime {
		return time.Time{}, false
	}
	return c.Time, true
}

// IsEmpty reports whether the cell carries no value.
func (c Cell) IsEmpty() bool {
	return c.Kind == KindEmpty
}

// StringCell builds a string cell. Used by tests and synthetic rows.
func StringCell(s string) Cell { return Cell{Kind: KindString, Str: s} }

// FloatCell builds a float cell.
func FloatCell(f float64) Cell { return Cell{Kind: KindFloat, Num: f} }

// IntCell builds an integer cell.
func IntCell(i int) Cell { return Cell{Kind: KindInt, Num: float64(i)} }

// TimeCell builds a native date-time cell.
func TimeCell(t time.Time) Cell { return Cell{Kind: KindTime, Time: t} }

// EmptyCell builds an empty cell.
func EmptyCell() Cell { return Cell{Kind: KindEmpty} }

// Load opens workbook bytes and returns the rows of the first sheet in file
// order. It fails with a wrapped ErrFormat if the bytes cannot be opened or
// the workbook has no sheets.
func Load(data []byte) ([][]Cell, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrFormat)
	}
	sheet := sheets[0]

	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrFormat, sheet, err)
	}

	rows := make([][]Cell, len(raw))
	for r, rawRow := range raw {
		row := make([]Cell, len(rawRow))
		for c, value := range rawRow {
			row[c] = typeCell(f, sheet, r, c, value)
		}
		rows[r] = row
	}
	return rows, nil
}

// typeCell classifies one raw cell value using the workbook's own cell type
// and number-format metadata.
func typeCell(f *excelize.File, sheet string, rowIdx, colIdx int, raw string) Cell {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return EmptyCell()
	}

	addr, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
	if err != nil {
		return StringCell(raw)
	}

	ct, err := f.GetCellType(sheet, addr)
	if err != nil {
		return StringCell(raw)
	}

	switch ct {
	case excelize.CellTypeDate:
		if serial, err := strconv.ParseFloat(raw, 64); err == nil {
			if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return TimeCell(t.UTC())
			}
		}
		return StringCell(raw)
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		// Unset covers plain numeric cells with no explicit type attribute.
		return numericCell(raw)
	default:
		return StringCell(raw)
	}
}

// numericCell classifies a raw literal as int, float, or string.
func numericCell(raw string) Cell {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return Cell{Kind: KindInt, Num: float64(i)}
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return FloatCell(v)
	}
	return StringCell(raw)
}
