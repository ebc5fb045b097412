package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/icelab/freezetrack/internal/coord"
	"github.com/icelab/freezetrack/internal/workbook"
)

// Fixed header layout of instrument exports. Offsets are a file-format
// convention, not auto-detected: row 0 carries tray names per well column,
// row 1 the well coordinates, rows 2-5 are reserved, row 6 the semantic
// labels. Data begins at row 7 (0-based).
const (
	trayRow       = 0
	coordinateRow = 1
	semanticRow   = 6
	dataStartRow  = 7

	headerRowCount = 7

	// probeSlots is the number of temperature probe channels an instrument
	// can export.
	probeSlots = 8
)

// imageMarker tags the header of the per-row image filename column.
const imageMarker = ".jpg"

// wellMarker is the literal semantic header of a well-state column.
const wellMarker = "()"

// Structure is the decoded column layout of a workbook.
type Structure struct {
	DateCol int
	TimeCol int

	// ImageCol is -1 when the export has no image column.
	ImageCol int

	// WellColumns maps each well to its workbook column index.
	WellColumns map[WellKey]int

	// ProbeColumns maps workbook column index to probe slot (1-8).
	ProbeColumns map[int]int

	DataStartRow int
}

// ParseStructure decodes the fixed 7-row header block into column roles.
// Tray names may be any non-empty string; well coordinates must decode via
// the coordinate codec. Candidate well columns failing either check are
// skipped. A missing Date or Time column, or a header block with no valid
// well columns, fails with ErrStructure.
func ParseStructure(rows [][]workbook.Cell) (*Structure, error) {
	if len(rows) < headerRowCount {
		return nil, fmt.Errorf("%w: need at least %d rows, got %d", ErrStructure, headerRowCount, len(rows))
	}

	trays := rows[trayRow]
	coords := rows[coordinateRow]
	headers := rows[semanticRow]

	s := &Structure{
		DateCol:      -1,
		TimeCol:      -1,
		ImageCol:     -1,
		WellColumns:  make(map[WellKey]int),
		ProbeColumns: make(map[int]int),
		DataStartRow: dataStartRow,
	}

	for col, cell := range headers {
		header, ok := cell.Text()
		if !ok {
			continue
		}
		switch {
		case header == "Date":
			s.DateCol = col
		case header == "Time":
			s.TimeCol = col
		case strings.Contains(header, imageMarker):
			s.ImageCol = col
		case strings.HasPrefix(header, "Temperature"):
			if slot, ok := probeSlot(header); ok {
				s.ProbeColumns[col] = slot
			}
		case header == wellMarker:
			if key, ok := wellKeyAt(trays, coords, col); ok {
				s.WellColumns[key] = col
			}
		}
	}

	if s.DateCol < 0 {
		return nil, fmt.Errorf("%w: missing Date column", ErrStructure)
	}
	if s.TimeCol < 0 {
		return nil, fmt.Errorf("%w: missing Time column", ErrStructure)
	}
	if len(s.WellColumns) == 0 {
		return nil, fmt.Errorf("%w: no well columns found", ErrStructure)
	}

	return s, nil
}

// probeSlot extracts the probe channel number from a header like
// "Temperature 3". The trailing token must be a whole number in 1-8;
// anything else is not a probe column.
func probeSlot(header string) (int, bool) {
	fields := strings.Fields(header)
	if len(fields) < 2 {
		return 0, false
	}
	slot, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil || slot < 1 || slot > probeSlots {
		return 0, false
	}
	return slot, true
}

// wellKeyAt reads the tray name and coordinate above a well-state column.
func wellKeyAt(trays, coords []workbook.Cell, col int) (WellKey, bool) {
	if col >= len(trays) || col >= len(coords) {
		return WellKey{}, false
	}
	tray, ok := trays[col].Text()
	if !ok {
		return WellKey{}, false
	}
	coordinate, ok := coords[col].Text()
	if !ok || !coord.Valid(coordinate) {
		return WellKey{}, false
	}
	return WellKey{Tray: tray, Coordinate: coordinate}, true
}
