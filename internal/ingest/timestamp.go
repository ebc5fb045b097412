package ingest

import (
	"fmt"
	"math"
	"time"

	"github.com/icelab/freezetrack/internal/workbook"
)

// Textual date+time layouts accepted from exports that write separate Date
// and Time string columns.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"1/2/2006 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"1/2/2006 15:04:05.999999999",
}

// Legacy exports write the Date column as a raw day count since the 1900
// spreadsheet epoch. Values above this bound are treated as Unix seconds
// instead; the two ranges are far apart (day counts stay five-digit well
// past the year 2100, Unix timestamps are ten-digit).
const maxDayCount = 100_000

// dayCountEpochSkew corrects the known off-by-two in legacy day counts:
// the 1900 epoch counts from day 1 and includes the phantom 1900-02-29.
const dayCountEpochSkew = 2

var dayCountEpoch = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// parseTimestamp normalizes the date and time cells of one data row to a
// UTC instant. Exactly one of the supported encodings must succeed:
// a textual date/time pair, a native date-time cell, a legacy day count, or
// a Unix-seconds numeric. The result is truncated to whole seconds so that
// floating-point jitter in serial values cannot split identical instants.
func parseTimestamp(dateCell, timeCell workbook.Cell) (time.Time, error) {
	if dateCell.IsEmpty() {
		return time.Time{}, fmt.Errorf("missing date cell")
	}

	if dateStr, ok := dateCell.Text(); ok {
		timeStr, ok := timeCell.Text()
		if !ok {
			return time.Time{}, fmt.Errorf("date %q has no time cell", dateStr)
		}
		return parseTextualTimestamp(dateStr, timeStr)
	}

	if t, ok := dateCell.Timestamp(); ok {
		return t.UTC().Truncate(time.Second), nil
	}

	if v, ok := dateCell.Number(); ok {
		return parseNumericTimestamp(v)
	}

	return time.Time{}, fmt.Errorf("unsupported date cell type")
}

func parseTextualTimestamp(dateStr, timeStr string) (time.Time, error) {
	combined := dateStr + " " + timeStr
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, combined); err == nil {
			return t.UTC().Truncate(time.Second), nil
		}
	}
	return time.Time{}, fmt.Errorf("could not parse datetime %q", combined)
}

func parseNumericTimestamp(v float64) (time.Time, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return time.Time{}, fmt.Errorf("timestamp value is not finite")
	}
	if v < 0 {
		return time.Time{}, fmt.Errorf("timestamp value %v is negative", v)
	}

	if v < maxDayCount {
		days := math.Floor(v)
		frac := v - days
		t := dayCountEpoch.
			AddDate(0, 0, int(days)-dayCountEpochSkew).
			Add(time.Duration(math.Round(frac * 86_400 * float64(time.Second))))
		return t.Truncate(time.Second), nil
	}

	return time.Unix(int64(math.Round(v)), 0).UTC(), nil
}
