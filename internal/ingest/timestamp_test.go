package ingest

import (
	"testing"
	"time"

	"github.com/icelab/freezetrack/internal/workbook"
)

func TestParseTimestampTextualPairs(t *testing.T) {
	want := time.Date(2023, 1, 15, 12, 30, 45, 0, time.UTC)

	tests := []struct {
		name string
		date string
		time string
	}{
		{name: "iso date", date: "2023-01-15", time: "12:30:45"},
		{name: "us date", date: "1/15/2023", time: "12:30:45"},
		{name: "us date zero padded", date: "01/15/2023", time: "12:30:45"},
		{name: "fractional seconds", date: "2023-01-15", time: "12:30:45.125"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTimestamp(workbook.StringCell(tt.date), workbook.StringCell(tt.time))
			if err != nil {
				t.Fatalf("parseTimestamp: %v", err)
			}
			if !got.Equal(want) {
				t.Errorf("parseTimestamp = %v, want %v", got, want)
			}
		})
	}
}

// Differently formatted textual pairs and a native date-time cell for the
// same instant must normalize to the identical to-the-second timestamp.
func TestParseTimestampFormatsAgree(t *testing.T) {
	instant := time.Date(2023, 3, 4, 9, 15, 0, 0, time.UTC)

	fromISO, err := parseTimestamp(workbook.StringCell("2023-03-04"), workbook.StringCell("09:15:00"))
	if err != nil {
		t.Fatal(err)
	}
	fromUS, err := parseTimestamp(workbook.StringCell("3/4/2023"), workbook.StringCell("09:15:00"))
	if err != nil {
		t.Fatal(err)
	}
	fromNative, err := parseTimestamp(workbook.TimeCell(instant.Add(250*time.Millisecond)), workbook.EmptyCell())
	if err != nil {
		t.Fatal(err)
	}

	if !fromISO.Equal(instant) || !fromUS.Equal(instant) || !fromNative.Equal(instant) {
		t.Errorf("timestamps disagree: iso=%v us=%v native=%v want=%v", fromISO, fromUS, fromNative, instant)
	}
}

func TestParseTimestampDayCount(t *testing.T) {
	// 45000 days after the 1900 epoch, minus the 2-day correction, at noon.
	got, err := parseTimestamp(workbook.FloatCell(45000.5), workbook.EmptyCell())
	if err != nil {
		t.Fatalf("parseTimestamp: %v", err)
	}
	want := time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 44998).Add(12 * time.Hour)
	if !got.Equal(want) {
		t.Errorf("parseTimestamp = %v, want %v", got, want)
	}
}

func TestParseTimestampUnixSeconds(t *testing.T) {
	got, err := parseTimestamp(workbook.FloatCell(1_673_785_845), workbook.EmptyCell())
	if err != nil {
		t.Fatalf("parseTimestamp: %v", err)
	}
	want := time.Unix(1_673_785_845, 0).UTC()
	if !got.Equal(want) {
		t.Errorf("parseTimestamp = %v, want %v", got, want)
	}
}

func TestParseTimestampFailures(t *testing.T) {
	tests := []struct {
		name string
		date workbook.Cell
		time workbook.Cell
	}{
		{name: "empty date", date: workbook.EmptyCell(), time: workbook.StringCell("12:00:00")},
		{name: "date string without time", date: workbook.StringCell("2023-01-15"), time: workbook.EmptyCell()},
		{name: "unparseable pair", date: workbook.StringCell("yesterday"), time: workbook.StringCell("noonish")},
		{name: "negative numeric", date: workbook.FloatCell(-5), time: workbook.EmptyCell()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseTimestamp(tt.date, tt.time); err == nil {
				t.Error("parseTimestamp succeeded, want error")
			}
		})
	}
}
