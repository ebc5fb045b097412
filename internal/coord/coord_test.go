package coord

import (
	"errors"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantRow int
		wantCol int
		wantErr bool
	}{
		{name: "first well", input: "A1", wantRow: 1, wantCol: 1},
		{name: "multi digit column", input: "H12", wantRow: 8, wantCol: 12},
		{name: "last row letter", input: "Z99", wantRow: 26, wantCol: 99},
		{name: "empty", input: "", wantErr: true},
		{name: "letter only", input: "A", wantErr: true},
		{name: "digits only", input: "12", wantErr: true},
		{name: "digits first", input: "1A", wantErr: true},
		{name: "lowercase letter", input: "a1", wantErr: true},
		{name: "multi letter run", input: "AA1", wantErr: true},
		{name: "non digit suffix", input: "A1x", wantErr: true},
		{name: "zero column", input: "A0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, col, err := Decode(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Decode(%q) = (%d, %d), want error", tt.input, row, col)
				}
				if !errors.Is(err, ErrBadCoordinate) {
					t.Errorf("Decode(%q) error = %v, want ErrBadCoordinate", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode(%q) unexpected error: %v", tt.input, err)
			}
			if row != tt.wantRow || col != tt.wantCol {
				t.Errorf("Decode(%q) = (%d, %d), want (%d, %d)", tt.input, row, col, tt.wantRow, tt.wantCol)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name    string
		row     int
		col     int
		want    string
		wantErr bool
	}{
		{name: "first well", row: 1, col: 1, want: "A1"},
		{name: "two digit column", row: 8, col: 12, want: "H12"},
		{name: "last letter", row: 26, col: 1, want: "Z1"},
		{name: "row past Z", row: 27, col: 1, wantErr: true},
		{name: "zero row", row: 0, col: 1, wantErr: true},
		{name: "zero column", row: 1, col: 0, wantErr: true},
		{name: "negative row", row: -1, col: 5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.row, tt.col)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Encode(%d, %d) = %q, want error", tt.row, tt.col, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Encode(%d, %d) unexpected error: %v", tt.row, tt.col, err)
			}
			if got != tt.want {
				t.Errorf("Encode(%d, %d) = %q, want %q", tt.row, tt.col, got, tt.want)
			}
		})
	}
}

// Decoding, re-encoding, and decoding again must land on the same pair for
// every coordinate the codec accepts.
func TestRoundTrip(t *testing.T) {
	inputs := []string{"A1", "B2", "H12", "Z1", "C10", "Z384"}

	for _, in := range inputs {
		row, col, err := Decode(in)
		if err != nil {
			t.Fatalf("Decode(%q): %v", in, err)
		}
		encoded, err := Encode(row, col)
		if err != nil {
			t.Fatalf("Encode(%d, %d): %v", row, col, err)
		}
		row2, col2, err := Decode(encoded)
		if err != nil {
			t.Fatalf("Decode(%q): %v", encoded, err)
		}
		if row2 != row || col2 != col {
			t.Errorf("round trip %q -> (%d,%d) -> %q -> (%d,%d)", in, row, col, encoded, row2, col2)
		}
	}
}

func TestValid(t *testing.T) {
	if !Valid("A1") {
		t.Error("Valid(A1) = false, want true")
	}
	if Valid("1A") {
		t.Error("Valid(1A) = true, want false")
	}
}
