package ingest

import (
	"errors"
	"fmt"
)

// Setup failures abort a run before any data row is read. Row-level parse
// failures are accumulated in the result instead; see Pipeline.Run.
var (
	// ErrStructure marks a workbook whose header block is missing mandatory
	// columns or contains no well columns.
	ErrStructure = errors.New("invalid workbook structure")

	// ErrNotFound marks a missing experiment, tray configuration, tray, or well.
	ErrNotFound = errors.New("not found")

	// ErrStorage marks a failed persistence call during a batch flush.
	// Batches flushed before the failure stay committed.
	ErrStorage = errors.New("storage failure")
)

// RowError records one non-fatal data-row failure with its 1-based row number.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }
