// Package ingest converts freezing-point instrument workbook exports into
// discrete time-series events: temperature readings, per-probe readings, and
// well phase transitions. The package has no HTTP or SQL dependencies; it
// talks to persistence through the Store interface.
package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WellKey identifies one well column in a workbook: the tray name from the
// first header row plus the "A1"-style coordinate from the second.
type WellKey struct {
	Tray       string
	Coordinate string
}

func (k WellKey) String() string { return k.Tray + ":" + k.Coordinate }

// TemperatureReading is one timestamped sample row. Emitted only for rows
// carrying at least one parseable probe value.
type TemperatureReading struct {
	ID            uuid.UUID
	ExperimentID  uuid.UUID
	Timestamp     time.Time
	ImageFilename string // empty when the row has no image column value
	CreatedAt     time.Time
}

// ProbeTemperatureReading is one probe channel value tied to a reading.
type ProbeTemperatureReading struct {
	ID          uuid.UUID
	ReadingID   uuid.UUID
	ProbeID     uuid.UUID
	Temperature decimal.Decimal
	CreatedAt   time.Time
}

// WellPhaseTransition records a change in a well's freeze/thaw state between
// consecutive observations. State 0 is liquid, 1 is frozen.
type WellPhaseTransition struct {
	ID            uuid.UUID
	WellID        uuid.UUID
	ExperimentID  uuid.UUID
	ReadingID     uuid.UUID
	Timestamp     time.Time
	PreviousState int
	NewState      int
	CreatedAt     time.Time
}

// TrayAssignment is a named tray within a tray configuration.
type TrayAssignment struct {
	ID   uuid.UUID
	Name string
}

// Well is one persisted grid cell of a tray, addressed by 1-based row/column.
type Well struct {
	ID     uuid.UUID
	TrayID uuid.UUID
	Row    int
	Column int
}

// Probe is a temperature sensor mapped to one probe slot (1-8) via its
// stored data column index.
type Probe struct {
	ID              uuid.UUID
	DataColumnIndex int
}

// Store is the persistence collaborator consumed by the pipeline. The pgx
// implementation lives in internal/store; tests substitute fakes.
//
// The bulk inserts are append-only: re-ingesting a workbook for the same
// experiment produces an independent new event set.
type Store interface {
	// ExperimentTrayConfiguration returns the tray configuration id of an
	// experiment, or an error wrapping ErrNotFound.
	ExperimentTrayConfiguration(ctx context.Context, experimentID uuid.UUID) (uuid.UUID, error)

	// TrayAssignments lists the named trays of a configuration.
	TrayAssignments(ctx context.Context, configurationID uuid.UUID) ([]TrayAssignment, error)

	// WellsByTray lists the persisted wells of a tray.
	WellsByTray(ctx context.Context, trayID uuid.UUID) ([]Well, error)

	// CreateWells inserts wells in bulk.
	CreateWells(ctx context.Context, wells []Well) error

	// DeleteWellsByTray removes every well of a tray. Used by the destructive
	// provisioning resize; see Resolver.
	DeleteWellsByTray(ctx context.Context, trayID uuid.UUID) error

	// ProbesByTray lists the probes attached to a tray.
	ProbesByTray(ctx context.Context, trayID uuid.UUID) ([]Probe, error)

	InsertTemperatureReadings(ctx context.Context, readings []TemperatureReading) error
	InsertProbeReadings(ctx context.Context, readings []ProbeTemperatureReading) error
	InsertPhaseTransitions(ctx context.Context, transitions []WellPhaseTransition) error
}

// Status is the lifecycle state reported by an ingestion run.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Result is the structured outcome of one ingestion run. Row-level problems
// are always delivered here; setup failures are returned as errors alongside
// a failed Result.
type Result struct {
	Status                     Status     `json:"status"`
	Success                    bool       `json:"success"`
	TemperatureReadingsCreated int        `json:"temperature_readings_created"`
	ProbeReadingsCreated       int        `json:"probe_readings_created"`
	PhaseTransitionsCreated    int        `json:"phase_transitions_created"`
	WellsTracked               int        `json:"wells_tracked"`
	ProcessingTimeMS           int64      `json:"processing_time_ms"`
	StartedAt                  time.Time  `json:"started_at"`
	CompletedAt                *time.Time `json:"completed_at,omitempty"`
	Error                      string     `json:"error,omitempty"`
	Errors                     []string   `json:"errors"`
}
