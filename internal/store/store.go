// Package store implements the ingestion persistence contract on PostgreSQL
// via pgx. Bulk event inserts use the COPY protocol.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/icelab/freezetrack/internal/ingest"
)

// Store is the pgx-backed ingest.Store.
type Store struct {
	pool *pgxpool.Pool
}

var _ ingest.Store = (*Store)(nil)

// New wraps a connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Ping verifies database connectivity. Used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// ExperimentTrayConfiguration returns the tray configuration id assigned to
// an experiment. A missing experiment or an experiment without a
// configuration reports ingest.ErrNotFound.
func (s *Store) ExperimentTrayConfiguration(ctx context.Context, experimentID uuid.UUID) (uuid.UUID, error) {
	var configID pgtype.UUID
	err := s.pool.QueryRow(ctx,
		`SELECT tray_configuration_id FROM experiments WHERE id = $1`,
		experimentID,
	).Scan(&configID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.UUID{}, fmt.Errorf("experiment %s: %w", experimentID, ingest.ErrNotFound)
	}
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("query experiment: %w", err)
	}
	if !configID.Valid {
		return uuid.UUID{}, fmt.Errorf("experiment %s has no tray configuration: %w", experimentID, ingest.ErrNotFound)
	}
	return uuid.UUID(configID.Bytes), nil
}

// TrayAssignments lists the named trays of a configuration in sequence order.
func (s *Store) TrayAssignments(ctx context.Context, configurationID uuid.UUID) ([]ingest.TrayAssignment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name
		   FROM tray_configuration_assignments
		  WHERE tray_configuration_id = $1
		  ORDER BY order_sequence`,
		configurationID,
	)
	if err != nil {
		return nil, fmt.Errorf("query tray assignments: %w", err)
	}
	defer rows.Close()

	var assignments []ingest.TrayAssignment
	for rows.Next() {
		var a ingest.TrayAssignment
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, fmt.Errorf("scan tray assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// WellsByTray lists the persisted wells of a tray.
func (s *Store) WellsByTray(ctx context.Context, trayID uuid.UUID) ([]ingest.Well, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tray_id, row_index, column_index
		   FROM wells
		  WHERE tray_id = $1
		  ORDER BY row_index, column_index`,
		trayID,
	)
	if err != nil {
		return nil, fmt.Errorf("query wells: %w", err)
	}
	defer rows.Close()

	var wells []ingest.Well
	for rows.Next() {
		var w ingest.Well
		if err := rows.Scan(&w.ID, &w.TrayID, &w.Row, &w.Column); err != nil {
			return nil, fmt.Errorf("scan well: %w", err)
		}
		wells = append(wells, w)
	}
	return wells, rows.Err()
}

// CreateWells inserts wells in bulk via COPY.
func (s *Store) CreateWells(ctx context.Context, wells []ingest.Well) error {
	rows := make([][]any, len(wells))
	for i, w := range wells {
		rows[i] = []any{w.ID, w.TrayID, w.Row, w.Column}
	}
	_, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"wells"},
		[]string{"id", "tray_id", "row_index", "column_index"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy wells: %w", err)
	}
	return nil
}

// DeleteWellsByTray removes every well of a tray. Dependent events cascade
// at the schema level.
func (s *Store) DeleteWellsByTray(ctx context.Context, trayID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM wells WHERE tray_id = $1`, trayID); err != nil {
		return fmt.Errorf("delete wells: %w", err)
	}
	return nil
}

// ProbesByTray lists the probes attached to a tray.
func (s *Store) ProbesByTray(ctx context.Context, trayID uuid.UUID) ([]ingest.Probe, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, data_column_index
		   FROM probes
		  WHERE tray_id = $1
		  ORDER BY data_column_index`,
		trayID,
	)
	if err != nil {
		return nil, fmt.Errorf("query probes: %w", err)
	}
	defer rows.Close()

	var probes []ingest.Probe
	for rows.Next() {
		var p ingest.Probe
		if err := rows.Scan(&p.ID, &p.DataColumnIndex); err != nil {
			return nil, fmt.Errorf("scan probe: %w", err)
		}
		probes = append(probes, p)
	}
	return probes, rows.Err()
}

// InsertTemperatureReadings bulk-inserts reading events via COPY.
func (s *Store) InsertTemperatureReadings(ctx context.Context, readings []ingest.TemperatureReading) error {
	rows := make([][]any, len(readings))
	for i, r := range readings {
		rows[i] = []any{r.ID, r.ExperimentID, r.Timestamp, textOrNull(r.ImageFilename), r.CreatedAt}
	}
	_, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"temperature_readings"},
		[]string{"id", "experiment_id", "timestamp", "image_filename", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy temperature readings: %w", err)
	}
	return nil
}

// InsertProbeReadings bulk-inserts per-probe values via COPY.
func (s *Store) InsertProbeReadings(ctx context.Context, readings []ingest.ProbeTemperatureReading) error {
	rows := make([][]any, len(readings))
	for i, r := range readings {
		temperature, err := numericFromDecimal(r.Temperature)
		if err != nil {
			return err
		}
		rows[i] = []any{r.ID, r.ReadingID, r.ProbeID, temperature, r.CreatedAt}
	}
	_, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"probe_temperature_readings"},
		[]string{"id", "temperature_reading_id", "probe_id", "temperature", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy probe readings: %w", err)
	}
	return nil
}

// InsertPhaseTransitions bulk-inserts well state changes via COPY.
func (s *Store) InsertPhaseTransitions(ctx context.Context, transitions []ingest.WellPhaseTransition) error {
	rows := make([][]any, len(transitions))
	for i, t := range transitions {
		rows[i] = []any{
			t.ID, t.WellID, t.ExperimentID, t.ReadingID,
			t.Timestamp, t.PreviousState, t.NewState, t.CreatedAt,
		}
	}
	_, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"well_phase_transitions"},
		[]string{
			"id", "well_id", "experiment_id", "temperature_reading_id",
			"timestamp", "previous_state", "new_state", "created_at",
		},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy phase transitions: %w", err)
	}
	return nil
}

// numericFromDecimal converts a decimal temperature to pgtype.Numeric
// without a float round trip.
func numericFromDecimal(d decimal.Decimal) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return pgtype.Numeric{}, fmt.Errorf("temperature %s: %w", d, err)
	}
	return n, nil
}

// textOrNull maps an empty string to SQL NULL.
func textOrNull(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
