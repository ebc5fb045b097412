package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/icelab/freezetrack/internal/coord"
)

// resolver maps the wells and probes named by a workbook structure to
// persistent ids, provisioning wells where needed.
//
// Provisioning is read-then-maybe-write with no transactional wrapping:
// concurrent runs that provision the same not-yet-provisioned tray are racy.
// Callers must serialize per-tray provisioning or pre-provision out of band.
type resolver struct {
	store Store
	log   *slog.Logger
}

// wellSlot is one structure well with its decoded grid position.
type wellSlot struct {
	key      WellKey
	row, col int
}

// resolve returns the well-key -> well-id and workbook-column -> probe-id
// maps for a structure under the given experiment's tray configuration.
func (r *resolver) resolve(ctx context.Context, experimentID uuid.UUID, structure *Structure) (map[WellKey]uuid.UUID, map[int]uuid.UUID, error) {
	configID, err := r.store.ExperimentTrayConfiguration(ctx, experimentID)
	if err != nil {
		return nil, nil, fmt.Errorf("experiment %s: %w", experimentID, err)
	}

	assignments, err := r.store.TrayAssignments(ctx, configID)
	if err != nil {
		return nil, nil, fmt.Errorf("load tray assignments: %w", err)
	}
	trayIDs := make(map[string]uuid.UUID, len(assignments))
	for _, a := range assignments {
		trayIDs[a.Name] = a.ID
	}

	slotsByTray, err := groupWellSlots(structure)
	if err != nil {
		return nil, nil, err
	}

	wellIDs := make(map[WellKey]uuid.UUID, len(structure.WellColumns))
	for tray, slots := range slotsByTray {
		trayID, ok := trayIDs[tray]
		if !ok {
			return nil, nil, fmt.Errorf("tray %q: %w in configuration %s", tray, ErrNotFound, configID)
		}
		if err := r.provisionTray(ctx, tray, trayID, slots); err != nil {
			return nil, nil, err
		}
		if err := r.mapTrayWells(ctx, tray, trayID, slots, wellIDs); err != nil {
			return nil, nil, err
		}
	}

	probeIDs, err := r.resolveProbes(ctx, trayIDs, structure)
	if err != nil {
		return nil, nil, err
	}

	r.log.Debug("resolved structure entities",
		"experiment_id", experimentID,
		"wells", len(wellIDs),
		"probes", len(probeIDs),
	)
	return wellIDs, probeIDs, nil
}

// groupWellSlots decodes every structure well coordinate and buckets the
// wells per tray.
func groupWellSlots(structure *Structure) (map[string][]wellSlot, error) {
	out := make(map[string][]wellSlot)
	for key := range structure.WellColumns {
		row, col, err := coord.Decode(key.Coordinate)
		if err != nil {
			return nil, fmt.Errorf("%w: well %s", ErrStructure, key)
		}
		out[key.Tray] = append(out[key.Tray], wellSlot{key: key, row: row, col: col})
	}
	return out, nil
}

// provisionTray makes the persisted wells of a tray cover the bounding box
// the structure requires. No persisted wells: create the full set from the
// structure. Persisted wells too small: delete them all and recreate from
// the structure. This destructive resize is the provisioning policy, not an
// incremental add.
func (r *resolver) provisionTray(ctx context.Context, tray string, trayID uuid.UUID, slots []wellSlot) error {
	existing, err := r.store.WellsByTray(ctx, trayID)
	if err != nil {
		return fmt.Errorf("load wells for tray %q: %w", tray, err)
	}

	var needRow, needCol int
	for _, s := range slots {
		needRow = max(needRow, s.row)
		needCol = max(needCol, s.col)
	}
	var haveRow, haveCol int
	for _, w := range existing {
		haveRow = max(haveRow, w.Row)
		haveCol = max(haveCol, w.Column)
	}

	switch {
	case len(existing) == 0:
		r.log.Info("creating wells for tray", "tray", tray, "wells", len(slots))
	case needRow > haveRow || needCol > haveCol:
		r.log.Info("recreating wells for tray",
			"tray", tray,
			"need_row", needRow, "need_col", needCol,
			"have_row", haveRow, "have_col", haveCol,
		)
		if err := r.store.DeleteWellsByTray(ctx, trayID); err != nil {
			return fmt.Errorf("delete wells for tray %q: %w", tray, err)
		}
	default:
		return nil // existing wells already cover the structure
	}

	wells := make([]Well, len(slots))
	for i, s := range slots {
		wells[i] = Well{ID: uuid.New(), TrayID: trayID, Row: s.row, Column: s.col}
	}
	if err := r.store.CreateWells(ctx, wells); err != nil {
		return fmt.Errorf("create wells for tray %q: %w", tray, err)
	}
	return nil
}

// mapTrayWells fills wellIDs for one tray by position lookup. A well still
// missing after provisioning signals a tray/structure mismatch and fails
// with diagnostics about what the tray actually holds.
func (r *resolver) mapTrayWells(ctx context.Context, tray string, trayID uuid.UUID, slots []wellSlot, wellIDs map[WellKey]uuid.UUID) error {
	wells, err := r.store.WellsByTray(ctx, trayID)
	if err != nil {
		return fmt.Errorf("load wells for tray %q: %w", tray, err)
	}

	type position struct{ row, col int }
	byPosition := make(map[position]uuid.UUID, len(wells))
	for _, w := range wells {
		byPosition[position{w.Row, w.Column}] = w.ID
	}

	for _, s := range slots {
		id, ok := byPosition[position{s.row, s.col}]
		if !ok {
			samples := make([]string, 0, 5)
			for _, w := range wells {
				if len(samples) == 5 {
					break
				}
				samples = append(samples, fmt.Sprintf("row%d,col%d", w.Row, w.Column))
			}
			return fmt.Errorf("well %s (row %d, col %d): %w in tray %q holding %d wells (sample: %v)",
				s.key, s.row, s.col, ErrNotFound, tray, len(wells), samples)
		}
		wellIDs[s.key] = id
	}
	return nil
}

// resolveProbes builds the workbook-column -> probe-id map. Probes are
// stored with a data column index equal to their probe slot (1-8); the
// structure supplies the slot each physical workbook column carries, so the
// two compose without any offset arithmetic here.
func (r *resolver) resolveProbes(ctx context.Context, trayIDs map[string]uuid.UUID, structure *Structure) (map[int]uuid.UUID, error) {
	bySlot := make(map[int]uuid.UUID)
	for tray, trayID := range trayIDs {
		probes, err := r.store.ProbesByTray(ctx, trayID)
		if err != nil {
			return nil, fmt.Errorf("load probes for tray %q: %w", tray, err)
		}
		for _, p := range probes {
			bySlot[p.DataColumnIndex] = p.ID
		}
	}

	byColumn := make(map[int]uuid.UUID, len(structure.ProbeColumns))
	for col, slot := range structure.ProbeColumns {
		if id, ok := bySlot[slot]; ok {
			byColumn[col] = id
		}
	}
	return byColumn, nil
}
