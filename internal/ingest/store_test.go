package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// fakeStore is an in-memory Store for pipeline tests. It records every bulk
// insert as a separate flush so tests can assert batching behavior.
type fakeStore struct {
	trayConfigs map[uuid.UUID]uuid.UUID // experiment -> configuration
	assignments map[uuid.UUID][]TrayAssignment
	wells       map[uuid.UUID][]Well // tray -> wells
	probes      map[uuid.UUID][]Probe

	readings    []TemperatureReading
	probeReads  []ProbeTemperatureReading
	transitions []WellPhaseTransition

	readingFlushes    []int
	probeFlushes      []int
	transitionFlushes []int

	deletedTrays []uuid.UUID

	failInserts bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		trayConfigs: make(map[uuid.UUID]uuid.UUID),
		assignments: make(map[uuid.UUID][]TrayAssignment),
		wells:       make(map[uuid.UUID][]Well),
		probes:      make(map[uuid.UUID][]Probe),
	}
}

func (f *fakeStore) ExperimentTrayConfiguration(_ context.Context, experimentID uuid.UUID) (uuid.UUID, error) {
	config, ok := f.trayConfigs[experimentID]
	if !ok {
		return uuid.UUID{}, fmt.Errorf("experiment: %w", ErrNotFound)
	}
	return config, nil
}

func (f *fakeStore) TrayAssignments(_ context.Context, configurationID uuid.UUID) ([]TrayAssignment, error) {
	return f.assignments[configurationID], nil
}

func (f *fakeStore) WellsByTray(_ context.Context, trayID uuid.UUID) ([]Well, error) {
	return f.wells[trayID], nil
}

func (f *fakeStore) CreateWells(_ context.Context, wells []Well) error {
	for _, w := range wells {
		f.wells[w.TrayID] = append(f.wells[w.TrayID], w)
	}
	return nil
}

func (f *fakeStore) DeleteWellsByTray(_ context.Context, trayID uuid.UUID) error {
	f.deletedTrays = append(f.deletedTrays, trayID)
	delete(f.wells, trayID)
	return nil
}

func (f *fakeStore) ProbesByTray(_ context.Context, trayID uuid.UUID) ([]Probe, error) {
	return f.probes[trayID], nil
}

func (f *fakeStore) InsertTemperatureReadings(_ context.Context, readings []TemperatureReading) error {
	if f.failInserts {
		return fmt.Errorf("connection reset")
	}
	f.readings = append(f.readings, readings...)
	f.readingFlushes = append(f.readingFlushes, len(readings))
	return nil
}

func (f *fakeStore) InsertProbeReadings(_ context.Context, readings []ProbeTemperatureReading) error {
	if f.failInserts {
		return fmt.Errorf("connection reset")
	}
	f.probeReads = append(f.probeReads, readings...)
	f.probeFlushes = append(f.probeFlushes, len(readings))
	return nil
}

func (f *fakeStore) InsertPhaseTransitions(_ context.Context, transitions []WellPhaseTransition) error {
	if f.failInserts {
		return fmt.Errorf("connection reset")
	}
	f.transitions = append(f.transitions, transitions...)
	f.transitionFlushes = append(f.transitionFlushes, len(transitions))
	return nil
}

// seedExperiment wires an experiment with one configuration, the named
// trays, and probes for slots 1..probeCount on the first tray. Returns the
// experiment id and the tray ids keyed by name.
func (f *fakeStore) seedExperiment(trayNames []string, probeCount int) (uuid.UUID, map[string]uuid.UUID) {
	experimentID := uuid.New()
	configID := uuid.New()
	f.trayConfigs[experimentID] = configID

	trayIDs := make(map[string]uuid.UUID, len(trayNames))
	for _, name := range trayNames {
		id := uuid.New()
		trayIDs[name] = id
		f.assignments[configID] = append(f.assignments[configID], TrayAssignment{ID: id, Name: name})
	}

	if probeCount > 0 && len(trayNames) > 0 {
		trayID := trayIDs[trayNames[0]]
		for slot := 1; slot <= probeCount; slot++ {
			f.probes[trayID] = append(f.probes[trayID], Probe{ID: uuid.New(), DataColumnIndex: slot})
		}
	}
	return experimentID, trayIDs
}
