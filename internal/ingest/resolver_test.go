package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
)

func testResolver(store Store) *resolver {
	return &resolver{
		store: store,
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func wellStructure(wells map[WellKey]int) *Structure {
	return &Structure{
		DateCol:      0,
		TimeCol:      1,
		ImageCol:     -1,
		WellColumns:  wells,
		ProbeColumns: map[int]int{},
		DataStartRow: dataStartRow,
	}
}

func TestResolveProvisionsEmptyTray(t *testing.T) {
	store := newFakeStore()
	experimentID, trayIDs := store.seedExperiment([]string{"P1"}, 0)

	structure := wellStructure(map[WellKey]int{
		{Tray: "P1", Coordinate: "A1"}: 2,
		{Tray: "P1", Coordinate: "B3"}: 3,
	})

	wellIDs, _, err := testResolver(store).resolve(context.Background(), experimentID, structure)
	if err != nil {
		t.Fatal(err)
	}
	if len(wellIDs) != 2 {
		t.Fatalf("resolved %d wells, want 2", len(wellIDs))
	}
	created := store.wells[trayIDs["P1"]]
	if len(created) != 2 {
		t.Fatalf("created %d wells, want 2", len(created))
	}
	if len(store.deletedTrays) != 0 {
		t.Errorf("deleted trays %v on an empty tray", store.deletedTrays)
	}
}

func TestResolveRecreatesUndersizedTray(t *testing.T) {
	store := newFakeStore()
	experimentID, trayIDs := store.seedExperiment([]string{"P1"}, 0)
	trayID := trayIDs["P1"]
	store.wells[trayID] = []Well{{ID: uuid.New(), TrayID: trayID, Row: 1, Column: 1}}

	structure := wellStructure(map[WellKey]int{
		{Tray: "P1", Coordinate: "A1"}: 2,
		{Tray: "P1", Coordinate: "A2"}: 3,
	})

	wellIDs, _, err := testResolver(store).resolve(context.Background(), experimentID, structure)
	if err != nil {
		t.Fatal(err)
	}
	if len(store.deletedTrays) != 1 || store.deletedTrays[0] != trayID {
		t.Fatalf("deleted trays = %v, want [%s]", store.deletedTrays, trayID)
	}
	if len(store.wells[trayID]) != 2 {
		t.Errorf("tray holds %d wells after recreate, want 2", len(store.wells[trayID]))
	}
	if len(wellIDs) != 2 {
		t.Errorf("resolved %d wells, want 2", len(wellIDs))
	}
}

func TestResolveKeepsSufficientWells(t *testing.T) {
	store := newFakeStore()
	experimentID, trayIDs := store.seedExperiment([]string{"P1"}, 0)
	trayID := trayIDs["P1"]

	existing := uuid.New()
	store.wells[trayID] = []Well{
		{ID: existing, TrayID: trayID, Row: 1, Column: 1},
		{ID: uuid.New(), TrayID: trayID, Row: 2, Column: 2},
	}

	key := WellKey{Tray: "P1", Coordinate: "A1"}
	wellIDs, _, err := testResolver(store).resolve(context.Background(), experimentID, wellStructure(map[WellKey]int{key: 2}))
	if err != nil {
		t.Fatal(err)
	}
	if len(store.deletedTrays) != 0 {
		t.Fatalf("deleted trays %v, want none", store.deletedTrays)
	}
	if wellIDs[key] != existing {
		t.Errorf("well %s resolved to %s, want existing id %s", key, wellIDs[key], existing)
	}
}

func TestResolveUnknownExperiment(t *testing.T) {
	store := newFakeStore()
	_, _, err := testResolver(store).resolve(context.Background(), uuid.New(), wellStructure(map[WellKey]int{
		{Tray: "P1", Coordinate: "A1"}: 2,
	}))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestResolveUnknownTray(t *testing.T) {
	store := newFakeStore()
	experimentID, _ := store.seedExperiment([]string{"P1"}, 0)

	_, _, err := testResolver(store).resolve(context.Background(), experimentID, wellStructure(map[WellKey]int{
		{Tray: "P9", Coordinate: "A1"}: 2,
	}))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestResolveProbeColumns(t *testing.T) {
	store := newFakeStore()
	experimentID, trayIDs := store.seedExperiment([]string{"P1"}, 2)

	structure := wellStructure(map[WellKey]int{
		{Tray: "P1", Coordinate: "A1"}: 6,
	})
	structure.ProbeColumns = map[int]int{3: 1, 4: 2, 5: 3} // slot 3 has no probe

	_, probeIDs, err := testResolver(store).resolve(context.Background(), experimentID, structure)
	if err != nil {
		t.Fatal(err)
	}
	if len(probeIDs) != 2 {
		t.Fatalf("resolved %d probe columns, want 2", len(probeIDs))
	}
	seeded := store.probes[trayIDs["P1"]]
	if probeIDs[3] != seeded[0].ID || probeIDs[4] != seeded[1].ID {
		t.Errorf("probe columns map to %v, want seeded probe ids in slot order", probeIDs)
	}
}
