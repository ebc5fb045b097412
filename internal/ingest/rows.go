package ingest

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/icelab/freezetrack/internal/workbook"
	"github.com/shopspring/decimal"
)

// rowEvents is everything one data row emits.
type rowEvents struct {
	reading     *TemperatureReading
	probes      []ProbeTemperatureReading
	transitions []WellPhaseTransition
}

// stateChange is one well's staged observation for the current row.
type stateChange struct {
	key        WellKey
	wellID     uuid.UUID
	prev, next int
	transition bool
}

// rowProcessor turns data rows into events. It owns the per-well last-known
// state table and must therefore consume rows single-threaded, in file
// order: transition detection depends on the state threaded across rows.
type rowProcessor struct {
	structure    *Structure
	experimentID uuid.UUID

	wellIDs  map[WellKey]uuid.UUID
	probeIDs map[int]uuid.UUID // workbook column -> probe id

	// states holds the last observed state per well, empty at start of a
	// run. Wells start implicitly liquid (0).
	states map[WellKey]int

	// lastReadingID is the most recent reading emitted this run. Transitions
	// on a row without temperature data are attached to it rather than to a
	// synthetic fresh id.
	lastReadingID uuid.UUID
	hasReading    bool

	// Column iteration orders, fixed up front so event order is stable.
	probeCols []int
	wellKeys  []WellKey

	now func() time.Time
}

func newRowProcessor(structure *Structure, experimentID uuid.UUID, wellIDs map[WellKey]uuid.UUID, probeIDs map[int]uuid.UUID, now func() time.Time) *rowProcessor {
	probeCols := make([]int, 0, len(structure.ProbeColumns))
	for col := range structure.ProbeColumns {
		probeCols = append(probeCols, col)
	}
	sort.Ints(probeCols)

	wellKeys := make([]WellKey, 0, len(structure.WellColumns))
	for key := range structure.WellColumns {
		wellKeys = append(wellKeys, key)
	}
	sort.Slice(wellKeys, func(i, j int) bool {
		if wellKeys[i].Tray != wellKeys[j].Tray {
			return wellKeys[i].Tray < wellKeys[j].Tray
		}
		return wellKeys[i].Coordinate < wellKeys[j].Coordinate
	})

	return &rowProcessor{
		structure:    structure,
		experimentID: experimentID,
		wellIDs:      wellIDs,
		probeIDs:     probeIDs,
		states:       make(map[WellKey]int),
		probeCols:    probeCols,
		wellKeys:     wellKeys,
		now:          now,
	}
}

// processRow handles one data row. A returned error is row-local: the state
// table is left untouched and the caller records the failure and moves on.
func (p *rowProcessor) processRow(row []workbook.Cell) (rowEvents, error) {
	timestamp, err := parseTimestamp(cellAt(row, p.structure.DateCol), cellAt(row, p.structure.TimeCol))
	if err != nil {
		return rowEvents{}, err
	}

	var image string
	if p.structure.ImageCol >= 0 {
		image, _ = cellAt(row, p.structure.ImageCol).Text()
	}

	var events rowEvents
	for _, col := range p.probeCols {
		value, ok := cellAt(row, col).Number()
		if !ok {
			continue
		}
		if events.reading == nil {
			events.reading = &TemperatureReading{
				ID:            uuid.New(),
				ExperimentID:  p.experimentID,
				Timestamp:     timestamp,
				ImageFilename: image,
				CreatedAt:     p.now(),
			}
		}
		probeID, ok := p.probeIDs[col]
		if !ok {
			continue
		}
		events.probes = append(events.probes, ProbeTemperatureReading{
			ID:          uuid.New(),
			ReadingID:   events.reading.ID,
			ProbeID:     probeID,
			Temperature: decimal.NewFromFloat(value),
			CreatedAt:   p.now(),
		})
	}

	// Stage well-state changes before touching the state table so a failed
	// row leaves the run's state exactly as it was.
	var changes []stateChange
	for _, key := range p.wellKeys {
		state, ok := cellAt(row, p.structure.WellColumns[key]).Integer()
		if !ok {
			continue // non-numeric cell: skip this well for this row
		}
		prev, seen := p.states[key]
		transition := (seen && state != prev) || (!seen && state != 0)
		wellID, ok := p.wellIDs[key]
		if !ok && transition {
			// Resolver guarantees an id for every structure well; a miss here
			// means the structure and mapping disagree.
			return rowEvents{}, fmt.Errorf("no well id for %s", key)
		}
		changes = append(changes, stateChange{key: key, wellID: wellID, prev: prev, next: state, transition: transition})
	}

	readingID, err := p.readingIDFor(events.reading, changes)
	if err != nil {
		return rowEvents{}, err
	}

	for _, c := range changes {
		p.states[c.key] = c.next
		if !c.transition {
			continue
		}
		events.transitions = append(events.transitions, WellPhaseTransition{
			ID:            uuid.New(),
			WellID:        c.wellID,
			ExperimentID:  p.experimentID,
			ReadingID:     readingID,
			Timestamp:     timestamp,
			PreviousState: c.prev,
			NewState:      c.next,
			CreatedAt:     p.now(),
		})
	}

	if events.reading != nil {
		p.lastReadingID = events.reading.ID
		p.hasReading = true
	}

	return events, nil
}

// readingIDFor picks the reading id transitions on this row should
// reference: the row's own reading when present, otherwise the last reading
// emitted this run. A transition before any reading exists fails the row.
func (p *rowProcessor) readingIDFor(reading *TemperatureReading, changes []stateChange) (uuid.UUID, error) {
	if reading != nil {
		return reading.ID, nil
	}
	for _, c := range changes {
		if c.transition {
			if !p.hasReading {
				return uuid.UUID{}, fmt.Errorf("well %s changed state before any temperature reading", c.key)
			}
			return p.lastReadingID, nil
		}
	}
	return uuid.UUID{}, nil
}

// cellAt returns the cell at index i, or an empty cell when the row is short.
func cellAt(row []workbook.Cell, i int) workbook.Cell {
	if i < 0 || i >= len(row) {
		return workbook.EmptyCell()
	}
	return row[i]
}
