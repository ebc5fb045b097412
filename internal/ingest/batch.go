package ingest

import (
	"context"
	"fmt"
)

// defaultBatchSize bounds memory and amortizes per-call write overhead over
// files that may run to tens of thousands of rows.
const defaultBatchSize = 500

// batchWriter accumulates emitted events and flushes them in bounded
// batches, one bulk insert per entity kind. Running totals survive flushes.
type batchWriter struct {
	store Store
	size  int

	readings    []TemperatureReading
	probes      []ProbeTemperatureReading
	transitions []WellPhaseTransition

	readingsTotal    int
	probesTotal      int
	transitionsTotal int
	flushes          int
}

func newBatchWriter(store Store, size int) *batchWriter {
	if size <= 0 {
		size = defaultBatchSize
	}
	return &batchWriter{store: store, size: size}
}

func (b *batchWriter) add(ev rowEvents) {
	if ev.reading != nil {
		b.readings = append(b.readings, *ev.reading)
	}
	b.probes = append(b.probes, ev.probes...)
	b.transitions = append(b.transitions, ev.transitions...)
}

// pending is the combined count of unflushed events across all kinds.
func (b *batchWriter) pending() int {
	return len(b.readings) + len(b.probes) + len(b.transitions)
}

// maybeFlush flushes once the combined pending count reaches the batch size.
func (b *batchWriter) maybeFlush(ctx context.Context) error {
	if b.pending() < b.size {
		return nil
	}
	return b.flush(ctx)
}

// flush writes all pending events. A failure is fatal to the run and wraps
// ErrStorage; batches flushed earlier stay committed, so a run is atomic
// per batch, not across the whole file.
func (b *batchWriter) flush(ctx context.Context) error {
	if b.pending() == 0 {
		return nil
	}

	if len(b.readings) > 0 {
		if err := b.store.InsertTemperatureReadings(ctx, b.readings); err != nil {
			return fmt.Errorf("%w: insert temperature readings: %v", ErrStorage, err)
		}
		b.readingsTotal += len(b.readings)
		b.readings = b.readings[:0]
	}
	if len(b.probes) > 0 {
		if err := b.store.InsertProbeReadings(ctx, b.probes); err != nil {
			return fmt.Errorf("%w: insert probe readings: %v", ErrStorage, err)
		}
		b.probesTotal += len(b.probes)
		b.probes = b.probes[:0]
	}
	if len(b.transitions) > 0 {
		if err := b.store.InsertPhaseTransitions(ctx, b.transitions); err != nil {
			return fmt.Errorf("%w: insert phase transitions: %v", ErrStorage, err)
		}
		b.transitionsTotal += len(b.transitions)
		b.transitions = b.transitions[:0]
	}

	b.flushes++
	return nil
}
