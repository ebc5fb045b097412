package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/icelab/freezetrack/internal/metrics"
	"github.com/icelab/freezetrack/internal/workbook"
)

// maxRowErrors caps the non-fatal row failures per run. A run reporting this
// many errors is no longer successful; once the count exceeds the cap, row
// iteration halts early. Accumulated batches are still flushed either way.
const maxRowErrors = 10

// Pipeline orchestrates one workbook ingestion: load, structure parse,
// entity resolution, sequential row processing, batched writes.
//
// A Pipeline is safe for concurrent Run calls; each run owns its state.
// Runs that provision the same not-yet-provisioned tray are the documented
// exception — see resolver.
type Pipeline struct {
	store        Store
	log          *slog.Logger
	metrics      *metrics.Ingest
	batchSize    int
	maxRowErrors int
	now          func() time.Time
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *metrics.Ingest) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithBatchSize overrides the flush threshold.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline builds a Pipeline over the given persistence collaborator.
func NewPipeline(store Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:        store,
		log:          slog.Default(),
		batchSize:    defaultBatchSize,
		maxRowErrors: maxRowErrors,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run ingests one workbook for an experiment. Setup failures (unreadable
// workbook, bad structure, unknown experiment) and flush failures return a
// non-nil error alongside a failed Result; row-level problems are reported
// only inside the Result. Earlier flushed batches stay committed either way.
func (p *Pipeline) Run(ctx context.Context, experimentID uuid.UUID, fileData []byte) (Result, error) {
	startedAt := p.now().UTC()
	start := time.Now()

	result := Result{
		Status:    StatusInProgress,
		StartedAt: startedAt,
		Errors:    []string{},
	}

	log := p.log.With("experiment_id", experimentID)
	log.Info("ingestion started", "bytes", len(fileData))

	// Setup failures pass through unwrapped; each layer's error already
	// names itself via its sentinel.
	rows, err := workbook.Load(fileData)
	if err != nil {
		return p.fail(result, start, err)
	}

	structure, err := ParseStructure(rows)
	if err != nil {
		return p.fail(result, start, err)
	}
	result.WellsTracked = len(structure.WellColumns)
	log.Info("structure parsed",
		"wells", len(structure.WellColumns),
		"probes", len(structure.ProbeColumns),
		"rows", len(rows),
	)

	res := &resolver{store: p.store, log: log}
	wellIDs, probeIDs, err := res.resolve(ctx, experimentID, structure)
	if err != nil {
		return p.fail(result, start, err)
	}

	proc := newRowProcessor(structure, experimentID, wellIDs, probeIDs, p.now)
	writer := newBatchWriter(p.store, p.batchSize)

	rowsProcessed := 0
	for i, row := range rows[structure.DataStartRow:] {
		rowNumber := structure.DataStartRow + i + 1 // 1-based workbook row

		events, err := proc.processRow(row)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Row: rowNumber, Err: err}.Error())
			if len(result.Errors) > p.maxRowErrors {
				log.Warn("row error cap reached, stopping early",
					"row", rowNumber, "errors", len(result.Errors))
				break
			}
			continue
		}
		rowsProcessed++

		writer.add(events)
		if err := writer.maybeFlush(ctx); err != nil {
			return p.finishStorageFailure(result, writer, start, rowsProcessed, err)
		}
	}

	if err := writer.flush(ctx); err != nil {
		return p.finishStorageFailure(result, writer, start, rowsProcessed, err)
	}

	result.Status = StatusCompleted
	result.Success = len(result.Errors) < p.maxRowErrors
	p.finish(&result, writer, start)

	log.Info("ingestion completed",
		"success", result.Success,
		"temperature_readings", result.TemperatureReadingsCreated,
		"probe_readings", result.ProbeReadingsCreated,
		"phase_transitions", result.PhaseTransitionsCreated,
		"row_errors", len(result.Errors),
		"duration_ms", result.ProcessingTimeMS,
	)
	p.metrics.ObserveRun(string(result.Status), rowsProcessed, len(result.Errors),
		result.TemperatureReadingsCreated, result.ProbeReadingsCreated,
		result.PhaseTransitionsCreated, writer.flushes, time.Since(start))
	return result, nil
}

// fail finalizes a result for a setup error that aborted the run before any
// row was processed.
func (p *Pipeline) fail(result Result, start time.Time, err error) (Result, error) {
	result.Status = StatusFailed
	result.Error = err.Error()
	completed := p.now().UTC()
	result.CompletedAt = &completed
	result.ProcessingTimeMS = time.Since(start).Milliseconds()

	p.log.Error("ingestion failed", "error", err)
	p.metrics.ObserveRun(string(StatusFailed), 0, 0, 0, 0, 0, 0, time.Since(start))
	return result, err
}

// finishStorageFailure finalizes a result for a fatal flush failure partway
// through the file. Counts reflect what was committed before the failure.
func (p *Pipeline) finishStorageFailure(result Result, writer *batchWriter, start time.Time, rowsProcessed int, err error) (Result, error) {
	result.Status = StatusFailed
	result.Error = err.Error()
	p.finish(&result, writer, start)

	p.log.Error("ingestion aborted on flush failure", "error", err)
	p.metrics.ObserveRun(string(StatusFailed), rowsProcessed, len(result.Errors),
		result.TemperatureReadingsCreated, result.ProbeReadingsCreated,
		result.PhaseTransitionsCreated, writer.flushes, time.Since(start))
	return result, err
}

// finish stamps the shared completion fields.
func (p *Pipeline) finish(result *Result, writer *batchWriter, start time.Time) {
	result.TemperatureReadingsCreated = writer.readingsTotal
	result.ProbeReadingsCreated = writer.probesTotal
	result.PhaseTransitionsCreated = writer.transitionsTotal
	result.ProcessingTimeMS = time.Since(start).Milliseconds()
	completed := p.now().UTC()
	result.CompletedAt = &completed
}
