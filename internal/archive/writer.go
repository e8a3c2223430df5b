package archive

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/farmsight/herdfeed/internal/model"
)

// Config holds archive writer settings.
type Config struct {
	BatchSize     int           // Rows per insert batch
	FlushInterval time.Duration // Max latency before a partial batch flushes
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		FlushInterval: time.Second,
	}
}

// Metrics counts writer activity.
type Metrics struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
	Flushes   int64
}

// Writer consumes live measurements and persists them in batches. The feed
// buffer itself is never persisted; this archives the measurement history
// the same way the backend does, for dashboards that outlive a session.
type Writer struct {
	cfg    Config
	logger *slog.Logger

	input <-chan model.Measurement
	db    *pgxpool.Pool

	batch   []measurementRow
	batchMu sync.Mutex
	metrics Metrics

	flushTicker *time.Ticker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// measurementRow is the flattened insert row.
type measurementRow struct {
	MeasurementID int64
	AnimalID      int64
	TagID         string
	WeightKg      float64
	Confidence    float64
	CameraID      string
	CapturedAt    time.Time
	ReceivedAt    time.Time
}

// NewWriter creates an archive writer reading from input.
func NewWriter(cfg Config, input <-chan model.Measurement, db *pgxpool.Pool, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		cfg:    cfg,
		logger: logger,
		input:  input,
		db:     db,
		batch:  make([]measurementRow, 0, cfg.BatchSize),
	}
}

// Start begins consuming measurements and writing to the database.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("archive writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer, flushing any remaining batch.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping archive writer")

	if w.cancel != nil {
		w.cancel()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("archive writer stopped")
	case <-ctx.Done():
		w.logger.Warn("archive writer stop timed out")
	}

	w.flush()
	return nil
}

// Stats returns current metrics.
func (w *Writer) Stats() Metrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// consumeLoop reads measurements and accumulates batches.
func (w *Writer) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case m, ok := <-w.input:
			if !ok {
				return
			}
			w.handleMeasurement(m)
		}
	}
}

// flushLoop periodically flushes the batch.
func (w *Writer) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush()
		}
	}
}

// handleMeasurement transforms and adds a measurement to the batch.
func (w *Writer) handleMeasurement(m model.Measurement) {
	row := transform(m)

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush()
	}
}

// transform converts a measurement to its insert row.
func transform(m model.Measurement) measurementRow {
	return measurementRow{
		MeasurementID: m.MeasurementID,
		AnimalID:      m.AnimalID,
		TagID:         m.TagID,
		WeightKg:      m.WeightKg,
		Confidence:    m.Confidence,
		CameraID:      m.CameraID,
		CapturedAt:    m.Timestamp,
		ReceivedAt:    time.Now(),
	}
}

// flush writes the current batch to the database.
func (w *Writer) flush() {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]measurementRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(batch)
	if err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed measurements",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows, skipping measurements already archived.
// Returns the number of conflict rows skipped.
func (w *Writer) batchInsert(rows []measurementRow) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	b := &pgx.Batch{}
	for _, r := range rows {
		b.Queue(
			`INSERT INTO weight_archive
			   (measurement_id, animal_id, tag_id, weight_kg, confidence, camera_id, captured_at, received_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (measurement_id) DO NOTHING`,
			r.MeasurementID, r.AnimalID, r.TagID, r.WeightKg,
			r.Confidence, r.CameraID, r.CapturedAt, r.ReceivedAt,
		)
	}

	results := w.db.SendBatch(ctx, b)
	defer results.Close()

	conflicts := 0
	for range rows {
		tag, err := results.Exec()
		if err != nil {
			return conflicts, err
		}
		if tag.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
