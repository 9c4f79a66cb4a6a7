package writer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rickgao/arbwatch/internal/model"
)

// OpportunityWriter consumes opportunities from a hub subscription and
// writes them to the arbitrage_opportunities table.
type OpportunityWriter struct {
	cfg    WriterConfig
	logger *slog.Logger

	// Input from the alert hub
	input <-chan model.Opportunity

	// Database
	db DB

	// Batching
	batch       []opportunityRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	metrics WriterMetrics
}

// NewOpportunityWriter creates a new OpportunityWriter.
func NewOpportunityWriter(
	cfg WriterConfig,
	input <-chan model.Opportunity,
	db DB,
	logger *slog.Logger,
) *OpportunityWriter {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultWriterConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaults.FlushInterval
	}
	return &OpportunityWriter{
		cfg:    cfg,
		input:  input,
		db:     db,
		logger: logger,
		batch:  make([]opportunityRow, 0, cfg.BatchSize),
	}
}

// Start begins consuming opportunities and writing to the database.
func (w *OpportunityWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	// Consumer goroutine
	w.wg.Add(1)
	go w.consumeLoop()

	// Flush ticker goroutine
	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("opportunity writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop shuts down the writer. Buffered opportunities are flushed using ctx.
func (w *OpportunityWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping opportunity writer")

	if w.cancel != nil {
		w.cancel()
	}

	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	// Wait for goroutines
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.drain()
		w.logger.Info("opportunity writer stopped")
	case <-ctx.Done():
		w.logger.Warn("opportunity writer stop timed out")
	}

	// Final flush
	w.flush(ctx)

	return nil
}

// Stats returns current metrics.
func (w *OpportunityWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// consumeLoop reads from the subscription and accumulates batches.
func (w *OpportunityWriter) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case opp, ok := <-w.input:
			if !ok {
				return
			}
			w.handleOpportunity(opp)
		}
	}
}

// drain batches whatever is still buffered in the subscription.
func (w *OpportunityWriter) drain() {
	for {
		select {
		case opp, ok := <-w.input:
			if !ok {
				return
			}
			w.add(opp)
		default:
			return
		}
	}
}

// flushLoop periodically flushes the batch.
func (w *OpportunityWriter) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush(w.ctx)
		}
	}
}

// handleOpportunity adds an opportunity to the batch, flushing when full.
func (w *OpportunityWriter) handleOpportunity(opp model.Opportunity) {
	if w.add(opp) {
		w.flush(w.ctx)
	}
}

// add transforms and appends opp. Returns true when the batch is full.
func (w *OpportunityWriter) add(opp model.Opportunity) bool {
	row := w.transform(opp)

	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	w.batch = append(w.batch, row)
	w.metrics.Received++
	return len(w.batch) >= w.cfg.BatchSize
}

// transform converts an Opportunity to an opportunityRow.
func (w *OpportunityWriter) transform(opp model.Opportunity) opportunityRow {
	row := opportunityRow{
		ID:         opp.ID,
		Asset:      opp.Asset,
		BuyMarket:  opp.BuyMarket,
		BuyPrice:   opp.BuyPrice,
		SellMarket: opp.SellMarket,
		SellPrice:  opp.SellPrice,
		Margin:     opp.Margin(),
		DetectedAt: opp.DetectedAt.UTC(),
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if opp.QuoteID != uuid.Nil {
		id := opp.QuoteID
		row.QuoteID = &id
	}
	if row.DetectedAt.IsZero() {
		row.DetectedAt = time.Now().UTC()
	}
	return row
}

// flush writes the current batch to the database.
func (w *OpportunityWriter) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]opportunityRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(ctx, batch)
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

	w.logger.Debug("flushed opportunities",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *OpportunityWriter) batchInsert(ctx context.Context, rows []opportunityRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertSQL,
			r.ID, r.Asset, r.BuyMarket, r.BuyPrice, r.SellMarket, r.SellPrice, r.Margin, r.QuoteID, r.DetectedAt,
		)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
