package writer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// WriterConfig contains configuration for batch writers.
type WriterConfig struct {
	// BatchSize is the number of rows to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     100,
		FlushInterval: time.Second,
	}
}

// WriterMetrics tracks writer activity.
type WriterMetrics struct {
	Received  int64 `json:"received"`
	Inserts   int64 `json:"inserts"`
	Conflicts int64 `json:"conflicts"`
	Errors    int64 `json:"errors"`
	Flushes   int64 `json:"flushes"`
}

// DB is the subset of *pgxpool.Pool used by the writer.
type DB interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// opportunityRow represents a row of the arbitrage_opportunities table.
type opportunityRow struct {
	ID         uuid.UUID
	Asset      string
	BuyMarket  string
	BuyPrice   float64
	SellMarket string
	SellPrice  float64
	Margin     float64
	QuoteID    *uuid.UUID // NULL when the source sent no quote id
	DetectedAt time.Time
}
