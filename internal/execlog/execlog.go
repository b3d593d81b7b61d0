// Package execlog appends structured records of every order decision and
// fill. Records go to the structured logger and, when a store is attached,
// to a SQLite table. The log is append-only; nothing in the application
// reads it back.
package execlog

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tathienbao/futures-orders/internal/types"
)

// Mode tells live and simulated records apart.
type Mode string

const (
	ModeSimulated Mode = "SIMULATED"
	ModeLive      Mode = "LIVE"
)

// Record is one execution-log entry.
type Record struct {
	Timestamp time.Time
	OrderID   string
	Symbol    string
	Side      types.Side
	Kind      types.OrderKind
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	Status    string
	Mode      Mode
	Detail    string // failure reason or skip explanation
}

// Logger writes execution records. The SQLite store is optional; with a
// nil store records only reach the structured logger.
type Logger struct {
	logger *slog.Logger
	store  *Store
}

// New creates an execution logger. A nil slog logger falls back to the
// default logger.
func New(logger *slog.Logger, store *Store) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger, store: store}
}

// Append writes one record. A store failure is reported on the logger but
// does not fail the append; losing durability must not abort a live run
// mid-schedule.
func (l *Logger) Append(ctx context.Context, rec Record) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	l.logger.Info("order event",
		"order_id", rec.OrderID,
		"symbol", rec.Symbol,
		"side", rec.Side.String(),
		"type", rec.Kind.String(),
		"quantity", rec.Quantity,
		"price", rec.Price,
		"status", rec.Status,
		"mode", string(rec.Mode),
		"detail", rec.Detail,
	)

	if l.store == nil {
		return
	}
	if err := l.store.Insert(ctx, rec); err != nil {
		l.logger.Error("execution log write failed",
			"order_id", rec.OrderID,
			"error", err,
		)
	}
}
