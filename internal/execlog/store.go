package execlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tathienbao/futures-orders/internal/types"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Store persists execution records in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the execution log database.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &Store{db: db}

	if err := store.migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

func (s *Store) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS order_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp DATETIME NOT NULL,
			order_id TEXT,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			type TEXT NOT NULL,
			quantity TEXT NOT NULL,
			price TEXT NOT NULL,
			status TEXT NOT NULL,
			mode TEXT NOT NULL,
			detail TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_order_log_symbol ON order_log(symbol)`,
		`CREATE INDEX IF NOT EXISTS idx_order_log_timestamp ON order_log(timestamp)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("execute migration: %w", err)
		}
	}

	return nil
}

// Insert appends one record.
func (s *Store) Insert(ctx context.Context, rec Record) error {
	query := `INSERT INTO order_log (timestamp, order_id, symbol, side, type, quantity, price, status, mode, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		rec.Timestamp,
		rec.OrderID,
		rec.Symbol,
		rec.Side.String(),
		rec.Kind.String(),
		rec.Quantity.String(),
		rec.Price.String(),
		rec.Status,
		string(rec.Mode),
		rec.Detail,
	)
	if err != nil {
		return fmt.Errorf("insert order log: %w", err)
	}

	return nil
}

// Count returns the number of records for a symbol. Used by tests and
// the validate command's data check.
func (s *Store) Count(ctx context.Context, symbol string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM order_log WHERE symbol = ?`, symbol).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count order log: %w", err)
	}
	return n, nil
}

// Recent returns the latest records for a symbol, newest first.
func (s *Store) Recent(ctx context.Context, symbol string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `SELECT timestamp, order_id, symbol, side, type, quantity, price, status, mode, detail
		FROM order_log WHERE symbol = ? ORDER BY id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query order log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		var rec Record
		var side, kind, qty, price, mode string
		var ts time.Time

		if err := rows.Scan(&ts, &rec.OrderID, &rec.Symbol, &side, &kind, &qty, &price, &rec.Status, &mode, &rec.Detail); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		rec.Timestamp = ts
		rec.Side = parseSide(side)
		rec.Kind = parseKind(kind)
		rec.Quantity, _ = decimal.NewFromString(qty)
		rec.Price, _ = decimal.NewFromString(price)
		rec.Mode = Mode(mode)

		records = append(records, rec)
	}

	return records, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func parseSide(s string) types.Side {
	side, err := types.ParseSide(s)
	if err != nil {
		return types.SideNone
	}
	return side
}

func parseKind(s string) types.OrderKind {
	switch s {
	case "LIMIT":
		return types.KindLimit
	case "STOP_LIMIT":
		return types.KindStopLimit
	default:
		return types.KindMarket
	}
}
