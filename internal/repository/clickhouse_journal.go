package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"StockDesk/internal/domain/models"
	domrepo "StockDesk/internal/domain/repository"
)

const journalColumns = "id, ticker, name, action, quantity, price, total, balance_after, held_after, executed_at"

// JournalSchema returns the DDL for the trade journal table.
func JournalSchema(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id            String,
	ticker        LowCardinality(String),
	name          String,
	action        LowCardinality(String),
	quantity      Int64,
	price         Float64,
	total         Float64,
	balance_after Float64,
	held_after    Int64,
	executed_at   DateTime64(3, 'UTC')
) ENGINE = ReplacingMergeTree
ORDER BY (ticker, executed_at, id)`, table),
	}
}

// ClickHouseJournal implements JournalStore for ClickHouse.
// Rows are keyed by event id, so redelivered events collapse on merge.
type ClickHouseJournal struct {
	db    *sql.DB
	table string
}

var _ domrepo.JournalStore = (*ClickHouseJournal)(nil)

func NewClickHouseJournal(db *sql.DB, table string) *ClickHouseJournal {
	return &ClickHouseJournal{db: db, table: table}
}

func (s *ClickHouseJournal) Init(ctx context.Context) error {
	for _, stmt := range JournalSchema(s.table) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("journal schema: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseJournal) Store(ctx context.Context, e *models.TradeEvent) error {
	return s.StoreBatch(ctx, []*models.TradeEvent{e})
}

func (s *ClickHouseJournal) StoreBatch(ctx context.Context, events []*models.TradeEvent) error {
	// Chunked multi-row VALUES to bound statement size.
	const chunkSize = 1000
	for start := 0; start < len(events); start += chunkSize {
		end := min(start+chunkSize, len(events))

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*10)
		for _, e := range events[start:end] {
			if e == nil || e.ID == "" || e.Ticker == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				e.ID,
				e.Ticker,
				e.Name,
				string(e.Action),
				int64(e.Quantity),
				e.Price,
				e.Total,
				e.BalanceAfter,
				int64(e.HeldAfter),
				e.ExecutedAt.UTC(),
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", s.table, journalColumns, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("journal insert: %w", err)
		}
	}
	return nil
}

// Query lists events newest first. An empty ticker matches every ticker; zero times leave the range open.
func (s *ClickHouseJournal) Query(ctx context.Context, ticker string, from, to time.Time, limit int) ([]*models.TradeEvent, error) {
	var (
		where []string
		args  []interface{}
	)
	if ticker != "" {
		where = append(where, "ticker = ?")
		args = append(args, ticker)
	}
	if !from.IsZero() {
		where = append(where, "executed_at >= ?")
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		where = append(where, "executed_at <= ?")
		args = append(args, to.UTC())
	}

	q := fmt.Sprintf("SELECT %s FROM %s FINAL", journalColumns, s.table)
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY executed_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("journal query: %w", err)
	}
	defer rows.Close()

	events := make([]*models.TradeEvent, 0)
	for rows.Next() {
		var (
			e         models.TradeEvent
			action    string
			quantity  int64
			heldAfter int64
		)
		if err := rows.Scan(&e.ID, &e.Ticker, &e.Name, &action, &quantity, &e.Price, &e.Total, &e.BalanceAfter, &heldAfter, &e.ExecutedAt); err != nil {
			return nil, fmt.Errorf("journal scan: %w", err)
		}
		e.Action = models.TradeAction(action)
		e.Quantity = int(quantity)
		e.HeldAfter = int(heldAfter)
		events = append(events, &e)
	}
	return events, rows.Err()
}

func (s *ClickHouseJournal) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op; the pool belongs to pkg/clickhouse.Client.
func (s *ClickHouseJournal) Close() error {
	return nil
}
