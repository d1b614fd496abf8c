// Package sqldb stores journal events in PostgreSQL or SQLite.
package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/LeJamon/goCustody/internal/storage/journal"
	"github.com/google/uuid"
	_ "github.com/lib/pq" // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver
)

// Supported drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// executor interface allows using both sql.DB and sql.Tx
type executor interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type Sink struct {
	db     *sql.DB
	driver string
}

// Open connects to dsn with driver and creates the schema when missing.
func Open(ctx context.Context, driver, dsn string) (*Sink, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported journal driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}
	if driver == DriverSQLite {
		// A single connection keeps ":memory:" databases shared and
		// serializes writers.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping journal database: %w", err)
	}

	s := &Sink{db: db, driver: driver}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize journal schema: %w", err)
	}
	return s, nil
}

func (s *Sink) initSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS journal_events (
			seq         BIGINT NOT NULL,
			id          TEXT PRIMARY KEY,
			tx_hash     TEXT NOT NULL,
			event_type  TEXT NOT NULL,
			record      TEXT NOT NULL,
			attributes  TEXT NOT NULL,
			created_at  BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_journal_events_record ON journal_events(record, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_journal_events_tx ON journal_events(tx_hash)`,
	}
	for _, q := range queries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// rebind converts ? placeholders to the driver's syntax.
func (s *Sink) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Publish stores events in one transaction. seq continues from the current
// maximum so List returns publish order.
func (s *Sink) Publish(ctx context.Context, events []journal.Event) error {
	if s.db == nil {
		return journal.ErrClosed
	}
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin journal transaction: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM journal_events`).Scan(&seq); err != nil {
		return fmt.Errorf("read journal sequence: %w", err)
	}

	if err := s.insert(ctx, tx, seq, events); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit journal transaction: %w", err)
	}
	return nil
}

func (s *Sink) insert(ctx context.Context, ex executor, seq int64, events []journal.Event) error {
	query := s.rebind(`INSERT INTO journal_events
		(seq, id, tx_hash, event_type, record, attributes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)

	for i, ev := range events {
		attrs, err := json.Marshal(ev.Attributes)
		if err != nil {
			return fmt.Errorf("encode attributes of %s: %w", ev.ID, err)
		}
		_, err = ex.ExecContext(ctx, query,
			seq+int64(i)+1, ev.ID.String(), ev.TxHash, ev.Type, ev.Record, string(attrs), ev.Time.UnixNano())
		if err != nil {
			return fmt.Errorf("insert event %s: %w", ev.ID, err)
		}
	}
	return nil
}

// List returns the events of record. An empty record lists every event.
func (s *Sink) List(ctx context.Context, record string) ([]journal.Event, error) {
	if s.db == nil {
		return nil, journal.ErrClosed
	}

	query := `SELECT id, tx_hash, event_type, record, attributes, created_at FROM journal_events`
	var args []any
	if record != "" {
		query += ` WHERE record = ?`
		args = append(args, record)
	}
	query += ` ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var events []journal.Event
	for rows.Next() {
		var (
			ev      journal.Event
			id      string
			attrs   string
			created int64
		)
		if err := rows.Scan(&id, &ev.TxHash, &ev.Type, &ev.Record, &attrs, &created); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		if ev.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse event id: %w", err)
		}
		if attrs != "null" {
			if err := json.Unmarshal([]byte(attrs), &ev.Attributes); err != nil {
				return nil, fmt.Errorf("decode attributes of %s: %w", id, err)
			}
		}
		ev.Time = time.Unix(0, created).UTC()
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *Sink) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
