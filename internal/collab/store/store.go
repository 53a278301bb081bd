// Package store implements the persistent event/candidate store named as
// an external collaborator in spec.md §1. It is deliberately outside the
// GEPA core: the Scheduler only ever calls a Sink, never this package
// directly. Backed by modernc.org/sqlite the same way the teacher's
// sqlitevec memory backend is, narrowed from vector search to an
// append-only event log plus periodic archive snapshots for replay.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gepa-project/gepa/internal/gepa/archive"
	"github.com/gepa-project/gepa/internal/observability"
	"github.com/gepa-project/gepa/pkg/gepa"
)

// Store is the persistence boundary for a GEPA run: durable events for
// replay, and point-in-time archive snapshots for fast resume without
// replaying the whole log.
type Store interface {
	SaveEvent(ctx context.Context, runID string, e gepa.Event) error
	LoadEvents(ctx context.Context, runID string) ([]gepa.Event, error)
	SaveArchiveSnapshot(ctx context.Context, runID string, a *archive.Archive) error
}

// SQLiteStore implements Store on top of a local SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	tracer *observability.Tracer
}

// Config configures a SQLiteStore.
type Config struct {
	// Path is the database file path; ":memory:" for an ephemeral store.
	Path string
	// Tracer, if non-nil, wraps every query in a database span.
	Tracer *observability.Tracer
}

// New opens (creating if absent) a SQLite-backed Store.
func New(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		cfg.Path = ":memory:"
	}
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("store: failed to open database: %w", err)
	}
	s := &SQLiteStore{db: db, tracer: cfg.Tracer}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// traceQuery starts a database span for operation/table if a tracer is
// configured, returning a no-op finish func otherwise.
func (s *SQLiteStore) traceQuery(ctx context.Context, operation, table string) (context.Context, func(error)) {
	if s.tracer == nil {
		return ctx, func(error) {}
	}
	spanCtx, span := s.tracer.TraceDatabaseQuery(ctx, operation, table)
	return spanCtx, func(err error) {
		if err != nil {
			s.tracer.RecordError(span, err)
		}
		span.End()
	}
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			run_id TEXT NOT NULL,
			sequence INTEGER NOT NULL,
			event_type TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (run_id, sequence)
		)
	`)
	if err != nil {
		return fmt.Errorf("store: creating events table: %w", err)
	}
	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS archive_snapshots (
			run_id TEXT PRIMARY KEY,
			archive_size INTEGER NOT NULL,
			snapshot TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("store: creating archive_snapshots table: %w", err)
	}
	return nil
}

// SaveEvent persists one event for later replay. Events are append-only;
// (run_id, sequence) is the primary key so a retried save is idempotent.
func (s *SQLiteStore) SaveEvent(ctx context.Context, runID string, e gepa.Event) error {
	ctx, finish := s.traceQuery(ctx, "insert", "events")
	payload, err := json.Marshal(e)
	if err != nil {
		finish(err)
		return fmt.Errorf("store: marshaling event: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO events (run_id, sequence, event_type, payload) VALUES (?, ?, ?, ?)`,
		runID, e.Sequence, string(e.Type), string(payload),
	)
	finish(err)
	if err != nil {
		return fmt.Errorf("store: saving event: %w", err)
	}
	return nil
}

// LoadEvents returns every event for runID in sequence order.
func (s *SQLiteStore) LoadEvents(ctx context.Context, runID string) ([]gepa.Event, error) {
	ctx, finish := s.traceQuery(ctx, "select", "events")
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM events WHERE run_id = ? ORDER BY sequence ASC`, runID)
	if err != nil {
		finish(err)
		return nil, fmt.Errorf("store: loading events: %w", err)
	}
	defer finish(nil)
	defer rows.Close()

	var events []gepa.Event
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("store: scanning event: %w", err)
		}
		var e gepa.Event
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, fmt.Errorf("store: unmarshaling event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// archiveSnapshot is the JSON-serializable form of an Archive's current
// state, sufficient to resume a fold without replaying every event.
type archiveSnapshot struct {
	Candidates []gepa.EvaluatedCandidate `json:"candidates"`
	SavedAt    time.Time                 `json:"saved_at"`
}

// SaveArchiveSnapshot persists the current archive contents under runID,
// overwriting any previous snapshot.
func (s *SQLiteStore) SaveArchiveSnapshot(ctx context.Context, runID string, a *archive.Archive) error {
	ctx, finish := s.traceQuery(ctx, "insert", "archive_snapshots")
	snap := archiveSnapshot{Candidates: a.All(), SavedAt: time.Now()}
	payload, err := json.Marshal(snap)
	if err != nil {
		finish(err)
		return fmt.Errorf("store: marshaling snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO archive_snapshots (run_id, archive_size, snapshot) VALUES (?, ?, ?)`,
		runID, a.Size(), string(payload),
	)
	finish(err)
	if err != nil {
		return fmt.Errorf("store: saving snapshot: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
