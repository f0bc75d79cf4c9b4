package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wms-platform/lpn-service/internal/domain"
	"github.com/wms-platform/lpn-service/pkg/tracing"
)

// uniqueViolation is the SQLSTATE of a duplicate (stream_id, version)
const uniqueViolation = "23505"

const (
	selectVersionSQL = `SELECT COALESCE(MAX(version), 0) FROM lpn_events WHERE stream_id = $1`
	insertEventSQL   = `INSERT INTO lpn_events (stream_id, stream_type, version, event_type, data, actor_id, station_id, occurred_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	selectStreamSQL  = `SELECT stream_id, version, event_type, data, actor_id, station_id, occurred_at FROM lpn_events WHERE stream_id = $1 ORDER BY version`
)

// Config holds connection pool settings
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns pool settings for dsn
func DefaultConfig(dsn string) Config {
	return Config{DSN: dsn, MaxOpenConns: 25, MaxIdleConns: 5, ConnMaxLifetime: 5 * time.Minute}
}

// Connect opens and pings a pool
func Connect(ctx context.Context, cfg Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// EventStore keeps streams in one table. The unique (stream_id, version)
// constraint is the final arbiter between racing writers.
type EventStore struct {
	db     *sql.DB
	tracer trace.Tracer
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db, tracer: otel.Tracer("lpn-service/postgres")}
}

func (s *EventStore) AppendEvents(ctx context.Context, streamID string, expectedVersion int64, events []domain.EventRecord) error {
	return s.SaveBatch(ctx, []domain.EventStreamBatch{{
		StreamID:        streamID,
		ExpectedVersion: expectedVersion,
		Events:          events,
	}})
}

// SaveBatch writes all batches in one transaction
func (s *EventStore) SaveBatch(ctx context.Context, batches []domain.EventStreamBatch) error {
	streams := make([]string, len(batches))
	for i, b := range batches {
		streams[i] = b.StreamID
	}
	_, err := tracing.TracedOperation(ctx, s.tracer, "postgres.save_batch", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.saveBatch(ctx, batches)
	}, tracing.EventStoreSpanAttributes("postgresql", "INSERT", streams)...)
	return err
}

func (s *EventStore) saveBatch(ctx context.Context, batches []domain.EventStreamBatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return translate(err, "")
	}

	if streamID, err := s.write(ctx, tx, batches); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("rollback after %v: %w", err, rbErr)
		}
		return translate(err, streamID)
	}
	if err := tx.Commit(); err != nil {
		return translate(err, "")
	}
	return nil
}

// write returns the stream being written when it fails
func (s *EventStore) write(ctx context.Context, tx *sql.Tx, batches []domain.EventStreamBatch) (string, error) {
	pending := make(map[string]int64, len(batches))
	for _, b := range batches {
		if b.StreamID == "" {
			return "", fmt.Errorf("%w: empty stream id", domain.ErrInvalidValue)
		}
		current, ok := pending[b.StreamID]
		if !ok {
			if err := tx.QueryRowContext(ctx, selectVersionSQL, b.StreamID).Scan(&current); err != nil {
				return b.StreamID, err
			}
		}
		if current != b.ExpectedVersion {
			return b.StreamID, &domain.ConflictError{StreamID: b.StreamID, Expected: b.ExpectedVersion, Actual: current}
		}
		for _, rec := range b.Events {
			current++
			_, err := tx.ExecContext(ctx, insertEventSQL,
				b.StreamID,
				domain.StreamType(b.StreamID),
				current,
				rec.EventType,
				string(rec.Data),
				rec.ActorID,
				rec.StationID,
				rec.OccurredAt.UTC(),
			)
			if err != nil {
				return b.StreamID, err
			}
		}
		pending[b.StreamID] = current
	}
	return "", nil
}

func translate(err error, streamID string) error {
	var conflict *domain.ConflictError
	if errors.As(err, &conflict) || errors.Is(err, domain.ErrInvalidValue) {
		return err
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return &domain.ConflictError{StreamID: streamID, Expected: -1, Actual: -1}
	}
	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("failed to save events: %w", err)
}

func (s *EventStore) GetEvents(ctx context.Context, streamID string) ([]domain.EventRecord, error) {
	return tracing.TracedOperation(ctx, s.tracer, "postgres.get_events", func(ctx context.Context) ([]domain.EventRecord, error) {
		return s.getEvents(ctx, streamID)
	}, tracing.EventStoreSpanAttributes("postgresql", "SELECT", []string{streamID})...)
}

func (s *EventStore) getEvents(ctx context.Context, streamID string) ([]domain.EventRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectStreamSQL, streamID)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, driver.ErrBadConn) || errors.As(err, &netErr) {
			return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
		}
		return nil, fmt.Errorf("failed to load stream %s: %w", streamID, err)
	}
	defer rows.Close()

	var records []domain.EventRecord
	for rows.Next() {
		var rec domain.EventRecord
		var data []byte
		if err := rows.Scan(&rec.StreamID, &rec.Version, &rec.EventType, &data, &rec.ActorID, &rec.StationID, &rec.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		rec.Data = data
		rec.OccurredAt = rec.OccurredAt.UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stream %s: %w", streamID, err)
	}
	return records, nil
}

var _ domain.EventStore = (*EventStore)(nil)
