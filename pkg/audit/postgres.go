package audit

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/vsundar/flowtrace/pkg/errors"
)

// PostgresStore persists audit records in the queue_audit table, keyed by
// (queue_manager, queue_name, audit_day).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// ConnectPostgres opens a pool for the given DSN and returns a store over it.
func ConnectPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStore, err, "connect audit store")
	}
	return NewPostgresStore(pool), nil
}

// Blank incoming timestamps become NULL so COALESCE keeps whatever an
// earlier run recorded for the same day.
const upsertQuery = `
INSERT INTO queue_audit
    (queue_manager, queue_name, last_get_date, last_get_time,
     last_put_date, last_put_time, audit_date)
VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7)
ON CONFLICT (queue_manager, queue_name, audit_day)
DO UPDATE SET
    last_get_date = COALESCE(EXCLUDED.last_get_date, queue_audit.last_get_date),
    last_get_time = COALESCE(EXCLUDED.last_get_time, queue_audit.last_get_time),
    last_put_date = COALESCE(EXCLUDED.last_put_date, queue_audit.last_put_date),
    last_put_time = COALESCE(EXCLUDED.last_put_time, queue_audit.last_put_time),
    audit_date    = EXCLUDED.audit_date`

// Upsert writes all records in one batch round trip.
func (s *PostgresStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(upsertQuery,
			r.Manager, r.Queue,
			r.LastGetDate, r.LastGetTime,
			r.LastPutDate, r.LastPutTime,
			r.AuditedAt)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range records {
		if _, err := results.Exec(); err != nil {
			return apperrors.Wrap(apperrors.ErrCodeStore, err, "upsert audit records")
		}
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ensure PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
