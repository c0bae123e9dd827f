package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is a directory backed by the queue_managers table:
//
//	SELECT qmgr_name, host, port, channel, "user", "password"
//	FROM queue_managers
//
// One row per manager; channel, user and password may be NULL. The pool is
// safe for concurrent use by independent traversals.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres directory using the given connection pool.
// The caller owns the pool and is responsible for closing it.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Connect opens a pgx pool for dsn and returns a directory on top of it.
func Connect(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("directory: connect: %w", err)
	}
	return NewPostgres(pool), nil
}

// Close releases the underlying pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

const lookupQuery = `
SELECT qmgr_name, host, port, COALESCE(channel, ''), COALESCE("user", ''), COALESCE("password", '')
FROM queue_managers
WHERE qmgr_name = $1`

// Lookup returns the connection parameters for manager, or ErrNotFound when
// the directory has no row for it.
func (p *Postgres) Lookup(ctx context.Context, manager string) (Connection, error) {
	var conn Connection
	row := p.pool.QueryRow(ctx, lookupQuery, manager)
	err := row.Scan(&conn.Name, &conn.Host, &conn.Port, &conn.Channel, &conn.User, &conn.Password)
	if errors.Is(err, pgx.ErrNoRows) {
		return Connection{}, ErrNotFound
	}
	if err != nil {
		return Connection{}, fmt.Errorf("directory: lookup %s: %w", manager, err)
	}
	if conn.Channel == "" {
		conn.Channel = DefaultChannel
	}
	return conn, nil
}

const listQuery = `
SELECT qmgr_name, host, port, COALESCE(channel, ''), COALESCE("user", ''), COALESCE("password", '')
FROM queue_managers
ORDER BY qmgr_name`

// List returns every manager known to the directory, ordered by name.
func (p *Postgres) List(ctx context.Context) ([]Connection, error) {
	rows, err := p.pool.Query(ctx, listQuery)
	if err != nil {
		return nil, fmt.Errorf("directory: list: %w", err)
	}
	defer rows.Close()

	var conns []Connection
	for rows.Next() {
		var conn Connection
		if err := rows.Scan(&conn.Name, &conn.Host, &conn.Port, &conn.Channel, &conn.User, &conn.Password); err != nil {
			return nil, fmt.Errorf("directory: scan: %w", err)
		}
		if conn.Channel == "" {
			conn.Channel = DefaultChannel
		}
		conns = append(conns, conn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("directory: list: %w", err)
	}
	return conns, nil
}

// Ensure Postgres implements ListService.
var _ ListService = (*Postgres)(nil)
