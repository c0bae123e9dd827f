// Package directory resolves queue manager names to connection parameters.
//
// The directory is the system of record for which managers exist and how to
// reach their administrative endpoints. The canonical implementation is
// backed by Postgres ([NewPostgres]); [Static] provides an in-memory
// implementation for tests and config-file driven setups.
//
// Connection parameters can change between runs, so nothing in this package
// caches across runs. [Memo] caches lookups only for the lifetime of a
// single traversal.
package directory

import (
	"context"
	"errors"
	"sort"
)

// DefaultChannel is the server-connection channel assumed when a directory
// row carries no channel.
const DefaultChannel = "SYSTEM.DEF.SVRCONN"

// ErrNotFound is returned by Lookup when the manager is unknown to the
// directory.
var ErrNotFound = errors.New("manager not found in directory")

// Connection holds the administrative connection parameters for one queue
// manager. Immutable once loaded; callers hold only transient reads.
type Connection struct {
	Name     string
	Host     string
	Port     int
	Channel  string
	User     string
	Password string
}

// Service looks up connection parameters for a single manager.
type Service interface {
	// Lookup returns the connection parameters for the named manager,
	// or ErrNotFound if the directory has no row for it.
	Lookup(ctx context.Context, manager string) (Connection, error)
}

// ListService extends Service with enumeration of every known manager,
// used by the audit and stats batch jobs.
type ListService interface {
	Service

	// List returns all managers known to the directory, ordered by name.
	List(ctx context.Context) ([]Connection, error)
}

// Static is a fixed in-memory directory keyed by manager name.
type Static map[string]Connection

// Lookup returns the connection for manager, or ErrNotFound.
func (s Static) Lookup(_ context.Context, manager string) (Connection, error) {
	conn, ok := s[manager]
	if !ok {
		return Connection{}, ErrNotFound
	}
	if conn.Channel == "" {
		conn.Channel = DefaultChannel
	}
	return conn, nil
}

// List returns all connections ordered by manager name.
func (s Static) List(_ context.Context) ([]Connection, error) {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)

	conns := make([]Connection, 0, len(names))
	for _, name := range names {
		conn := s[name]
		if conn.Channel == "" {
			conn.Channel = DefaultChannel
		}
		conns = append(conns, conn)
	}
	return conns, nil
}
