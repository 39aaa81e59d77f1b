package db

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vanishedwanderer/grabbler/src/logging"
	"github.com/vanishedwanderer/grabbler/src/oops"
)

const DefaultSessionSize = 128

/*
A Session keeps the handles prepared on one connection, keyed by query text,
so asking for the same query twice returns the same handle instead of
preparing it again. When more than the configured number of queries are
cached, the least recently used handle is closed and dropped; callers still
holding it get ErrHandleClosed.

	session, err := db.NewSession(db.FromPgx(conn), db.DefaultSessionSize)
	handle, err := db.SessionHandle(ctx, session, "SELECT id, text FROM test", mapTest)
*/
type Session struct {
	conn Conn

	mu    sync.Mutex
	cache *lru.Cache[string, sessionEntry]
}

type sessionEntry struct {
	handle interface {
		Close(ctx context.Context) error
	}
}

func NewSession(conn Conn, size int) (*Session, error) {
	cache, err := lru.NewWithEvict(size, func(sql string, entry sessionEntry) {
		if err := entry.handle.Close(context.Background()); err != nil {
			logging.Warn().Err(err).Str("sql", sql).Msg("failed to close evicted handle")
		}
	})
	if err != nil {
		return nil, oops.New(ErrInvalidArgument, "failed to create session cache: %v", err)
	}

	return &Session{
		conn:  conn,
		cache: cache,
	}, nil
}

func (s *Session) Conn() Conn {
	return s.conn
}

// Len returns the number of cached handles.
func (s *Session) Len() int {
	return s.cache.Len()
}

// Close closes every cached handle.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Purge()
}

// SessionHandle returns the session's handle for sql, preparing it on first
// use. The mapper given when the handle was first created stays in effect.
// Asking for a cached query with a different row type is an error.
func SessionHandle[T any](ctx context.Context, s *Session, sql string, mapper RowMapper[T]) (*Handle[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.cache.Get(sql); ok {
		handle, ok := entry.handle.(*Handle[T])
		if !ok {
			return nil, oops.New(ErrInvalidArgument, "query %q is cached with a different row type", sql)
		}
		return handle, nil
	}

	handle, err := NewHandle(ctx, s.conn, sql, mapper)
	if err != nil {
		return nil, err
	}
	s.cache.Add(sql, sessionEntry{handle: handle})
	return handle, nil
}
