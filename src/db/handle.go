package db

import (
	"context"
	"sync"

	"github.com/vanishedwanderer/grabbler/src/logging"
	"github.com/vanishedwanderer/grabbler/src/oops"
)

// RowMapper turns the current row of a cursor into a T. It must only read the
// row; the cursor is advanced by the caller.
type RowMapper[T any] func(row Row) (T, error)

/*
A Handle is a prepared statement paired with the RowMapper that understands
its columns. Prepare it once, then Execute it as often as needed:

	type Test struct {
		ID   int
		Text string
	}
	handle, err := db.NewHandle(ctx, db.FromPgx(conn), "SELECT id, text FROM test", func(row db.Row) (Test, error) {
		var t Test
		err := row.Scan(&t.ID, &t.Text)
		return t, err
	})
	tests, err := handle.Execute(ctx)

Errors from the database or the mapper are returned exactly as the driver
produced them. Executions on one handle are serialized.
*/
type Handle[T any] struct {
	mu     sync.Mutex
	stmt   Statement
	mapper RowMapper[T]
	closed bool

	// Set by Parametrize. The statement then only runs through the
	// ParametrizedHandle.
	requiresParameters bool
}

// NewHandle prepares sql on conn. If you need several handles which return the
// same columns, consider a Configuration instead.
func NewHandle[T any](ctx context.Context, conn Conn, sql string, mapper RowMapper[T]) (*Handle[T], error) {
	logging.Debug().Str("sql", sql).Msg("Preparing statement")
	stmt, err := conn.Prepare(ctx, sql)
	if err != nil {
		return nil, err
	}
	return &Handle[T]{
		stmt:   stmt,
		mapper: mapper,
	}, nil
}

// Execute runs the query and returns every row, mapped, in cursor order. A
// query without results returns an empty, non-nil slice.
func (h *Handle[T]) Execute(ctx context.Context) ([]T, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.checkExecutable(); err != nil {
		return nil, err
	}
	return h.execute(ctx)
}

// Iterate runs the query and returns an iterator instead of reading all rows
// up front. The handle stays locked until the iterator is closed, so the
// iterator must always be closed (ToSlice and exhausting it both do).
func (h *Handle[T]) Iterate(ctx context.Context) (*Iterator[T], error) {
	h.mu.Lock()
	if err := h.checkExecutable(); err != nil {
		h.mu.Unlock()
		return nil, err
	}
	it, err := h.iterate(ctx, h.mu.Unlock)
	if err != nil {
		h.mu.Unlock()
		return nil, err
	}
	return it, nil
}

// SQL returns the query text the handle was prepared with.
func (h *Handle[T]) SQL() string {
	return h.stmt.SQL()
}

// Close releases the prepared statement. Closing twice is a no-op.
func (h *Handle[T]) Close(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	return h.stmt.Close(ctx)
}

// Must hold h.mu.
func (h *Handle[T]) checkExecutable() error {
	if h.closed {
		return oops.New(ErrHandleClosed, "cannot execute %q", h.stmt.SQL())
	}
	if h.requiresParameters {
		return oops.New(ErrParametersRequired, "%q is parametrized, use ExecuteWith", h.stmt.SQL())
	}
	return nil
}

// Must hold h.mu.
func (h *Handle[T]) execute(ctx context.Context) ([]T, error) {
	it, err := h.iterate(ctx, nil)
	if err != nil {
		return nil, err
	}
	return it.ToSlice()
}

// Must hold h.mu.
func (h *Handle[T]) iterate(ctx context.Context, release func()) (*Iterator[T], error) {
	cursor, err := h.stmt.Query(ctx)
	if err != nil {
		return nil, err
	}
	return newIterator(ctx, cursor, h.mapper, release), nil
}
