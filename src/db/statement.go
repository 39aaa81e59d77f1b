package db

import (
	"context"
	"strconv"

	"github.com/vanishedwanderer/grabbler/src/oops"
)

// Row is the accessor a RowMapper reads the current cursor row through.
type Row interface {
	// Scan copies the columns of the current row, in order, into dest.
	Scan(dest ...any) error
	// Values returns the columns of the current row as driver values.
	Values() ([]any, error)
}

// Cursor iterates over the result rows of an executed statement.
type Cursor interface {
	Row
	Next() bool
	Err() error
	Close() error
}

// Binder is the part of a statement that parameter applicators write to.
// Indices are 1-based and refer to placeholder positions in the query text.
type Binder interface {
	Bind(index int, value any) error
}

// Statement is a query compiled against one connection. It keeps its bound
// parameters between executions until ClearParameters is called, so it is not
// safe for concurrent use.
type Statement interface {
	Binder
	ClearParameters()
	Query(ctx context.Context) (Cursor, error)
	// Exec runs the statement without reading rows and returns the number of
	// rows affected.
	Exec(ctx context.Context) (int64, error)
	SQL() string
	Close(ctx context.Context) error
}

// Conn prepares statements. Implementations are thin adapters over a driver
// connection; see FromPgx and FromSQL.
type Conn interface {
	Prepare(ctx context.Context, sql string) (Statement, error)
	// Placeholder returns the text of the placeholder for the given 1-based
	// parameter index in this connection's SQL dialect.
	Placeholder(index int) string
}

// Placeholders identifies how a driver spells positional parameters.
type Placeholders int

const (
	Dollar   Placeholders = iota // $1, $2 (Postgres)
	Question                     // ?, ? (MySQL, SQLite)
	AtP                          // @p1, @p2 (SQL Server)
)

func (p Placeholders) Render(index int) string {
	switch p {
	case Question:
		return "?"
	case AtP:
		return "@p" + strconv.Itoa(index)
	default:
		return "$" + strconv.Itoa(index)
	}
}

func (p Placeholders) String() string {
	switch p {
	case Dollar:
		return "dollar"
	case Question:
		return "question"
	case AtP:
		return "atp"
	default:
		return "unknown"
	}
}

// boundArgs holds positional arguments for adapters whose drivers take all
// arguments at execution time.
type boundArgs []any

func (a *boundArgs) bind(index int, value any) error {
	if index < 1 {
		return oops.New(ErrInvalidArgument, "placeholder index must be 1 or greater, got %d", index)
	}
	for len(*a) < index {
		*a = append(*a, nil)
	}
	(*a)[index-1] = value
	return nil
}

func (a *boundArgs) clear() {
	for i := range *a {
		(*a)[i] = nil
	}
	*a = (*a)[:0]
}
