package db

import (
	"context"
	"strings"

	"github.com/vanishedwanderer/grabbler/src/oops"
)

/*
A Configuration is a query prefix plus the RowMapper for the columns that
prefix selects. Handles are created from it by appending a suffix, so several
queries returning the same shape share one mapper:

	tests := db.NewConfiguration("SELECT id, text FROM test", mapTest)
	all, err := tests.CreateHandle(ctx, conn, "ORDER BY id")
	byID, err := db.CreateByIDHandle[int](ctx, tests, conn, "id")

A Configuration holds no connection or statement and can be shared freely.
Every handle created from it belongs to the connection passed at creation.
*/
type Configuration[T any] struct {
	queryPrefix string
	mapper      RowMapper[T]
}

func NewConfiguration[T any](queryPrefix string, mapper RowMapper[T]) Configuration[T] {
	return Configuration[T]{
		queryPrefix: queryPrefix,
		mapper:      mapper,
	}
}

func (c Configuration[T]) QueryPrefix() string {
	return c.queryPrefix
}

func (c Configuration[T]) Mapper() RowMapper[T] {
	return c.mapper
}

// CreateHandle prepares queryPrefix + " " + querySuffix on conn. The suffix
// may be empty.
func (c Configuration[T]) CreateHandle(ctx context.Context, conn Conn, querySuffix string) (*Handle[T], error) {
	return NewHandle(ctx, conn, c.queryPrefix+" "+querySuffix, c.mapper)
}

// CreateByIDHandle creates a handle that selects the rows whose idFieldName
// column equals the id set in ByIDParameters. idFieldName is inserted into the
// query verbatim and must not be blank.
func CreateByIDHandle[ID Number, T any](ctx context.Context, c Configuration[T], conn Conn, idFieldName string) (*ParametrizedHandle[T, ByIDParameters[ID]], error) {
	if strings.TrimSpace(idFieldName) == "" {
		return nil, oops.New(ErrInvalidArgument, "id field name must not be blank")
	}

	handle, err := c.CreateHandle(ctx, conn, "where "+idFieldName+" = "+conn.Placeholder(1))
	if err != nil {
		return nil, err
	}
	return Parametrize(handle, newByIDParameters[ID], applyByIDParameters[ID]), nil
}
