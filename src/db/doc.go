/*
This package contains typed, reusable query handles. A query is prepared once, paired with a
function that maps one result row to a Go value, and then executed as often as needed without
re-preparing it or repeating how its columns are read.

The primary types are Handle, ParametrizedHandle and Configuration. See the type docs for detailed
usage.

Connections

Handles are prepared on a Conn. Two adapters are provided: FromPgx for a *pgx.Conn or pgx.Tx, and
FromSQL for anything database/sql can open.

	conn := db.NewConn()
	defer conn.Close(ctx)
	handle, err := db.NewHandle(ctx, db.FromPgx(conn), "SELECT id, text FROM test", mapTest)

A handle belongs to the connection it was prepared on. Close it when you are done with it.

Parameters

Queries with placeholders are wrapped in a ParametrizedHandle. Each execution creates a fresh
parameter struct, lets the caller fill it in, and binds it to the statement:

	byID, err := db.CreateByIDHandle[int](ctx, tests, conn, "id")
	rows, err := byID.ExecuteWith(ctx, func(p *db.ByIDParameters[int]) {
		p.ID.Set(4)
	})

Parameters use Param, so forgetting to set one fails with ErrUninitializedParameter instead of
silently binding a zero value. Calling Execute on a ParametrizedHandle fails with
ErrParametersRequired.

Errors

Errors created by this package wrap one of the sentinel errors in errors.go and can be checked
with errors.Is. Errors from the database driver or from a RowMapper are returned unwrapped, so
driver error types like *pgconn.PgError can be inspected directly.

Struct mapping

Instead of writing a RowMapper by hand, a struct with `db:"column_name"` tags can be used with the
special $columns placeholder:

	type Test struct {
		ID   int    `db:"id"`
		Text string `db:"text"`
	}
	tests := db.NewStructConfiguration[Test]("SELECT $columns FROM test")
	// Resulting prefix:
	// SELECT id, text FROM test

Sometimes a table name prefix is required on each column to disambiguate between column names,
especially when performing a JOIN. In those situations, you can include the prefix in the
$columns placeholder like $columns{prefix}.
*/
package db
