package db

import (
	"context"
	"database/sql"
)

// SQLConn matches *sql.DB, *sql.Conn and *sql.Tx.
type SQLConn interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type sqlConn struct {
	conn         SQLConn
	placeholders Placeholders
}

// FromSQL adapts a database/sql handle. database/sql does not know the
// placeholder style of the driver behind it, so the caller supplies it.
func FromSQL(conn SQLConn, placeholders Placeholders) Conn {
	return sqlConn{conn: conn, placeholders: placeholders}
}

func (c sqlConn) Prepare(ctx context.Context, query string) (Statement, error) {
	stmt, err := c.conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return &sqlStatement{stmt: stmt, sql: query}, nil
}

func (c sqlConn) Placeholder(index int) string {
	return c.placeholders.Render(index)
}

type sqlStatement struct {
	stmt *sql.Stmt
	sql  string
	args boundArgs
}

func (s *sqlStatement) Bind(index int, value any) error {
	return s.args.bind(index, value)
}

func (s *sqlStatement) ClearParameters() {
	s.args.clear()
}

func (s *sqlStatement) Query(ctx context.Context) (Cursor, error) {
	rows, err := s.stmt.QueryContext(ctx, s.args...)
	if err != nil {
		return nil, err
	}
	return &sqlCursor{rows: rows}, nil
}

func (s *sqlStatement) Exec(ctx context.Context) (int64, error) {
	res, err := s.stmt.ExecContext(ctx, s.args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *sqlStatement) SQL() string {
	return s.sql
}

func (s *sqlStatement) Close(ctx context.Context) error {
	return s.stmt.Close()
}

type sqlCursor struct {
	rows *sql.Rows
}

func (c *sqlCursor) Next() bool { return c.rows.Next() }
func (c *sqlCursor) Scan(dest ...any) error { return c.rows.Scan(dest...) }
func (c *sqlCursor) Err() error { return c.rows.Err() }
func (c *sqlCursor) Close() error { return c.rows.Close() }

// Values scans the current row into untyped destinations, since database/sql
// has no direct equivalent of pgx's Rows.Values.
func (c *sqlCursor) Values() ([]any, error) {
	columns, err := c.rows.Columns()
	if err != nil {
		return nil, err
	}
	vals := make([]any, len(columns))
	dests := make([]any, len(columns))
	for i := range vals {
		dests[i] = &vals[i]
	}
	if err := c.rows.Scan(dests...); err != nil {
		return nil, err
	}
	return vals, nil
}
