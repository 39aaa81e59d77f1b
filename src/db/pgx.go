package db

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxConn matches both *pgx.Conn and pgx.Tx.
type PgxConn interface {
	Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type pgxConn struct {
	conn PgxConn
}

// FromPgx adapts a pgx connection or transaction. Every prepared statement
// gets its own server-side name, so handles never share a statement even when
// their query text is identical.
//
// A pgx connection runs one query at a time. Use a separate connection per
// goroutine (for example one acquired from a pgxpool.Pool each).
func FromPgx(conn PgxConn) Conn {
	return pgxConn{conn: conn}
}

func (c pgxConn) Prepare(ctx context.Context, sql string) (Statement, error) {
	name := "grabbler_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	if _, err := c.conn.Prepare(ctx, name, sql); err != nil {
		return nil, err
	}
	return &pgxStatement{
		conn: c.conn,
		name: name,
		sql:  sql,
	}, nil
}

func (c pgxConn) Placeholder(index int) string {
	return Dollar.Render(index)
}

type pgxStatement struct {
	conn PgxConn
	name string
	sql  string
	args boundArgs
}

func (s *pgxStatement) Bind(index int, value any) error {
	return s.args.bind(index, value)
}

func (s *pgxStatement) ClearParameters() {
	s.args.clear()
}

func (s *pgxStatement) Query(ctx context.Context) (Cursor, error) {
	// pgx treats the name of a prepared statement passed as sql as a
	// reference to that statement.
	rows, err := s.conn.Query(ctx, s.name, s.args...)
	if err != nil {
		return nil, err
	}
	return &pgxCursor{rows: rows}, nil
}

func (s *pgxStatement) Exec(ctx context.Context) (int64, error) {
	tag, err := s.conn.Exec(ctx, s.name, s.args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *pgxStatement) SQL() string {
	return s.sql
}

func (s *pgxStatement) Close(ctx context.Context) error {
	switch c := s.conn.(type) {
	case interface {
		Deallocate(ctx context.Context, name string) error
	}:
		return c.Deallocate(ctx, s.name)
	case interface{ Conn() *pgx.Conn }:
		return c.Conn().Deallocate(ctx, s.name)
	}
	return nil
}

type pgxCursor struct {
	rows pgx.Rows
}

func (c *pgxCursor) Next() bool { return c.rows.Next() }
func (c *pgxCursor) Scan(dest ...any) error { return c.rows.Scan(dest...) }
func (c *pgxCursor) Values() ([]any, error) { return c.rows.Values() }
func (c *pgxCursor) Err() error { return c.rows.Err() }
func (c *pgxCursor) Close() error {
	c.rows.Close()
	return nil
}
