package db

import (
	"context"
	"errors"
	"fmt"
)

// spyConn is an in-memory Conn that records every interaction. Queries return
// the rows configured for their exact text.
type spyConn struct {
	placeholders Placeholders
	results      map[string][][]any
	queryErr     error
	prepareErr   error

	prepared   []string
	statements []*spyStatement
}

func newSpyConn() *spyConn {
	return &spyConn{results: map[string][][]any{}}
}

func (c *spyConn) Prepare(ctx context.Context, sql string) (Statement, error) {
	c.prepared = append(c.prepared, sql)
	if c.prepareErr != nil {
		return nil, c.prepareErr
	}
	stmt := &spyStatement{conn: c, sql: sql}
	c.statements = append(c.statements, stmt)
	return stmt, nil
}

func (c *spyConn) Placeholder(index int) string {
	return c.placeholders.Render(index)
}

// queries is the total number of executions across all statements.
func (c *spyConn) queries() int {
	n := 0
	for _, s := range c.statements {
		n += len(s.executions)
	}
	return n
}

type spyStatement struct {
	conn *spyConn
	sql  string
	args boundArgs

	// events records "clear", "bind N", "query" and "exec" in call order.
	events     []string
	executions [][]any
	closed     bool
}

func (s *spyStatement) Bind(index int, value any) error {
	s.events = append(s.events, fmt.Sprintf("bind %d", index))
	return s.args.bind(index, value)
}

func (s *spyStatement) ClearParameters() {
	s.events = append(s.events, "clear")
	s.args.clear()
}

func (s *spyStatement) Query(ctx context.Context) (Cursor, error) {
	s.events = append(s.events, "query")
	s.executions = append(s.executions, append([]any{}, s.args...))
	if s.conn.queryErr != nil {
		return nil, s.conn.queryErr
	}
	return &spyCursor{rows: s.conn.results[s.sql], pos: -1}, nil
}

func (s *spyStatement) Exec(ctx context.Context) (int64, error) {
	s.events = append(s.events, "exec")
	s.executions = append(s.executions, append([]any{}, s.args...))
	if s.conn.queryErr != nil {
		return 0, s.conn.queryErr
	}
	return 1, nil
}

func (s *spyStatement) SQL() string {
	return s.sql
}

func (s *spyStatement) Close(ctx context.Context) error {
	s.closed = true
	return nil
}

type spyCursor struct {
	rows   [][]any
	pos    int
	closed bool
}

func (c *spyCursor) Next() bool {
	if c.closed || c.pos+1 >= len(c.rows) {
		return false
	}
	c.pos++
	return true
}

func (c *spyCursor) Scan(dest ...any) error {
	row := c.rows[c.pos]
	if len(dest) != len(row) {
		return fmt.Errorf("expected %d destinations, got %d", len(row), len(dest))
	}
	for i, d := range dest {
		switch d := d.(type) {
		case *int:
			*d = row[i].(int)
		case *int64:
			*d = int64(row[i].(int))
		case *string:
			*d = row[i].(string)
		case **string:
			if row[i] == nil {
				*d = nil
			} else {
				s := row[i].(string)
				*d = &s
			}
		default:
			return fmt.Errorf("unsupported destination %T", d)
		}
	}
	return nil
}

func (c *spyCursor) Values() ([]any, error) {
	return c.rows[c.pos], nil
}

func (c *spyCursor) Err() error {
	return nil
}

func (c *spyCursor) Close() error {
	c.closed = true
	return nil
}

type testRow struct {
	ID   int
	Text string
}

func mapTestRow(row Row) (testRow, error) {
	var r testRow
	err := row.Scan(&r.ID, &r.Text)
	return r, err
}

// sevenRows are (0, "a") through (6, "g").
func sevenRows() [][]any {
	var rows [][]any
	for i := 0; i < 7; i++ {
		rows = append(rows, []any{i, string(rune('a' + i))})
	}
	return rows
}

func sevenTestRows() []testRow {
	var rows []testRow
	for i := 0; i < 7; i++ {
		rows = append(rows, testRow{ID: i, Text: string(rune('a' + i))})
	}
	return rows
}

var errStore = errors.New("relation \"nope\" does not exist")
