package db

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateHandle(t *testing.T) {
	ctx := context.Background()
	config := NewConfiguration(selectTests, mapTestRow)

	t.Run("joins prefix and suffix with a space", func(t *testing.T) {
		conn := newSpyConn()

		handle, err := config.CreateHandle(ctx, conn, "ORDER BY id")
		require.Nil(t, err)
		assert.Equal(t, "SELECT id, text FROM test ORDER BY id", handle.SQL())
	})

	t.Run("empty suffix", func(t *testing.T) {
		conn := newSpyConn()
		conn.results[selectTests+" "] = sevenRows()

		handle, err := config.CreateHandle(ctx, conn, "")
		require.Nil(t, err)
		assert.Equal(t, selectTests+" ", handle.SQL())

		rows, err := handle.Execute(ctx)
		assert.Nil(t, err)
		assert.Equal(t, sevenTestRows(), rows)
	})

	t.Run("handles share the mapper but not the statement", func(t *testing.T) {
		conn := newSpyConn()

		a, err := config.CreateHandle(ctx, conn, "")
		require.Nil(t, err)
		b, err := config.CreateHandle(ctx, conn, "")
		require.Nil(t, err)

		assert.Len(t, conn.statements, 2)
		assert.NotSame(t, a.stmt, b.stmt)
		assert.Equal(t, selectTests, config.QueryPrefix())
	})
}

func TestCreateByIDHandle(t *testing.T) {
	ctx := context.Background()
	config := NewConfiguration(selectTests, mapTestRow)

	t.Run("blank field name prepares nothing", func(t *testing.T) {
		for _, field := range []string{"", " ", "\t\n"} {
			conn := newSpyConn()

			handle, err := CreateByIDHandle[int](ctx, config, conn, field)
			assert.Nil(t, handle)
			assert.ErrorIs(t, err, ErrInvalidArgument)
			assert.Empty(t, conn.prepared)
		}
	})

	t.Run("uses the connection's placeholder style", func(t *testing.T) {
		for _, tc := range []struct {
			placeholders Placeholders
			expected     string
		}{
			{Dollar, "SELECT id, text FROM test where id = $1"},
			{Question, "SELECT id, text FROM test where id = ?"},
			{AtP, "SELECT id, text FROM test where id = @p1"},
		} {
			t.Run(tc.placeholders.String(), func(t *testing.T) {
				conn := newSpyConn()
				conn.placeholders = tc.placeholders

				handle, err := CreateByIDHandle[int](ctx, config, conn, "id")
				require.Nil(t, err)
				assert.Equal(t, tc.expected, handle.SQL())
			})
		}
	})

	t.Run("binds the id to the first placeholder", func(t *testing.T) {
		conn := newSpyConn()

		handle, err := CreateByIDHandle[int64](ctx, config, conn, "id")
		require.Nil(t, err)

		_, err = handle.ExecuteWith(ctx, func(p *ByIDParameters[int64]) {
			p.ID.Set(4)
		})
		require.Nil(t, err)
		assert.Equal(t, [][]any{{int64(4)}}, conn.statements[0].executions)
	})

	t.Run("missing id", func(t *testing.T) {
		conn := newSpyConn()

		handle, err := CreateByIDHandle[int](ctx, config, conn, "id")
		require.Nil(t, err)

		_, err = handle.ExecuteWith(ctx, func(p *ByIDParameters[int]) {})
		assert.ErrorIs(t, err, ErrUninitializedParameter)
		assert.Equal(t, 0, conn.queries())

		_, err = handle.Execute(ctx)
		assert.ErrorIs(t, err, ErrParametersRequired)
	})
}

func TestByIDThroughDatabaseSQL(t *testing.T) {
	ctx := context.Background()

	sqldb, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.Nil(t, err)
	defer sqldb.Close()

	mock.ExpectPrepare("SELECT id, text FROM test where id = ?").
		ExpectQuery().
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"id", "text"}).AddRow(4, "e"))

	config := NewConfiguration(selectTests, mapTestRow)
	handle, err := CreateByIDHandle[int](ctx, config, FromSQL(sqldb, Question), "id")
	require.Nil(t, err)

	rows, err := handle.ExecuteWith(ctx, func(p *ByIDParameters[int]) {
		p.ID.Set(4)
	})
	require.Nil(t, err)
	assert.Equal(t, []testRow{{ID: 4, Text: "e"}}, rows)
	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestCreateHandleThroughDatabaseSQL(t *testing.T) {
	ctx := context.Background()

	sqldb, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.Nil(t, err)
	defer sqldb.Close()

	rows := sqlmock.NewRows([]string{"id", "text"})
	for _, r := range sevenRows() {
		rows.AddRow(r[0], r[1])
	}
	prep := mock.ExpectPrepare(selectTests + " ")
	prep.ExpectQuery().WillReturnRows(rows)
	prep.ExpectQuery().WillReturnError(errStore)

	config := NewConfiguration(selectTests, mapTestRow)
	handle, err := config.CreateHandle(ctx, FromSQL(sqldb, Dollar), "")
	require.Nil(t, err)

	result, err := handle.Execute(ctx)
	require.Nil(t, err)
	assert.Equal(t, sevenTestRows(), result)

	_, err = handle.Execute(ctx)
	assert.Same(t, errStore, err)

	assert.Nil(t, mock.ExpectationsWereMet())
}
