package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vanishedwanderer/grabbler/src/ansicolor"
	"github.com/vanishedwanderer/grabbler/src/db"
)

func newMock(t *testing.T) (db.Conn, sqlmock.Sqlmock) {
	t.Helper()

	sqldb, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.Nil(t, err)
	t.Cleanup(func() { sqldb.Close() })

	return db.FromSQL(sqldb, db.Dollar), mock
}

func TestFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("prefix and suffix", func(t *testing.T) {
		conn, mock := newMock(t)
		mock.ExpectPrepare("select id, text from test order by id").
			ExpectQuery().
			WillReturnRows(sqlmock.NewRows([]string{"id", "text"}).
				AddRow(int64(0), "a").
				AddRow(int64(1), "b"))

		rows, err := Fetch(ctx, conn, FetchOptions{
			Prefix: "select id, text from test",
			Suffix: "order by id",
		})
		require.Nil(t, err)
		assert.Equal(t, [][]any{{int64(0), "a"}, {int64(1), "b"}}, rows)
	})

	t.Run("by id", func(t *testing.T) {
		conn, mock := newMock(t)
		mock.ExpectPrepare("select id, text from test where id = $1").
			ExpectQuery().
			WithArgs(int64(4)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "text"}).AddRow(int64(4), "e"))

		id := int64(4)
		rows, err := Fetch(ctx, conn, FetchOptions{
			Prefix: "select id, text from test",
			Suffix: "ignored",
			By:     "id",
			ID:     &id,
		})
		require.Nil(t, err)
		assert.Equal(t, [][]any{{int64(4), "e"}}, rows)
	})

	t.Run("by id without an id", func(t *testing.T) {
		conn, mock := newMock(t)
		mock.ExpectPrepare("select id, text from test where id = $1")

		_, err := Fetch(ctx, conn, FetchOptions{
			Prefix: "select id, text from test",
			By:     "id",
		})
		assert.ErrorIs(t, err, db.ErrUninitializedParameter)
	})

	t.Run("blank by", func(t *testing.T) {
		conn, mock := newMock(t)

		_, err := Fetch(ctx, conn, FetchOptions{
			Prefix: "select id, text from test",
			By:     "  ",
		})
		assert.ErrorIs(t, err, db.ErrInvalidArgument)
		assert.Nil(t, mock.ExpectationsWereMet())
	})
}

func TestPrintRows(t *testing.T) {
	var buf bytes.Buffer
	PrintRows(&buf, [][]any{
		{int64(1), "a"},
		{int64(2), nil},
	})

	expected := "1\ta\n" +
		"2\t" + ansicolor.Faint + "NULL" + ansicolor.Reset + "\n" +
		ansicolor.Gray + "(2 rows)" + ansicolor.Reset + "\n"
	assert.Equal(t, expected, buf.String())
}
