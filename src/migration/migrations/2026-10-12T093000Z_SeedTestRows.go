package migrations

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/vanishedwanderer/grabbler/src/db"
	"github.com/vanishedwanderer/grabbler/src/migration/types"
	"github.com/vanishedwanderer/grabbler/src/oops"
)

func init() {
	registerMigration(SeedTestRows{})
}

type SeedTestRows struct{}

func (m SeedTestRows) Version() types.MigrationVersion {
	return types.MigrationVersion(time.Date(2026, 10, 12, 9, 30, 0, 0, time.UTC))
}

func (m SeedTestRows) Name() string {
	return "SeedTestRows"
}

func (m SeedTestRows) Description() string {
	return "Insert rows (0, 'a') through (6, 'g') into test"
}

func (m SeedTestRows) Up(ctx context.Context, tx pgx.Tx) error {
	stmt, err := db.FromPgx(tx).Prepare(ctx, "INSERT INTO test (id, text) VALUES ($1, $2)")
	if err != nil {
		return oops.New(err, "failed to prepare insert")
	}
	defer stmt.Close(ctx)

	var rows [][]any
	for i := 0; i < 7; i++ {
		rows = append(rows, []any{i, string(rune('a' + i))})
	}
	if _, err := db.ExecuteBatch(ctx, stmt, rows); err != nil {
		return oops.New(err, "failed to insert test rows")
	}
	return nil
}

func (m SeedTestRows) Down(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `DELETE FROM test WHERE id BETWEEN 0 AND 6;`)
	if err != nil {
		return oops.New(err, "failed to delete test rows")
	}
	return nil
}
