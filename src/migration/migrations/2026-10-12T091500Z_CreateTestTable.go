package migrations

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/vanishedwanderer/grabbler/src/migration/types"
	"github.com/vanishedwanderer/grabbler/src/oops"
)

func init() {
	registerMigration(CreateTestTable{})
}

type CreateTestTable struct{}

func (m CreateTestTable) Version() types.MigrationVersion {
	return types.MigrationVersion(time.Date(2026, 10, 12, 9, 15, 0, 0, time.UTC))
}

func (m CreateTestTable) Name() string {
	return "CreateTestTable"
}

func (m CreateTestTable) Description() string {
	return "Create the demo table queried by the fetch command"
}

func (m CreateTestTable) Up(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx,
		`
		CREATE TABLE test (
			id INT PRIMARY KEY,
			text VARCHAR(255)
		);
		`,
	)
	if err != nil {
		return oops.New(err, "failed to create test table")
	}
	return nil
}

func (m CreateTestTable) Down(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `DROP TABLE test;`)
	if err != nil {
		return oops.New(err, "failed to drop test table")
	}
	return nil
}
