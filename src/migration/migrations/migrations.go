package migrations

import (
	"github.com/vanishedwanderer/grabbler/src/migration/types"
)

var All = make(map[types.MigrationVersion]types.Migration)

func registerMigration(m types.Migration) {
	All[m.Version()] = m
}
