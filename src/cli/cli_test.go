package cli

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/vanishedwanderer/grabbler/src/config"
	"github.com/vanishedwanderer/grabbler/src/logging"
)

func TestApplyFlags(t *testing.T) {
	saved := config.Config
	t.Cleanup(func() {
		config.Config = saved
		logging.SetLevel(saved.LogLevel)
		pgHost, pgPort, pgDbName, logLevel = "", 0, "", ""
	})

	pgHost = "db.internal"
	pgPort = 6543
	pgDbName = "other"
	logLevel = "debug"

	assert.Nil(t, applyFlags())
	assert.Equal(t, "db.internal", config.Config.Postgres.Hostname)
	assert.Equal(t, 6543, config.Config.Postgres.Port)
	assert.Equal(t, "other", config.Config.Postgres.DbName)
	assert.Equal(t, saved.Postgres.User, config.Config.Postgres.User)
	assert.Equal(t, zerolog.DebugLevel, config.Config.LogLevel)

	logLevel = "loud"
	assert.NotNil(t, applyFlags())
}
