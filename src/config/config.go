package config

import (
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
)

// Local defaults. Deployments edit this file (or override through the CLI
// flags) rather than reading environment variables.
var Config = GrabblerConfig{
	Env:      Dev,
	LogLevel: zerolog.InfoLevel,
	Postgres: PostgresConfig{
		User:           "grabbler",
		Password:       "password",
		Hostname:       "localhost",
		Port:           5432,
		DbName:         "grabbler",
		LogLevel:       tracelog.LogLevelWarn,
		MinConn:        1,
		MaxConn:        4,
		ConnectRetries: 3,
	},
}
