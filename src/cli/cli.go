package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/vanishedwanderer/grabbler/src/config"
	"github.com/vanishedwanderer/grabbler/src/logging"
)

var (
	pgHost     string
	pgPort     int
	pgUser     string
	pgPassword string
	pgDbName   string
	logLevel   string
)

var RootCommand = &cobra.Command{
	Use:   "grabbler",
	Short: "Run queries through typed, reusable handles",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return applyFlags()
	},
}

func init() {
	flags := RootCommand.PersistentFlags()
	flags.StringVar(&pgHost, "host", "", "Postgres host (default from config)")
	flags.IntVar(&pgPort, "port", 0, "Postgres port (default from config)")
	flags.StringVar(&pgUser, "user", "", "Postgres user (default from config)")
	flags.StringVar(&pgPassword, "password", "", "Postgres password (default from config)")
	flags.StringVar(&pgDbName, "dbname", "", "Postgres database (default from config)")
	flags.StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn or error (default from config)")
}

// applyFlags writes the connection flags into config.Config, so every command
// and the db package see the same settings.
func applyFlags() error {
	if logLevel != "" {
		level, err := zerolog.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		config.Config.LogLevel = level
		logging.SetLevel(level)
	}

	if pgHost != "" {
		config.Config.Postgres.Hostname = pgHost
	}
	if pgPort != 0 {
		config.Config.Postgres.Port = pgPort
	}
	if pgUser != "" {
		config.Config.Postgres.User = pgUser
	}
	if pgPassword != "" {
		config.Config.Postgres.Password = pgPassword
	}
	if pgDbName != "" {
		config.Config.Postgres.DbName = pgDbName
	}
	return nil
}
