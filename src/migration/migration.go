package migration

import (
	"context"
	_ "embed"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"
	"github.com/vanishedwanderer/grabbler/src/cli"
	"github.com/vanishedwanderer/grabbler/src/db"
	"github.com/vanishedwanderer/grabbler/src/migration/migrations"
	"github.com/vanishedwanderer/grabbler/src/migration/types"
	"github.com/vanishedwanderer/grabbler/src/oops"
	"github.com/vanishedwanderer/grabbler/src/utils"
)

var listMigrations bool

func init() {
	migrateCommand := &cobra.Command{
		Use:   "migrate [target migration id]",
		Short: "Run database migrations",
		Run: func(cmd *cobra.Command, args []string) {
			if listMigrations {
				ListMigrations()
				return
			}

			targetVersion := time.Time{}
			if len(args) > 0 {
				var err error
				targetVersion, err = time.Parse(time.RFC3339, args[0])
				if err != nil {
					fmt.Printf("ERROR: bad version string: %v", err)
					os.Exit(1)
				}
			}
			Migrate(types.MigrationVersion(targetVersion))
		},
	}
	migrateCommand.Flags().BoolVar(&listMigrations, "list", false, "List available migrations")

	makeMigrationCommand := &cobra.Command{
		Use:   "makemigration <name> <description>...",
		Short: "Create a new database migration file",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 2 {
				fmt.Printf("You must provide a name and a description.\n\n")
				cmd.Usage()
				os.Exit(1)
			}

			name := args[0]
			description := strings.Join(args[1:], " ")

			MakeMigration(name, description)
		},
	}

	cli.RootCommand.AddCommand(migrateCommand)
	cli.RootCommand.AddCommand(makeMigrationCommand)
}

func getSortedMigrationVersions() []types.MigrationVersion {
	var allVersions []types.MigrationVersion
	for migrationTime := range migrations.All {
		allVersions = append(allVersions, migrationTime)
	}
	sort.Slice(allVersions, func(i, j int) bool {
		return allVersions[i].Before(allVersions[j])
	})

	return allVersions
}

func getCurrentVersion(ctx context.Context, conn db.Conn) (types.MigrationVersion, error) {
	handle, err := db.NewHandle(ctx, conn, "SELECT version FROM grabbler_migration", func(row db.Row) (time.Time, error) {
		var version time.Time
		err := row.Scan(&version)
		return version, err
	})
	if err != nil {
		return types.MigrationVersion{}, err
	}
	defer handle.Close(ctx)

	versions, err := handle.Execute(ctx)
	if err != nil {
		return types.MigrationVersion{}, err
	}
	if len(versions) != 1 {
		return types.MigrationVersion{}, oops.New(nil, "expected one row in the migration table, got %d", len(versions))
	}

	return types.MigrationVersion(versions[0].UTC()), nil
}

// tryGetCurrentVersion returns the zero version if the database can't be
// reached or hasn't been migrated yet.
func tryGetCurrentVersion(ctx context.Context) (version types.MigrationVersion) {
	var err error
	defer utils.RecoverPanicAsError(&err)

	conn := db.NewConn()
	defer conn.Close(ctx)

	version, _ = getCurrentVersion(ctx, db.FromPgx(conn))
	return version
}

func ListMigrations() {
	ctx := context.Background()

	currentVersion := tryGetCurrentVersion(ctx)
	for _, version := range getSortedMigrationVersions() {
		migration := migrations.All[version]
		indicator := "  "
		if version.Equal(currentVersion) {
			indicator = "✔ "
		}
		fmt.Printf("%s%v (%s: %s)\n", indicator, version, migration.Name(), migration.Description())
	}
}

func Migrate(targetVersion types.MigrationVersion) {
	ctx := context.Background()

	conn := db.NewConn()
	defer conn.Close(ctx)

	// create migration table
	_, err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS grabbler_migration (
			version		TIMESTAMP WITH TIME ZONE
		)
	`)
	if err != nil {
		panic(oops.New(err, "failed to create migration table"))
	}

	// ensure there is a row
	row := conn.QueryRow(ctx, "SELECT COUNT(*) FROM grabbler_migration")
	var numRows int
	err = row.Scan(&numRows)
	if err != nil {
		panic(err)
	}
	if numRows < 1 {
		_, err := conn.Exec(ctx, "INSERT INTO grabbler_migration (version) VALUES ($1)", time.Time{})
		if err != nil {
			panic(oops.New(err, "failed to insert initial migration row"))
		}
	}

	// run migrations
	currentVersion, err := getCurrentVersion(ctx, db.FromPgx(conn))
	if err != nil {
		panic(oops.New(err, "failed to get current version"))
	}
	if currentVersion.IsZero() {
		fmt.Println("This is the first time you have run database migrations.")
	} else {
		fmt.Printf("Current version: %s\n", currentVersion.String())
	}

	allVersions := getSortedMigrationVersions()
	if targetVersion.IsZero() {
		targetVersion = allVersions[len(allVersions)-1]
	}

	currentIndex, targetIndex := findVersionIndices(allVersions, currentVersion, targetVersion)
	if targetIndex < 0 {
		fmt.Printf("ERROR: Could not find migration with version %v\n", targetVersion)
		return
	}

	if currentIndex < targetIndex {
		// roll forward
		for i := currentIndex + 1; i <= targetIndex; i++ {
			version := allVersions[i]
			migration := migrations.All[version]
			fmt.Printf("Applying migration %v (%v)\n", version, migration.Name())

			if err := runInTx(ctx, conn, version, migration.Up); err != nil {
				fmt.Printf("MIGRATION FAILED for migration %v.\n", version)
				fmt.Printf("Error: %v\n", err)
				return
			}
		}
	} else if currentIndex > targetIndex {
		// roll back
		for i := currentIndex; i > targetIndex; i-- {
			version := allVersions[i]
			previousVersion := types.MigrationVersion{}
			if i > 0 {
				previousVersion = allVersions[i-1]
			}

			fmt.Printf("Rolling back migration %v\n", version)
			migration := migrations.All[version]
			if err := runInTx(ctx, conn, previousVersion, migration.Down); err != nil {
				fmt.Printf("MIGRATION FAILED for migration %v.\n", version)
				fmt.Printf("Error: %v\n", err)
				return
			}
		}
	} else {
		fmt.Println("Already migrated; nothing to do.")
	}
}

// findVersionIndices returns the positions of current and target in versions,
// or -1 for a version that isn't there. The zero version is never found, so a
// fresh database starts before the first migration.
func findVersionIndices(versions []types.MigrationVersion, current, target types.MigrationVersion) (currentIndex, targetIndex int) {
	currentIndex = -1
	targetIndex = -1
	for i, version := range versions {
		if current.Equal(version) {
			currentIndex = i
		}
		if target.Equal(version) {
			targetIndex = i
		}
	}
	return currentIndex, targetIndex
}

// runInTx runs step in a transaction and records newVersion as the current
// version in the same transaction.
func runInTx(ctx context.Context, conn *pgx.Conn, newVersion types.MigrationVersion, step func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		panic(oops.New(err, "failed to start transaction"))
	}
	defer tx.Rollback(ctx)

	if err := step(ctx, tx); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, "UPDATE grabbler_migration SET version = $1", time.Time(newVersion))
	if err != nil {
		panic(oops.New(err, "failed to update version in migrations table"))
	}

	err = tx.Commit(ctx)
	if err != nil {
		panic(oops.New(err, "failed to commit transaction"))
	}
	return nil
}

//go:embed migrationTemplate.txt
var migrationTemplate string

func MakeMigration(name, description string) {
	now := time.Now().UTC()
	result := renderMigration(name, description, now)

	safeVersion := strings.ReplaceAll(types.MigrationVersion(now).String(), ":", "")
	filename := fmt.Sprintf("%v_%v.go", safeVersion, name)
	path := filepath.Join("src", "migration", "migrations", filename)

	err := os.WriteFile(path, []byte(result), 0644)
	if err != nil {
		panic(oops.New(err, "failed to write migration file"))
	}

	fmt.Println("Successfully created migration file:")
	fmt.Println(path)
}

func renderMigration(name, description string, now time.Time) string {
	result := migrationTemplate
	result = strings.ReplaceAll(result, "%NAME%", name)
	result = strings.ReplaceAll(result, "%DESCRIPTION%", fmt.Sprintf("%#v", description))

	nowConstructor := fmt.Sprintf("time.Date(%d, %d, %d, %d, %d, %d, 0, time.UTC)", now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), now.Second())
	result = strings.ReplaceAll(result, "%DATE%", nowConstructor)

	// Panics if name is not a valid Go identifier.
	return string(utils.Must1(format.Source([]byte(result))))
}
