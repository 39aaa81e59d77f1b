package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"
	"github.com/vanishedwanderer/grabbler/src/ansicolor"
	"github.com/vanishedwanderer/grabbler/src/config"
	"github.com/vanishedwanderer/grabbler/src/db"
	"github.com/vanishedwanderer/grabbler/src/logging"
	"github.com/vanishedwanderer/grabbler/src/perf"
	"github.com/vanishedwanderer/grabbler/src/utils"
)

type FetchOptions struct {
	// Prefix and Suffix are joined into the query text by db.Configuration.
	Prefix string
	Suffix string

	// When By is set, rows are selected by id through db.CreateByIDHandle and
	// Suffix is ignored. A nil ID leaves the id parameter unset.
	By string
	ID *int64
}

func init() {
	var (
		opts      FetchOptions
		id        int64
		showPerf  bool
		useStdlib bool
	)

	fetchCommand := &cobra.Command{
		Use:   "fetch <query prefix>",
		Short: "Run a query and print every row",
		Long: `Run a query and print every row.

The query is the prefix, a space, and the suffix. With --by, the suffix is
replaced by a lookup of --id in the named column.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			defer logging.LogPanics(nil)

			opts.Prefix = args[0]
			if cmd.Flags().Changed("id") {
				opts.ID = &id
			}

			ctx := context.Background()
			var p *perf.RunPerf
			if showPerf {
				p = perf.MakeNewRunPerf("fetch")
				ctx = perf.ContextWithPerf(ctx, p)
			}

			conn, closeConn, err := openConn(ctx, useStdlib)
			if err != nil {
				logging.Error().Err(err).Msg("failed to connect to database")
				os.Exit(1)
			}
			defer closeConn()

			rows, err := Fetch(ctx, conn, opts)
			if err != nil {
				logging.Error().Err(err).Msg("fetch failed")
				os.Exit(1)
			}
			PrintRows(os.Stdout, rows)

			if p != nil {
				p.EndRun()
				p.WriteSummary(os.Stderr)
			}
		},
	}
	fetchCommand.Flags().StringVar(&opts.Suffix, "suffix", "", "Text appended to the query prefix")
	fetchCommand.Flags().StringVar(&opts.By, "by", "", "Select rows whose value in this column equals --id")
	fetchCommand.Flags().Int64Var(&id, "id", 0, "The id to look up with --by")
	fetchCommand.Flags().BoolVar(&showPerf, "perf", false, "Print query timings")
	fetchCommand.Flags().BoolVar(&useStdlib, "stdlib", false, "Connect through database/sql instead of pgx directly")

	RootCommand.AddCommand(fetchCommand)
}

// Fetch runs the query described by opts on conn and returns every row as its
// raw column values.
func Fetch(ctx context.Context, conn db.Conn, opts FetchOptions) ([][]any, error) {
	queries := db.NewConfiguration(opts.Prefix, valuesMapper)

	if opts.By != "" {
		handle, err := db.CreateByIDHandle[int64](ctx, queries, conn, opts.By)
		if err != nil {
			return nil, err
		}
		defer handle.Close(ctx)

		return handle.ExecuteWith(ctx, func(p *db.ByIDParameters[int64]) {
			if opts.ID != nil {
				p.ID.Set(*opts.ID)
			}
		})
	}

	handle, err := queries.CreateHandle(ctx, conn, opts.Suffix)
	if err != nil {
		return nil, err
	}
	defer handle.Close(ctx)

	return handle.Execute(ctx)
}

func valuesMapper(row db.Row) ([]any, error) {
	return row.Values()
}

func PrintRows(w io.Writer, rows [][]any) {
	for _, row := range rows {
		cols := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				cols[i] = ansicolor.Faint + "NULL" + ansicolor.Reset
			} else {
				cols[i] = fmt.Sprint(v)
			}
		}
		fmt.Fprintln(w, strings.Join(cols, "\t"))
	}
	fmt.Fprintf(w, "%s(%d rows)%s\n", ansicolor.Gray, len(rows), ansicolor.Reset)
}

func openConn(ctx context.Context, useStdlib bool) (db.Conn, func(), error) {
	if useStdlib {
		sqldb, err := db.OpenSQL(config.PostgresConfig{})
		if err != nil {
			return nil, nil, err
		}
		return db.FromSQL(sqldb, db.Dollar), func() { sqldb.Close() }, nil
	}

	pgConn, err := connectPgx()
	if err != nil {
		return nil, nil, err
	}
	return db.FromPgx(pgConn), func() { pgConn.Close(ctx) }, nil
}

// db.NewConn panics when the database can't be reached.
func connectPgx() (conn *pgx.Conn, err error) {
	defer utils.RecoverPanicAsError(&err)
	return db.NewConn(), nil
}
