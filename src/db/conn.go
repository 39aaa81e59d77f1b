package db

import (
	"context"
	"database/sql"
	"regexp"
	"time"

	zerologadapter "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/jpillora/backoff"
	"github.com/vanishedwanderer/grabbler/src/config"
	"github.com/vanishedwanderer/grabbler/src/logging"
	"github.com/vanishedwanderer/grabbler/src/oops"
	"github.com/vanishedwanderer/grabbler/src/perf"
	"github.com/vanishedwanderer/grabbler/src/utils"
)

// Creates a new connection to the configured database.
// This connection is not safe for concurrent use.
func NewConn() *pgx.Conn {
	return NewConnWithConfig(config.PostgresConfig{})
}

func NewConnWithConfig(cfg config.PostgresConfig) *pgx.Conn {
	cfg = overrideDefaultConfig(cfg)

	pgcfg, err := pgx.ParseConfig(cfg.DSN())
	if err != nil {
		panic(oops.New(err, "failed to parse database config"))
	}
	pgcfg.Tracer = newTracer(cfg)

	conn, err := connectWithRetry(context.Background(), cfg.ConnectRetries, func(ctx context.Context) (*pgx.Conn, error) {
		return pgx.ConnectConfig(ctx, pgcfg)
	})
	if err != nil {
		panic(oops.New(err, "failed to connect to database"))
	}

	return conn
}

// Creates a connection pool for the configured database.
// The resulting pool is safe for concurrent use, but the handles created on
// its connections are not shared between them; acquire a connection per
// goroutine and prepare handles on that.
func NewConnPool() *pgxpool.Pool {
	return NewConnPoolWithConfig(config.PostgresConfig{})
}

func NewConnPoolWithConfig(cfg config.PostgresConfig) *pgxpool.Pool {
	cfg = overrideDefaultConfig(cfg)

	pgcfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		panic(oops.New(err, "failed to parse database config"))
	}
	pgcfg.MinConns = cfg.MinConn
	pgcfg.MaxConns = cfg.MaxConn
	pgcfg.ConnConfig.Tracer = newTracer(cfg)

	pool, err := connectWithRetry(context.Background(), cfg.ConnectRetries, func(ctx context.Context) (*pgxpool.Pool, error) {
		pool, err := pgxpool.NewWithConfig(ctx, pgcfg)
		if err != nil {
			return nil, err
		}
		// pgxpool connects lazily; make sure the database is actually there.
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return pool, nil
	})
	if err != nil {
		panic(oops.New(err, "failed to create database connection pool"))
	}

	return pool
}

// OpenSQL opens the configured database through database/sql, using pgx as the
// driver. Use it with FromSQL(db, Dollar).
func OpenSQL(cfg config.PostgresConfig) (*sql.DB, error) {
	cfg = overrideDefaultConfig(cfg)

	pgcfg, err := pgx.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, oops.New(err, "failed to parse database config")
	}
	pgcfg.Tracer = newTracer(cfg)

	return stdlib.OpenDB(*pgcfg), nil
}

func overrideDefaultConfig(cfg config.PostgresConfig) config.PostgresConfig {
	return config.PostgresConfig{
		User:           utils.OrDefault(cfg.User, config.Config.Postgres.User),
		Password:       utils.OrDefault(cfg.Password, config.Config.Postgres.Password),
		Hostname:       utils.OrDefault(cfg.Hostname, config.Config.Postgres.Hostname),
		Port:           utils.OrDefault(cfg.Port, config.Config.Postgres.Port),
		DbName:         utils.OrDefault(cfg.DbName, config.Config.Postgres.DbName),
		LogLevel:       utils.OrDefault(cfg.LogLevel, config.Config.Postgres.LogLevel),
		MinConn:        utils.OrDefault(cfg.MinConn, config.Config.Postgres.MinConn),
		MaxConn:        utils.OrDefault(cfg.MaxConn, config.Config.Postgres.MaxConn),
		ConnectRetries: utils.OrDefault(cfg.ConnectRetries, config.Config.Postgres.ConnectRetries),
	}
}

// connectWithRetry calls connect until it succeeds, making at most retries
// additional attempts with exponential backoff between them.
func connectWithRetry[C any](ctx context.Context, retries int, connect func(ctx context.Context) (C, error)) (C, error) {
	b := &backoff.Backoff{
		Min:    100 * time.Millisecond,
		Max:    5 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	for {
		conn, err := connect(ctx)
		if err == nil {
			return conn, nil
		}

		attempt := int(b.Attempt())
		if attempt >= retries {
			return conn, err
		}

		wait := b.Duration()
		logging.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Dur("wait", wait).
			Msg("Failed to connect to database, retrying")
		if sleepErr := utils.SleepContext(ctx, wait); sleepErr != nil {
			return conn, err
		}
	}
}

func newTracer(cfg config.PostgresConfig) multiTracer {
	return multiTracer{
		&tracelog.TraceLog{
			Logger:   zerologadapter.NewLogger(*logging.GlobalLogger()),
			LogLevel: cfg.LogLevel,
		},
		requestPerfTracer{},
	}
}

type multiTracer []pgx.QueryTracer

var _ pgx.QueryTracer = multiTracer{}
var _ pgx.PrepareTracer = multiTracer{}

func (mt multiTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	for _, t := range mt {
		ctx = t.TraceQueryStart(ctx, conn, data)
	}
	return ctx
}

func (mt multiTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	for _, t := range mt {
		t.TraceQueryEnd(ctx, conn, data)
	}
}

func (mt multiTracer) TracePrepareStart(ctx context.Context, conn *pgx.Conn, data pgx.TracePrepareStartData) context.Context {
	for _, t := range mt {
		if pt, ok := t.(pgx.PrepareTracer); ok {
			ctx = pt.TracePrepareStart(ctx, conn, data)
		}
	}
	return ctx
}

func (mt multiTracer) TracePrepareEnd(ctx context.Context, conn *pgx.Conn, data pgx.TracePrepareEndData) {
	for _, t := range mt {
		if pt, ok := t.(pgx.PrepareTracer); ok {
			pt.TracePrepareEnd(ctx, conn, data)
		}
	}
}

var reQueryName = regexp.MustCompile("---- (.*)\n")

// GetQueryName extracts a query's name from a comment line like
//
//	---- Fetch tests by id
//
// which shows up in perf output instead of "Unknown query".
func GetQueryName(sql string) (string, bool) {
	m := reQueryName.FindStringSubmatch(sql)
	if m != nil {
		return m[1], true
	}
	return "", false
}

type perfBlockContextKey struct{}

type requestPerfTracer struct{}

var _ pgx.QueryTracer = requestPerfTracer{}
var _ pgx.PrepareTracer = requestPerfTracer{}

func (pt requestPerfTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return pt.start(ctx, "SQL", data.SQL)
}

func (pt requestPerfTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	pt.end(ctx)
}

func (pt requestPerfTracer) TracePrepareStart(ctx context.Context, conn *pgx.Conn, data pgx.TracePrepareStartData) context.Context {
	return pt.start(ctx, "SQL prepare", data.SQL)
}

func (pt requestPerfTracer) TracePrepareEnd(ctx context.Context, conn *pgx.Conn, data pgx.TracePrepareEndData) {
	pt.end(ctx)
}

func (pt requestPerfTracer) start(ctx context.Context, category, sql string) context.Context {
	p := perf.ExtractPerf(ctx)
	if p == nil {
		return ctx
	}

	name := "Unknown query"
	if n, ok := GetQueryName(sql); ok {
		name = n
	}
	b := p.StartBlock(category, name)
	return context.WithValue(ctx, perfBlockContextKey{}, b)
}

func (pt requestPerfTracer) end(ctx context.Context) {
	if b, ok := ctx.Value(perfBlockContextKey{}).(*perf.BlockHandle); ok {
		b.End()
	}
}
