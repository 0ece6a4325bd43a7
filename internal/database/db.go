package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// PostgresSchema creates the places table when it is missing.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS places (
    place_id           TEXT PRIMARY KEY,
    position           INTEGER NOT NULL DEFAULT 0,
    name               TEXT NOT NULL,
    lat                DOUBLE PRECISION,
    lng                DOUBLE PRECISION,
    rating             DOUBLE PRECISION,
    user_ratings_total INTEGER NOT NULL DEFAULT 0,
    price_level        INTEGER,
    business_status    TEXT,
    open_now           BOOLEAN,
    address            TEXT,
    formatted_address  TEXT,
    phone              TEXT,
    website            TEXT,
    google_url         TEXT,
    editorial_summary  TEXT,
    known_for          TEXT,
    cost_for_two       INTEGER,
    photo_url          TEXT,
    attributes         JSONB NOT NULL DEFAULT '{}'::jsonb
);
CREATE INDEX IF NOT EXISTS places_position_idx ON places (position);
`

// SQLiteSchema mirrors PostgresSchema with SQLite column affinities.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS places (
    place_id           TEXT PRIMARY KEY,
    position           INTEGER NOT NULL DEFAULT 0,
    name               TEXT NOT NULL,
    lat                REAL,
    lng                REAL,
    rating             REAL,
    user_ratings_total INTEGER NOT NULL DEFAULT 0,
    price_level        INTEGER,
    business_status    TEXT,
    open_now           INTEGER,
    address            TEXT,
    formatted_address  TEXT,
    phone              TEXT,
    website            TEXT,
    google_url         TEXT,
    editorial_summary  TEXT,
    known_for          TEXT,
    cost_for_two       INTEGER,
    photo_url          TEXT,
    attributes         TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS places_position_idx ON places (position);
`

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Connect opens a PostgreSQL connection pool using pgx and verifies connectivity.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, eris.New("database: DSN must not be empty")
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, eris.Wrap(err, "database: parse pgx config")
	}

	cfg.MaxConnLifetime = 1 * time.Hour
	cfg.MaxConnIdleTime = 15 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "database: create pgx pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "database: ping")
	}

	return pool, nil
}

// Migrate applies PostgresSchema.
func Migrate(ctx context.Context, db execer) error {
	if _, err := db.Exec(ctx, PostgresSchema); err != nil {
		return eris.Wrap(err, "database: migrate places schema")
	}
	return nil
}

// OpenSQLite opens (creating if needed) a SQLite database file in WAL mode and
// applies SQLiteSchema.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, eris.New("database: sqlite path must not be empty")
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(10000)")
	if err != nil {
		return nil, eris.Wrapf(err, "database: open sqlite %s", path)
	}
	db.SetMaxOpenConns(4)

	if _, err := db.ExecContext(ctx, SQLiteSchema); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "database: create sqlite schema")
	}
	return db, nil
}
