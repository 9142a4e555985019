package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, connString string) (*DB, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

func (db *DB) Close() {
	db.Pool.Close()
}

const schema = `
    CREATE TABLE IF NOT EXISTS nli_records (
        query             TEXT NOT NULL,
        id                TEXT NOT NULL,
        date              TEXT NOT NULL DEFAULT '',
        type              TEXT NOT NULL DEFAULT '',
        record_id         TEXT NOT NULL DEFAULT '',
        title             TEXT NOT NULL DEFAULT '',
        source            TEXT NOT NULL DEFAULT '',
        language          TEXT NOT NULL DEFAULT '',
        identifier        TEXT NOT NULL DEFAULT '',
        link_to_marc      TEXT NOT NULL DEFAULT '',
        contributor       TEXT NOT NULL DEFAULT '',
        creator           TEXT NOT NULL DEFAULT '',
        subject           TEXT NOT NULL DEFAULT '',
        access_rights     TEXT NOT NULL DEFAULT '',
        publisher         TEXT NOT NULL DEFAULT '',
        format            TEXT NOT NULL DEFAULT '',
        non_standard_date TEXT NOT NULL DEFAULT '',
        thumbnail         TEXT NOT NULL DEFAULT '',
        relation          TEXT NOT NULL DEFAULT '',
        download          TEXT NOT NULL DEFAULT '',
        position          INT NOT NULL DEFAULT 0,
        fetched_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        PRIMARY KEY (query, id)
    );
`

// EnsureSchema creates the archive table if it is missing.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
