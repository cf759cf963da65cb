// Package sqlite implements the store driver on SQLite.
package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	// Import the pure-Go SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/jeffreyouni/life-butler/internal/profile"
	"github.com/jeffreyouni/life-butler/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the SQLite database at profile.DSN and applies the schema.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	db, err := sql.Open("sqlite", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: %s", profile.DSN)
	}

	// SQLite allows a single writer; everything here is single-process.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	driver := &DB{
		db:      db,
		profile: profile,
	}

	if err := driver.migrate(context.Background()); err != nil {
		return nil, errors.Wrap(err, "failed to migrate database")
	}

	return driver, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS record (
	id TEXT NOT NULL,
	domain TEXT NOT NULL,
	ts INTEGER NOT NULL,
	data TEXT NOT NULL DEFAULT '{}',
	PRIMARY KEY (domain, id)
);
CREATE INDEX IF NOT EXISTS idx_record_domain_ts ON record (domain, ts);

CREATE TABLE IF NOT EXISTS embedding (
	id TEXT NOT NULL PRIMARY KEY,
	object_type TEXT NOT NULL,
	object_id TEXT NOT NULL,
	chunk_text TEXT NOT NULL,
	vector BLOB NOT NULL,
	created_ts INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_embedding_object ON embedding (object_type, object_id);
`

func (d *DB) migrate(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, schema)
	return err
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}
