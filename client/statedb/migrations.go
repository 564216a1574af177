package statedb

import (
	"github.com/BurntSushi/migration"
	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
)

func Migrations(log logs.Log) []migration.Migrator {
	migs := []migration.Migrator{}
	idx := 0

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE TABLE variable(
			key TEXT PRIMARY KEY,
			value TEXT
		);

		CREATE TABLE last_user(
			id INTEGER PRIMARY KEY CHECK (id = 1),
			email TEXT NOT NULL,
			name TEXT,
			picture TEXT,
			family_name TEXT,
			given_name TEXT,
			created_at INT,
			last_login INT,
			theme TEXT
		);

		CREATE TABLE spot(
			id TEXT PRIMARY KEY,
			region TEXT NOT NULL,
			name TEXT NOT NULL,
			latitude REAL,
			longitude REAL,
			thumbnail_key TEXT,
			updated_at INT NOT NULL
		);
		CREATE INDEX idx_spot_region ON spot (region);
	`))

	return migs
}
