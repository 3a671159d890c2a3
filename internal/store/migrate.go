package store

import (
	"database/sql"
	"fmt"

	gormigrate "github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// LatestSchemaVersion is the id of the last entry in migrations.
const LatestSchemaVersion = "202610180003"

var migrations = []*gormigrate.Migration{
	// accounts and groups
	{
		ID: "202610180001",
		Migrate: func(tx *gorm.DB) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS users (
					id            TEXT PRIMARY KEY,
					name          TEXT NOT NULL UNIQUE,
					email         TEXT NOT NULL UNIQUE,
					password      TEXT NOT NULL,
					role          TEXT NOT NULL CHECK (role IN ('basic', 'manager', 'admin')),
					created_at    INTEGER NOT NULL,
					activated_at  INTEGER,
					last_login_at INTEGER
				)`,
				`CREATE TABLE IF NOT EXISTS user_groups (
					id          TEXT PRIMARY KEY,
					name        TEXT NOT NULL UNIQUE,
					description TEXT NOT NULL DEFAULT '',
					created_at  INTEGER NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS memberships (
					id       INTEGER PRIMARY KEY AUTOINCREMENT,
					group_id TEXT NOT NULL REFERENCES user_groups(id),
					user_id  TEXT NOT NULL REFERENCES users(id),
					UNIQUE (group_id, user_id)
				)`,
				`CREATE INDEX IF NOT EXISTS idx_memberships_user ON memberships(user_id)`,
			)
		},
		Rollback: func(tx *gorm.DB) error {
			return execAll(tx,
				`DROP TABLE IF EXISTS memberships`,
				`DROP TABLE IF EXISTS user_groups`,
				`DROP TABLE IF EXISTS users`,
			)
		},
	},
	// documents: metadata and payload halves
	{
		ID: "202610180002",
		Migrate: func(tx *gorm.DB) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS keepers (
					id           TEXT PRIMARY KEY,
					filename     TEXT NOT NULL UNIQUE,
					content_type TEXT NOT NULL,
					description  TEXT NOT NULL DEFAULT '',
					category     TEXT NOT NULL DEFAULT '',
					posted_at    INTEGER NOT NULL,
					posted_by    TEXT REFERENCES users(id) ON DELETE SET NULL
				)`,
				`CREATE TABLE IF NOT EXISTS filedata (
					keeper_id TEXT PRIMARY KEY REFERENCES keepers(id),
					data      BLOB NOT NULL
				)`,
			)
		},
		Rollback: func(tx *gorm.DB) error {
			return execAll(tx,
				`DROP TABLE IF EXISTS filedata`,
				`DROP TABLE IF EXISTS keepers`,
			)
		},
	},
	// read grants
	{
		ID: "202610180003",
		Migrate: func(tx *gorm.DB) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS permits (
					id        TEXT PRIMARY KEY,
					keeper_id TEXT NOT NULL REFERENCES keepers(id),
					user_id   TEXT REFERENCES users(id),
					group_id  TEXT REFERENCES user_groups(id),
					CHECK (user_id IS NOT NULL OR group_id IS NOT NULL)
				)`,
				// NULLs are distinct in plain UNIQUE constraints, so the triple
				// is indexed on IFNULL expressions.
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_permits_triple
					ON permits(keeper_id, IFNULL(user_id, ''), IFNULL(group_id, ''))`,
				`CREATE INDEX IF NOT EXISTS idx_permits_user ON permits(user_id)`,
				`CREATE INDEX IF NOT EXISTS idx_permits_group ON permits(group_id)`,
			)
		},
		Rollback: func(tx *gorm.DB) error {
			return execAll(tx, `DROP TABLE IF EXISTS permits`)
		},
	},
}

func execAll(tx *gorm.DB, statements ...string) error {
	for _, stmt := range statements {
		if err := tx.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func migrator(db *sql.DB) (*gormigrate.Gormigrate, error) {
	gdb, err := gorm.Open(sqlite.New(sqlite.Config{Conn: db}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open migration session: %w", err)
	}
	return gormigrate.New(gdb, gormigrate.DefaultOptions, migrations), nil
}

// migrate applies every pending migration. Already-applied ids are skipped.
func migrate(db *sql.DB) error {
	m, err := migrator(db)
	if err != nil {
		return err
	}
	if err := m.Migrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
