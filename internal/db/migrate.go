package db

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Schema changes ship as numbered SQL pairs under migrations/ and are
// applied through golang-migrate. NewDB bootstraps a fresh database with
// the full current schema, so only databases that predate a schema
// change ever need to run anything here; the migration files use IF NOT
// EXISTS so that `migrate up` is a no-op against a freshly bootstrapped
// database.

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// MigrationsFS returns the migration files compiled into the binary.
// Files follow the 000001_name.up.sql / 000001_name.down.sql convention.
func MigrationsFS() fs.FS {
	return embeddedMigrations
}

// withMigrate builds a migrator over migrationsFS and the live
// connection, then hands it to fn. The migrator is not Closed afterwards:
// its Close would also close the *sql.DB the rest of the process is
// using.
func (db *DB) withMigrate(migrationsFS fs.FS, fn func(*migrate.Migrate) error) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}
	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to prepare sqlite for migration: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to build migrator: %w", err)
	}
	m.Log = migrateLogger{}
	return fn(m)
}

// MigrateUp applies every pending migration. Already being at the latest
// version is not an error.
func (db *DB) MigrateUp(migrationsFS fs.FS) error {
	return db.withMigrate(migrationsFS, func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to migrate up: %w", err)
		}
		return nil
	})
}

// MigrateDown rolls back the most recent migration. One step only; use
// MigrateTo to walk further.
func (db *DB) MigrateDown(migrationsFS fs.FS) error {
	return db.withMigrate(migrationsFS, func(m *migrate.Migrate) error {
		if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to migrate down: %w", err)
		}
		return nil
	})
}

// MigrateTo migrates up or down until the schema sits at exactly
// version.
func (db *DB) MigrateTo(migrationsFS fs.FS, version uint) error {
	return db.withMigrate(migrationsFS, func(m *migrate.Migrate) error {
		if err := m.Migrate(version); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to migrate to version %d: %w", version, err)
		}
		return nil
	})
}

// MigrateForce records version as the current schema version and clears
// the dirty flag without running any SQL. Recovery tool for a migration
// that died partway: inspect the database, repair by hand, then force
// the version that matches reality.
func (db *DB) MigrateForce(migrationsFS fs.FS, version int) error {
	return db.withMigrate(migrationsFS, func(m *migrate.Migrate) error {
		if err := m.Force(version); err != nil {
			return fmt.Errorf("failed to force version %d: %w", version, err)
		}
		return nil
	})
}

// MigrateVersion reports the schema version the database is at and
// whether a migration was interrupted partway. A database with no
// recorded version reports 0, clean.
func (db *DB) MigrateVersion(migrationsFS fs.FS) (version uint, dirty bool, err error) {
	err = db.withMigrate(migrationsFS, func(m *migrate.Migrate) error {
		v, d, verr := m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			return nil
		}
		if verr != nil {
			return fmt.Errorf("failed to read schema version: %w", verr)
		}
		version, dirty = v, d
		return nil
	})
	return version, dirty, err
}

// migrateLogger routes golang-migrate's progress output through the
// standard logger with a prefix.
type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...any) {
	log.Printf("[migrate] "+format, v...)
}

func (migrateLogger) Verbose() bool { return false }

// migrationTableExists reports whether migration tracking has been set
// up on this database at all.
func (db *DB) migrationTableExists() (bool, error) {
	var n int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_migrations'`,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to inspect sqlite_master: %w", err)
	}
	return n > 0, nil
}

// BaselineAtVersion records version as already applied, without running
// any migration SQL. Use it once to bring a database whose schema was
// created by NewDB under migration tracking; after that, `migrate up`
// applies only the versions beyond the baseline.
func (db *DB) BaselineAtVersion(version uint) error {
	// Same shape golang-migrate's sqlite driver creates on first use.
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version uint64, dirty bool)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var applied int
	if err := db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&applied); err != nil {
		return fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	if applied > 0 {
		return fmt.Errorf("database already has a recorded schema version; baseline only applies to untracked databases")
	}

	if _, err := db.Exec(`INSERT INTO schema_migrations (version, dirty) VALUES (?, 0)`, version); err != nil {
		return fmt.Errorf("failed to record baseline version %d: %w", version, err)
	}
	return nil
}

// LatestMigrationVersion returns the highest version number among the up
// migrations in migrationsFS.
func LatestMigrationVersion(migrationsFS fs.FS) (uint, error) {
	files, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	if err != nil {
		return 0, fmt.Errorf("failed to list migrations: %w", err)
	}

	var latest uint64
	for _, f := range files {
		name := path.Base(f)
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			return 0, fmt.Errorf("migration %s: name must start with <version>_", name)
		}
		v, err := strconv.ParseUint(prefix, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("migration %s: bad version prefix: %w", name, err)
		}
		if v > latest {
			latest = v
		}
	}
	if latest == 0 {
		return 0, fmt.Errorf("no migrations found")
	}
	return uint(latest), nil
}

// CheckMigrations compares the database's recorded schema version with
// the migrations compiled into this binary. It never changes anything:
// it returns nil when the schema is current, or when the database is not
// under migration tracking at all (NewDB's inline schema owns those);
// otherwise it logs what the operator should run and returns an error
// describing the mismatch.
func (db *DB) CheckMigrations(migrationsFS fs.FS) error {
	tracked, err := db.migrationTableExists()
	if err != nil {
		return err
	}
	if !tracked {
		return nil
	}

	version, dirty, err := db.MigrateVersion(migrationsFS)
	if err != nil {
		return err
	}
	latest, err := LatestMigrationVersion(migrationsFS)
	if err != nil {
		return err
	}

	switch {
	case dirty:
		log.Printf("schema version %d is dirty: a migration was interrupted partway", version)
		log.Printf("inspect the database, then run: particle-report migrate force <version>")
		return fmt.Errorf("schema is dirty at version %d", version)
	case version > latest:
		log.Printf("schema version %d is newer than this binary supports (%d)", version, latest)
		log.Printf("upgrade particle-report, or run: particle-report migrate version %d", latest)
		return fmt.Errorf("schema version %d is ahead of this binary (latest %d)", version, latest)
	case version < latest:
		log.Printf("schema is at version %d, this binary expects %d", version, latest)
		log.Printf("run: particle-report migrate up")
		return fmt.Errorf("schema version %d is behind this binary (latest %d)", version, latest)
	}
	return nil
}
