package postgres

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// prefixToken is replaced by the table prefix in every migration file.
const prefixToken = "{{prefix}}"

// MigrateUp runs all pending migrations against the prefixed tables.
func MigrateUp(pool *pgxpool.Pool, tables *TableNames) error {
	m, closeFn, err := newMigrate(pool, tables)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// CheckMigrationStatus returns nil when the schema is at the latest embedded version.
func CheckMigrationStatus(pool *pgxpool.Pool, tables *TableNames) error {
	m, closeFn, err := newMigrate(pool, tables)
	if err != nil {
		return err
	}
	defer closeFn()

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return fmt.Errorf("database has no schema version (needs migration)")
		}
		return fmt.Errorf("get database version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in dirty state at version %d (migration failed previously)", version)
	}

	src, err := newMigrationSource(tables.Prefix)
	if err != nil {
		return err
	}
	defer src.Close()

	latest, err := latestVersion(src)
	if err != nil {
		return fmt.Errorf("determine latest version: %w", err)
	}

	switch {
	case version < latest:
		return fmt.Errorf("database is at version %d but latest is %d (%d migrations behind)",
			version, latest, latest-version)
	case version > latest:
		return fmt.Errorf("database version %d is ahead of binary version %d (binary needs update)",
			version, latest)
	}
	return nil
}

func newMigrate(pool *pgxpool.Pool, tables *TableNames) (*migrate.Migrate, func(), error) {
	src, err := newMigrationSource(tables.Prefix)
	if err != nil {
		return nil, nil, err
	}

	db := stdlib.OpenDBFromPool(pool)
	dbDriver, err := migratepgx.WithInstance(db, &migratepgx.Config{
		MigrationsTable: tables.Prefix + "schema_migrations",
	})
	if err != nil {
		src.Close()
		db.Close()
		return nil, nil, fmt.Errorf("create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "pgx5", dbDriver)
	if err != nil {
		src.Close()
		dbDriver.Close()
		db.Close()
		return nil, nil, fmt.Errorf("create migrate instance: %w", err)
	}

	closeFn := func() {
		m.Close()
		db.Close()
	}
	return m, closeFn, nil
}

func newMigrationSource(prefix string) (source.Driver, error) {
	src, err := iofs.New(prefixedFS{FS: migrationFiles, prefix: prefix}, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migration files: %w", err)
	}
	return src, nil
}

// latestVersion returns the highest version available in src.
func latestVersion(src source.Driver) (uint, error) {
	version, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(version)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return version, nil
			}
			return 0, err
		}
		version = next
	}
}

// prefixedFS serves the embedded migrations with prefixToken replaced.
type prefixedFS struct {
	fs.FS
	prefix string
}

func (p prefixedFS) Open(name string) (fs.File, error) {
	f, err := p.FS.Open(name)
	if err != nil || !strings.HasSuffix(name, ".sql") {
		return f, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	data = bytes.ReplaceAll(data, []byte(prefixToken), []byte(p.prefix))
	return &memFile{Reader: bytes.NewReader(data), info: info}, nil
}

type memFile struct {
	*bytes.Reader
	info fs.FileInfo
}

func (f *memFile) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *memFile) Close() error               { return nil }
