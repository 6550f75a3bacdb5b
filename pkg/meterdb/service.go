// MeterDB contains data specifically about smart meter readings.
// Due to cross-service communication on SQLite,
// any user data or anything else should use a seperate database.
// This database should only be written to by meter_collector
// but can be read by any service.
package meterdb

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/NotCoffee418/dbmigrator"
	log "github.com/sirupsen/logrus"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Readers in other processes wait instead of failing on a write lock.
const dsnPragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

type Store struct {
	db *sql.DB
}

// Open connects to the database file at path. It does not migrate.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// Verify connection
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// InitializeDatabase opens the database and applies migrations.
// Call once on startup from the writing service.
func InitializeDatabase(path string) (*Store, error) {
	store, err := Open(path)
	if err != nil {
		return nil, err
	}

	// Apply migrations
	dbmigrator.SetDatabaseType(dbmigrator.SQLite)
	<-dbmigrator.MigrateUpCh(
		store.db,
		migrationFS,
		"migrations",
	)

	if _, err := store.db.Exec("SELECT 1 FROM daily_totals LIMIT 1;"); err != nil {
		store.Close()
		return nil, fmt.Errorf("schema missing after migration: %w", err)
	}
	log.Debugf("Meter database ready at %s", path)
	return store, nil
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}
