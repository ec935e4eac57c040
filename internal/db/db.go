// Package db persists converted measurement collections and live bench
// results in sqlite. The schema is managed two ways, matching how the
// service is deployed: NewDB creates the full current schema for fresh
// databases, and the embedded migrations bring databases from earlier
// installations forward (see migrate.go).
package db

import (
	"compress/gzip"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"
)

// ErrNotFound reports a lookup that matched no row. Handlers branch on
// it to answer 404 instead of 500.
var ErrNotFound = errors.New("not found")

type DB struct {
	*sql.DB
}

// OpenDB opens the database and applies pragmas without touching the
// schema. The migrate subcommand uses it so migrations fully manage the
// schema.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// One writer at a time keeps sqlite happy under the HTTP + ingest +
	// bench recorder mix.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;
		PRAGMA synchronous = NORMAL;
		PRAGMA temp_store = MEMORY;
		PRAGMA foreign_keys = ON;
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	return &DB{db}, nil
}

// NewDB opens the database and creates the current schema when absent.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS collections (
			id                TEXT PRIMARY KEY,
			label             TEXT NOT NULL DEFAULT '',
			source_file       TEXT NOT NULL DEFAULT '',
			instrument_serial TEXT NOT NULL DEFAULT '',
			record_count      BIGINT NOT NULL DEFAULT 0,
			created_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS spectra (
			guid              TEXT PRIMARY KEY,
			collection_id     TEXT NOT NULL,
			title             TEXT NOT NULL DEFAULT '',
			data_type         TEXT NOT NULL DEFAULT '',
			meta              TEXT NOT NULL DEFAULT '{}',
			settings          TEXT NOT NULL DEFAULT '{}',
			created_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(collection_id) REFERENCES collections(id)
		);
		CREATE TABLE IF NOT EXISTS variables (
			spectrum_guid     TEXT NOT NULL,
			symbol            TEXT NOT NULL,
			label             TEXT NOT NULL DEFAULT '',
			units             TEXT NOT NULL DEFAULT '',
			is_dependent      INTEGER NOT NULL DEFAULT 0,
			points            TEXT NOT NULL DEFAULT '[]',
			PRIMARY KEY(spectrum_guid, symbol),
			FOREIGN KEY(spectrum_guid) REFERENCES spectra(guid)
		);
		CREATE TABLE IF NOT EXISTS live_results (
			id                   INTEGER PRIMARY KEY AUTOINCREMENT,
			sample               TEXT NOT NULL DEFAULT '',
			z_average_nm         DOUBLE,
			polydispersity_index DOUBLE,
			mean_count_rate_kcps DOUBLE,
			temperature_c        DOUBLE,
			received_at          TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_spectra_collection ON spectra(collection_id);
		CREATE INDEX IF NOT EXISTS idx_live_results_received ON live_results(received_at);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// AttachAdminRoutes mounts the database's operator surface under
// /debug/: tailsql for ad-hoc queries and a one-click backup download.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to start tailsql: %w", err)
	}
	tsql.SetDB("sqlite://particle.db", db.DB, &tailsql.DBOptions{
		Label: "Particle DB",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("backup", "Download a vacuumed copy of the database", http.HandlerFunc(db.serveBackup))
	return nil
}

// serveBackup snapshots the database with VACUUM INTO and streams the
// snapshot back gzip-compressed. The snapshot file is deleted once
// sent, whether or not the transfer completed.
func (db *DB) serveBackup(w http.ResponseWriter, r *http.Request) {
	name := fmt.Sprintf("backup-%d.db", time.Now().Unix())
	if _, err := db.Exec(`VACUUM INTO ?`, name); err != nil {
		http.Error(w, fmt.Sprintf("failed to snapshot database: %v", err), http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := os.Remove(name); err != nil {
			log.Printf("failed to remove backup %s: %v", name, err)
		}
	}()

	f, err := os.Open(name)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to open backup: %v", err), http.StatusInternalServerError)
		return
	}
	defer f.Close()

	// The client receives a plain .db file; the gzip layer only covers
	// the transfer.
	w.Header().Set("Content-Disposition", "attachment; filename="+name)
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Encoding", "gzip")

	gz := gzip.NewWriter(w)
	defer gz.Close()
	if _, err := io.Copy(gz, f); err != nil {
		// Too late for an error status; the client most likely went away.
		log.Printf("failed to stream backup %s: %v", name, err)
	}
}
