package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lumen-data/particle.report/internal/analysis"
	"github.com/lumen-data/particle.report/internal/dls"
)

// CollectionSummary is one row of the collections table.
type CollectionSummary struct {
	ID               string    `json:"id"`
	Label            string    `json:"label"`
	SourceFile       string    `json:"sourceFile"`
	InstrumentSerial string    `json:"instrumentSerial"`
	RecordCount      int64     `json:"recordCount"`
	CreatedAt        time.Time `json:"createdAt"`
}

// SpectrumRow is one stored spectrum; Variables is populated only by
// the single-spectrum lookup.
type SpectrumRow struct {
	GUID         string          `json:"guid"`
	CollectionID string          `json:"collectionId"`
	Title        string          `json:"title"`
	DataType     string          `json:"dataType"`
	Meta         map[string]any  `json:"meta"`
	Settings     json.RawMessage `json:"settings"`
	Variables    []VariableRow   `json:"variables,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// VariableRow is one stored variable of a spectrum.
type VariableRow struct {
	Symbol      string    `json:"symbol"`
	Label       string    `json:"label"`
	Units       string    `json:"units"`
	IsDependent bool      `json:"isDependent"`
	Points      []float64 `json:"points"`
}

// SaveAnalysis stores a converted collection and all of its spectra and
// variables in one transaction. The instrument serial is lifted from
// the first spectrum's settings when present.
func (db *DB) SaveAnalysis(a *analysis.Analysis, sourceFile string) error {
	if a == nil {
		return fmt.Errorf("nil analysis")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	serial := ""
	if a.Len() > 0 {
		if s, ok := a.Spectra[0].Settings.(dls.Settings); ok {
			serial = s.Instrument.SerialNumber
		}
	}

	_, err = tx.Exec(
		`INSERT INTO collections (id, label, source_file, instrument_serial, record_count)
		 VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.Label, sourceFile, serial, int64(a.Len()),
	)
	if err != nil {
		return fmt.Errorf("failed to insert collection %s: %w", a.ID, err)
	}

	for _, sp := range a.Spectra {
		metaJSON, err := json.Marshal(sp.Meta)
		if err != nil {
			return fmt.Errorf("failed to marshal meta for %s: %w", sp.ID, err)
		}
		settingsJSON, err := json.Marshal(sp.Settings)
		if err != nil {
			return fmt.Errorf("failed to marshal settings for %s: %w", sp.ID, err)
		}

		_, err = tx.Exec(
			`INSERT INTO spectra (guid, collection_id, title, data_type, meta, settings)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			sp.ID, a.ID, sp.Title, sp.DataType, string(metaJSON), string(settingsJSON),
		)
		if err != nil {
			return fmt.Errorf("failed to insert spectrum %s: %w", sp.ID, err)
		}

		for _, v := range sp.Variables {
			points, err := json.Marshal(v.Data)
			if err != nil {
				return fmt.Errorf("failed to marshal points for %s/%s: %w", sp.ID, v.Symbol, err)
			}
			_, err = tx.Exec(
				`INSERT INTO variables (spectrum_guid, symbol, label, units, is_dependent, points)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				sp.ID, v.Symbol, v.Label, v.Units, v.IsDependent, string(points),
			)
			if err != nil {
				return fmt.Errorf("failed to insert variable %s/%s: %w", sp.ID, v.Symbol, err)
			}
		}
	}

	return tx.Commit()
}

// CollectionExistsForSource reports whether any collection was already
// ingested from the given source file. The ingest watcher uses it to
// avoid re-storing archives across restarts.
func (db *DB) CollectionExistsForSource(sourceFile string) (bool, error) {
	var n int64
	err := db.QueryRow(
		`SELECT COUNT(*) FROM collections WHERE source_file = ?`, sourceFile,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Collections lists stored collections, newest first.
func (db *DB) Collections() ([]CollectionSummary, error) {
	rows, err := db.Query(
		`SELECT id, label, source_file, instrument_serial, record_count, created_at
		 FROM collections ORDER BY created_at DESC, id LIMIT 200`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var collections []CollectionSummary
	for rows.Next() {
		var c CollectionSummary
		if err := rows.Scan(&c.ID, &c.Label, &c.SourceFile, &c.InstrumentSerial, &c.RecordCount, &c.CreatedAt); err != nil {
			return nil, err
		}
		collections = append(collections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return collections, nil
}

// Collection returns one collection with its spectra (without the
// variable arrays; use Spectrum for those).
func (db *DB) Collection(id string) (*CollectionSummary, []SpectrumRow, error) {
	var c CollectionSummary
	err := db.QueryRow(
		`SELECT id, label, source_file, instrument_serial, record_count, created_at
		 FROM collections WHERE id = ?`, id,
	).Scan(&c.ID, &c.Label, &c.SourceFile, &c.InstrumentSerial, &c.RecordCount, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("collection %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := db.Query(
		`SELECT guid, collection_id, title, data_type, meta, settings, created_at
		 FROM spectra WHERE collection_id = ? ORDER BY created_at, guid`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var spectra []SpectrumRow
	for rows.Next() {
		sp, err := scanSpectrum(rows)
		if err != nil {
			return nil, nil, err
		}
		spectra = append(spectra, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	return &c, spectra, nil
}

// Spectrum returns one spectrum with its variables.
func (db *DB) Spectrum(guid string) (*SpectrumRow, error) {
	row := db.QueryRow(
		`SELECT guid, collection_id, title, data_type, meta, settings, created_at
		 FROM spectra WHERE guid = ?`, guid)

	sp, err := scanSpectrum(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("spectrum %s: %w", guid, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(
		`SELECT symbol, label, units, is_dependent, points
		 FROM variables WHERE spectrum_guid = ? ORDER BY symbol`, guid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var v VariableRow
		var points string
		if err := rows.Scan(&v.Symbol, &v.Label, &v.Units, &v.IsDependent, &points); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(points), &v.Points); err != nil {
			return nil, fmt.Errorf("failed to unmarshal points for %s/%s: %w", guid, v.Symbol, err)
		}
		sp.Variables = append(sp.Variables, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &sp, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSpectrum(row rowScanner) (SpectrumRow, error) {
	var sp SpectrumRow
	var meta, settings string
	if err := row.Scan(&sp.GUID, &sp.CollectionID, &sp.Title, &sp.DataType, &meta, &settings, &sp.CreatedAt); err != nil {
		return SpectrumRow{}, err
	}
	if err := json.Unmarshal([]byte(meta), &sp.Meta); err != nil {
		return SpectrumRow{}, fmt.Errorf("failed to unmarshal meta for %s: %w", sp.GUID, err)
	}
	sp.Settings = json.RawMessage(settings)
	return sp, nil
}
