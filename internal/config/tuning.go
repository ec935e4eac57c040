// Package config loads the optional tuning file passed via -config.
// Every knob has a compiled-in default, so the service runs fine with no
// file at all; a partial file overrides only the fields it names.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lumen-data/particle.report/internal/units"
)

// TuningConfig mirrors config/tuning.defaults.json. Fields are pointers
// so that an absent key is distinguishable from a zero value; the Get*
// methods resolve nil to the compiled-in default.
type TuningConfig struct {
	// Ingest watcher.
	ScanInterval    *string `json:"scan_interval,omitempty"`   // duration string, e.g. "30s"
	DebounceWindow  *string `json:"debounce_window,omitempty"` // duration string, e.g. "2s"
	MaxArchiveBytes *int64  `json:"max_archive_bytes,omitempty"`

	// Display.
	DefaultSizeUnits        *string `json:"default_size_units,omitempty"`
	DefaultTemperatureUnits *string `json:"default_temperature_units,omitempty"`

	// Live bench.
	BenchBaud       *int `json:"bench_baud,omitempty"`
	LiveResultLimit *int `json:"live_result_limit,omitempty"`
	RollupDays      *int `json:"rollup_days,omitempty"`
}

const (
	defaultScanInterval    = 30 * time.Second
	defaultDebounceWindow  = 2 * time.Second
	defaultMaxArchiveBytes = 32 << 20
	defaultBenchBaud       = 9600
	defaultLiveResultLimit = 100
	defaultRollupDays      = 7
)

// maxConfigBytes caps how much of a tuning file we are willing to read.
// Real configs are a few hundred bytes.
const maxConfigBytes = 1 << 20

// LoadTuningConfig reads and validates a tuning file. The path must end
// in .json and the file must be under maxConfigBytes.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	path = filepath.Clean(path)
	if ext := filepath.Ext(path); ext != ".json" {
		return nil, fmt.Errorf("tuning file must be .json, got %q", ext)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat tuning file: %w", err)
	}
	if info.Size() > maxConfigBytes {
		return nil, fmt.Errorf("tuning file too large: %d bytes (max %d)", info.Size(), maxConfigBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tuning file: %w", err)
	}

	cfg := &TuningConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse tuning file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tuning value: %w", err)
	}
	return cfg, nil
}

// Validate rejects values that would misconfigure the service in ways
// the Get* fallbacks would otherwise paper over.
func (c *TuningConfig) Validate() error {
	durations := []struct {
		key string
		val *string
	}{
		{"scan_interval", c.ScanInterval},
		{"debounce_window", c.DebounceWindow},
	}
	for _, d := range durations {
		if d.val == nil || *d.val == "" {
			continue
		}
		if _, err := time.ParseDuration(*d.val); err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.key, *d.val, err)
		}
	}

	if c.MaxArchiveBytes != nil && *c.MaxArchiveBytes <= 0 {
		return fmt.Errorf("max_archive_bytes must be positive, got %d", *c.MaxArchiveBytes)
	}
	if c.DefaultSizeUnits != nil && !units.IsValidSizeUnit(*c.DefaultSizeUnits) {
		return fmt.Errorf("default_size_units must be one of %s, got %q",
			units.GetValidSizeUnitsString(), *c.DefaultSizeUnits)
	}
	if c.DefaultTemperatureUnits != nil && !units.IsValidTemperatureUnit(*c.DefaultTemperatureUnits) {
		return fmt.Errorf("default_temperature_units must be c or k, got %q", *c.DefaultTemperatureUnits)
	}
	if c.BenchBaud != nil && *c.BenchBaud <= 0 {
		return fmt.Errorf("bench_baud must be positive, got %d", *c.BenchBaud)
	}
	return nil
}

// orDefault resolves an optional field to its fallback.
func orDefault[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}

// durationOr parses an optional duration string, falling back on nil,
// empty, or unparseable input. Validate has already rejected bad values
// in configs that came through LoadTuningConfig.
func durationOr(p *string, fallback time.Duration) time.Duration {
	if p == nil || *p == "" {
		return fallback
	}
	d, err := time.ParseDuration(*p)
	if err != nil {
		return fallback
	}
	return d
}

// GetScanInterval returns how often the export watcher rescans.
func (c *TuningConfig) GetScanInterval() time.Duration {
	return durationOr(c.ScanInterval, defaultScanInterval)
}

// GetDebounceWindow returns how long a changed file must sit still
// before it is ingested.
func (c *TuningConfig) GetDebounceWindow() time.Duration {
	return durationOr(c.DebounceWindow, defaultDebounceWindow)
}

// GetMaxArchiveBytes returns the largest archive the service will parse.
func (c *TuningConfig) GetMaxArchiveBytes() int64 {
	return orDefault(c.MaxArchiveBytes, defaultMaxArchiveBytes)
}

func (c *TuningConfig) GetDefaultSizeUnits() string {
	return orDefault(c.DefaultSizeUnits, units.NM)
}

func (c *TuningConfig) GetDefaultTemperatureUnits() string {
	return orDefault(c.DefaultTemperatureUnits, units.Celsius)
}

func (c *TuningConfig) GetBenchBaud() int {
	return orDefault(c.BenchBaud, defaultBenchBaud)
}

func (c *TuningConfig) GetLiveResultLimit() int {
	return orDefault(c.LiveResultLimit, defaultLiveResultLimit)
}

func (c *TuningConfig) GetRollupDays() int {
	return orDefault(c.RollupDays, defaultRollupDays)
}
