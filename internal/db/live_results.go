package db

import (
	"fmt"
	"time"
)

// LiveResult is one summary line streamed by the bench instrument.
type LiveResult struct {
	ID            int64     `json:"id"`
	Sample        string    `json:"sample"`
	ZAverageNm    float64   `json:"zAverageNm"`
	PDI           float64   `json:"polydispersityIndex"`
	CountRateKcps float64   `json:"meanCountRateKcps"`
	TemperatureC  float64   `json:"temperatureC"`
	ReceivedAt    time.Time `json:"receivedAt"`
}

func (r *LiveResult) String() string {
	return fmt.Sprintf(
		"Sample: %s, ZAverage: %.2f nm, PDI: %.4f, CountRate: %.1f kcps, Temp: %.1f C",
		r.Sample, r.ZAverageNm, r.PDI, r.CountRateKcps, r.TemperatureC,
	)
}

// RecordLiveResult stores one streamed result line.
func (db *DB) RecordLiveResult(sample string, zAverageNm, pdi, countRateKcps, temperatureC float64) error {
	_, err := db.Exec(
		`INSERT INTO live_results (sample, z_average_nm, polydispersity_index, mean_count_rate_kcps, temperature_c)
		 VALUES (?, ?, ?, ?, ?)`,
		sample, zAverageNm, pdi, countRateKcps, temperatureC,
	)
	if err != nil {
		return err
	}
	return nil
}

// LiveResults returns the most recent streamed results, newest first.
func (db *DB) LiveResults(limit int) ([]LiveResult, error) {
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	rows, err := db.Query(
		`SELECT id, sample, z_average_nm, polydispersity_index, mean_count_rate_kcps, temperature_c, received_at
		 FROM live_results ORDER BY received_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []LiveResult
	for rows.Next() {
		var r LiveResult
		if err := rows.Scan(&r.ID, &r.Sample, &r.ZAverageNm, &r.PDI, &r.CountRateKcps, &r.TemperatureC, &r.ReceivedAt); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// ZAverageDay is one day of the live Z-average rollup.
type ZAverageDay struct {
	Day     string  `json:"day"`
	Count   int64   `json:"count"`
	Average float64 `json:"average"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// ZAverageRollup aggregates live Z-average readings per day over the
// last N days.
func (db *DB) ZAverageRollup(days int) ([]ZAverageDay, error) {
	if days <= 0 {
		days = 7
	}
	rows, err := db.Query(
		`SELECT date(received_at) AS day,
		        COUNT(*),
		        AVG(z_average_nm),
		        MIN(z_average_nm),
		        MAX(z_average_nm)
		 FROM live_results
		 WHERE received_at >= datetime('now', ?)
		 GROUP BY day
		 ORDER BY day`,
		fmt.Sprintf("-%d days", days))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rollup []ZAverageDay
	for rows.Next() {
		var d ZAverageDay
		if err := rows.Scan(&d.Day, &d.Count, &d.Average, &d.Min, &d.Max); err != nil {
			return nil, err
		}
		rollup = append(rollup, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rollup, nil
}
