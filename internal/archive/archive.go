// Package archive persists published feature packets to a local SQLite
// database for offline review and the plotting tools.
package archive

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/neuromotion-data/tremor/internal/pipeline"
)

// DB wraps the feature archive database.
type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the archive at path. ":memory:" gives
// an ephemeral archive for tests.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS feature_records (
			timestamp         DOUBLE,
			sensor            TEXT,
			channel           TEXT,
			rms               DOUBLE,
			dominant_freq     DOUBLE,
			tremor_power      DOUBLE,
			tremor_index      DOUBLE,
			is_parkinsonian   INTEGER,
			device_id         TEXT,
			data_version      TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_feature_records_sensor_time
			ON feature_records(sensor, channel, timestamp);
		CREATE TABLE IF NOT EXISTS raw_latest (
			timestamp         DOUBLE,
			sensor            TEXT,
			x                 DOUBLE,
			y                 DOUBLE,
			z                 DOUBLE
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create archive schema: %w", err)
	}

	return &DB{db}, nil
}

// RecordPacket stores every channel record and raw reading of a packet
// in one transaction. Key-metrics-only packets store their reduced
// magnitude record under the "magnitude" channel.
func (db *DB) RecordPacket(p *pipeline.DataPacket) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	insert, err := tx.Prepare(`
		INSERT INTO feature_records
			(timestamp, sensor, channel, rms, dominant_freq, tremor_power, tremor_index, is_parkinsonian, device_id, data_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insert.Close()

	for sensor, feat := range p.Features {
		for _, ch := range []struct {
			name string
			rms, dominantFreq, tremorPower, tremorIndex float64
			parkinsonian bool
		}{
			{"x", feat.X.RMS, feat.X.DominantFreq, feat.X.TremorPower, feat.X.TremorIndex, feat.X.IsParkinsonian},
			{"y", feat.Y.RMS, feat.Y.DominantFreq, feat.Y.TremorPower, feat.Y.TremorIndex, feat.Y.IsParkinsonian},
			{"z", feat.Z.RMS, feat.Z.DominantFreq, feat.Z.TremorPower, feat.Z.TremorIndex, feat.Z.IsParkinsonian},
			{"magnitude", feat.Magnitude.RMS, feat.Magnitude.DominantFreq, feat.Magnitude.TremorPower, feat.Magnitude.TremorIndex, feat.Magnitude.IsParkinsonian},
		} {
			if _, err := insert.Exec(p.Timestamp, sensor, ch.name, ch.rms, ch.dominantFreq, ch.tremorPower, ch.tremorIndex, ch.parkinsonian, p.DeviceID, p.DataVersion); err != nil {
				return fmt.Errorf("record %s/%s: %w", sensor, ch.name, err)
			}
		}
	}

	for sensor, km := range p.KeyMetrics {
		if _, err := insert.Exec(p.Timestamp, sensor, "magnitude", km.RMS, 0.0, 0.0, km.TremorIndex, km.IsParkinsonian, p.DeviceID, p.DataVersion); err != nil {
			return fmt.Errorf("record %s key metrics: %w", sensor, err)
		}
	}

	for sensor, raw := range p.RawLatest {
		if _, err := tx.Exec(`INSERT INTO raw_latest (timestamp, sensor, x, y, z) VALUES (?, ?, ?, ?, ?)`,
			p.Timestamp, sensor, raw.X, raw.Y, raw.Z); err != nil {
			return fmt.Errorf("record %s raw sample: %w", sensor, err)
		}
	}

	return tx.Commit()
}

// Point is one archived observation of a sensor channel.
type Point struct {
	Timestamp      float64
	RMS            float64
	TremorIndex    float64
	TremorPower    float64
	DominantFreq   float64
	IsParkinsonian bool
}

// FeatureSeries returns the channel's archived records at or after
// since (seconds since epoch), in time order.
func (db *DB) FeatureSeries(sensor, channel string, since float64) ([]Point, error) {
	rows, err := db.Query(`
		SELECT timestamp, rms, tremor_index, tremor_power, dominant_freq, is_parkinsonian
		FROM feature_records
		WHERE sensor = ? AND channel = ? AND timestamp >= ?
		ORDER BY timestamp`,
		sensor, channel, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []Point
	for rows.Next() {
		var p Point
		if err := rows.Scan(&p.Timestamp, &p.RMS, &p.TremorIndex, &p.TremorPower, &p.DominantFreq, &p.IsParkinsonian); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Sensors returns the distinct sensor names present in the archive.
func (db *DB) Sensors() ([]string, error) {
	rows, err := db.Query(`SELECT DISTINCT sensor FROM feature_records ORDER BY sensor`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
