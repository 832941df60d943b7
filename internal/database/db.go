package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/jgoulah/gridcarbon/pkg/models"
)

const timeLayout = "2006-01-02 15:04:05"

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// StoredReading is one interval as aligned in a stats run
type StoredReading struct {
	MeterID        string
	Start          time.Time
	End            time.Time
	KWh            decimal.Decimal
	ForecastGCO2   float64
	ActualGCO2     float64
	IntensityIndex string
}

// StoredStats is a persisted stats run
type StoredStats struct {
	models.AggregateStats
	Published bool
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS interval_readings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		meter_id TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT,
		kwh TEXT NOT NULL,
		forecast_gco2 REAL,
		actual_gco2 REAL,
		intensity_index TEXT,
		UNIQUE(meter_id, start_time)
	);
	CREATE INDEX IF NOT EXISTS idx_readings_meter ON interval_readings(meter_id);
	CREATE INDEX IF NOT EXISTS idx_readings_start_time ON interval_readings(start_time);

	CREATE TABLE IF NOT EXISTS stats_runs (
		id TEXT PRIMARY KEY,
		meter_id TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		intervals INTEGER NOT NULL,
		total_kwh REAL NOT NULL,
		total_co2_kg REAL NOT NULL,
		fuel_mix TEXT NOT NULL,
		created_at TEXT NOT NULL,
		published INTEGER DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_stats_meter ON stats_runs(meter_id);
	CREATE INDEX IF NOT EXISTS idx_stats_published ON stats_runs(published);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// InsertReadings stores aligned consumption and intensity readings in one transaction.
// Both slices must be the same length; intervals already stored are replaced.
func (db *DB) InsertReadings(energy []models.IntervalReading, intensity []models.CarbonIntensityReading) error {
	if len(energy) != len(intensity) {
		return fmt.Errorf("inserting readings: %d consumption vs %d intensity readings", len(energy), len(intensity))
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
	INSERT OR REPLACE INTO interval_readings
		(meter_id, start_time, end_time, kwh, forecast_gco2, actual_gco2, intensity_index)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range energy {
		ci := intensity[i]
		var endStr string
		if !r.End.IsZero() {
			endStr = r.End.UTC().Format(timeLayout)
		}
		if _, err := stmt.Exec(r.MeterID, r.Start.UTC().Format(timeLayout), endStr,
			r.ConsumptionKWh.String(), ci.ForecastGCO2, ci.ActualGCO2, ci.Index); err != nil {
			return fmt.Errorf("inserting reading: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing readings: %w", err)
	}
	return nil
}

// ListReadings retrieves all stored readings for a meter, ordered by start time
func (db *DB) ListReadings(meterID string) ([]StoredReading, error) {
	query := `
	SELECT meter_id, start_time, end_time, kwh, forecast_gco2, actual_gco2, intensity_index
	FROM interval_readings
	WHERE meter_id = ?
	ORDER BY start_time ASC
	`

	rows, err := db.conn.Query(query, meterID)
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close()

	var results []StoredReading
	for rows.Next() {
		var r StoredReading
		var startStr, kwhStr string
		var endStr, index sql.NullString
		var forecast, actual sql.NullFloat64

		if err := rows.Scan(&r.MeterID, &startStr, &endStr, &kwhStr, &forecast, &actual, &index); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		r.Start, err = time.Parse(timeLayout, startStr)
		if err != nil {
			return nil, fmt.Errorf("parsing start_time: %w", err)
		}
		if endStr.Valid && endStr.String != "" {
			r.End, err = time.Parse(timeLayout, endStr.String)
			if err != nil {
				return nil, fmt.Errorf("parsing end_time: %w", err)
			}
		}
		r.KWh, err = decimal.NewFromString(kwhStr)
		if err != nil {
			return nil, fmt.Errorf("parsing kwh: %w", err)
		}
		r.ForecastGCO2 = forecast.Float64
		r.ActualGCO2 = actual.Float64
		r.IntensityIndex = index.String

		results = append(results, r)
	}

	return results, rows.Err()
}

// InsertStats stores a stats run
func (db *DB) InsertStats(s *models.AggregateStats) error {
	query := `
	INSERT INTO stats_runs (id, meter_id, start_time, end_time, intervals, total_kwh, total_co2_kg, fuel_mix, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	mix, err := json.Marshal(s.AverageFuelMix)
	if err != nil {
		return fmt.Errorf("encoding fuel mix: %w", err)
	}

	_, err = db.conn.Exec(query, s.ID, s.MeterID,
		s.Start.UTC().Format(timeLayout), s.End.UTC().Format(timeLayout),
		s.Intervals, s.TotalConsumptionKWh, s.TotalCO2Kg, string(mix),
		s.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting stats run: %w", err)
	}

	return nil
}

const statsColumns = `id, meter_id, start_time, end_time, intervals, total_kwh, total_co2_kg, fuel_mix, created_at, published`

// GetStats retrieves a stats run by ID, nil if it does not exist
func (db *DB) GetStats(id string) (*StoredStats, error) {
	row := db.conn.QueryRow(`SELECT `+statsColumns+` FROM stats_runs WHERE id = ?`, id)

	s, err := scanStats(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying stats run: %w", err)
	}
	return s, nil
}

// ListStats retrieves stats runs, newest first. An empty meterID lists every meter.
func (db *DB) ListStats(meterID string) ([]StoredStats, error) {
	query := `SELECT ` + statsColumns + ` FROM stats_runs`
	var args []interface{}
	if meterID != "" {
		query += ` WHERE meter_id = ?`
		args = append(args, meterID)
	}
	query += ` ORDER BY created_at DESC`

	return db.queryStats(query, args...)
}

// ListUnpublishedStats retrieves runs not yet published, oldest first
func (db *DB) ListUnpublishedStats() ([]StoredStats, error) {
	return db.queryStats(`SELECT ` + statsColumns + ` FROM stats_runs WHERE published = 0 ORDER BY created_at ASC`)
}

// MarkPublished marks a stats run as published
func (db *DB) MarkPublished(id string) error {
	query := `UPDATE stats_runs SET published = 1 WHERE id = ?`
	_, err := db.conn.Exec(query, id)
	if err != nil {
		return fmt.Errorf("marking run as published: %w", err)
	}
	return nil
}

func (db *DB) queryStats(query string, args ...interface{}) ([]StoredStats, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying stats runs: %w", err)
	}
	defer rows.Close()

	var results []StoredStats
	for rows.Next() {
		s, err := scanStats(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		results = append(results, *s)
	}

	return results, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanStats(row scanner) (*StoredStats, error) {
	var s StoredStats
	var startStr, endStr, mixStr, createdStr string
	var published int

	if err := row.Scan(&s.ID, &s.MeterID, &startStr, &endStr, &s.Intervals,
		&s.TotalConsumptionKWh, &s.TotalCO2Kg, &mixStr, &createdStr, &published); err != nil {
		return nil, err
	}

	var err error
	if s.Start, err = time.Parse(timeLayout, startStr); err != nil {
		return nil, fmt.Errorf("parsing start_time: %w", err)
	}
	if s.End, err = time.Parse(timeLayout, endStr); err != nil {
		return nil, fmt.Errorf("parsing end_time: %w", err)
	}
	if s.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if err := json.Unmarshal([]byte(mixStr), &s.AverageFuelMix); err != nil {
		return nil, fmt.Errorf("decoding fuel mix: %w", err)
	}
	s.Published = published != 0

	return &s, nil
}
