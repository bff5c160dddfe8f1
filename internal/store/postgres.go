package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/lib/pq"

	"github.com/coldchain/fridgewatch/internal/telemetry"
)

// DB wraps the Postgres connection holding the readings table.
type DB struct {
	*sql.DB
}

// Connect opens and verifies a connection to the database.
func Connect(connectionString string) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return &DB{db}, nil
}

// RunMigrations executes all SQL migration files in order.
func (db *DB) RunMigrations(migrationsDir string) error {
	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var sqlFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".sql") {
			sqlFiles = append(sqlFiles, file.Name())
		}
	}
	sort.Strings(sqlFiles)

	for _, filename := range sqlFiles {
		fmt.Printf("Running migration: %s\n", filename)

		content, err := os.ReadFile(filepath.Join(migrationsDir, filename))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}
	}

	return nil
}

// InsertReading stores one telemetry sample. Used by the ingest feed;
// the dashboard side only ever reads.
func (db *DB) InsertReading(r *telemetry.Reading) error {
	query := `
		INSERT INTO readings (
			ts, active_power_kw, energy_kwh, cost_cum, voltage_v,
			voltage_dev_pct, power_factor, duty_cycle_pct, energy_delta_kwh
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (ts) DO NOTHING
	`
	_, err := db.Exec(query,
		r.Timestamp,
		r.ActivePowerKW,
		r.EnergyKWh,
		r.CostCum,
		r.Voltage,
		r.VoltageDevPct,
		r.PowerFactor,
		r.DutyCyclePct,
		r.EnergyDeltaKWh,
	)
	return err
}

// PostgresProvider reads the full series from the readings table.
type PostgresProvider struct {
	db *DB
}

// NewPostgresProvider creates a provider over an open connection.
func NewPostgresProvider(db *DB) *PostgresProvider {
	return &PostgresProvider{db: db}
}

// ReadAll fetches every reading in timestamp order. Query failures map
// to ErrDataUnavailable, scan failures to ErrSchema.
func (p *PostgresProvider) ReadAll(ctx context.Context) ([]telemetry.Reading, error) {
	query := `
		SELECT ts, active_power_kw, energy_kwh, cost_cum, voltage_v,
		       voltage_dev_pct, power_factor, duty_cycle_pct, energy_delta_kwh
		FROM readings
		ORDER BY ts
	`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: querying readings: %v", ErrDataUnavailable, err)
	}
	defer rows.Close()

	var readings []telemetry.Reading
	for rows.Next() {
		var r telemetry.Reading
		var voltage sql.NullFloat64
		if err := rows.Scan(
			&r.Timestamp,
			&r.ActivePowerKW,
			&r.EnergyKWh,
			&r.CostCum,
			&voltage,
			&r.VoltageDevPct,
			&r.PowerFactor,
			&r.DutyCyclePct,
			&r.EnergyDeltaKWh,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning reading: %v", ErrSchema, err)
		}
		if voltage.Valid {
			v := voltage.Float64
			r.Voltage = &v
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating readings: %v", ErrDataUnavailable, err)
	}

	return readings, nil
}
