package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/coldchain/fridgewatch/internal/telemetry"
)

// Column names as written by the enrichment pipeline.
var csvColumns = []string{
	"Time",
	"ActivePower_kW",
	"Energy_kWh",
	"Cost_cum_BDT",
	"Voltage_V",
	"Voltage_Deviation_%",
	"PowerFactor",
	"DutyCycle_%_24H",
	"dE_kWh",
}

// Timestamp layouts accepted in the Time column.
var csvTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// CSVProvider reads the full telemetry series from an enriched CSV
// export. Each ReadAll call re-reads the whole file.
type CSVProvider struct {
	path string
}

// NewCSVProvider creates a provider over the given file path.
func NewCSVProvider(path string) *CSVProvider {
	return &CSVProvider{path: path}
}

// ReadAll parses every row of the file. Open/read failures map to
// ErrDataUnavailable, missing columns and unparsable values to
// ErrSchema.
func (p *CSVProvider) ReadAll(ctx context.Context) ([]telemetry.Reading, error) {
	f, err := os.Open(p.path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrDataUnavailable, p.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrDataUnavailable, err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	for _, name := range csvColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrSchema, name)
		}
	}

	var readings []telemetry.Reading
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
		}

		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrDataUnavailable, line, err)
		}

		reading, err := parseRecord(record, cols, line)
		if err != nil {
			return nil, err
		}
		readings = append(readings, reading)
	}

	return readings, nil
}

func parseRecord(record []string, cols map[string]int, line int) (telemetry.Reading, error) {
	ts, err := parseTime(record[cols["Time"]])
	if err != nil {
		return telemetry.Reading{}, fmt.Errorf("%w: line %d: %v", ErrSchema, line, err)
	}

	fields := map[string]float64{}
	for _, name := range csvColumns[1:] {
		raw := record[cols[name]]
		if name == "Voltage_V" && raw == "" {
			continue // voltage may be missing; KPIs skip such rows
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return telemetry.Reading{}, fmt.Errorf("%w: line %d: column %q: %v", ErrSchema, line, name, err)
		}
		fields[name] = v
	}

	reading := telemetry.Reading{
		Timestamp:      ts,
		ActivePowerKW:  fields["ActivePower_kW"],
		EnergyKWh:      fields["Energy_kWh"],
		CostCum:        fields["Cost_cum_BDT"],
		VoltageDevPct:  fields["Voltage_Deviation_%"],
		PowerFactor:    fields["PowerFactor"],
		DutyCyclePct:   fields["DutyCycle_%_24H"],
		EnergyDeltaKWh: fields["dE_kWh"],
	}
	if v, ok := fields["Voltage_V"]; ok {
		reading.Voltage = &v
	}
	return reading, nil
}

func parseTime(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range csvTimeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q: %v", s, lastErr)
}
