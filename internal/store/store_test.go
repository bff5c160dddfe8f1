package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/coldchain/fridgewatch/internal/telemetry"
)

const csvHeader = "Time,ActivePower_kW,Energy_kWh,Cost_cum_BDT,Voltage_V,Voltage_Deviation_%,PowerFactor,DutyCycle_%_24H,dE_kWh\n"

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fridge.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestCSVProvider_ReadAll(t *testing.T) {
	path := writeCSV(t, csvHeader+
		"2024-03-01T10:00:00+06:00,0.12,10.0,200.0,228.5,-0.65,0.82,55.0,0.0\n"+
		"2024-03-01T10:05:00+06:00,0.15,10.1,200.4,,-0.40,0.85,56.0,0.1\n")

	readings, err := NewCSVProvider(path).ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(readings) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(readings))
	}
	if readings[0].Voltage == nil || *readings[0].Voltage != 228.5 {
		t.Errorf("expected voltage 228.5, got %v", readings[0].Voltage)
	}
	if readings[1].Voltage != nil {
		t.Error("expected missing voltage on second row")
	}
	if readings[1].EnergyDeltaKWh != 0.1 {
		t.Errorf("expected energy delta 0.1, got %v", readings[1].EnergyDeltaKWh)
	}
}

func TestCSVProvider_MissingFile(t *testing.T) {
	_, err := NewCSVProvider("/nonexistent/fridge.csv").ReadAll(context.Background())
	if !errors.Is(err, ErrDataUnavailable) {
		t.Errorf("expected ErrDataUnavailable, got %v", err)
	}
}

func TestCSVProvider_MissingColumn(t *testing.T) {
	path := writeCSV(t, "Time,ActivePower_kW\n2024-03-01T10:00:00Z,0.12\n")

	_, err := NewCSVProvider(path).ReadAll(context.Background())
	if !errors.Is(err, ErrSchema) {
		t.Errorf("expected ErrSchema, got %v", err)
	}
}

func TestCSVProvider_BadTimestamp(t *testing.T) {
	path := writeCSV(t, csvHeader+"yesterday,0.12,10.0,200.0,228.5,-0.65,0.82,55.0,0.0\n")

	_, err := NewCSVProvider(path).ReadAll(context.Background())
	if !errors.Is(err, ErrSchema) {
		t.Errorf("expected ErrSchema, got %v", err)
	}
}

type stubProvider struct {
	readings []telemetry.Reading
	err      error
	calls    int
}

func (p *stubProvider) ReadAll(ctx context.Context) ([]telemetry.Reading, error) {
	p.calls++
	return p.readings, p.err
}

func TestStore_LoadNormalizesToReferenceOffset(t *testing.T) {
	// Source carries a +06:00 offset; the reference offset is +06:00,
	// so the naive wall clock must read 10:00 and the offset be gone.
	dhaka := time.FixedZone("BST", 6*3600)
	provider := &stubProvider{readings: []telemetry.Reading{
		{Timestamp: time.Date(2024, 3, 1, 10, 0, 0, 0, dhaka)},
		{Timestamp: time.Date(2024, 3, 1, 10, 5, 0, 0, dhaka)},
	}}

	s := New(provider, dhaka)
	series, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	got := series.First().Timestamp
	want := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("expected normalized timestamp %v, got %v", want, got)
	}
	if series.Epochs[0] != want.Unix() {
		t.Errorf("expected epoch %d, got %d", want.Unix(), series.Epochs[0])
	}
}

func TestStore_LoadReplacesCurrent(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	provider := &stubProvider{readings: []telemetry.Reading{{Timestamp: base}}}
	s := New(provider, nil)

	first, err := s.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	provider.readings = []telemetry.Reading{
		{Timestamp: base},
		{Timestamp: base.Add(time.Minute)},
	}
	second, err := s.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if first.Len() != 1 {
		t.Errorf("previous series mutated: len %d", first.Len())
	}
	if second.Len() != 2 || s.Current() != second {
		t.Error("current series was not replaced")
	}
}

func TestStore_LoadEmptySourceIsUnavailable(t *testing.T) {
	s := New(&stubProvider{}, nil)
	_, err := s.Load(context.Background())
	if !errors.Is(err, ErrDataUnavailable) {
		t.Errorf("expected ErrDataUnavailable for empty source, got %v", err)
	}
}
