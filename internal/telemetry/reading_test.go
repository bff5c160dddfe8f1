package telemetry

import (
	"testing"
	"time"
)

func makeSeries(n int, start time.Time, step time.Duration) *Series {
	readings := make([]Reading, n)
	for i := 0; i < n; i++ {
		readings[i] = Reading{
			Timestamp: start.Add(time.Duration(i) * step),
			EnergyKWh: float64(i),
		}
	}
	return NewSeries(readings)
}

func TestNewSeries_SortsUnorderedInput(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	readings := []Reading{
		{Timestamp: base.Add(2 * time.Minute)},
		{Timestamp: base},
		{Timestamp: base.Add(1 * time.Minute)},
	}

	s := NewSeries(readings)

	for i := 1; i < s.Len(); i++ {
		if s.Readings[i].Timestamp.Before(s.Readings[i-1].Timestamp) {
			t.Fatalf("series not sorted at index %d", i)
		}
	}
	if s.Epochs[0] != base.Unix() {
		t.Errorf("expected first epoch %d, got %d", base.Unix(), s.Epochs[0])
	}
}

func TestWindow_FullBoundsReturnsEntireSeries(t *testing.T) {
	s := makeSeries(100, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Minute)

	got := s.Window(s.Bounds())
	if got.Len() != 100 {
		t.Errorf("expected 100 rows for full bounds, got %d", got.Len())
	}
}

func TestWindow_InclusiveAndOrderPreserving(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	s := makeSeries(10, base, time.Minute)

	w := Window{Start: base.Add(2 * time.Minute).Unix(), End: base.Add(5 * time.Minute).Unix()}
	got := s.Window(w)

	if got.Len() != 4 {
		t.Fatalf("expected 4 rows (inclusive bounds), got %d", got.Len())
	}
	for i, r := range got.Readings {
		epoch := r.Timestamp.Unix()
		if epoch < w.Start || epoch > w.End {
			t.Errorf("row %d outside window: %d", i, epoch)
		}
		if i > 0 && r.Timestamp.Before(got.Readings[i-1].Timestamp) {
			t.Errorf("order not preserved at %d", i)
		}
	}
}

func TestWindow_SingleInstantMatchesOneRow(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	s := makeSeries(10, base, time.Minute)

	at := base.Add(3 * time.Minute).Unix()
	got := s.Window(Window{Start: at, End: at})

	if got.Len() != 1 {
		t.Fatalf("expected exactly 1 row, got %d", got.Len())
	}
	if got.First().Timestamp.Unix() != at {
		t.Errorf("wrong row selected: %d", got.First().Timestamp.Unix())
	}
}

func TestWindow_EmptyResult(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	s := makeSeries(10, base, time.Minute)

	got := s.Window(Window{Start: base.Add(time.Hour).Unix(), End: base.Add(2 * time.Hour).Unix()})
	if got.Len() != 0 {
		t.Errorf("expected empty result, got %d rows", got.Len())
	}

	// Crossed window is rejected, not reordered.
	got = s.Window(Window{Start: base.Add(5 * time.Minute).Unix(), End: base.Unix()})
	if got.Len() != 0 {
		t.Errorf("expected empty result for crossed window, got %d rows", got.Len())
	}
}

func TestWindow_IdempotentRefilter(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	s := makeSeries(50, base, time.Minute)

	w := Window{Start: base.Add(10 * time.Minute).Unix(), End: base.Add(20 * time.Minute).Unix()}
	once := s.Window(w)
	twice := once.Window(w)

	if once.Len() != twice.Len() {
		t.Errorf("re-filtering with the identical window changed the result: %d vs %d", once.Len(), twice.Len())
	}
}

func TestClamp(t *testing.T) {
	bounds := Window{Start: 100, End: 200}

	tests := []struct {
		name string
		in   Window
		want Window
	}{
		{"inside", Window{120, 180}, Window{120, 180}},
		{"start below", Window{50, 180}, Window{100, 180}},
		{"end above", Window{120, 500}, Window{120, 200}},
		{"entirely before", Window{10, 50}, Window{100, 100}},
		{"entirely after", Window{300, 400}, Window{200, 200}},
	}

	for _, tt := range tests {
		if got := tt.in.Clamp(bounds); got != tt.want {
			t.Errorf("%s: Clamp(%v) = %v, want %v", tt.name, tt.in, got, tt.want)
		}
	}
}
