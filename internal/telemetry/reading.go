package telemetry

import (
	"sort"
	"time"
)

// Reading is a single telemetry sample from the fridge monitor.
// Energy and cost counters are cumulative and never decrease; every
// other field is a point measurement taken at Timestamp.
type Reading struct {
	Timestamp      time.Time `json:"timestamp"`
	ActivePowerKW  float64   `json:"active_power"`
	EnergyKWh      float64   `json:"energy_cumulative"`
	CostCum        float64   `json:"cost_cumulative"`
	Voltage        *float64  `json:"voltage"`
	VoltageDevPct  float64   `json:"voltage_deviation_pct"`
	PowerFactor    float64   `json:"power_factor"`
	DutyCyclePct   float64   `json:"duty_cycle_pct"`
	EnergyDeltaKWh float64   `json:"energy_delta"`
}

// Series is an immutable, timestamp-ascending run of readings together
// with a per-reading epoch-seconds value used for numeric range work.
// A Series is built once per load and replaced wholesale on the next
// load; sub-windows share its backing arrays and must not be mutated.
type Series struct {
	Readings []Reading
	Epochs   []int64
}

// NewSeries builds a Series from readings, sorting them by timestamp if
// the source delivered them out of order and deriving the epoch axis.
func NewSeries(readings []Reading) *Series {
	if !sort.SliceIsSorted(readings, func(i, j int) bool {
		return readings[i].Timestamp.Before(readings[j].Timestamp)
	}) {
		sort.SliceStable(readings, func(i, j int) bool {
			return readings[i].Timestamp.Before(readings[j].Timestamp)
		})
	}

	epochs := make([]int64, len(readings))
	for i := range readings {
		epochs[i] = readings[i].Timestamp.Unix()
	}

	return &Series{Readings: readings, Epochs: epochs}
}

// Len returns the number of readings in the series.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Readings)
}

// Bounds returns the window covering the whole series. For an empty
// series the zero window is returned.
func (s *Series) Bounds() Window {
	if s.Len() == 0 {
		return Window{}
	}
	return Window{Start: s.Epochs[0], End: s.Epochs[len(s.Epochs)-1]}
}

// First returns the oldest reading in the series.
func (s *Series) First() Reading { return s.Readings[0] }

// Last returns the newest reading in the series.
func (s *Series) Last() Reading { return s.Readings[len(s.Readings)-1] }

// Window is a closed interval [Start, End] on the epoch-seconds axis.
type Window struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Valid reports whether the window does not cross itself.
func (w Window) Valid() bool { return w.Start <= w.End }

// IsZero reports whether the window is unset.
func (w Window) IsZero() bool { return w.Start == 0 && w.End == 0 }

// Clamp constrains the window to the given bounds. A window entirely
// outside the bounds collapses onto the nearer bound.
func (w Window) Clamp(bounds Window) Window {
	if w.Start < bounds.Start {
		w.Start = bounds.Start
	}
	if w.Start > bounds.End {
		w.Start = bounds.End
	}
	if w.End > bounds.End {
		w.End = bounds.End
	}
	if w.End < w.Start {
		w.End = w.Start
	}
	return w
}

// Window returns the maximal contiguous sub-series whose timestamps lie
// in [w.Start, w.End], order preserved. The result shares backing
// arrays with s; one call per cycle feeds every downstream computation.
// Lookup is a binary search on the sorted epoch axis.
func (s *Series) Window(w Window) *Series {
	if s.Len() == 0 || !w.Valid() {
		return &Series{}
	}

	lo := sort.Search(len(s.Epochs), func(i int) bool { return s.Epochs[i] >= w.Start })
	hi := sort.Search(len(s.Epochs), func(i int) bool { return s.Epochs[i] > w.End })
	if lo >= hi {
		return &Series{}
	}

	return &Series{Readings: s.Readings[lo:hi], Epochs: s.Epochs[lo:hi]}
}
