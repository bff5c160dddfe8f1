package view

import (
	"fmt"
	"time"

	"github.com/coldchain/fridgewatch/internal/telemetry"
)

// ID selects one of the three analytic views.
type ID string

const (
	ViewPower   ID = "power"
	ViewQuality ID = "quality"
	ViewCost    ID = "cost"
)

// ErrUnknownView is returned when the selector names no known view.
var ErrUnknownView = fmt.Errorf("unknown view")

// ParseID validates a view selector.
func ParseID(s string) (ID, error) {
	switch ID(s) {
	case ViewPower, ViewQuality, ViewCost:
		return ID(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownView, s)
}

// Options are the display-policy knobs for composition. They come from
// configuration, not code: PFFair/PFGood default to 0.7/0.9 (a mean
// power factor below PFFair is "poor", below PFGood "fair", otherwise
// "good"), HistogramBins to 40, GaugeHeadroom to 1.2 and GaugeFloor to
// 50 so a zero-cost window still renders a sensible gauge axis.
type Options struct {
	HistogramBins int
	PFFair        float64
	PFGood        float64
	GaugeHeadroom float64
	GaugeFloor    float64
}

// DefaultOptions mirror the documented defaults above.
func DefaultOptions() Options {
	return Options{HistogramBins: 40, PFFair: 0.7, PFGood: 0.9, GaugeHeadroom: 1.2, GaugeFloor: 50}
}

// Point is one chart sample.
type Point struct {
	T time.Time `json:"t"`
	V float64   `json:"v"`
}

// ChartSeries is a render-ready series with styling hints. Shape is a
// line-interpolation hint ("spline" or "hv" for steps); AreaFill asks
// for a filled area under the line. Rendering itself happens elsewhere.
type ChartSeries struct {
	Name     string  `json:"name"`
	Shape    string  `json:"shape"`
	AreaFill bool    `json:"area_fill"`
	Points   []Point `json:"points"`
}

// Histogram is a fixed-bin distribution spanning [Min, Max].
type Histogram struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Width  float64 `json:"width"`
	Counts []int   `json:"counts"`
}

// PowerPayload carries the two power-tab series: instantaneous active
// power and energy accumulated since the start of the current window.
type PowerPayload struct {
	ActivePower      ChartSeries `json:"active_power"`
	EnergySinceStart ChartSeries `json:"energy_since_start"`
}

// QualityPayload carries the mean-PF gauge and the voltage-deviation
// distribution.
type QualityPayload struct {
	MeanPowerFactor float64   `json:"mean_power_factor"`
	Band            string    `json:"band"`
	VoltageDevHist  Histogram `json:"voltage_dev_hist"`
}

// CostPayload carries the in-window cost gauge and the hour-of-day
// energy distribution (24 buckets, summed across all days in window).
type CostPayload struct {
	NetCost      float64     `json:"net_cost"`
	GaugeMax     float64     `json:"gauge_max"`
	HourlyEnergy [24]float64 `json:"hourly_energy"`
}

// Payload is the tagged per-view output of one composition. Exactly one
// of the three branch pointers is set unless Empty is true, in which
// case the payload is the explicit degenerate result for an empty
// window and all branches are nil.
type Payload struct {
	View    ID              `json:"view"`
	Empty   bool            `json:"empty"`
	Power   *PowerPayload   `json:"power,omitempty"`
	Quality *QualityPayload `json:"quality,omitempty"`
	Cost    *CostPayload    `json:"cost,omitempty"`
}

// Compose derives the chart-ready payload for one view over an
// already-filtered window. It is pure: identical inputs always produce
// identical payloads, and it never mutates the series.
func Compose(filtered *telemetry.Series, id ID, opts Options) (Payload, error) {
	switch id {
	case ViewPower, ViewQuality, ViewCost:
	default:
		return Payload{}, fmt.Errorf("%w: %q", ErrUnknownView, string(id))
	}

	if filtered.Len() == 0 {
		return Payload{View: id, Empty: true}, nil
	}

	switch id {
	case ViewPower:
		return Payload{View: id, Power: composePower(filtered)}, nil
	case ViewQuality:
		return Payload{View: id, Quality: composeQuality(filtered, opts)}, nil
	default:
		return Payload{View: id, Cost: composeCost(filtered, opts)}, nil
	}
}

func composePower(filtered *telemetry.Series) *PowerPayload {
	power := make([]Point, filtered.Len())
	energy := make([]Point, filtered.Len())
	base := filtered.First().EnergyKWh

	for i, r := range filtered.Readings {
		power[i] = Point{T: r.Timestamp, V: r.ActivePowerKW}
		// Re-based to zero at window start.
		energy[i] = Point{T: r.Timestamp, V: r.EnergyKWh - base}
	}

	return &PowerPayload{
		ActivePower:      ChartSeries{Name: "Active Power (kW)", Shape: "spline", AreaFill: true, Points: power},
		EnergySinceStart: ChartSeries{Name: "Accumulated Energy (kWh)", Shape: "hv", Points: energy},
	}
}

func composeQuality(filtered *telemetry.Series, opts Options) *QualityPayload {
	pfSum := 0.0
	for _, r := range filtered.Readings {
		pfSum += r.PowerFactor
	}
	meanPF := pfSum / float64(filtered.Len())

	band := "poor"
	switch {
	case meanPF >= opts.PFGood:
		band = "good"
	case meanPF >= opts.PFFair:
		band = "fair"
	}

	return &QualityPayload{
		MeanPowerFactor: meanPF,
		Band:            band,
		VoltageDevHist:  histogram(filtered, opts.HistogramBins),
	}
}

func histogram(filtered *telemetry.Series, bins int) Histogram {
	if bins < 1 {
		bins = 1
	}

	min, max := filtered.First().VoltageDevPct, filtered.First().VoltageDevPct
	for _, r := range filtered.Readings {
		if r.VoltageDevPct < min {
			min = r.VoltageDevPct
		}
		if r.VoltageDevPct > max {
			max = r.VoltageDevPct
		}
	}

	h := Histogram{Min: min, Max: max, Counts: make([]int, bins)}
	h.Width = (max - min) / float64(bins)
	if h.Width == 0 {
		// All values identical: one degenerate bin takes everything.
		h.Counts[0] = filtered.Len()
		return h
	}

	for _, r := range filtered.Readings {
		idx := int((r.VoltageDevPct - min) / h.Width)
		if idx >= bins {
			idx = bins - 1 // max value lands in the top bin
		}
		h.Counts[idx]++
	}
	return h
}

func composeCost(filtered *telemetry.Series, opts Options) *CostPayload {
	netCost := filtered.Last().CostCum - filtered.First().CostCum

	gaugeMax := netCost * opts.GaugeHeadroom
	if gaugeMax < opts.GaugeFloor {
		gaugeMax = opts.GaugeFloor
	}

	p := &CostPayload{NetCost: netCost, GaugeMax: gaugeMax}
	for _, r := range filtered.Readings {
		p.HourlyEnergy[r.Timestamp.Hour()] += r.EnergyDeltaKWh
	}
	return p
}
