package metrics

import (
	"encoding/json"
	"math"

	"github.com/coldchain/fridgewatch/internal/telemetry"
)

// KPISet holds the four headline scalars for the selected window.
// When the window holds no rows, Defined is false and every value is
// NaN; consumers surface this as "insufficient data", never as zero.
type KPISet struct {
	NetEnergyKWh float64
	NetCost      float64
	MeanVoltage  float64
	DutyCyclePct float64
	Defined      bool
}

// kpiWire is the JSON shape: the NaN sentinel travels as null.
type kpiWire struct {
	NetEnergyKWh *float64 `json:"net_energy_kwh"`
	NetCost      *float64 `json:"net_cost"`
	MeanVoltage  *float64 `json:"mean_voltage"`
	DutyCyclePct *float64 `json:"duty_cycle_pct"`
	Defined      bool     `json:"defined"`
}

func toWireValue(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func fromWireValue(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

// MarshalJSON implements json.Marshaler.
func (k KPISet) MarshalJSON() ([]byte, error) {
	return json.Marshal(kpiWire{
		NetEnergyKWh: toWireValue(k.NetEnergyKWh),
		NetCost:      toWireValue(k.NetCost),
		MeanVoltage:  toWireValue(k.MeanVoltage),
		DutyCyclePct: toWireValue(k.DutyCyclePct),
		Defined:      k.Defined,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (k *KPISet) UnmarshalJSON(data []byte) error {
	var w kpiWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	k.NetEnergyKWh = fromWireValue(w.NetEnergyKWh)
	k.NetCost = fromWireValue(w.NetCost)
	k.MeanVoltage = fromWireValue(w.MeanVoltage)
	k.DutyCyclePct = fromWireValue(w.DutyCyclePct)
	k.Defined = w.Defined
	return nil
}

// Undefined returns the sentinel KPISet for an empty window.
func Undefined() KPISet {
	nan := math.NaN()
	return KPISet{NetEnergyKWh: nan, NetCost: nan, MeanVoltage: nan, DutyCyclePct: nan}
}

// Aggregate computes the KPISet over an already-filtered window.
//
// Net energy and net cost are last-minus-first on the cumulative
// counters, so they are correct whether or not the per-row deltas were
// re-derived upstream. Mean voltage skips rows with no voltage sample.
// Duty cycle is the newest row's rolling value, not recomputed here.
func Aggregate(filtered *telemetry.Series) KPISet {
	if filtered.Len() == 0 {
		return Undefined()
	}

	first, last := filtered.First(), filtered.Last()

	voltSum := 0.0
	voltCount := 0
	for _, r := range filtered.Readings {
		if r.Voltage != nil {
			voltSum += *r.Voltage
			voltCount++
		}
	}
	meanVolt := math.NaN()
	if voltCount > 0 {
		meanVolt = voltSum / float64(voltCount)
	}

	return KPISet{
		NetEnergyKWh: last.EnergyKWh - first.EnergyKWh,
		NetCost:      last.CostCum - first.CostCum,
		MeanVoltage:  meanVolt,
		DutyCyclePct: last.DutyCyclePct,
		Defined:      true,
	}
}
