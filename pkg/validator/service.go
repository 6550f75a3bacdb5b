// Validator rejects meter readings whose cumulative counters cannot be trusted.
// It is pure; callers decide how to report rejects.
package validator

import (
	"fmt"
	"math"

	"github.com/NotCoffee418/energy_flow_dashboard/pkg/types"
)

// Validate returns the normalised reading, or an error wrapping one of the
// Err*Counter sentinels when a cumulative counter is unusable.
func Validate(reading types.MeterReading) (types.ValidReading, error) {
	counters := []struct {
		name  string
		value types.Measurement
	}{
		{"grid_energy_total_wh", reading.GridEnergyTotalWh},
		{"grid_energy_returned_wh", reading.GridEnergyReturnedWh},
		{"pv_energy_total_wh", reading.PVEnergyTotalWh},
	}
	for _, c := range counters {
		if err := checkCounter(c.value); err != nil {
			return types.ValidReading{}, fmt.Errorf("%w: %s", err, c.name)
		}
	}

	return types.ValidReading{
		Timestamp:            reading.Timestamp,
		GridPowerW:           finiteOrZero(reading.GridPowerW),
		PVPowerW:             finiteOrZero(reading.PVPowerW),
		GridEnergyTotalWh:    reading.GridEnergyTotalWh.Value,
		GridEnergyReturnedWh: reading.GridEnergyReturnedWh.Value,
		PVEnergyTotalWh:      reading.PVEnergyTotalWh.Value,
		VoltageV:             finiteOrZero(reading.VoltageV),
		ReactiveVAr:          reading.ReactiveVAr.OrZero(),
		PowerFactor:          reading.PowerFactor.OrZero(),
		FrequencyHz:          reading.FrequencyHz.OrZero(),
	}, nil
}

// Filter keeps the order of the valid readings.
func Filter(readings []types.MeterReading) ([]types.ValidReading, []error) {
	valid := make([]types.ValidReading, 0, len(readings))
	var rejected []error
	for i, r := range readings {
		v, err := Validate(r)
		if err != nil {
			rejected = append(rejected, fmt.Errorf("reading %d at %s: %w", i, r.Timestamp.Format("15:04:05"), err))
			continue
		}
		valid = append(valid, v)
	}
	return valid, rejected
}

func checkCounter(m types.Measurement) error {
	switch {
	case !m.Present:
		return ErrMissingCounter
	case !m.IsFinite():
		return ErrNonNumericCounter
	case m.Value < 0:
		return ErrNegativeCounter
	}
	return nil
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
