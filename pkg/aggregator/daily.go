package aggregator

import (
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/types"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/validator"
)

// Aggregate reduces one day's readings, sorted ascending by timestamp, into totals.
// It never fails: too few valid readings or a counter reset give zero totals.
func Aggregate(readings []types.MeterReading, opts Options) Result {
	opts = opts.withDefaults()

	valid, rejected := validator.Filter(readings)
	result := Result{
		ValidCount:    len(valid),
		RejectedCount: len(rejected),
		Rejected:      rejected,
	}
	if len(valid) < 2 {
		return result
	}

	if hasCounterReset(valid, opts.ResetToleranceWh) {
		result.CounterReset = true
		return result
	}

	first, last := valid[0], valid[len(valid)-1]
	consumption := max(0, last.GridEnergyTotalWh-first.GridEnergyTotalWh)
	injection := max(0, last.GridEnergyReturnedWh-first.GridEnergyReturnedWh)
	production := max(0, last.PVEnergyTotalWh-first.PVEnergyTotalWh)

	result.Totals = types.DailyTotals{
		ConsumptionWh:    result.cap("consumption", consumption, opts.CeilingWh),
		ProductionWh:     result.cap("production", production, opts.CeilingWh),
		InjectionWh:      result.cap("injection", injection, opts.CeilingWh),
		ImportFromGridWh: result.cap("import_from_grid", consumption, opts.CeilingWh),
	}
	return result
}

func (r *Result) cap(field string, value, ceiling float64) float64 {
	if value > ceiling {
		r.Capped = append(r.Capped, field)
		return ceiling
	}
	return value
}

// hasCounterReset scans consecutive pairs, so a reboot is caught even when the
// counter has climbed back above its first value by the end of the day.
func hasCounterReset(readings []types.ValidReading, tolerance float64) bool {
	for i := 1; i < len(readings); i++ {
		prev, cur := readings[i-1], readings[i]
		if prev.GridEnergyTotalWh-cur.GridEnergyTotalWh > tolerance ||
			prev.GridEnergyReturnedWh-cur.GridEnergyReturnedWh > tolerance ||
			prev.PVEnergyTotalWh-cur.PVEnergyTotalWh > tolerance {
			return true
		}
	}
	return false
}
