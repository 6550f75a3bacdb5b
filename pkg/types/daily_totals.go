package types

// DailyTotals holds energy deltas for one closed query window, in Wh.
type DailyTotals struct {
	ConsumptionWh    float64 `json:"consumption_wh"`
	ProductionWh     float64 `json:"production_wh"`
	InjectionWh      float64 `json:"injection_wh"`
	ImportFromGridWh float64 `json:"import_from_grid_wh"`
}

// IsZero reports the degenerate "no usable data" value.
func (t DailyTotals) IsZero() bool {
	return t == DailyTotals{}
}

// CapacityBounds normalise magnitudes into gauge fractions.
type CapacityBounds struct {
	InverterPowerW    float64 `toml:"inverter_power_w" json:"inverter_power_w"`
	GridSubscriptionW float64 `toml:"grid_subscription_w" json:"grid_subscription_w"`
}

const (
	DefaultInverterPowerW    = 3000
	DefaultGridSubscriptionW = 6000
)

// WithDefaults fills unset bounds.
func (b CapacityBounds) WithDefaults() CapacityBounds {
	if b.InverterPowerW <= 0 {
		b.InverterPowerW = DefaultInverterPowerW
	}
	if b.GridSubscriptionW <= 0 {
		b.GridSubscriptionW = DefaultGridSubscriptionW
	}
	return b
}
