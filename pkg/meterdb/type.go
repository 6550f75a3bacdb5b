package meterdb

// Row models, one per table.

type meterReadingRow struct {
	ID         int64   `db:"id"`
	Timestamp  int64   `db:"timestamp"` // unix millis
	GridPowerW float64 `db:"grid_power_w"`
	PVPowerW   float64 `db:"pv_power_w"`
	Payload    string  `db:"payload"` // full reading as JSON
}

// DailyTotalsRow is a closed day. Capped holds comma separated field names.
type DailyTotalsRow struct {
	DayStart         int64   `db:"day_start"` // unix seconds of local midnight
	Day              string  `db:"day"`       // YYYY-MM-DD in the collector's zone
	ConsumptionWh    float64 `db:"consumption_wh"`
	ProductionWh     float64 `db:"production_wh"`
	InjectionWh      float64 `db:"injection_wh"`
	ImportFromGridWh float64 `db:"import_from_grid_wh"`
	ValidCount       int     `db:"valid_count"`
	RejectedCount    int     `db:"rejected_count"`
	Capped           string  `db:"capped"`
	CounterReset     bool    `db:"counter_reset"`
}
