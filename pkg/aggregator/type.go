package aggregator

import (
	"context"
	"time"

	"github.com/NotCoffee418/energy_flow_dashboard/pkg/types"
)

const (
	DefaultCeilingWh        = 100_000
	DefaultResetToleranceWh = 1
)

// Options tune the daily reduction. Zero values fall back to defaults.
type Options struct {
	// Any total above this is clamped to it.
	CeilingWh float64 `toml:"daily_ceiling_wh"`
	// A counter dropping by more than this between two readings is a reset.
	// 0 means the default; any negative value means no tolerance at all.
	ResetToleranceWh float64 `toml:"reset_tolerance_wh"`
}

func (o Options) withDefaults() Options {
	if o.CeilingWh <= 0 {
		o.CeilingWh = DefaultCeilingWh
	}
	switch {
	case o.ResetToleranceWh < 0:
		o.ResetToleranceWh = 0
	case o.ResetToleranceWh == 0:
		o.ResetToleranceWh = DefaultResetToleranceWh
	}
	return o
}

// Result is the outcome of one reduction. Totals is always usable.
type Result struct {
	Totals        types.DailyTotals `json:"totals"`
	ValidCount    int               `json:"valid_count"`
	RejectedCount int               `json:"rejected_count"`
	Rejected      []error           `json:"-"`
	Capped        []string          `json:"capped,omitempty"`
	CounterReset  bool              `json:"counter_reset"`
}

// Store is the persistence the daily job needs.
type Store interface {
	ReadingsInRange(ctx context.Context, start, end time.Time) ([]types.MeterReading, error)
	UpsertDailyTotals(ctx context.Context, dayStart time.Time, result Result) error
	LatestDailyTotalsDay(ctx context.Context) (time.Time, bool, error)
	DeleteReadingsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
