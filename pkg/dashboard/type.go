package dashboard

import (
	"time"

	"github.com/NotCoffee418/energy_flow_dashboard/pkg/aggregator"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/flowgraph"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/ratio"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/types"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/visual"
)

// EngineConfig is threaded into every engine call. There is no global copy.
type EngineConfig struct {
	Flow     flowgraph.Options    `toml:"flow"`
	Daily    aggregator.Options   `toml:"daily"`
	Capacity types.CapacityBounds `toml:"capacity"`
	Stroke   visual.StrokeOptions `toml:"stroke"`
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Flow: flowgraph.DefaultOptions(),
		Daily: aggregator.Options{
			CeilingWh:        aggregator.DefaultCeilingWh,
			ResetToleranceWh: aggregator.DefaultResetToleranceWh,
		},
		Capacity: types.CapacityBounds{}.WithDefaults(),
		Stroke:   visual.DefaultStrokeOptions(),
	}
}

// View is what the rendering layer receives.
type View struct {
	Mode        flowgraph.Mode        `json:"mode"`
	ComputedAt  time.Time             `json:"computed_at"`
	SampledAt   time.Time             `json:"sampled_at"`
	Totals      *types.DailyTotals    `json:"totals,omitempty"`
	Aggregation *aggregator.Result    `json:"aggregation,omitempty"`
	Graph       flowgraph.Graph       `json:"graph"`
	Ratios      ratio.EfficiencyRatio `json:"ratios"`
	Encoding    visual.Encoding       `json:"encoding"`
	Capacity    types.CapacityBounds  `json:"capacity"`
}
