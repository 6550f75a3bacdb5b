// Dashboard runs the flow engine end to end: readings in, renderer-ready views out.
// Every call is independent; nothing is cached between calls.
package dashboard

import (
	"time"

	"github.com/NotCoffee418/energy_flow_dashboard/pkg/aggregator"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/flowgraph"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/ratio"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/types"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/visual"
)

// RealtimeView derives the live flow view from the most recent reading.
// Only instantaneous power is used, so counters need not be valid.
func RealtimeView(reading types.MeterReading, cfg EngineConfig, now time.Time) View {
	sample := flowgraph.RealtimeSample{GridW: reading.GridPowerW, PVW: reading.PVPowerW}
	return buildView(sample, cfg, now, reading.Timestamp)
}

// DailyView derives the day view from readings sorted ascending by timestamp.
func DailyView(readings []types.MeterReading, cfg EngineConfig, now time.Time) View {
	result := aggregator.Aggregate(readings, cfg.Daily)

	var sampledAt time.Time
	if len(readings) > 0 {
		sampledAt = readings[len(readings)-1].Timestamp
	}

	view := buildView(flowgraph.DailyAggregate{Totals: result.Totals}, cfg, now, sampledAt)
	view.Totals = &result.Totals
	view.Aggregation = &result
	return view
}

// ClosedDayView renders totals that were already aggregated and stored.
func ClosedDayView(totals types.DailyTotals, cfg EngineConfig, dayStart time.Time) View {
	view := buildView(flowgraph.DailyAggregate{Totals: totals}, cfg, dayStart, dayStart)
	view.Totals = &totals
	return view
}

func buildView(input flowgraph.PowerInput, cfg EngineConfig, now, sampledAt time.Time) View {
	capacity := cfg.Capacity.WithDefaults()
	graph := flowgraph.Build(input, cfg.Flow)

	ratios := ratio.FromGraph(graph)
	if daily, ok := input.(flowgraph.DailyAggregate); ok {
		ratios = ratio.FromTotals(daily.Totals)
	}

	return View{
		Mode:       graph.Mode,
		ComputedAt: now,
		SampledAt:  sampledAt,
		Graph:      graph,
		Ratios:     ratios,
		Encoding:   visual.Encode(graph, capacity, cfg.Stroke),
		Capacity:   capacity,
	}
}
