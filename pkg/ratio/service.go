// Ratio computes self-consumption and self-production percentages.
// Results are always within [0,100] and never NaN.
package ratio

import (
	"math"

	"github.com/NotCoffee418/energy_flow_dashboard/pkg/flowgraph"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/types"
)

type EfficiencyRatio struct {
	SelfConsumptionRate float64 `json:"self_consumption_rate"`
	SelfProductionRate  float64 `json:"self_production_rate"`
}

// SelfConsumption is the share of PV production used on site.
func SelfConsumption(totals types.DailyTotals) float64 {
	return selfConsumption(totals.ProductionWh, totals.InjectionWh)
}

// SelfProduction is the share of home consumption covered by PV.
func SelfProduction(totals types.DailyTotals) float64 {
	return selfProduction(totals.ConsumptionWh, totals.ProductionWh, totals.InjectionWh)
}

func FromTotals(totals types.DailyTotals) EfficiencyRatio {
	return EfficiencyRatio{
		SelfConsumptionRate: SelfConsumption(totals),
		SelfProductionRate:  SelfProduction(totals),
	}
}

// FromGraph uses the flows of a graph, so it works for realtime samples too.
func FromGraph(g flowgraph.Graph) EfficiencyRatio {
	produced := g.PVToHome + g.PVToGrid
	return EfficiencyRatio{
		SelfConsumptionRate: selfConsumption(produced, g.PVToGrid),
		SelfProductionRate:  selfProduction(g.GridToHome, produced, g.PVToGrid),
	}
}

func selfConsumption(production, injection float64) float64 {
	if !(production > 0) {
		return 0
	}
	return Clamp((production - injection) / production * 100)
}

func selfProduction(imported, production, injection float64) float64 {
	total := imported + production - injection
	if !(total > 0) {
		return 0
	}
	return Clamp((production - injection) / total * 100)
}

// Clamp bounds a percentage to [0,100]. NaN maps to 0.
func Clamp(pct float64) float64 {
	if math.IsNaN(pct) {
		return 0
	}
	return math.Min(100, math.Max(0, pct))
}
