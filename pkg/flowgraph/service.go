// Flowgraph derives the PV / GRID / HOME flow graph from power samples or daily totals.
package flowgraph

import (
	"math"

	"github.com/NotCoffee418/energy_flow_dashboard/pkg/types"
)

// Build dispatches on the input kind. A nil input is an idle realtime graph.
func Build(input PowerInput, opts Options) Graph {
	switch in := input.(type) {
	case RealtimeSample:
		return BuildRealtime(in, opts)
	case DailyAggregate:
		return BuildDaily(in.Totals, opts)
	default:
		return BuildRealtime(RealtimeSample{}, opts)
	}
}

// BuildRealtime derives flows from instantaneous power, W.
func BuildRealtime(sample RealtimeSample, opts Options) Graph {
	grid, pv := finite(sample.GridW), finite(sample.PVW)

	isPvProducing := pv > opts.ActivityThresholdW
	isGridImporting := grid > 0
	isGridExporting := grid < 0

	var pvToGrid, gridToHome float64
	if isGridExporting {
		pvToGrid = math.Abs(grid)
	}
	if isGridImporting {
		gridToHome = grid
	}
	pvToHome := max(0, pv-pvToGrid)

	return assemble(ModeRealtime, pv, grid, flows{
		pvToHome:   pvToHome,
		pvToGrid:   pvToGrid,
		gridToHome: gridToHome,
		pvToGridOn: isPvProducing && isGridExporting && pvToGrid > 0,
		gridOn:     isGridImporting && gridToHome > 0,
	})
}

// BuildDaily derives flows from one day's totals, Wh.
func BuildDaily(totals types.DailyTotals, opts Options) Graph {
	production := finite(totals.ProductionWh)
	injection := max(0, finite(totals.InjectionWh))
	imported := max(0, finite(totals.ImportFromGridWh))

	isPvProducing := production > opts.DailyActivityThresholdWh
	pvToHome := max(0, production-injection)

	return assemble(ModeDaily, production, imported-injection, flows{
		pvToHome:   pvToHome,
		pvToGrid:   injection,
		gridToHome: imported,
		pvToGridOn: isPvProducing && injection > 0,
		gridOn:     imported > 0,
	})
}

type flows struct {
	pvToHome, pvToGrid, gridToHome float64
	pvToGridOn, gridOn             bool
}

// assemble builds nodes and edges. netGrid is signed, positive = import.
func assemble(mode Mode, pv, netGrid float64, f flows) Graph {
	direction := DirectionIdle
	switch {
	case netGrid > 0:
		direction = DirectionImport
	case netGrid < 0:
		direction = DirectionExport
	}

	g := Graph{
		Mode: mode,
		Nodes: []Node{
			{ID: NodePV, Magnitude: max(0, pv)},
			{ID: NodeGrid, Magnitude: math.Abs(netGrid), Direction: direction},
			{ID: NodeHome, Magnitude: f.pvToHome + f.gridToHome},
		},
		Edges:      []Edge{},
		PVToHome:   f.pvToHome,
		PVToGrid:   f.pvToGrid,
		GridToHome: f.gridToHome,
	}

	if f.pvToHome > 0 {
		g.Edges = append(g.Edges, Edge{Source: NodePV, Target: NodeHome, Magnitude: f.pvToHome})
	}
	if f.pvToGridOn {
		g.Edges = append(g.Edges, Edge{Source: NodePV, Target: NodeGrid, Magnitude: f.pvToGrid})
	}
	if f.gridOn {
		g.Edges = append(g.Edges, Edge{Source: NodeGrid, Target: NodeHome, Magnitude: f.gridToHome})
	}
	return g
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
