// Visual maps flow magnitudes to renderer scalars: gauge fractions, arc angles
// and stroke widths.
package visual

import (
	"math"

	"github.com/NotCoffee418/energy_flow_dashboard/pkg/flowgraph"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/types"
)

// Gauge returns magnitude/bound clamped to [0,1].
func Gauge(magnitude, boundW float64) float64 {
	if !(boundW > 0) || math.IsNaN(magnitude) {
		return 0
	}
	return math.Min(1, math.Max(0, magnitude/boundW))
}

// BoundFor picks the capacity a node's gauge is measured against.
func BoundFor(node flowgraph.NodeID, bounds types.CapacityBounds) float64 {
	if node == flowgraph.NodePV {
		return bounds.InverterPowerW
	}
	return bounds.GridSubscriptionW
}

// StrokeWidth maps a magnitude onto [MinWidth, MaxWidth] relative to the
// active magnitudes in view. Inactive magnitudes get 0.
func StrokeWidth(magnitude float64, inView []float64, scale Scale, opts StrokeOptions) float64 {
	opts = opts.withDefaults()
	if !(magnitude > 0) {
		return 0
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, m := range inView {
		if !(m > 0) || math.IsInf(m, 0) {
			continue
		}
		lo = math.Min(lo, m)
		hi = math.Max(hi, m)
	}
	if math.IsInf(lo, 1) || hi == lo {
		return opts.MaxWidth
	}

	pos := (scaled(magnitude, scale) - scaled(lo, scale)) / (scaled(hi, scale) - scaled(lo, scale))
	if math.IsNaN(pos) {
		return opts.MaxWidth
	}
	pos = math.Min(1, math.Max(0, pos))
	return opts.MinWidth + pos*(opts.MaxWidth-opts.MinWidth)
}

func scaled(v float64, scale Scale) float64 {
	if scale == ScaleLogarithmic {
		return math.Log1p(v)
	}
	return v
}

// Daily magnitudes are Wh; gauges compare their average power over a day.
const hoursPerDay = 24

// Encode derives gauges and strokes for a graph. The graph is not modified.
func Encode(g flowgraph.Graph, bounds types.CapacityBounds, opts StrokeOptions) Encoding {
	opts = opts.withDefaults()

	scale, perHour := ScaleLinear, float64(hoursPerDay)
	if g.Mode == flowgraph.ModeRealtime {
		scale, perHour = ScaleLogarithmic, 1
	}

	enc := Encoding{
		Scale:  scale,
		Gauges: make(map[flowgraph.NodeID]NodeGauge, len(g.Nodes)),
		Edges:  make([]EdgeStroke, 0, len(g.Edges)),
	}

	for _, n := range g.Nodes {
		bound := BoundFor(n.ID, bounds)
		fraction := Gauge(n.Magnitude/perHour, bound)
		enc.Gauges[n.ID] = NodeGauge{
			Fraction:   fraction,
			ArcDegrees: fraction * opts.SweepDegrees,
			BoundW:     bound,
		}
	}

	inView := make([]float64, len(g.Edges))
	for i, e := range g.Edges {
		inView[i] = e.Magnitude
	}
	for _, e := range g.Edges {
		enc.Edges = append(enc.Edges, EdgeStroke{
			Source: e.Source,
			Target: e.Target,
			Width:  StrokeWidth(e.Magnitude, inView, scale, opts),
		})
	}
	return enc
}
