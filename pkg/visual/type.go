package visual

import "github.com/NotCoffee418/energy_flow_dashboard/pkg/flowgraph"

// Scale selects how edge magnitudes spread over the stroke range.
type Scale string

const (
	ScaleLinear      Scale = "linear"
	ScaleLogarithmic Scale = "log"
)

const (
	DefaultMinWidth     = 2
	DefaultMaxWidth     = 12
	DefaultSweepDegrees = 180
)

type StrokeOptions struct {
	MinWidth     float64 `toml:"min_stroke_width"`
	MaxWidth     float64 `toml:"max_stroke_width"`
	SweepDegrees float64 `toml:"gauge_sweep_degrees"`
}

func DefaultStrokeOptions() StrokeOptions {
	return StrokeOptions{
		MinWidth:     DefaultMinWidth,
		MaxWidth:     DefaultMaxWidth,
		SweepDegrees: DefaultSweepDegrees,
	}
}

func (o StrokeOptions) withDefaults() StrokeOptions {
	if o.MinWidth <= 0 {
		o.MinWidth = DefaultMinWidth
	}
	if o.MaxWidth < o.MinWidth {
		o.MaxWidth = max(o.MinWidth, DefaultMaxWidth)
	}
	if o.SweepDegrees <= 0 {
		o.SweepDegrees = DefaultSweepDegrees
	}
	return o
}

// NodeGauge drives a node's arc.
type NodeGauge struct {
	Fraction   float64 `json:"fraction"`
	ArcDegrees float64 `json:"arc_degrees"`
	BoundW     float64 `json:"bound_w"`
}

type EdgeStroke struct {
	Source flowgraph.NodeID `json:"source"`
	Target flowgraph.NodeID `json:"target"`
	Width  float64          `json:"width"`
}

// Encoding is everything the renderer needs, no further domain math required.
type Encoding struct {
	Scale  Scale                          `json:"scale"`
	Gauges map[flowgraph.NodeID]NodeGauge `json:"gauges"`
	Edges  []EdgeStroke                   `json:"edges"`
}
