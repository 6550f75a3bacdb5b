package flowgraph

import "github.com/NotCoffee418/energy_flow_dashboard/pkg/types"

type NodeID string

const (
	NodePV   NodeID = "pv"
	NodeGrid NodeID = "grid"
	NodeHome NodeID = "home"
)

type GridDirection string

const (
	DirectionIdle   GridDirection = "idle"
	DirectionImport GridDirection = "import"
	DirectionExport GridDirection = "export"
)

// Mode tells whether magnitudes are W (realtime) or Wh (daily).
type Mode string

const (
	ModeRealtime Mode = "realtime"
	ModeDaily    Mode = "daily"
)

type Node struct {
	ID        NodeID        `json:"id"`
	Magnitude float64       `json:"magnitude"`
	Direction GridDirection `json:"direction,omitempty"` // grid only
}

type Edge struct {
	Source    NodeID  `json:"source"`
	Target    NodeID  `json:"target"`
	Magnitude float64 `json:"magnitude"`
}

// Graph lists nodes as PV, GRID, HOME. Edges only hold active flows.
// The flow fields are the raw decomposition of the input and are not gated:
// PVToGrid can be non-zero while the PV->GRID edge is absent because PV is
// below the activity threshold. Renderers should draw from Edges.
type Graph struct {
	Mode       Mode    `json:"mode"`
	Nodes      []Node  `json:"nodes"`
	Edges      []Edge  `json:"edges"`
	PVToHome   float64 `json:"pv_to_home"`
	PVToGrid   float64 `json:"pv_to_grid"`
	GridToHome float64 `json:"grid_to_home"`
}

// Node returns the node with the given id.
func (g Graph) Node(id NodeID) Node {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n
		}
	}
	return Node{ID: id}
}

// Edge returns the edge between source and target, if active.
func (g Graph) Edge(source, target NodeID) (Edge, bool) {
	for _, e := range g.Edges {
		if e.Source == source && e.Target == target {
			return e, true
		}
	}
	return Edge{}, false
}

// IsIdle reports a graph without any active flow.
func (g Graph) IsIdle() bool {
	return len(g.Edges) == 0
}

// PowerInput is either a RealtimeSample or a DailyAggregate.
type PowerInput interface {
	isPowerInput()
}

// RealtimeSample is an instantaneous power sample, W.
type RealtimeSample struct {
	GridW float64 `json:"grid_w"` // positive = import
	PVW   float64 `json:"pv_w"`
}

// DailyAggregate wraps the totals of one day.
type DailyAggregate struct {
	Totals types.DailyTotals `json:"totals"`
}

func (RealtimeSample) isPowerInput() {}
func (DailyAggregate) isPowerInput() {}

const DefaultActivityThresholdW = 6

type Options struct {
	// PV power at or below this is inverter standby noise.
	ActivityThresholdW float64 `toml:"activity_threshold_w"`
	// Daily production at or below this does not feed the grid edge.
	DailyActivityThresholdWh float64 `toml:"daily_activity_threshold_wh"`
}

// DefaultOptions uses a 6 W realtime noise threshold and none for daily totals.
func DefaultOptions() Options {
	return Options{ActivityThresholdW: DefaultActivityThresholdW}
}
