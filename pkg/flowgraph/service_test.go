package flowgraph

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NotCoffee418/energy_flow_dashboard/pkg/types"
)

func TestBuildRealtime_PureImport(t *testing.T) {
	g := BuildRealtime(RealtimeSample{GridW: 800, PVW: 0}, DefaultOptions())

	assert.Equal(t, []Edge{{Source: NodeGrid, Target: NodeHome, Magnitude: 800}}, g.Edges)
	assert.Equal(t, 0.0, g.Node(NodePV).Magnitude)
	assert.Equal(t, 800.0, g.Node(NodeHome).Magnitude)
	assert.Equal(t, DirectionImport, g.Node(NodeGrid).Direction)
	_, ok := g.Edge(NodePV, NodeHome)
	assert.False(t, ok)
}

func TestBuildRealtime_ExportingSurplus(t *testing.T) {
	g := BuildRealtime(RealtimeSample{GridW: -300, PVW: 1000}, DefaultOptions())

	assert.Equal(t, 300.0, g.PVToGrid)
	assert.Equal(t, 700.0, g.PVToHome)
	assert.Equal(t, []Edge{
		{Source: NodePV, Target: NodeHome, Magnitude: 700},
		{Source: NodePV, Target: NodeGrid, Magnitude: 300},
	}, g.Edges)
	_, ok := g.Edge(NodeGrid, NodeHome)
	assert.False(t, ok)
	assert.Equal(t, DirectionExport, g.Node(NodeGrid).Direction)
	assert.Equal(t, 300.0, g.Node(NodeGrid).Magnitude)
	assert.Equal(t, 700.0, g.Node(NodeHome).Magnitude)
}

func TestBuildRealtime_MixedSupply(t *testing.T) {
	g := BuildRealtime(RealtimeSample{GridW: 450, PVW: 1200}, DefaultOptions())

	assert.Equal(t, 1200.0, g.PVToHome)
	assert.Equal(t, 450.0, g.GridToHome)
	assert.Equal(t, 1650.0, g.Node(NodeHome).Magnitude)
	assert.Len(t, g.Edges, 2)
}

func TestBuildRealtime_Idle(t *testing.T) {
	g := BuildRealtime(RealtimeSample{}, DefaultOptions())

	assert.True(t, g.IsIdle())
	assert.NotNil(t, g.Edges)
	require.Len(t, g.Nodes, 3)
	assert.Equal(t, DirectionIdle, g.Node(NodeGrid).Direction)
	assert.Equal(t, 0.0, g.Node(NodeHome).Magnitude)
}

func TestBuildRealtime_NoiseDoesNotFeedGrid(t *testing.T) {
	// 4 W of inverter standby while the meter shows a small export
	g := BuildRealtime(RealtimeSample{GridW: -3, PVW: 4}, DefaultOptions())

	_, ok := g.Edge(NodePV, NodeGrid)
	assert.False(t, ok)
	assert.Equal(t, 3.0, g.PVToGrid)
	assert.Equal(t, 1.0, g.PVToHome)
}

func TestBuildRealtime_FlowFieldsAreUngated(t *testing.T) {
	// export reported while PV is below the activity threshold
	g := BuildRealtime(RealtimeSample{GridW: -300, PVW: 3}, DefaultOptions())

	assert.Equal(t, 300.0, g.PVToGrid)
	assert.Equal(t, 0.0, g.PVToHome)
	assert.Equal(t, 3.0, g.Node(NodePV).Magnitude)
	assert.Equal(t, 300.0, g.Node(NodeGrid).Magnitude)
	assert.Empty(t, g.Edges)
}

func TestBuildRealtime_NonFiniteInputIsIdle(t *testing.T) {
	g := BuildRealtime(RealtimeSample{GridW: math.NaN(), PVW: math.Inf(1)}, DefaultOptions())
	assert.True(t, g.IsIdle())
}

func TestBuildRealtime_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		sample := RealtimeSample{
			GridW: rng.Float64()*12000 - 6000,
			PVW:   rng.Float64()*4000 - 100,
		}
		if i%10 == 0 {
			sample.GridW = 0
		}
		g := BuildRealtime(sample, DefaultOptions())

		assert.Equal(t, g.PVToHome+g.GridToHome, g.Node(NodeHome).Magnitude)
		for _, e := range g.Edges {
			assert.Greater(t, e.Magnitude, 0.0)
		}
		_, hasPVHome := g.Edge(NodePV, NodeHome)
		assert.Equal(t, g.PVToHome > 0, hasPVHome)
		_, hasGridHome := g.Edge(NodeGrid, NodeHome)
		assert.Equal(t, g.GridToHome > 0, hasGridHome)
	}
}

func TestBuildDaily(t *testing.T) {
	totals := types.DailyTotals{
		ConsumptionWh:    2500,
		InjectionWh:      200,
		ProductionWh:     3500,
		ImportFromGridWh: 2500,
	}

	g := BuildDaily(totals, DefaultOptions())

	assert.Equal(t, ModeDaily, g.Mode)
	assert.Equal(t, 3300.0, g.PVToHome)
	assert.Equal(t, 200.0, g.PVToGrid)
	assert.Equal(t, 2500.0, g.GridToHome)
	assert.Equal(t, 5800.0, g.Node(NodeHome).Magnitude)
	assert.Equal(t, 3500.0, g.Node(NodePV).Magnitude)
	assert.Equal(t, 2300.0, g.Node(NodeGrid).Magnitude)
	assert.Equal(t, DirectionImport, g.Node(NodeGrid).Direction)
	assert.Len(t, g.Edges, 3)
}

func TestBuildDaily_ZeroTotalsIsIdle(t *testing.T) {
	g := BuildDaily(types.DailyTotals{}, DefaultOptions())
	assert.True(t, g.IsIdle())
	assert.Equal(t, DirectionIdle, g.Node(NodeGrid).Direction)
}

func TestBuildDaily_InjectionAboveProduction(t *testing.T) {
	// asynchronous counter reads can make injection lead production
	g := BuildDaily(types.DailyTotals{ProductionWh: 100, InjectionWh: 130}, DefaultOptions())

	assert.Equal(t, 0.0, g.PVToHome)
	_, ok := g.Edge(NodePV, NodeHome)
	assert.False(t, ok)
	e, ok := g.Edge(NodePV, NodeGrid)
	require.True(t, ok)
	assert.Equal(t, 130.0, e.Magnitude)
}

func TestBuild_Dispatch(t *testing.T) {
	realtime := Build(RealtimeSample{GridW: 800}, DefaultOptions())
	assert.Equal(t, ModeRealtime, realtime.Mode)

	daily := Build(DailyAggregate{Totals: types.DailyTotals{ProductionWh: 10}}, DefaultOptions())
	assert.Equal(t, ModeDaily, daily.Mode)
	assert.Equal(t, 10.0, daily.PVToHome)

	assert.True(t, Build(nil, DefaultOptions()).IsIdle())
}
