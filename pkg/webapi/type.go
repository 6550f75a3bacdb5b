package webapi

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/NotCoffee418/energy_flow_dashboard/pkg/dashboard"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/flowgraph"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/meterdb"
)

// Envelope wraps every websocket push. Type is the view mode.
type Envelope struct {
	Type    flowgraph.Mode `json:"type"`
	Payload dashboard.View `json:"payload"`
}

func (e Envelope) Bytes() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	return data
}

// ClosedDays looks up days the collector already closed.
type ClosedDays interface {
	DailyTotalsFor(ctx context.Context, day string) (*meterdb.DailyTotalsRow, error)
}

// viewState holds the last view of each mode.
type viewState struct {
	mu       sync.RWMutex
	realtime *dashboard.View
	daily    *dashboard.View
}

func (s *viewState) set(view dashboard.View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if view.Mode == flowgraph.ModeDaily {
		s.daily = &view
	} else {
		s.realtime = &view
	}
}

func (s *viewState) get(mode flowgraph.Mode) *dashboard.View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if mode == flowgraph.ModeDaily {
		return s.daily
	}
	return s.realtime
}
