package webapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NotCoffee418/energy_flow_dashboard/pkg/dashboard"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/flowgraph"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/meterdb"
	"github.com/NotCoffee418/energy_flow_dashboard/pkg/types"
)

type fakeDays struct {
	rows map[string]*meterdb.DailyTotalsRow
	err  error
}

func (f *fakeDays) DailyTotalsFor(ctx context.Context, day string) (*meterdb.DailyTotalsRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rows[day], nil
}

func newTestServer(days ClosedDays) *Server {
	return NewServer(days, nil, dashboard.DefaultEngineConfig(), time.UTC)
}

func realtimeView() dashboard.View {
	reading := types.MeterReading{
		Timestamp:  time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		GridPowerW: -1200,
		PVPowerW:   3000,
	}
	return dashboard.RealtimeView(reading, dashboard.DefaultEngineConfig(), reading.Timestamp)
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(&fakeDays{})

	rec := get(t, s, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "running", body["status"])
	assert.Equal(t, false, body["realtime"])
}

func TestRealtimeHandler(t *testing.T) {
	s := newTestServer(&fakeDays{})

	rec := get(t, s, "/api/realtime")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s.Publish(realtimeView())

	rec = get(t, s, "/api/realtime")
	require.Equal(t, http.StatusOK, rec.Code)

	var view dashboard.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, flowgraph.ModeRealtime, view.Mode)
	assert.Equal(t, 1800.0, view.Graph.PVToHome)
	assert.Equal(t, 1200.0, view.Graph.PVToGrid)

	// daily view is separate
	rec = get(t, s, "/api/today")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClosedDayHandler(t *testing.T) {
	dayStart := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	s := newTestServer(&fakeDays{rows: map[string]*meterdb.DailyTotalsRow{
		"2024-06-01": {
			DayStart:         dayStart.Unix(),
			Day:              "2024-06-01",
			ConsumptionWh:    2500,
			ProductionWh:     3500,
			InjectionWh:      200,
			ImportFromGridWh: 2500,
		},
	}})

	rec := get(t, s, "/api/daily/2024-06-01")
	require.Equal(t, http.StatusOK, rec.Code)

	var view dashboard.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, flowgraph.ModeDaily, view.Mode)
	require.NotNil(t, view.Totals)
	assert.Equal(t, 3500.0, view.Totals.ProductionWh)
	assert.InDelta(t, 56.9, view.Ratios.SelfProductionRate, 0.01)

	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/daily/2024-06-02").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/daily/yesterday").Code)
}

func TestClosedDayHandler_StoreError(t *testing.T) {
	s := newTestServer(&fakeDays{err: errors.New("database is locked")})
	assert.Equal(t, http.StatusInternalServerError, get(t, s, "/api/daily/2024-06-01").Code)
}

func TestMetricsRoute(t *testing.T) {
	s := newTestServer(&fakeDays{})
	get(t, s, "/health")

	rec := get(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "esm_request_duration_seconds")
}

func TestWebSocket_ReceivesCurrentAndPublished(t *testing.T) {
	s := newTestServer(&fakeDays{})
	s.Publish(realtimeView())

	server := httptest.NewServer(s.Router())
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var env Envelope
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(msg, &env))
	assert.Equal(t, flowgraph.ModeRealtime, env.Type)

	require.Eventually(t, func() bool { return s.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	daily := dashboard.DailyView(nil, dashboard.DefaultEngineConfig(), time.Now())
	s.Publish(daily)

	_, msg, err = conn.ReadMessage()
	require.NoError(t, err)
	var pushed Envelope
	require.NoError(t, json.Unmarshal(msg, &pushed))
	assert.Equal(t, flowgraph.ModeDaily, pushed.Type)
	assert.True(t, pushed.Payload.Graph.IsIdle())
}

func TestHub_DropsWhenBufferFull(t *testing.T) {
	hub := NewHub()
	c := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.Register(c)

	hub.Broadcast([]byte("a"))
	hub.Broadcast([]byte("b"))
	assert.Len(t, c.send, 1)

	hub.Unregister(c)
	_, open := <-c.send
	assert.True(t, open) // buffered message still readable
	_, open = <-c.send
	assert.False(t, open)
	assert.Zero(t, hub.ClientCount())
}
