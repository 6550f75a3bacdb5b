package interpreter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NotCoffee418/energy_flow_dashboard/pkg/types"
)

func TestListenerURL(t *testing.T) {
	u := ListenerURL("raspberrypi.local:9039", false)
	assert.Equal(t, "ws://raspberrypi.local:9039/ws", u.String())

	u = ListenerURL("meter.example.org", true)
	assert.Equal(t, "wss://meter.example.org/ws", u.String())
}

func TestStartListener_DeliversReadings(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		reading := types.MeterReading{
			Timestamp:  time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
			GridPowerW: -1200,
			PVPowerW:   3000,
		}
		conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		conn.WriteMessage(websocket.TextMessage, reading.ToJsonBytes())

		// hold until the client hangs up
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	u.Scheme = "ws"
	u.Path = "/ws"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan *types.MeterReading, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- StartListener(ctx, *u, func(r *types.MeterReading) {
			select {
			case got <- r:
			default:
			}
		})
	}()

	select {
	case r := <-got:
		assert.Equal(t, 3000.0, r.PVPowerW)
		assert.Equal(t, -1200.0, r.GridPowerW)
	case <-ctx.Done():
		t.Fatal("no reading delivered")
	}

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestStartListener_CancelledBeforeConnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := StartListener(ctx, ListenerURL("127.0.0.1:1", false), func(*types.MeterReading) {
		t.Fatal("unexpected reading")
	})
	assert.NoError(t, err)
}

func TestHandleConnection_IgnoresBinary(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.WriteMessage(websocket.BinaryMessage, []byte{0x01})
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}))
	defer srv.Close()

	c, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer c.Close()

	calls := 0
	broken := handleConnection(context.Background(), c, func(*types.MeterReading) { calls++ })
	assert.True(t, broken)
	assert.Zero(t, calls)
}
