package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futsim/market"
	"futsim/position"
)

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func readTrade(t *testing.T, conn *websocket.Conn) TradeMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg TradeMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHubBroadcastsClosedTrades(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	a := dialHub(t, srv)
	defer a.Close()
	b := dialHub(t, srv)
	defer b.Close()

	// Give the hub a moment to register both before pushing.
	time.Sleep(50 * time.Millisecond)

	hub.OnTradeClosed(&position.Trade{
		ID:            "trade-1",
		Instrument:    "ES",
		Direction:     market.Long,
		EntryPrice:    5000,
		ExitPrice:     5010,
		NetPnL:        480.5,
		ExitReason:    position.ExitTakeProfit,
		StrategyLabel: "momentum",
	})

	for _, conn := range []*websocket.Conn{a, b} {
		msg := readTrade(t, conn)
		assert.Equal(t, "trade", msg.Type)
		assert.Equal(t, "trade-1", msg.TradeID)
		assert.Equal(t, position.ExitTakeProfit, msg.ExitReason)
		assert.InDelta(t, 480.5, msg.NetPnL, 1e-9)
	}
}

func TestHubSurvivesClientDisconnectDuringBroadcast(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	gone := dialHub(t, srv)
	stay := dialHub(t, srv)
	defer stay.Close()
	time.Sleep(50 * time.Millisecond)

	gone.Close()

	// Hammer broadcasts while the dropped client is being torn down; the
	// surviving client must keep receiving in order.
	for i := 0; i < 20; i++ {
		hub.OnTradeClosed(&position.Trade{ID: "t", NetPnL: float64(i)})
	}
	first := readTrade(t, stay)
	assert.Equal(t, "t", first.TradeID)
	assert.InDelta(t, 0, first.NetPnL, 1e-9)
}
