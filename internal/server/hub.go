package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"futsim/metrics"
	"futsim/position"
)

// TradeMessage is the JSON payload streamed to WebSocket clients when a
// trade fully closes.
type TradeMessage struct {
	Type       string                  `json:"type"`
	TradeID    string                  `json:"trade_id"`
	Instrument string                  `json:"instrument"`
	Direction  int8                    `json:"direction"`
	EntryPrice float64                 `json:"entry_price"`
	ExitPrice  float64                 `json:"exit_price"`
	NetPnL     float64                 `json:"net_pnl"`
	ExitReason string                  `json:"exit_reason"`
	Strategy   string                  `json:"strategy"`
	Analytics  position.EntryAnalytics `json:"analytics"`
}

// Hub manages WebSocket connections and broadcasts closed-trade analytics
// to all connected clients. Each connection gets a buffered send channel
// drained by a single writer goroutine, so only one goroutine ever writes
// to a conn.
type Hub struct {
	clients    map[*websocket.Conn]chan []byte
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
}

// NewHub creates a new WebSocket hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]chan []byte),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// Run starts the hub's main event loop. Must be called in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			send := make(chan []byte, 32)
			h.mu.Lock()
			h.clients[conn] = send
			n := len(h.clients)
			h.mu.Unlock()
			go h.writePump(conn, send)
			metrics.WebSocketClients.Set(float64(n))
			slog.Info("ws client connected", "total", n)

		case conn := <-h.unregister:
			h.mu.Lock()
			if send, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				close(send)
				conn.Close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketClients.Set(float64(n))

		case msg := <-h.broadcast:
			h.mu.RLock()
			for _, send := range h.clients {
				select {
				case send <- msg:
				default:
					// Slow consumer: drop rather than stall the hub.
				}
			}
			h.mu.RUnlock()
		}
	}
}

// writePump is the connection's only writer: it drains the send channel and
// emits keepalive pings. A write failure hands the conn back to the hub for
// removal.
func (h *Hub) writePump(conn *websocket.Conn, send <-chan []byte) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-send:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.unregister <- conn
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister <- conn
				return
			}
		}
	}
}

// OnTradeClosed satisfies sim.TradeListener: each full close is pushed to
// every connected client. Drops the message if the buffer is full so the
// simulation never blocks on a slow consumer.
func (h *Hub) OnTradeClosed(t *position.Trade) {
	msg := TradeMessage{
		Type:       "trade",
		TradeID:    t.ID,
		Instrument: t.Instrument,
		Direction:  int8(t.Direction),
		EntryPrice: t.EntryPrice,
		ExitPrice:  t.ExitPrice,
		NetPnL:     t.NetPnL,
		ExitReason: t.ExitReason,
		Strategy:   t.StrategyLabel,
		Analytics:  t.Analytics,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// HandleWS handles WebSocket upgrade requests at GET /api/v1/ws.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "err", err)
		return
	}

	h.register <- conn

	// Read pump: keep connection alive and detect disconnects.
	go func() {
		defer func() { h.unregister <- conn }()
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}
