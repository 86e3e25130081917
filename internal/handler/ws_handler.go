package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/warfront/internal/logger"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = pongWait * 9 / 10
	maxMsgSize  = 4096
	sendBufSize = 256
)

// Feed-level event types. Run events come from the service.
const (
	EventConnected    = "connected"
	EventSubscribed   = "subscribed"
	EventUnsubscribed = "unsubscribed"
	EventError        = "error"
)

// WSHandler serves the turn report feed.
type WSHandler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewWSHandler creates a WSHandler. allowedOrigins is the CORS_ORIGINS
// list; "*" accepts any browser origin.
func NewWSHandler(hub *Hub, allowedOrigins string) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker accepts requests without an Origin header (non-browser
// clients) and browser origins on the list.
func originChecker(allowed string) func(*http.Request) bool {
	set := make(map[string]bool)
	for _, o := range strings.Split(allowed, ",") {
		if o = strings.TrimSpace(o); o != "" {
			set[o] = true
		}
	}
	if len(set) == 0 || set["*"] {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// ServeWS handles GET /api/v1/ws. Each ?run= subscribes the connection
// straight away; further runs are followed with subscribe messages.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("origin", r.Header.Get("Origin")).Msg("WebSocket upgrade failed")
		return
	}

	c := &WSConn{
		conn:     conn,
		clientID: logger.NewRequestID(),
		send:     make(chan []byte, sendBufSize),
	}
	h.hub.Register(c)

	var runs []string
	for _, runID := range r.URL.Query()["run"] {
		if runID != "" {
			h.hub.Subscribe(c, runID)
			runs = append(runs, runID)
		}
	}
	c.push(WSEvent{Type: EventConnected, Data: map[string]any{"client_id": c.clientID, "runs": runs}})

	go h.writePump(c)
	go h.readPump(c)

	log.Info().
		Str("clientId", c.clientID).
		Strs("runs", runs).
		Int("total", h.hub.ConnectionCount()).
		Msg("WebSocket client connected")
}

// handle applies one client message and answers with an ack or an error
// event on the same connection.
func (h *WSHandler) handle(c *WSConn, raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.push(WSEvent{Type: EventError, Data: "malformed message"})
		return
	}
	if msg.RunID == "" {
		c.push(WSEvent{Type: EventError, Data: "run_id is required"})
		return
	}
	switch msg.Action {
	case "subscribe":
		h.hub.Subscribe(c, msg.RunID)
		c.push(WSEvent{Type: EventSubscribed, RunID: msg.RunID})
	case "unsubscribe":
		h.hub.Unsubscribe(c, msg.RunID)
		c.push(WSEvent{Type: EventUnsubscribed, RunID: msg.RunID})
	default:
		c.push(WSEvent{Type: EventError, RunID: msg.RunID, Data: fmt.Sprintf("unknown action %q", msg.Action)})
	}
}

func (h *WSHandler) readPump(c *WSConn) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
		log.Info().Str("clientId", c.clientID).Msg("WebSocket client disconnected")
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("clientId", c.clientID).Msg("WebSocket unexpected close")
			}
			return
		}
		h.handle(c, raw)
	}
}

// writePump owns every write to the connection. A failed write closes the
// socket, which ends readPump and unregisters the client.
func (h *WSHandler) writePump(c *WSConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				c.write(websocket.CloseMessage, nil)
				return
			}
			if err := c.write(websocket.TextMessage, message); err != nil {
				log.Debug().Err(err).Str("clientId", c.clientID).Msg("WebSocket write failed")
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WSConn) write(messageType int, data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}

// push queues an event for this connection alone. Only the goroutine that
// later unregisters the connection may call it.
func (c *WSConn) push(e WSEvent) {
	data, err := json.Marshal(e)
	if err != nil {
		log.Error().Err(err).Str("clientId", c.clientID).Msg("Failed to marshal WebSocket event")
		return
	}
	select {
	case c.send <- data:
	default:
		log.Warn().Str("clientId", c.clientID).Str("type", e.Type).Msg("Dropping WebSocket message, buffer full")
	}
}
