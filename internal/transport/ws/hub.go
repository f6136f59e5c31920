package ws

import (
	"encoding/json"
	"sync"

	"coderoom/internal/model"

	"github.com/rs/zerolog/log"
)

// Hub owns every live WebSocket connection. Outbound messages pass through
// a single queue drained by run, so two messages for the same connection
// are written in the order they were handed to the hub.
type Hub struct {
	conns map[string]*Connection // connID -> conn

	mu sync.RWMutex

	// Channels for coordination
	register   chan *Connection
	unregister chan *Connection
	outbound   chan *delivery
	quit       chan struct{}
	closeOnce  sync.Once
}

// Connection represents a WebSocket connection
type Connection struct {
	ID     string
	UserID string
	Send   chan []byte
	Hub    *Hub
}

// delivery is one encoded message and its recipients
type delivery struct {
	connIDs []string
	data    []byte
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		conns:      make(map[string]*Connection),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		outbound:   make(chan *delivery, 256),
		quit:       make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.conns[conn.ID] = conn
			h.mu.Unlock()
			log.Debug().Str("module", "ws.hub").Str("conn", conn.ID).Str("user", conn.UserID).Msg("connection registered")

		case conn := <-h.unregister:
			h.mu.Lock()
			h.drop(conn)
			h.mu.Unlock()

		case d := <-h.outbound:
			h.mu.Lock()
			for _, id := range d.connIDs {
				conn, ok := h.conns[id]
				if !ok {
					continue
				}
				select {
				case conn.Send <- d.data:
				default:
					// A connection that cannot keep up is cut rather than
					// silently skipped, so no client ever sees a gap.
					log.Warn().Str("module", "ws.hub").Str("conn", id).Msg("send buffer full, closing connection")
					h.drop(conn)
				}
			}
			h.mu.Unlock()

		case <-h.quit:
			h.mu.Lock()
			for _, conn := range h.conns {
				h.drop(conn)
			}
			h.mu.Unlock()
			return
		}
	}
}

// drop removes conn and closes its send channel. Caller holds h.mu.
func (h *Hub) drop(conn *Connection) {
	if existing, ok := h.conns[conn.ID]; ok && existing == conn {
		delete(h.conns, conn.ID)
		close(conn.Send)
		log.Debug().Str("module", "ws.hub").Str("conn", conn.ID).Msg("connection unregistered")
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.quit:
	}
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.quit:
	}
}

// Close stops the hub and closes every connection's send channel
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.quit) })
}

// ConnectionCount returns the number of registered connections
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// SendToConn sends a message to one connection (implements service.Broadcaster)
func (h *Hub) SendToConn(connID string, msg *model.OutboundMessage) {
	h.SendToConns([]string{connID}, msg)
}

// SendToConns sends one message to each listed connection (implements service.Broadcaster)
func (h *Hub) SendToConns(connIDs []string, msg *model.OutboundMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Str("module", "ws.hub").Str("type", string(msg.Type)).Err(err).Msg("failed to encode message")
		return
	}
	select {
	case h.outbound <- &delivery{connIDs: connIDs, data: data}:
	case <-h.quit:
	}
}
