package realtime

import (
	"context"
	"encoding/json"
	"expvar"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	wsConnectionsGauge   = expvar.NewInt("websocket_connections")
	wsEventsSentTotal    = expvar.NewInt("websocket_events_sent_total")
	wsEventsDroppedTotal = expvar.NewInt("websocket_events_dropped_total")
)

// Connection represents an authenticated WebSocket connection.
type Connection struct {
	UserID uuid.UUID
	Conn   *websocket.Conn
	Send   chan []byte
}

// Hub owns the presence map: the in-memory mapping from user id to its
// single live connection. It is process-lifetime scoped and rebuilt empty
// on restart; running multiple server processes requires an external
// shared presence store, which this service does not do.
type Hub struct {
	// conns holds at most one connection per user (last connection wins)
	conns map[uuid.UUID]*Connection

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates the hub. Call Run in a goroutine to start it.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		conns:      make(map[uuid.UUID]*Connection),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Run processes registration events one at a time, so concurrent
// connect/disconnect cannot corrupt the map or drop an online broadcast.
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.conns[conn.UserID] = conn
			h.mu.Unlock()
			wsConnectionsGauge.Add(1)

			log.Debug().Str("user_id", conn.UserID.String()).Msg("User connected to WebSocket")
			h.broadcastOnlineUsers()

		case conn := <-h.unregister:
			removed := false
			h.mu.Lock()
			// Only remove the entry if this connection is still the
			// registered one; a stale disconnect from a superseded
			// connection must not erase a newer registration.
			if current, ok := h.conns[conn.UserID]; ok && current == conn {
				delete(h.conns, conn.UserID)
				close(conn.Send)
				removed = true
			}
			h.mu.Unlock()

			if removed {
				wsConnectionsGauge.Add(-1)
				log.Debug().Str("user_id", conn.UserID.String()).Msg("User disconnected from WebSocket")
				h.broadcastOnlineUsers()
			}
		}
	}
}

// Register adds a connection, replacing any prior one for the same user.
// The prior connection is not closed here; tearing down the superseded
// transport is the caller's concern.
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.ctx.Done():
	}
}

// Unregister removes a connection if it is still the registered one.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.ctx.Done():
	}
}

// Lookup returns the live connection for a user, or nil if offline.
func (h *Hub) Lookup(userID uuid.UUID) *Connection {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.conns[userID]
}

// IsOnline reports whether the user has a live connection.
func (h *Hub) IsOnline(userID uuid.UUID) bool {
	return h.Lookup(userID) != nil
}

// OnlineUserIDs returns the ids of all currently connected users.
func (h *Hub) OnlineUserIDs() []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(h.conns))
	for id := range h.conns {
		ids = append(ids, id)
	}
	return ids
}

// Emit delivers an event to the user's live connection. If the user is
// offline this is a silent no-op: delivery is best-effort with no queue.
func (h *Hub) Emit(userID uuid.UUID, event EventType, data interface{}) {
	conn := h.Lookup(userID)
	if conn == nil {
		return
	}
	h.send(conn, event, data)
}

// EmitToEach delivers an event to each user's connection, skipping
// duplicates when two ids resolve to the same connection.
func (h *Hub) EmitToEach(event EventType, data interface{}, userIDs ...uuid.UUID) {
	seen := make(map[*Connection]bool, len(userIDs))
	for _, id := range userIDs {
		conn := h.Lookup(id)
		if conn == nil || seen[conn] {
			continue
		}
		seen[conn] = true
		h.send(conn, event, data)
	}
}

// Broadcast delivers an event to every live connection.
func (h *Hub) Broadcast(event EventType, data interface{}) {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.conns))
	for _, conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		h.send(conn, event, data)
	}
}

// ConnectionCount returns the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Shutdown stops the hub loop.
func (h *Hub) Shutdown() {
	h.cancel()
}

// broadcastOnlineUsers pushes the full online-id snapshot to everyone.
// Full snapshot, not a delta: receivers never reconcile partial updates.
func (h *Hub) broadcastOnlineUsers() {
	h.Broadcast(EventOnlineUsers, h.OnlineUserIDs())
}

func (h *Hub) send(conn *Connection, event EventType, data interface{}) {
	payload, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		log.Error().Err(err).Str("event", string(event)).Msg("Failed to marshal WebSocket event")
		return
	}

	select {
	case conn.Send <- payload:
		wsEventsSentTotal.Add(1)
	default:
		// Buffer full, drop the event
		wsEventsDroppedTotal.Add(1)
		log.Warn().Str("user_id", conn.UserID.String()).Msg("WebSocket send buffer full")
	}
}
