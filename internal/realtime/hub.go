// Package realtime owns the live websocket connections, their room
// memberships and the fan-out primitives that synchronize playback state and
// chat across clients. A single actor goroutine owns all membership state, so
// every fan-out iterates a consistent snapshot.
package realtime

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/offbeatfm/offbeat/internal/metrics"
)

// Room key prefixes. A connection holds at most one station room and one
// topic room at a time (joining another leaves the previous one first), but
// any number of watch rooms.
const (
	prefixStation  = "station:"
	prefixTopic    = "topic:"
	prefixWatching = "watching:"
)

// StationRoom returns the playback room key for a station.
func StationRoom(stationID string) string { return prefixStation + stationID }

// TopicRoom returns the chat room key for a topic.
func TopicRoom(topic string) string { return prefixTopic + topic }

// WatchingRoom returns the room key for clients watching a user.
func WatchingRoom(userID string) string { return prefixWatching + userID }

// --- Command types ---

type hubCmd interface{ hubCmd() }

type cmdConnect struct{ conn Conn }

func (cmdConnect) hubCmd() {}

type cmdDisconnect struct{ connID string }

func (cmdDisconnect) hubCmd() {}

type cmdJoin struct{ connID, roomKey string }

func (cmdJoin) hubCmd() {}

type cmdLeave struct{ connID, roomKey string }

func (cmdLeave) hubCmd() {}

type cmdSetUser struct{ connID, userID string }

func (cmdSetUser) hubCmd() {}

type cmdUnsetUser struct{ connID string }

func (cmdUnsetUser) hubCmd() {}

type cmdEmitRoom struct {
	roomKey   string
	eventType string
	payload   any
	excludeID string
}

func (cmdEmitRoom) hubCmd() {}

type cmdEmitUser struct {
	userID    string
	eventType string
	payload   any
}

func (cmdEmitUser) hubCmd() {}

type cmdBroadcast struct {
	eventType string
	payload   any
	roomKey   string
	userID    string
}

func (cmdBroadcast) hubCmd() {}

type cmdInbound struct {
	connID string
	raw    []byte
}

func (cmdInbound) hubCmd() {}

type cmdRoomSize struct {
	roomKey string
	replyCh chan int
}

func (cmdRoomSize) hubCmd() {}

type cmdConnCount struct{ replyCh chan int }

func (cmdConnCount) hubCmd() {}

type cmdStop struct{}

func (cmdStop) hubCmd() {}

// --- State ---

// membership is everything the hub tracks for one connection. The station and
// topic fields hold full room keys, preserving the one-room-per-category
// invariant by construction.
type membership struct {
	conn    Conn
	userID  string
	station string
	topic   string
	watches map[string]struct{}
}

// Hub maintains connection membership and fan-out. Construct one per process
// and hand it to the transport and controller layers; membership is purely
// in-memory and vanishes on restart.
type Hub struct {
	cmdCh   chan hubCmd
	done    chan struct{} // closed when the actor goroutine exits
	members map[string]*membership
	rooms   map[string]map[string]struct{}
	users   map[string]string // userID -> most recently identified connID
}

// NewHub creates a hub and starts its actor goroutine.
func NewHub() *Hub {
	h := &Hub{
		cmdCh:   make(chan hubCmd, 256),
		done:    make(chan struct{}),
		members: make(map[string]*membership),
		rooms:   make(map[string]map[string]struct{}),
		users:   make(map[string]string),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	defer close(h.done)

	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case cmdConnect:
			h.handleConnect(c.conn)
		case cmdDisconnect:
			h.handleDisconnect(c.connID)
		case cmdJoin:
			h.handleJoin(c.connID, c.roomKey)
		case cmdLeave:
			h.handleLeave(c.connID, c.roomKey)
		case cmdSetUser:
			h.handleSetUser(c.connID, c.userID)
		case cmdUnsetUser:
			h.handleUnsetUser(c.connID)
		case cmdEmitRoom:
			h.handleEmitRoom(c.roomKey, c.eventType, c.payload, c.excludeID)
		case cmdEmitUser:
			h.handleEmitUser(c.userID, c.eventType, c.payload)
		case cmdBroadcast:
			h.handleBroadcast(c)
		case cmdInbound:
			h.handleInbound(c.connID, c.raw)
		case cmdRoomSize:
			c.replyCh <- len(h.rooms[c.roomKey])
		case cmdConnCount:
			c.replyCh <- len(h.members)
		case cmdStop:
			h.handleStop()
			return
		}
	}
}

// --- Public API ---

// send enqueues a command unless the actor has already exited. Commands sent
// after Stop are dropped instead of piling up in the buffer, so callers racing
// shutdown never block.
func (h *Hub) send(cmd hubCmd) {
	select {
	case h.cmdCh <- cmd:
	case <-h.done:
	}
}

// Connect registers a new connection with no memberships.
func (h *Hub) Connect(conn Conn) {
	h.send(cmdConnect{conn: conn})
}

// Disconnect removes the connection from every room it belonged to and
// releases its user binding. Called by the transport when the read loop ends.
func (h *Hub) Disconnect(connID string) {
	h.send(cmdDisconnect{connID: connID})
}

// Join adds the connection to roomKey. Idempotent; joining a second room of
// the same category (station or topic) leaves the previous one first.
// Malformed room keys are dropped without error.
func (h *Hub) Join(connID, roomKey string) {
	h.send(cmdJoin{connID: connID, roomKey: roomKey})
}

// Leave removes the connection from roomKey only if it is its current room
// for that category, guarding against a stale leave racing a newer join.
func (h *Hub) Leave(connID, roomKey string) {
	h.send(cmdLeave{connID: connID, roomKey: roomKey})
}

// SetUser binds the connection to a user id. The most recent binding wins
// when the same user identifies on multiple connections.
func (h *Hub) SetUser(connID, userID string) {
	h.send(cmdSetUser{connID: connID, userID: userID})
}

// UnsetUser clears the connection's user binding.
func (h *Hub) UnsetUser(connID string) {
	h.send(cmdUnsetUser{connID: connID})
}

// EmitToRoom delivers payload tagged with eventType to every connection in
// roomKey except excludeConnID (pass "" for no exclusion). Delivery is
// fire-and-forget per connection.
func (h *Hub) EmitToRoom(roomKey, eventType string, payload any, excludeConnID string) {
	h.send(cmdEmitRoom{roomKey: roomKey, eventType: eventType, payload: payload, excludeID: excludeConnID})
}

// EmitToUser delivers directly to the user's current connection. A silent
// no-op when the user is not online.
func (h *Hub) EmitToUser(userID, eventType string, payload any) {
	h.send(cmdEmitUser{userID: userID, eventType: eventType, payload: payload})
}

// BroadcastExcludingUser delivers to roomKey excluding userID's connection.
// Degrades gracefully: with no room it broadcasts globally excluding the
// user; with no known connection for the user it delivers unexcluded; with
// neither it broadcasts globally. Pass "" for an absent room or user.
func (h *Hub) BroadcastExcludingUser(eventType string, payload any, roomKey, userID string) {
	h.send(cmdBroadcast{eventType: eventType, payload: payload, roomKey: roomKey, userID: userID})
}

// HandleMessage dispatches an inbound client frame. Malformed frames are
// dropped; they never fail the connection.
func (h *Hub) HandleMessage(connID string, raw []byte) {
	h.send(cmdInbound{connID: connID, raw: raw})
}

// RoomSize returns the current member count of roomKey, or 0 after Stop.
func (h *Hub) RoomSize(roomKey string) int {
	replyCh := make(chan int, 1)
	h.send(cmdRoomSize{roomKey: roomKey, replyCh: replyCh})
	select {
	case n := <-replyCh:
		return n
	case <-h.done:
		return 0
	}
}

// ConnCount returns the number of live connections, or 0 after Stop.
func (h *Hub) ConnCount() int {
	replyCh := make(chan int, 1)
	h.send(cmdConnCount{replyCh: replyCh})
	select {
	case n := <-replyCh:
		return n
	case <-h.done:
		return 0
	}
}

// Stop closes every connection and shuts the actor down. Blocks until the
// actor goroutine has exited; safe to call more than once.
func (h *Hub) Stop() {
	h.send(cmdStop{})
	<-h.done
}

// --- Actor handlers ---

func (h *Hub) handleConnect(conn Conn) {
	h.members[conn.ID()] = &membership{
		conn:    conn,
		watches: make(map[string]struct{}),
	}
	metrics.HubConnectedClients.Set(float64(len(h.members)))
	slog.Info("Client connected", "conn_id", conn.ID(), "total", len(h.members))
}

func (h *Hub) handleDisconnect(connID string) {
	m, ok := h.members[connID]
	if !ok {
		return
	}

	if m.station != "" {
		h.removeFromRoom(connID, m.station)
	}
	if m.topic != "" {
		h.removeFromRoom(connID, m.topic)
	}
	for room := range m.watches {
		h.removeFromRoom(connID, room)
	}
	if m.userID != "" && h.users[m.userID] == connID {
		delete(h.users, m.userID)
	}

	delete(h.members, connID)
	m.conn.Close()

	metrics.HubConnectedClients.Set(float64(len(h.members)))
	slog.Info("Client disconnected", "conn_id", connID, "remaining", len(h.members))
}

func (h *Hub) handleJoin(connID, roomKey string) {
	m, ok := h.members[connID]
	if !ok {
		return
	}

	switch {
	case strings.HasPrefix(roomKey, prefixStation) && roomKey != prefixStation:
		if m.station == roomKey {
			return
		}
		if m.station != "" {
			h.removeFromRoom(connID, m.station)
			slog.Debug("Left station room", "conn_id", connID, "room", m.station)
		}
		m.station = roomKey
		h.addToRoom(connID, roomKey)
		slog.Debug("Joined station room", "conn_id", connID, "room", roomKey)

	case strings.HasPrefix(roomKey, prefixTopic) && roomKey != prefixTopic:
		if m.topic == roomKey {
			return
		}
		if m.topic != "" {
			h.removeFromRoom(connID, m.topic)
			slog.Debug("Left topic room", "conn_id", connID, "room", m.topic)
		}
		m.topic = roomKey
		h.addToRoom(connID, roomKey)
		slog.Debug("Joined topic room", "conn_id", connID, "room", roomKey)

	case strings.HasPrefix(roomKey, prefixWatching) && roomKey != prefixWatching:
		if _, member := m.watches[roomKey]; member {
			return
		}
		m.watches[roomKey] = struct{}{}
		h.addToRoom(connID, roomKey)

	default:
		// Membership changes are best-effort; a malformed key never fails the caller.
		slog.Debug("Dropping join with unknown room key", "conn_id", connID, "room", roomKey)
	}
}

func (h *Hub) handleLeave(connID, roomKey string) {
	m, ok := h.members[connID]
	if !ok {
		return
	}

	switch {
	case strings.HasPrefix(roomKey, prefixStation):
		if m.station != roomKey {
			return // stale leave racing a newer join
		}
		m.station = ""
		h.removeFromRoom(connID, roomKey)
		slog.Debug("Left station room", "conn_id", connID, "room", roomKey)

	case strings.HasPrefix(roomKey, prefixTopic):
		if m.topic != roomKey {
			return
		}
		m.topic = ""
		h.removeFromRoom(connID, roomKey)

	case strings.HasPrefix(roomKey, prefixWatching):
		if _, member := m.watches[roomKey]; !member {
			return
		}
		delete(m.watches, roomKey)
		h.removeFromRoom(connID, roomKey)

	default:
		slog.Debug("Dropping leave with unknown room key", "conn_id", connID, "room", roomKey)
	}
}

func (h *Hub) handleSetUser(connID, userID string) {
	m, ok := h.members[connID]
	if !ok {
		return
	}
	if m.userID != "" && m.userID != userID && h.users[m.userID] == connID {
		delete(h.users, m.userID)
	}
	m.userID = userID
	h.users[userID] = connID
	slog.Debug("Bound user to connection", "conn_id", connID, "user_id", userID)
}

func (h *Hub) handleUnsetUser(connID string) {
	m, ok := h.members[connID]
	if !ok || m.userID == "" {
		return
	}
	if h.users[m.userID] == connID {
		delete(h.users, m.userID)
	}
	m.userID = ""
}

func (h *Hub) handleEmitRoom(roomKey, eventType string, payload any, excludeID string) {
	ids, ok := h.rooms[roomKey]
	if !ok {
		return
	}

	data, err := marshalEvent(eventType, payload)
	if err != nil {
		slog.Error("Failed to marshal event", "type", eventType, "error", err)
		return
	}

	var slow []string
	delivered := 0
	for id := range ids {
		if id == excludeID {
			continue
		}
		if h.deliver(id, data) {
			slow = append(slow, id)
			continue
		}
		delivered++
	}
	metrics.HubEventsEmittedTotal.WithLabelValues(eventType).Add(float64(delivered))

	h.evictSlow(slow)
}

func (h *Hub) handleEmitUser(userID, eventType string, payload any) {
	connID, ok := h.users[userID]
	if !ok {
		slog.Info("No active connection for user", "user_id", userID)
		return
	}

	data, err := marshalEvent(eventType, payload)
	if err != nil {
		slog.Error("Failed to marshal event", "type", eventType, "error", err)
		return
	}

	if h.deliver(connID, data) {
		h.evictSlow([]string{connID})
		return
	}
	metrics.HubEventsEmittedTotal.WithLabelValues(eventType).Inc()
}

func (h *Hub) handleBroadcast(c cmdBroadcast) {
	excludeID := ""
	if c.userID != "" {
		excludeID = h.users[c.userID]
	}

	if c.roomKey != "" {
		h.handleEmitRoom(c.roomKey, c.eventType, c.payload, excludeID)
		return
	}

	// No room: deliver globally, minus the excluded user's connection if known.
	data, err := marshalEvent(c.eventType, c.payload)
	if err != nil {
		slog.Error("Failed to marshal event", "type", c.eventType, "error", err)
		return
	}

	var slow []string
	delivered := 0
	for id := range h.members {
		if id == excludeID {
			continue
		}
		if h.deliver(id, data) {
			slow = append(slow, id)
			continue
		}
		delivered++
	}
	metrics.HubEventsEmittedTotal.WithLabelValues(c.eventType).Add(float64(delivered))

	h.evictSlow(slow)
}

func (h *Hub) handleStop() {
	for id, m := range h.members {
		m.conn.Close()
		delete(h.members, id)
	}
	h.rooms = make(map[string]map[string]struct{})
	h.users = make(map[string]string)
	metrics.HubConnectedClients.Set(0)
	metrics.HubActiveRooms.Set(0)
	slog.Info("Hub stopped")
}

// --- Internals ---

// deliver sends data to one connection. Returns true if the client is slow
// and should be evicted. A vanished connection is a no-op, not an error.
func (h *Hub) deliver(connID string, data []byte) bool {
	m, ok := h.members[connID]
	if !ok {
		return false
	}
	if err := m.conn.Send(data); err != nil {
		if err == ErrSendBufferFull {
			return true
		}
		slog.Debug("Delivery failed, recipient offline", "conn_id", connID, "error", err)
	}
	return false
}

func (h *Hub) evictSlow(connIDs []string) {
	for _, id := range connIDs {
		slog.Warn("Disconnecting slow client", "conn_id", id)
		metrics.HubSlowClientsEvicted.Inc()
		h.handleDisconnect(id)
	}
}

func (h *Hub) addToRoom(connID, roomKey string) {
	ids, ok := h.rooms[roomKey]
	if !ok {
		ids = make(map[string]struct{})
		h.rooms[roomKey] = ids
	}
	ids[connID] = struct{}{}
	metrics.HubActiveRooms.Set(float64(len(h.rooms)))
}

func (h *Hub) removeFromRoom(connID, roomKey string) {
	ids, ok := h.rooms[roomKey]
	if !ok {
		return
	}
	delete(ids, connID)
	if len(ids) == 0 {
		delete(h.rooms, roomKey)
	}
	metrics.HubActiveRooms.Set(float64(len(h.rooms)))
}

// Event is the wire envelope for everything the hub emits.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

func marshalEvent(eventType string, payload any) ([]byte, error) {
	return json.Marshal(Event{Type: eventType, Data: payload})
}
