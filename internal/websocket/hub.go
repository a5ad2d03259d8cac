// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/DevEmmy/eventfi-backend-v2/internal/logging"
	"github.com/DevEmmy/eventfi-backend-v2/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline may indicate a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

const broadcastBuffer = 1024

// roomFrame is a queued broadcast. except, when set, is skipped.
type roomFrame struct {
	room   string
	frame  []byte
	except *Client
}

// Hub tracks connections and their rooms and delivers room broadcasts.
//
// Room membership changes are synchronous so callers can tell whether a
// user's last connection left a room. Broadcasts are queued and delivered by
// RunWithContext in queue order.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
	roomOf  map[*Client]string

	broadcast chan roomFrame
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*Client]struct{}),
		rooms:     make(map[string]map[*Client]struct{}),
		roomOf:    make(map[*Client]string),
		broadcast: make(chan roomFrame, broadcastBuffer),
	}
}

// Register adds a connected client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Inc()
	logging.Debug().Uint64("client_id", c.id).Str("user_id", c.userID).Int("total_clients", total).Msg("websocket client connected")
}

// Unregister removes a client from the hub and from its room, and closes it.
// It returns the room the client was in, if any, and whether it was the
// user's last connection there.
func (h *Hub) Unregister(c *Client) (room string, last bool) {
	h.mu.Lock()
	_, known := h.clients[c]
	delete(h.clients, c)
	room, last = h.leaveLocked(c)
	total := len(h.clients)
	h.mu.Unlock()

	c.close()
	if known {
		metrics.WSConnections.Dec()
		logging.Debug().Uint64("client_id", c.id).Str("user_id", c.userID).Int("total_clients", total).Msg("websocket client disconnected")
	}
	return room, last
}

// Join puts c in room, moving it out of any other room silently. Callers
// announce departures through Leave first.
func (h *Hub) Join(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cur, ok := h.roomOf[c]; ok {
		if cur == room {
			return
		}
		h.leaveLocked(c)
	}

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
		metrics.WSRooms.Inc()
	}
	members[c] = struct{}{}
	h.roomOf[c] = room
}

// Leave removes c from its room. last reports whether no other connection
// of the same user remains in that room.
func (h *Hub) Leave(c *Client) (room string, last bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.leaveLocked(c)
}

func (h *Hub) leaveLocked(c *Client) (string, bool) {
	room, ok := h.roomOf[c]
	if !ok {
		return "", false
	}
	delete(h.roomOf, c)

	members := h.rooms[room]
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
		metrics.WSRooms.Dec()
	}
	for other := range members {
		if other.userID == c.userID {
			return room, false
		}
	}
	return room, true
}

// RoomOf returns the room c is in.
func (h *Hub) RoomOf(c *Client) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.roomOf[c]
	return room, ok
}

// BroadcastToRoom queues a frame for every connection in room.
func (h *Hub) BroadcastToRoom(room, event string, data interface{}) {
	h.queue(room, event, data, nil)
}

// BroadcastToRoomExcept queues a frame for every connection in room but except.
func (h *Hub) BroadcastToRoomExcept(room, event string, data interface{}, except *Client) {
	h.queue(room, event, data, except)
}

func (h *Hub) queue(room, event string, data interface{}, except *Client) {
	frame, err := MarshalFrame(event, data)
	if err != nil {
		logging.Error().Err(err).Str("event", event).Msg("failed to marshal broadcast frame")
		return
	}

	select {
	case h.broadcast <- roomFrame{room: room, frame: frame, except: except}:
	default:
		metrics.WSErrors.WithLabelValues("broadcast_full").Inc()
		logging.Warn().Str("room", room).Str("event", event).Msg("broadcast channel full, dropping frame")
	}
}

// RunWithContext delivers queued broadcasts until ctx is canceled, then
// closes every connected client. It is designed for use with suture
// supervision.
//
// Shutdown has priority over pending broadcasts.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case rf := <-h.broadcast:
			h.deliver(rf)
		}
	}
}

// deliver sends rf to the room's connections in connection order. Clients
// whose send queue is full are dropped.
func (h *Hub) deliver(rf roomFrame) {
	h.mu.RLock()
	members := h.rooms[rf.room]
	targets := make([]*Client, 0, len(members))
	for c := range members {
		if c != rf.except {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	sort.Slice(targets, func(i, j int) bool {
		return targets[i].id < targets[j].id
	})

	for _, c := range targets {
		if !c.enqueue(rf.frame) {
			logging.Warn().Str("room", rf.room).Uint64("client_id", c.id).Msg("slow websocket consumer, closing")
		}
	}
}

func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// closeAllClients closes every client. Their read loops then run the
// normal disconnect path.
func (h *Hub) closeAllClients() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.close()
	}
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomCount returns the number of rooms with at least one connection.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// RoomSize returns the number of connections in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
