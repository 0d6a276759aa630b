package websocket

import (
	"encoding/json"
	"sync"

	"ride-backend/pkg/logger"
)

// sender is the part of Connection the hub needs. Kept as an interface so
// tests can register fake connections.
type sender interface {
	Send(message []byte)
	Close()
}

// Hub is a concurrency-safe registry of websocket connections keyed by user
// id, with per-ride rooms for fanning status updates out to a ride's
// participants. The hub only ever reads post-transition state pushed into it;
// it has no path back into the ride write path.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]sender              // user_id -> connection
	rideRooms   map[string]map[string]struct{} // ride_id -> set of user_ids
	log         logger.Logger
}

// NewHub creates an empty hub.
func NewHub(log logger.Logger) *Hub {
	return &Hub{
		connections: make(map[string]sender),
		rideRooms:   make(map[string]map[string]struct{}),
		log:         log,
	}
}

// AddConnection registers a connection, replacing any previous one for the
// same user.
func (h *Hub) AddConnection(userID string, conn sender) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.connections[userID]; ok {
		existing.Close()
		h.log.WithFields(logger.LogFields{"user_id": userID}).Info("websocket_replaced", "Replacing existing connection")
	}
	h.connections[userID] = conn
	h.log.WithFields(logger.LogFields{
		"user_id": userID,
		"total":   len(h.connections),
	}).Info("websocket_connected", "Connection added")
}

// RemoveConnection drops a user's connection and their room memberships.
// Removal is identity-aware: when conn is no longer the registered connection
// (the user reconnected and the old reader is shutting down late), the call is
// a no-op so the replacement stays registered.
func (h *Hub) RemoveConnection(userID string, conn sender) {
	h.mu.Lock()
	defer h.mu.Unlock()

	registered, ok := h.connections[userID]
	if !ok || registered != conn {
		return
	}
	registered.Close()
	delete(h.connections, userID)
	for rideID, members := range h.rideRooms {
		delete(members, userID)
		if len(members) == 0 {
			delete(h.rideRooms, rideID)
		}
	}
}

// JoinRide adds a user to a ride's room.
func (h *Hub) JoinRide(rideID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rideRooms[rideID]
	if !ok {
		members = make(map[string]struct{})
		h.rideRooms[rideID] = members
	}
	members[userID] = struct{}{}
}

// LeaveRide removes a user from a ride's room.
func (h *Hub) LeaveRide(rideID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rideRooms[rideID]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(h.rideRooms, rideID)
		}
	}
}

// SendToUser delivers a message to one user, if connected.
func (h *Hub) SendToUser(userID string, message interface{}) error {
	body, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.mu.RLock()
	conn, ok := h.connections[userID]
	h.mu.RUnlock()

	if !ok {
		return nil // not an error, the user just isn't connected
	}
	conn.Send(body)
	return nil
}

// SendToRide delivers a message to every participant of a ride's room.
func (h *Hub) SendToRide(rideID string, message interface{}) error {
	body, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.mu.RLock()
	var conns []sender
	for userID := range h.rideRooms[rideID] {
		if conn, ok := h.connections[userID]; ok {
			conns = append(conns, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		conn.Send(body)
	}
	return nil
}

// Broadcast delivers a message to every connected user.
func (h *Hub) Broadcast(message interface{}) error {
	body, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.mu.RLock()
	conns := make([]sender, 0, len(h.connections))
	for _, conn := range h.connections {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		conn.Send(body)
	}
	return nil
}

// ConnectionCount returns the number of registered connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// IsUserConnected checks whether a user has a live connection.
func (h *Hub) IsUserConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.connections[userID]
	return ok
}
