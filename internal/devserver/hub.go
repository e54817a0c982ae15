package devserver

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/salvo/internal/wire"
)

// wsConn is one push connection and the player it belongs to.
type wsConn struct {
	conn     *websocket.Conn
	playerID string
	send     chan []byte
}

// Hub fans match updates out to subscribed push connections.
type Hub struct {
	mu          sync.RWMutex
	connections map[*wsConn]bool
	games       map[string]map[*wsConn]bool // gameID -> subscribers
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[*wsConn]bool),
		games:       make(map[string]map[*wsConn]bool),
	}
}

func (h *Hub) register(c *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c] = true
}

func (h *Hub) unregister(c *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.connections[c] {
		return
	}
	delete(h.connections, c)
	for gameID, conns := range h.games {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.games, gameID)
		}
	}
	close(c.send)
}

func (h *Hub) subscribe(c *wsConn, gameID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.games[gameID] == nil {
		h.games[gameID] = make(map[*wsConn]bool)
	}
	h.games[gameID][c] = true
}

func (h *Hub) unsubscribe(c *wsConn, gameID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.games[gameID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.games, gameID)
		}
	}
}

// BroadcastSnapshot pushes a full snapshot to a game's subscribers.
func (h *Hub) BroadcastSnapshot(snap wire.Snapshot) {
	h.broadcast(snap.GameID, wire.TypeSnapshot, snap)
}

// BroadcastEvents pushes an event batch to a game's subscribers.
func (h *Hub) BroadcastEvents(gameID string, events []wire.Event) {
	h.broadcast(gameID, wire.TypeEvents, events)
}

func (h *Hub) broadcast(gameID, typ string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("gameId", gameID).Msg("Failed to marshal push payload")
		return
	}
	msg, err := json.Marshal(wire.Envelope{Type: typ, GameID: gameID, Data: data})
	if err != nil {
		log.Error().Err(err).Str("gameId", gameID).Msg("Failed to marshal push envelope")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.games[gameID] {
		select {
		case c.send <- msg:
		default:
			log.Warn().Str("playerId", c.playerID).Str("gameId", gameID).Msg("Dropping push message, buffer full")
		}
	}
}

// ConnectionCount returns the number of open push connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// SubscriberCount returns the number of connections subscribed to a game.
func (h *Hub) SubscriberCount(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.games[gameID])
}
