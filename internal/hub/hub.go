package hub

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// Event represents a real-time event to be sent to clients.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Hub manages the live subscribers of every room. Any number of
// clients may watch the same room at once; a room's entry disappears
// when its last subscriber leaves.
type Hub struct {
	rooms map[uint]map[*Client]bool
	mu    sync.RWMutex
}

// GlobalHub is the singleton instance of our Hub.
var GlobalHub = NewHub()

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[uint]map[*Client]bool),
	}
}

// Subscribe adds a new client to a specific room.
func (h *Hub) Subscribe(roomID uint, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
}

// Unsubscribe removes a client from a room.
func (h *Hub) Unsubscribe(roomID uint, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.rooms[roomID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send) // Signals the write pump to stop.
			if len(clients) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
}

// Subscribers returns the number of clients currently watching a room.
func (h *Hub) Subscribers(roomID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// Broadcast sends an event to all clients subscribed to a room. Sends
// are best-effort: a slow client never blocks the caller, its frame is
// dropped instead.
func (h *Hub) Broadcast(roomID uint, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.rooms[roomID]
	if !ok {
		return
	}

	messageBytes, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Uint("room_id", roomID).Msg("failed to marshal hub event")
		return
	}

	for client := range clients {
		select {
		case client.send <- messageBytes:
		default:
			log.Warn().Uint("room_id", roomID).Msg("dropping event for slow subscriber")
		}
	}
}
