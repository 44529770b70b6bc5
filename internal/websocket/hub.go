package websocket

import (
	"encoding/json"
	"log"
	"sync"

	"tripmate-core/internal/services/trip"
)

// Hub maintains the WebSocket connections of local UI clients and pushes every
// merged trip snapshot change to all of them.
type Hub struct {
	// Registered clients (connection ID -> Client)
	clients map[string]*Client

	// Outbound snapshots to fan out
	broadcast chan []byte

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	mu sync.RWMutex
}

// snapshotMessage is the envelope pushed to UI clients
type snapshotMessage struct {
	Type string     `json:"type"`
	Data trip.State `json:"data"`
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			log.Printf("✅ [WEBSOCKET] UI client connected: %s (user %s, %d total)", client.ID, client.UserID, h.ClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("🔴 [WEBSOCKET] UI client disconnected: %s (%d remaining)", client.ID, h.ClientCount())

		case message := <-h.broadcast:
			h.mu.Lock()
			for id, client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client buffer full, disconnect
					close(client.send)
					delete(h.clients, id)
					log.Printf("⚠️ Client buffer full, disconnecting: %s", id)
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastState queues a trip snapshot for every connected client. Wire this
// as a trip.Service observer.
func (h *Hub) BroadcastState(state trip.State) {
	data, err := json.Marshal(snapshotMessage{Type: "trip_state", Data: state})
	if err != nil {
		log.Printf("❌ Failed to marshal trip snapshot: %v", err)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		log.Println("⚠️ Snapshot broadcast buffer full, dropping update")
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
