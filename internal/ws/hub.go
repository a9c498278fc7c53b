package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
)

// EventOrderPlaced is sent to a vendor's room when the lifecycle sweep
// places an order that includes the vendor.
const EventOrderPlaced = "order.placed"

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// vendorEvent is an internal struct for routing events to specific vendors
type vendorEvent struct {
	VendorID uuid.UUID
	Event    Event
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	rooms      map[uuid.UUID]map[*Client]bool // by vendor
	register   chan *Client
	unregister chan *Client
	broadcast  chan *vendorEvent
	mu         sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *vendorEvent, 256),
	}
}

// Run owns room membership; start it once with go hub.Run().
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.vendorID] == nil {
				h.rooms[client.vendorID] = make(map[*Client]bool)
			}
			h.rooms[client.vendorID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.rooms[client.vendorID][client]; ok {
				h.drop(client)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				log.Printf("ERROR: websocket marshal %s event: %v", event.Event.Type, err)
				continue
			}
			h.mu.Lock()
			for client := range h.rooms[event.VendorID] {
				select {
				case client.send <- message:
				default:
					// Slow consumer.
					h.drop(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop closes a client's queue and removes it, deleting the room once
// empty. Callers hold mu.
func (h *Hub) drop(client *Client) {
	room := h.rooms[client.vendorID]
	delete(room, client)
	close(client.send)
	if len(room) == 0 {
		delete(h.rooms, client.vendorID)
	}
}

// BroadcastToVendor sends an event to all clients subscribed to a vendor.
// It never blocks the caller: when the queue is full the event is dropped.
func (h *Hub) BroadcastToVendor(vendorID uuid.UUID, event Event) {
	select {
	case h.broadcast <- &vendorEvent{
		VendorID: vendorID,
		Event:    event,
	}:
	default:
		log.Printf("WARN: websocket queue full, %s event for vendor %s dropped", event.Type, vendorID)
	}
}

// Connected returns the number of clients subscribed to a vendor.
func (h *Hub) Connected(vendorID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[vendorID])
}
