package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// Event kinds pushed to connected POS screens. Every kind triggers a
// re-fetch of the affected order/table views on the client.
const (
	EventOrderCreated       = "order_created"
	EventOrderUpdated       = "order_updated"
	EventTableStatusChanged = "table_status_changed"
	EventOrderStatusUpdated = "orderStatusUpdated"
	EventPaymentCompleted   = "paymentCompleted"
)

// Event is a message to be broadcast to a venue's room.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type venueEvent struct {
	VenueID uuid.UUID
	Event   Event
}

// Hub maintains the set of active clients, grouped into venue rooms, and
// broadcasts events to them.
type Hub struct {
	rooms map[uuid.UUID]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *venueEvent
	done       chan struct{}

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *venueEvent, 256),
		done:       make(chan struct{}),
	}
}

// Run drives the hub until ctx is cancelled, then closes every client send
// channel so connection goroutines terminate instead of leaking past server
// shutdown. Call as a goroutine: go hub.Run(ctx).
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for venueID, clients := range h.rooms {
				for client := range clients {
					close(client.send)
				}
				delete(h.rooms, venueID)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.venueID] == nil {
				h.rooms[client.venueID] = make(map[*Client]bool)
			}
			h.rooms[client.venueID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.venueID]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.rooms, client.venueID)
					}
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			clients := h.rooms[event.VenueID]

			message, err := json.Marshal(event.Event)
			if err != nil {
				h.mu.Unlock()
				continue
			}

			for client := range clients {
				select {
				case client.send <- message:
				default:
					// Send buffer full; drop the client.
					close(client.send)
					delete(h.rooms[event.VenueID], client)
					if len(h.rooms[event.VenueID]) == 0 {
						delete(h.rooms, event.VenueID)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// add hands a client to the run loop. It reports false once the hub has
// shut down, so late connections are refused instead of parking forever on
// a channel nobody reads.
func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// remove detaches a client. After shutdown the run loop is gone and has
// already closed every send channel, so there is nothing left to do.
func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// BroadcastToVenue sends an event to every client in a venue's room.
func (h *Hub) BroadcastToVenue(venueID uuid.UUID, event Event) {
	select {
	case h.broadcast <- &venueEvent{VenueID: venueID, Event: event}:
	case <-h.done:
	}
}
