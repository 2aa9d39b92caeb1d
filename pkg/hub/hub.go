package hub

import (
	"context"
	"sync"

	"github.com/skyops/go-dronedeck/internal/log"
	"github.com/skyops/go-dronedeck/internal/observe"
)

// RequestHandler receives inbound client requests. It runs on the
// client's read goroutine, so it must not block. Replies go through
// the client's SendEvent.
type RequestHandler func(c *Client, req Request)

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	name string

	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex

	onRequest RequestHandler
	metrics   *observe.Metrics
}

// New creates a hub. name appears in logs only.
func New(name string) *Hub {
	return &Hub{
		name:       name,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		metrics:    observe.Default(),
	}
}

// OnRequest installs the handler for inbound client messages. Call before
// Run; there is no locking around the handler.
func (h *Hub) OnRequest(fn RequestHandler) {
	h.onRequest = fn
}

// Run processes registrations and broadcasts until ctx is cancelled, then
// closes every remaining client. The done channel is closed on exit so
// client goroutines stuck on register/unregister can bail out.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				client.closeSend()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			log.Info("event hub stopped", "hub", h.name)
			return ctx.Err()

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.metrics.EventClients.Add(ctx, 1)
			log.Info("client connected", "hub", h.name, "client", client.ID, "total", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
				h.metrics.EventClients.Add(ctx, -1)
			}
			count := len(h.clients)
			h.mu.Unlock()
			log.Info("client disconnected", "hub", h.name, "client", client.ID, "remaining", count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client's buffer is full - they're too slow.
					client.closeSend()
					delete(h.clients, client)
					h.metrics.EventClients.Add(ctx, -1)
					log.Warn("dropped slow client", "hub", h.name, "client", client.ID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues a message for every connected client. Messages are
// dropped when the broadcast queue is full.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		log.Warn("broadcast channel full, dropping message", "hub", h.name)
	}
}

// Publish encodes payload in the event envelope and broadcasts it.
func (h *Hub) Publish(event string, payload any) error {
	data, err := Encode(event, payload)
	if err != nil {
		return err
	}
	h.Broadcast(NewJSONMessage(data))
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) handleRequest(c *Client, req Request) {
	if h.onRequest != nil {
		h.onRequest(c, req)
	}
}
