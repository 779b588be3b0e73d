package ws

import (
	"context"
	"encoding/json"
	"sync"

	"blindbox/internal/domain"
	"blindbox/internal/logger"
)

// Hub fans committed events out to connected websocket clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan domain.Event
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan domain.Event, 256),
		done:       make(chan struct{}),
	}
}

// Run owns client registration and delivery until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				c.stop()
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			logger.Debug("ws client registered", "account", c.AccountID, "clients", n)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.stop()
			}
			h.mu.Unlock()

		case evt := <-h.broadcast:
			h.deliver(evt)
		}
	}
}

func (h *Hub) deliver(evt domain.Event) {
	msg, err := json.Marshal(Message{Type: MsgEvent, Event: evt})
	if err != nil {
		logger.Error("encode ws event", "type", evt.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.wants(evt.Type) {
			continue
		}
		select {
		case c.Send <- msg:
		default:
			// slow consumer
			delete(h.clients, c)
			c.stop()
			logger.Warn("ws client dropped", "account", c.AccountID)
		}
	}
}

// Publish queues events for delivery. Events are dropped when the queue is full.
func (h *Hub) Publish(_ context.Context, evts ...domain.Event) {
	for _, evt := range evts {
		select {
		case h.broadcast <- evt:
		default:
			logger.Warn("ws broadcast queue full", "type", evt.Type)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
