// Package websocket pushes friend-request events to the connected clients of
// a user.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

type Hub struct {
	userConns  map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	logger     *slog.Logger
	origins    map[string]bool
}

type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type ClientMessage struct {
	Action string `json:"action"`
}

// NewHub creates a hub that accepts upgrades from the given origins. A "*"
// entry accepts any origin.
func NewHub(allowedOrigins []string, logger *slog.Logger) *Hub {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		userConns:  make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
		logger:     logger,
		origins:    origins,
	}
}

// Run serves register and unregister requests until ctx is done, then
// closes every open connection. Registrations after that are refused.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.userConns[client.UserID] == nil {
				h.userConns[client.UserID] = make(map[*Client]bool)
			}
			h.userConns[client.UserID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.remove(client)

		case <-ctx.Done():
			h.mu.Lock()
			for userID, clients := range h.userConns {
				for client := range clients {
					close(client.Send)
				}
				delete(h.userConns, userID)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.userConns[client.UserID]
	if !clients[client] {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.userConns, client.UserID)
	}
	close(client.Send)
}

// sendTo queues data for one connection. It reports false when the
// connection is gone or its buffer is full.
func (h *Hub) sendTo(client *Client, data []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.userConns[client.UserID][client] {
		return false
	}
	select {
	case client.Send <- data:
		return true
	default:
		return false
	}
}

func (h *Hub) SendToUser(userID string, msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("encode websocket message", "event", msg.Event, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.userConns[userID] {
		select {
		case client.Send <- data:
		default:
			// Slow consumer; drop it.
			select {
			case h.unregister <- client:
			default:
			}
		}
	}
}

// Notify sends an event to every open connection of userID. Users without a
// connection simply miss it.
func (h *Hub) Notify(userID, eventType string, data any) {
	h.SendToUser(userID, &Message{Event: eventType, Data: data})
}

func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userConns[userID]) > 0
}
