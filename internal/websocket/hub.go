package websocket

import (
	"encoding/json"
	"sync"

	"github.com/jonatato/routeit-sub001/internal/models"
	"github.com/jonatato/routeit-sub001/internal/notifier"
)

// Hub fans ledger change events out to connected websocket clients. It holds
// one bus subscription per connected user, opened when the user's first
// client registers and cancelled when the last one leaves, so nothing keeps
// delivering events to users with no live connection.
type Hub struct {
	bus     *notifier.Bus
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	subs    map[string]*notifier.Subscription
}

func NewHub(bus *notifier.Bus) *Hub {
	return &Hub{
		bus:     bus,
		clients: make(map[string]map[*Client]struct{}),
		subs:    make(map[string]*notifier.Subscription),
	}
}

func (h *Hub) Register(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*Client]struct{})
		h.subs[userID] = h.bus.Subscribe(notifier.UserScope(userID), func(event models.ChangeEvent) {
			h.broadcast(userID, event)
		})
	}
	h.clients[userID][client] = struct{}{}
}

func (h *Hub) Unregister(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		return
	}
	delete(h.clients[userID], client)
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
		if sub := h.subs[userID]; sub != nil {
			sub.Cancel()
		}
		delete(h.subs, userID)
	}
}

func (h *Hub) broadcast(userID string, event models.ChangeEvent) {
	payload, _ := json.Marshal(event)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		select {
		case client.send <- payload:
		default:
			// slow client; it will refetch a fresh snapshot anyway
		}
	}
}

// ConnectedUsers is exported for the metrics gauge.
func (h *Hub) ConnectedUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
