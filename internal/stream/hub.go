package stream

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/fum1er/KOM-Hunters/internal/logger"
)

// Event is one progress update of a running segment search, pushed to every
// websocket subscribed to that search.
type Event struct {
	Type    string `json:"type"`
	Zone    string `json:"zone,omitempty"`
	Found   int    `json:"found,omitempty"`
	Scanned int    `json:"scanned,omitempty"`
	Total   int    `json:"total,omitempty"`
	Message string `json:"message,omitempty"`
}

const (
	EventZoneExplored = "zone_explored"
	EventDone         = "done"
	EventFailed       = "failed"
)

// Hub fans search progress out to websocket clients. Clients subscribe by
// search ID; a search with no subscribers broadcasts into the void, which is
// fine since progress is advisory.
type Hub struct {
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	SearchID string
	Send     chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients: map[string]map[*Client]struct{}{},
	}
}

func (h *Hub) Register(searchID string) *Client {
	client := &Client{
		SearchID: searchID,
		Send:     make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[searchID] == nil {
		h.clients[searchID] = map[*Client]struct{}{}
	}
	h.clients[searchID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if searchClients, ok := h.clients[client.SearchID]; ok {
		delete(searchClients, client)
		if len(searchClients) == 0 {
			delete(h.clients, client.SearchID)
		}
	}
	close(client.Send)
}

// Broadcast delivers a raw payload to every client of a search. Slow clients
// are skipped rather than blocking the search. The lock is held across the
// sends so Unregister cannot close a channel mid-broadcast.
func (h *Hub) Broadcast(searchID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[searchID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

// Publish marshals an event and broadcasts it to the search's clients.
func (h *Hub) Publish(searchID string, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error(fmt.Errorf("marshal stream event: %v", err))
		return
	}
	h.Broadcast(searchID, payload)
}
