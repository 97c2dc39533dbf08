package hub

import (
	"encoding/json"
	"sync"

	"github.com/flowingduskpro/shuangxiangapp/internal/config"
	"github.com/flowingduskpro/shuangxiangapp/pkg/log"
)

// Hub owns the connection registry and the per-session membership sets, and
// fans aggregate snapshots out to every member of a class session.
type Hub struct {
	clients    map[string]*Client            // clientID -> client
	sessions   map[string]map[string]*Client // classSessionID -> clientID -> client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *SessionMessage
	mu         sync.RWMutex
	config     config.WebSocketConfig
}

// SessionMessage is a payload addressed to one session's membership set.
type SessionMessage struct {
	ClassSessionID string
	Message        []byte
}

// NewHub creates a hub for the given WebSocket settings.
func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		sessions:   make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *SessionMessage, 256),
		config:     cfg,
	}
}

// Run processes register/unregister/broadcast requests. Call in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			log.L().Debug().Str(log.FieldClientID, client.ID).Msg("client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				for key, members := range h.sessions {
					delete(members, client.ID)
					if len(members) == 0 {
						delete(h.sessions, key)
					}
				}
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()
			log.L().Debug().Str(log.FieldClientID, client.ID).Msg("client unregistered")

		case msg := <-h.broadcast:
			h.mu.RLock()
			if members, ok := h.sessions[msg.ClassSessionID]; ok {
				for _, client := range members {
					select {
					case client.Send <- msg.Message:
					default:
						// Slow consumer: drop the connection, never block
						// delivery to the rest of the membership set.
						go h.removeClient(client)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub and all membership sets.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// JoinSession adds the client to a session's membership set.
func (h *Hub) JoinSession(client *Client, classSessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[classSessionID]; !ok {
		h.sessions[classSessionID] = make(map[string]*Client)
	}
	h.sessions[classSessionID][client.ID] = client
	log.L().Info().
		Str(log.FieldClientID, client.ID).
		Str(log.FieldClassSessionID, classSessionID).
		Msg("client joined session")
}

// LeaveSession removes the client from a session's membership set.
func (h *Hub) LeaveSession(client *Client, classSessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.sessions[classSessionID]; ok {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.sessions, classSessionID)
		}
	}
	log.L().Info().
		Str(log.FieldClientID, client.ID).
		Str(log.FieldClassSessionID, classSessionID).
		Msg("client left session")
}

// BroadcastToSession delivers a message to every member of the session,
// including the triggering connection. Fire-and-forget per connection.
func (h *Hub) BroadcastToSession(classSessionID string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.broadcast <- &SessionMessage{
		ClassSessionID: classSessionID,
		Message:        data,
	}
	return nil
}

// SessionClientCount returns the live membership size for a session.
func (h *Hub) SessionClientCount(classSessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if members, ok := h.sessions[classSessionID]; ok {
		return len(members)
	}
	return 0
}

// ActiveSessions returns the ids of all sessions with live members.
func (h *Hub) ActiveSessions() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	return ids
}

func (h *Hub) removeClient(client *Client) {
	h.unregister <- client
}
