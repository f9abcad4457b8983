// Package ws adapts the gorilla/websocket hub/client-pump pattern to the
// arena's session-based publisher; internal/pubsub owns message content,
// this package only owns connections and delivery.
package ws

import (
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client represents one subscriber's WebSocket connection.
type Client struct {
	ID        uuid.UUID
	SessionID string
	Conn      *websocket.Conn
	Send      chan []byte
	hub       *Hub
}

// Hub manages all WebSocket connections for one or more arena sessions.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	sessions   map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan BroadcastMessage
	direct     chan DirectMessage

	// OnUnregister, if set, is invoked (outside any lock) whenever a
	// client disconnects, so a Publisher can drop it from its follow
	// index.
	OnUnregister func(client *Client)
}

// BroadcastMessage is pre-marshaled bytes to fan out to a whole session.
type BroadcastMessage struct {
	SessionID string
	Data      []byte
}

// DirectMessage is pre-marshaled bytes destined for one client.
type DirectMessage struct {
	Client *Client
	Data   []byte
}

// NewHub creates a new WebSocket hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		sessions:   make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan BroadcastMessage, 256),
		direct:     make(chan DirectMessage, 256),
	}
}

// Run drives the hub's single-goroutine event loop. It never returns;
// callers run it in its own goroutine for the process lifetime.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case msg := <-h.broadcast:
			h.broadcastToSession(msg)
		case msg := <-h.direct:
			h.sendDirect(msg)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	if h.sessions[client.SessionID] == nil {
		h.sessions[client.SessionID] = make(map[*Client]bool)
	}
	h.sessions[client.SessionID][client] = true
	log.Printf("client %s joined session %s", client.ID, client.SessionID)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.Send)
		if room, ok := h.sessions[client.SessionID]; ok {
			delete(room, client)
			if len(room) == 0 {
				delete(h.sessions, client.SessionID)
			}
		}
	}
	h.mu.Unlock()

	if ok {
		log.Printf("client %s disconnected", client.ID)
		if h.OnUnregister != nil {
			h.OnUnregister(client)
		}
	}
}

// broadcastToSession fans pre-marshaled bytes out to every client in a
// session, dropping (and disconnecting) any client whose outbound buffer
// is full rather than letting a slow subscriber back-pressure the caller.
func (h *Hub) broadcastToSession(msg BroadcastMessage) {
	h.mu.RLock()
	room, ok := h.sessions[msg.SessionID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	clients := make([]*Client, 0, len(room))
	for c := range room {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.Send <- msg.Data:
		default:
			h.unregisterClient(client)
		}
	}
}

func (h *Hub) sendDirect(msg DirectMessage) {
	select {
	case msg.Client.Send <- msg.Data:
	default:
		h.unregisterClient(msg.Client)
	}
}

// Broadcast enqueues pre-marshaled bytes for every client in sessionID.
func (h *Hub) Broadcast(sessionID string, data []byte) {
	h.broadcast <- BroadcastMessage{SessionID: sessionID, Data: data}
}

// SendTo enqueues pre-marshaled bytes for exactly one client.
func (h *Hub) SendTo(client *Client, data []byte) {
	h.direct <- DirectMessage{Client: client, Data: data}
}

// Register adds a new client to the hub.
func (h *Hub) Register(client *Client) { h.register <- client }

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) { h.unregister <- client }

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SessionClientCount returns the number of clients subscribed to sessionID.
func (h *Hub) SessionClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}
