package ws

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// InboundHandler processes a raw message from a client and is given the
// connecting/sending context it needs to reply directly.
type InboundHandler interface {
	HandleInbound(client *Client, message []byte)
	// OnConnect is called once a client finishes the handshake, so the
	// handler can push a full-sync snapshot before streaming begins.
	OnConnect(client *Client)
}

// Handler upgrades HTTP requests to WebSocket connections and wires each
// client's pumps to the hub and an InboundHandler.
type Handler struct {
	hub     *Hub
	inbound InboundHandler
}

// NewHandler creates a WebSocket handler bound to hub and inbound.
func NewHandler(hub *Hub, inbound InboundHandler) *Handler {
	return &Handler{hub: hub, inbound: inbound}
}

// ServeWS upgrades the request and starts the client's pumps.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		ID:        uuid.New(),
		SessionID: sessionID,
		Conn:      conn,
		Send:      make(chan []byte, 256),
		hub:       h.hub,
	}

	h.hub.Register(client)
	if h.inbound != nil {
		h.inbound.OnConnect(client)
	}

	go client.writePump()
	go client.readPump(h.inbound)
}

func (c *Client) readPump(inbound InboundHandler) {
	defer func() {
		c.hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket error: %v", err)
			}
			break
		}
		if inbound != nil {
			inbound.HandleInbound(c, message)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
