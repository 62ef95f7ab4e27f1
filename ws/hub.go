// Package ws broadcasts committed engine events to websocket subscribers.
// The feed is one-way: clients receive run and tournament events as they
// commit; inbound messages other than pings are ignored.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"labyrinth-server/engine"
	"labyrinth-server/wsutil"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for development; restrict in production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub maintains the set of feed subscribers and fans events out to them.
type Hub struct {
	Clients    map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	Broadcast  chan []byte
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan []byte, 64),
	}
}

// Run starts the hub's main loop. Should be run as a goroutine.
// When ctx is cancelled (e.g. on server shutdown), Run returns and no
// longer accepts new registrations.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Print("Hub: shutdown signal received, stopping")
			return
		case client := <-h.Register:
			h.Clients[client] = true
			log.Printf("Feed client connected. Total clients: %d", len(h.Clients))

		case client := <-h.Unregister:
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				close(client.Send)
				log.Printf("Feed client disconnected. Total clients: %d", len(h.Clients))
			}

		case message := <-h.Broadcast:
			for client := range h.Clients {
				wsutil.SafeSend(client.Send, message)
			}
		}
	}
}

// Publish implements engine.Publisher: committed events are marshaled once
// and fanned out to every subscriber. Slow subscribers drop messages rather
// than stalling the engine.
func (h *Hub) Publish(ev engine.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("Feed event marshal error: %v", err)
		return
	}
	select {
	case h.Broadcast <- data:
	default:
		log.Print("Feed broadcast queue full, dropping event")
	}
}

// ServeWS handles WebSocket upgrade requests and subscribes the connection
// to the event feed.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		Hub:  h,
		Conn: conn,
		Send: make(chan []byte, 256),
	}

	h.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
