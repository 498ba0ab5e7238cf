package broadcast

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"

	domain "github.com/example/presence-chat-demo/domain/chat"
)

// Conn is the minimal connection surface the hub writes to. Satisfied by
// *websocket.Conn; tests substitute a fake.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client represents one connected WebSocket client. Writes are serialized
// through the client's own mutex: roster fan-out, room broadcasts and
// unicast replies run on different goroutines but must not interleave
// frames on one socket.
type Client struct {
	UserID string
	conn   Conn
	mu     sync.Mutex
}

// NewClient wraps a connection for hub registration.
func NewClient(userID string, conn Conn) *Client {
	return &Client{UserID: userID, conn: conn}
}

func (c *Client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Send writes one event envelope to this client's connection. Unlike
// Hub.SendTo it targets this exact socket, so replies reach a connection
// even after it has been superseded in the hub.
func (c *Client) Send(event string, payload any) error {
	data, err := encode(event, payload)
	if err != nil {
		return err
	}
	return c.write(data)
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Hub manages WebSocket connections keyed by identity token, mirrors room
// membership for scoped sends, and pushes event envelopes out to clients.
type Hub struct {
	clients    map[string]*Client         // userID -> client
	rooms      map[string]map[string]bool // room -> set of userIDs
	roomOf     map[string]string          // userID -> room
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]bool),
		roomOf:     make(map[string]string),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop. It accepts a context for graceful shutdown.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Println("[hub] Shutting down...")
			h.closeAllClients()
			close(h.done)
			return
		case client := <-h.register:
			h.handleRegister(client)
		case client := <-h.unregister:
			h.handleUnregister(client)
		}
	}
}

// Wait blocks until the hub has stopped.
func (h *Hub) Wait() {
	<-h.done
}

// Register adds a client to the hub. A client already registered under the
// same identity is superseded: its socket is closed and replaced.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub. A client that was superseded by
// a newer connection for the same identity leaves the newer registration
// untouched.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.clients[client.UserID]; ok && old != client {
		_ = old.Close()
		log.Printf("[hub] Client %s superseded by new connection", client.UserID)
	}
	h.clients[client.UserID] = client
	log.Printf("[hub] Client %s registered", client.UserID)
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.clients[client.UserID]; !ok || current != client {
		return
	}
	delete(h.clients, client.UserID)
	h.leaveLocked(client.UserID)
	log.Printf("[hub] Client %s unregistered", client.UserID)
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		_ = client.Close()
	}
	h.clients = make(map[string]*Client)
	h.rooms = make(map[string]map[string]bool)
	h.roomOf = make(map[string]string)
}

// JoinRoom moves the identity into a room for send scoping, leaving any
// previous room.
func (h *Hub) JoinRoom(userID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveLocked(userID)
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]bool)
	}
	h.rooms[room][userID] = true
	h.roomOf[userID] = room
}

// LeaveRoom removes the identity from its current room, if any.
func (h *Hub) LeaveRoom(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(userID)
}

func (h *Hub) leaveLocked(userID string) {
	room, ok := h.roomOf[userID]
	if !ok {
		return
	}
	delete(h.rooms[room], userID)
	if len(h.rooms[room]) == 0 {
		delete(h.rooms, room)
	}
	delete(h.roomOf, userID)
}

// SendTo sends one event envelope to the connection bound to userID.
// No-op if the identity has no connection.
func (h *Hub) SendTo(userID, event string, payload any) {
	data, err := encode(event, payload)
	if err != nil {
		log.Printf("[hub] Failed to encode %s: %v", event, err)
		return
	}

	h.mu.RLock()
	client, ok := h.clients[userID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	h.send(client, event, data)
}

// BroadcastAll sends one event envelope to every connected client.
func (h *Hub) BroadcastAll(event string, payload any) {
	data, err := encode(event, payload)
	if err != nil {
		log.Printf("[hub] Failed to encode %s: %v", event, err)
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		h.send(client, event, data)
	}
}

// BroadcastRoom sends one event envelope to every member of a room,
// skipping the identity named by except (empty means no exclusion).
func (h *Hub) BroadcastRoom(room, event string, payload any, except string) {
	data, err := encode(event, payload)
	if err != nil {
		log.Printf("[hub] Failed to encode %s: %v", event, err)
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[room]))
	for userID := range h.rooms[room] {
		if userID == except {
			continue
		}
		if client, ok := h.clients[userID]; ok {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		h.send(client, event, data)
	}
}

func (h *Hub) send(client *Client, event string, data []byte) {
	if err := client.write(data); err != nil {
		log.Printf("[hub] Failed to send %s to %s: %v", event, client.UserID, err)
	}
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func encode(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(domain.Envelope{Event: event, Data: data})
}
