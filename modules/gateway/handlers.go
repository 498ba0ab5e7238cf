package gateway

import (
	"encoding/json"
	"log"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	domain "github.com/example/presence-chat-demo/domain/chat"
	"github.com/example/presence-chat-demo/modules/broadcast"
)

// setupRoutes configures all HTTP routes.
func (m *Module) setupRoutes() {
	// Health check
	m.app.Get("/health", m.healthHandler)

	// WebSocket endpoint
	m.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	m.app.Get("/ws", websocket.New(m.handleWebSocket))
}

// healthHandler handles GET /health.
func (m *Module) healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"module":            "gateway",
			"connected_clients": m.hub.ClientCount(),
		},
	})
}

// handleWebSocket handles WebSocket connections at /ws.
//
// Each connection gets its own connID; identity cleanup on disconnect only
// runs if the identity is still bound to this connection, so a connection
// superseded by a newer one for the same token tears down without touching
// the newer session's state.
func (m *Module) handleWebSocket(c *websocket.Conn) {
	connID := uuid.New().String()
	presented := c.Query("userId")

	userID, fresh, err := m.presence.Connect(presented, connID)
	if err != nil {
		m.logger.Warn("Rejected connection", "error", err)
		_ = c.Close()
		return
	}

	client := broadcast.NewClient(userID, c)
	m.hub.Register(client)
	defer func() {
		m.cleanup(client, userID, connID)
		m.logger.Info("WebSocket client disconnected", "userID", userID)
	}()

	m.logger.Info("WebSocket client connected", "userID", userID, "fresh", fresh)

	if err := m.announce(client, fresh); err != nil {
		log.Printf("[gateway] Failed to greet %s: %v", userID, err)
		return
	}
	m.presence.PublishRoster()

	// Message loop
	for {
		_, msgBytes, err := c.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[gateway] Client %s closed connection", userID)
			} else {
				log.Printf("[gateway] Read error from %s: %v", userID, err)
			}
			break
		}

		if closing := m.dispatch(client, connID, msgBytes); closing {
			return
		}
	}
}

// announce greets a connection: a freshly generated token is announced
// exactly once, then the fixed room catalog.
func (m *Module) announce(client *broadcast.Client, fresh bool) error {
	if fresh {
		if err := client.Send(domain.EventSession, domain.SessionPayload{UserID: client.UserID}); err != nil {
			return err
		}
	}
	return client.Send(domain.EventAvailableRooms, m.rooms.Catalog())
}

// dispatch routes one raw client frame. It reports whether the client asked
// to close the connection.
func (m *Module) dispatch(client *broadcast.Client, connID string, frame []byte) bool {
	var env domain.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		m.sendError(client, "invalid message format")
		return false
	}

	if !domain.Recognized(env.Event) {
		m.sendError(client, "unknown event: "+env.Event)
		return false
	}

	switch env.Event {
	case domain.EventJoinRoom:
		m.handleJoinRoom(client, env.Data)
	case domain.EventGetMessages:
		m.handleGetMessages(client, env.Data)
	case domain.EventSetNickname:
		m.handleSetNickname(client, connID, env.Data)
	case domain.EventChatMessage:
		m.handleChatMessage(client, env.Data)
	case domain.EventDisconnect:
		// Explicit goodbye; deferred cleanup handles the rest.
		return true
	case domain.EventStartTyping:
		m.handleStartTyping(client, connID)
	case domain.EventStopTyping:
		m.handleStopTyping(client, connID)
	}
	return false
}

// cleanup tears down a closed connection. The conditional unbind compares
// the bound connID and deletes under one registry lock, so a reconnect that
// presented the same token between this connection's close and its cleanup
// keeps its fresh binding and room membership.
func (m *Module) cleanup(client *broadcast.Client, userID, connID string) {
	if m.presence.UnbindIfConnection(userID, connID) {
		_ = m.typing.StopTyping(userID)
		m.rooms.LeaveAll(userID)
		m.hub.Unregister(client)
		m.presence.PublishRoster()
		return
	}
	m.hub.Unregister(client)
}

func (m *Module) handleJoinRoom(client *broadcast.Client, data json.RawMessage) {
	var payload domain.JoinRoomPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		m.sendError(client, "invalid joinRoom payload")
		return
	}

	if err := m.rooms.Join(payload.UserID, payload.Room); err != nil {
		m.sendError(client, err.Error())
		return
	}
	m.hub.JoinRoom(payload.UserID, payload.Room)

	if payload.Username != "" {
		if err := m.presence.SetDisplayName(payload.UserID, payload.Username); err != nil {
			m.sendError(client, err.Error())
		}
	}

	// Joiners get the room's full history before any live traffic.
	history, err := m.rooms.History(payload.Room)
	if err != nil {
		m.sendError(client, err.Error())
		return
	}
	m.hub.SendTo(payload.UserID, domain.EventMessages, history)
	m.presence.PublishRoster()
}

func (m *Module) handleGetMessages(client *broadcast.Client, data json.RawMessage) {
	var room string
	if err := json.Unmarshal(data, &room); err != nil {
		m.sendError(client, "invalid getMessages payload")
		return
	}

	history, err := m.rooms.History(room)
	if err != nil {
		m.sendError(client, err.Error())
		return
	}
	m.hub.SendTo(client.UserID, domain.EventMessages, history)
}

func (m *Module) handleSetNickname(client *broadcast.Client, connID string, data json.RawMessage) {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		m.sendError(client, "invalid setNickname payload")
		return
	}

	userID, ok := m.presence.LookupByConnection(connID)
	if !ok {
		m.sendError(client, domain.ErrUnknownIdentity.Error())
		return
	}
	if err := m.presence.SetDisplayName(userID, name); err != nil {
		m.sendError(client, err.Error())
		return
	}
	m.presence.PublishRoster()
}

func (m *Module) handleChatMessage(client *broadcast.Client, data json.RawMessage) {
	var payload domain.ChatMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		m.sendError(client, "invalid chatMessage payload")
		return
	}

	// Append publishes MessageSent; the broadcast module echoes the stamped
	// message to the whole room, sender included.
	if _, err := m.rooms.Append(payload.Room, payload.UserID, payload.Text); err != nil {
		m.sendError(client, err.Error())
	}
}

func (m *Module) handleStartTyping(client *broadcast.Client, connID string) {
	userID, ok := m.presence.LookupByConnection(connID)
	if !ok {
		m.sendError(client, domain.ErrUnknownIdentity.Error())
		return
	}
	if err := m.typing.StartTyping(userID); err != nil {
		m.sendError(client, err.Error())
	}
}

func (m *Module) handleStopTyping(client *broadcast.Client, connID string) {
	userID, ok := m.presence.LookupByConnection(connID)
	if !ok {
		m.sendError(client, domain.ErrUnknownIdentity.Error())
		return
	}
	if err := m.typing.StopTyping(userID); err != nil {
		m.sendError(client, err.Error())
	}
}

func (m *Module) sendError(client *broadcast.Client, message string) {
	if err := client.Send(domain.EventError, domain.ErrorPayload{Message: message}); err != nil {
		log.Printf("[gateway] Failed to send error to %s: %v", client.UserID, err)
	}
}
