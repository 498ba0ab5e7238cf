package broadcast

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	domain "github.com/example/presence-chat-demo/domain/chat"
	"github.com/example/presence-chat-demo/events"
)

// Module is an EventConsumerModule that relays chat events out to WebSocket
// clients through the hub.
type Module struct {
	hub       *Hub
	cancelHub context.CancelFunc
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.EventConsumerModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new broadcast module with its own hub.
func NewModule() *Module {
	return &Module{
		hub: NewHub(),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "broadcast"
}

// Start initializes the module and starts the hub.
func (m *Module) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelHub = cancel
	go m.hub.Run(ctx)
	log.Println("[broadcast] Module started - WebSocket hub running")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	clientCount := m.hub.ClientCount()
	if m.cancelHub != nil {
		m.cancelHub()
		m.hub.Wait()
	}
	log.Printf("[broadcast] Module stopped - %d clients were connected", clientCount)
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
		},
	}
}

// RegisterEventConsumers registers event handlers.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.RosterChangedV1, m.handleRosterChanged, m,
	); err != nil {
		return fmt.Errorf("failed to register RosterChanged consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageSentV1, m.handleMessageSent, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageSent consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.TypingStartedV1, m.handleTypingStarted, m,
	); err != nil {
		return fmt.Errorf("failed to register TypingStarted consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.TypingStoppedV1, m.handleTypingStopped, m,
	); err != nil {
		return fmt.Errorf("failed to register TypingStopped consumer: %w", err)
	}

	log.Println("[broadcast] Registered event consumers: RosterChanged, MessageSent, TypingStarted, TypingStopped")
	return nil
}

// Event handlers

// The roster goes to every connection, not just room members, so lobby
// clients see presence changes too.
func (m *Module) handleRosterChanged(_ context.Context, event events.RosterChangedEvent, _ *mono.Msg) error {
	m.hub.BroadcastAll(domain.EventOnlineUsers, event.Roster)
	return nil
}

// New messages go to the whole room, sender included, so the sender's own
// echo carries the authoritative timestamp.
func (m *Module) handleMessageSent(_ context.Context, event events.MessageSentEvent, _ *mono.Msg) error {
	log.Printf("[broadcast] Broadcasting message from %s in room %s", event.Message.UserID, event.Room)
	m.hub.BroadcastRoom(event.Room, domain.EventNewMessage, event.Message, "")
	return nil
}

// Typing signals exclude the sender. The payload mirrors the client's own
// shape; stop carries the bare identity token.
func (m *Module) handleTypingStarted(_ context.Context, event events.TypingStartedEvent, _ *mono.Msg) error {
	payload := domain.TypingPayload{UserID: event.UserID, Nickname: event.Nickname}
	m.hub.BroadcastRoom(event.Room, domain.EventTyping, payload, event.UserID)
	return nil
}

func (m *Module) handleTypingStopped(_ context.Context, event events.TypingStoppedEvent, _ *mono.Msg) error {
	m.hub.BroadcastRoom(event.Room, domain.EventStopTyping, event.UserID, event.UserID)
	return nil
}

// GetHub returns the WebSocket hub for the gateway module to use.
func (m *Module) GetHub() *Hub {
	return m.hub
}
