package typing

import (
	"context"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"

	domain "github.com/example/presence-chat-demo/domain/chat"
	"github.com/example/presence-chat-demo/events"
)

// RegistryView resolves display names for typing announcements.
type RegistryView interface {
	DisplayName(userID string) (string, bool)
}

// RoomsView resolves the room an identity occupies.
type RoomsView interface {
	RoomOf(userID string) (string, bool)
}

// Module relays typing start/stop signals to the sender's room. It keeps no
// state of its own: expiry is the sending client's debounce timer, and
// delivery is best-effort.
type Module struct {
	registry RegistryView
	rooms    RoomsView
	eventBus mono.EventBus
	logger   types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module              = (*Module)(nil)
	_ mono.EventBusAwareModule = (*Module)(nil)
	_ mono.EventEmitterModule  = (*Module)(nil)
)

// NewModule creates a new typing module.
func NewModule(registry RegistryView, rooms RoomsView, logger types.Logger) *Module {
	return &Module{
		registry: registry,
		rooms:    rooms,
		logger:   logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "typing"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.TypingStartedV1.ToBase(),
		events.TypingStoppedV1.ToBase(),
	}
}

// Start initializes the module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Typing module started")
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Typing module stopped")
	return nil
}

// StartTyping announces that userID is composing a message in its room.
// The nickname is resolved at relay time; receivers see null when unset.
func (m *Module) StartTyping(userID string) error {
	room, ok := m.rooms.RoomOf(userID)
	if !ok {
		return domain.ErrNotInRoom
	}

	var nickname *string
	if name, found := m.registry.DisplayName(userID); found {
		nickname = &name
	}

	if m.eventBus != nil {
		event := events.TypingStartedEvent{Room: room, UserID: userID, Nickname: nickname}
		if err := events.TypingStartedV1.Publish(m.eventBus, event, nil); err != nil {
			m.logger.Warn("Failed to publish TypingStarted event", "error", err)
		}
	}
	return nil
}

// StopTyping announces that userID stopped composing.
func (m *Module) StopTyping(userID string) error {
	room, ok := m.rooms.RoomOf(userID)
	if !ok {
		return domain.ErrNotInRoom
	}

	if m.eventBus != nil {
		event := events.TypingStoppedEvent{Room: room, UserID: userID}
		if err := events.TypingStoppedV1.Publish(m.eventBus, event, nil); err != nil {
			m.logger.Warn("Failed to publish TypingStopped event", "error", err)
		}
	}
	return nil
}
