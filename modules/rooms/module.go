package rooms

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"

	domain "github.com/example/presence-chat-demo/domain/chat"
	"github.com/example/presence-chat-demo/events"
)

// DefaultMaxMessageChars is the maximum accepted message length.
const DefaultMaxMessageChars = 200

// RegistryView is the slice of the identity registry this module needs.
type RegistryView interface {
	IsBound(userID string) bool
	DisplayName(userID string) (string, bool)
}

// Module owns the fixed room catalog, exclusive room membership and
// append-only per-room message history.
type Module struct {
	store    *Store
	registry RegistryView
	maxChars int
	eventBus mono.EventBus
	logger   types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module              = (*Module)(nil)
	_ mono.EventBusAwareModule = (*Module)(nil)
	_ mono.EventEmitterModule  = (*Module)(nil)
)

// NewModule creates a new rooms module over a fixed catalog.
func NewModule(catalog []string, maxChars int, registry RegistryView, logger types.Logger) *Module {
	if maxChars <= 0 {
		maxChars = DefaultMaxMessageChars
	}
	return &Module{
		store:    NewStore(catalog),
		registry: registry,
		maxChars: maxChars,
		logger:   logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "rooms"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.MessageSentV1.ToBase(),
	}
}

// Start initializes the module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Rooms module started", "catalog", m.store.Catalog(), "maxMessageChars", m.maxChars)
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Rooms module stopped")
	return nil
}

// Catalog returns the fixed room names.
func (m *Module) Catalog() []string {
	return m.store.Catalog()
}

// Join moves the identity into room. The identity must hold an active
// connection; the room must exist in the catalog.
func (m *Module) Join(userID, room string) error {
	if userID == "" || !m.registry.IsBound(userID) {
		return domain.ErrNotAuthenticated
	}
	if err := m.store.Join(userID, room); err != nil {
		return err
	}
	m.logger.Info("User joined room", "userID", userID, "room", room)
	return nil
}

// LeaveAll removes the identity from whichever room it occupies. Used on
// disconnect; safe to call for identities that are in no room.
func (m *Module) LeaveAll(userID string) {
	if room, ok := m.store.Leave(userID); ok {
		m.logger.Info("User left room", "userID", userID, "room", room)
	}
}

// RoomOf returns the room the identity currently occupies.
func (m *Module) RoomOf(userID string) (string, bool) {
	return m.store.RoomOf(userID)
}

// Members returns the identities currently in room.
func (m *Module) Members(room string) []string {
	return m.store.Members(room)
}

// Append validates and appends a message to the room's history, publishing
// a MessageSent event for fan-out on success.
func (m *Module) Append(room, userID, text string) (domain.Message, error) {
	if !m.store.Exists(room) {
		return domain.Message{}, domain.ErrUnknownRoom
	}
	if !m.registry.IsBound(userID) {
		return domain.Message{}, domain.ErrUnknownIdentity
	}
	if text == "" {
		return domain.Message{}, domain.ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > m.maxChars {
		return domain.Message{}, fmt.Errorf("%w: limit %d characters", domain.ErrMessageTooLong, m.maxChars)
	}

	var nickname *string
	if name, ok := m.registry.DisplayName(userID); ok {
		nickname = &name
	}

	msg, err := m.store.Append(room, userID, text, nickname)
	if err != nil {
		return domain.Message{}, err
	}

	if m.eventBus != nil {
		event := events.MessageSentEvent{Room: room, Message: msg}
		if err := events.MessageSentV1.Publish(m.eventBus, event, nil); err != nil {
			m.logger.Warn("Failed to publish MessageSent event", "error", err)
		}
	}

	m.logger.Debug("Message appended", "userID", userID, "room", room)
	return msg, nil
}

// History returns the room's full ordered history.
func (m *Module) History(room string) ([]domain.Message, error) {
	return m.store.History(room)
}
