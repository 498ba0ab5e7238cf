package presence

import (
	"context"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/presence-chat-demo/events"
)

// Module is the identity registry: it owns session identities, their
// connection bindings and display names, and publishes the roster whenever
// registry contents change.
type Module struct {
	registry *Registry
	eventBus mono.EventBus
	logger   types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module              = (*Module)(nil)
	_ mono.EventBusAwareModule = (*Module)(nil)
	_ mono.EventEmitterModule  = (*Module)(nil)
)

// NewModule creates a new presence module.
func NewModule(logger types.Logger) *Module {
	return &Module{
		registry: NewRegistry(),
		logger:   logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "presence"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.RosterChangedV1.ToBase(),
	}
}

// Start initializes the module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Presence module started")
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Presence module stopped", "sessions", m.registry.Count())
	return nil
}

// Connect resolves or assigns an identity for a new connection and reports
// whether a fresh token was generated (the gateway announces fresh tokens to
// the client exactly once).
func (m *Module) Connect(presented, connID string) (userID string, fresh bool, err error) {
	userID, fresh, superseded, err := m.registry.Connect(presented, connID)
	if err != nil {
		return "", false, err
	}
	if superseded != "" {
		m.logger.Info("Superseded stale connection", "userID", userID, "oldConn", superseded)
	} else if fresh {
		m.logger.Info("Generated new identity", "userID", userID)
	} else {
		m.logger.Info("Reattached identity", "userID", userID)
	}
	return userID, fresh, nil
}

// UnbindIfConnection removes the identity only while it is still bound to
// connID. Disconnect cleanup uses this so a connection that has been
// superseded cannot tear down the live session that replaced it.
func (m *Module) UnbindIfConnection(userID, connID string) bool {
	return m.registry.UnbindIfConnection(userID, connID)
}

// IsBound reports whether the identity has an active connection.
func (m *Module) IsBound(userID string) bool {
	return m.registry.IsBound(userID)
}

// LookupByConnection resolves the identity bound to a connection.
func (m *Module) LookupByConnection(connID string) (string, bool) {
	return m.registry.LookupByConnection(connID)
}

// SetDisplayName stores the identity's display name.
func (m *Module) SetDisplayName(userID, name string) error {
	return m.registry.SetDisplayName(userID, name)
}

// DisplayName returns the identity's display name, if set.
func (m *Module) DisplayName(userID string) (string, bool) {
	return m.registry.DisplayName(userID)
}

// PublishRoster snapshots the roster and publishes it on the event bus. The
// snapshot and the publish are not atomic together, but the snapshot itself
// always reflects the registry at the moment of computation.
func (m *Module) PublishRoster() {
	if m.eventBus == nil {
		return
	}

	event := events.RosterChangedEvent{Roster: m.registry.SnapshotRoster()}
	if err := events.RosterChangedV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish RosterChanged event", "error", err)
	}
}
