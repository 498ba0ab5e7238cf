package typing

import (
	"testing"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/stretchr/testify/assert"

	domain "github.com/example/presence-chat-demo/domain/chat"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(msg string, args ...any)         {}
func (m *mockLogger) Info(msg string, args ...any)          {}
func (m *mockLogger) Warn(msg string, args ...any)          {}
func (m *mockLogger) Error(msg string, args ...any)         {}
func (m *mockLogger) With(args ...any) types.Logger         { return m }
func (m *mockLogger) WithError(err error) types.Logger      { return m }
func (m *mockLogger) WithModule(module string) types.Logger { return m }

type fakeRegistry struct {
	names map[string]string
}

func (f *fakeRegistry) DisplayName(userID string) (string, bool) {
	name, ok := f.names[userID]
	return name, ok
}

type fakeRooms struct {
	occupied map[string]string
}

func (f *fakeRooms) RoomOf(userID string) (string, bool) {
	room, ok := f.occupied[userID]
	return room, ok
}

func newTestModule() *Module {
	registry := &fakeRegistry{names: map[string]string{"user-abc": "alice"}}
	rooms := &fakeRooms{occupied: map[string]string{
		"user-abc": "room 1",
		"user-def": "room 2",
	}}
	return NewModule(registry, rooms, &mockLogger{})
}

func TestModule_StartTyping(t *testing.T) {
	module := newTestModule()

	assert.NoError(t, module.StartTyping("user-abc"))
	// No display name is fine; the signal still goes out.
	assert.NoError(t, module.StartTyping("user-def"))
	// Typing outside a room is rejected.
	assert.ErrorIs(t, module.StartTyping("user-lobby"), domain.ErrNotInRoom)
}

func TestModule_StopTyping(t *testing.T) {
	module := newTestModule()

	assert.NoError(t, module.StopTyping("user-abc"))
	assert.ErrorIs(t, module.StopTyping("user-lobby"), domain.ErrNotInRoom)
}
