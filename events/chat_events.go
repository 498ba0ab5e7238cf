package events

import (
	"github.com/go-monolith/mono/pkg/helper"

	domain "github.com/example/presence-chat-demo/domain/chat"
)

// RosterChangedEvent is emitted whenever the set of online identities (or a
// display name) changes. It carries the full roster snapshot computed at
// mutation time, never a diff.
type RosterChangedEvent struct {
	Roster []domain.RosterEntry `json:"roster"`
}

// MessageSentEvent is emitted when a message is appended to a room's history.
type MessageSentEvent struct {
	Room    string         `json:"room"`
	Message domain.Message `json:"message"`
}

// TypingStartedEvent is emitted when an identity starts composing a message.
type TypingStartedEvent struct {
	Room     string  `json:"room"`
	UserID   string  `json:"userId"`
	Nickname *string `json:"nickname"`
}

// TypingStoppedEvent is emitted when an identity stops composing.
type TypingStoppedEvent struct {
	Room   string `json:"room"`
	UserID string `json:"userId"`
}

// Event definitions for the coordination domain.
var (
	RosterChangedV1 = helper.EventDefinition[RosterChangedEvent](
		"presence",
		"RosterChanged",
		"v1",
	)

	MessageSentV1 = helper.EventDefinition[MessageSentEvent](
		"rooms",
		"MessageSent",
		"v1",
	)

	TypingStartedV1 = helper.EventDefinition[TypingStartedEvent](
		"typing",
		"TypingStarted",
		"v1",
	)

	TypingStoppedV1 = helper.EventDefinition[TypingStoppedEvent](
		"typing",
		"TypingStopped",
		"v1",
	)
)
