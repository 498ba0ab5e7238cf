package chat

import "encoding/json"

// Envelope is the JSON frame exchanged over the event channel in both
// directions: {"event": <name>, "data": <payload>}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client -> server event names. This is the recognized set; anything else
// is answered with a unicast error frame.
const (
	EventJoinRoom    = "joinRoom"
	EventGetMessages = "getMessages"
	EventSetNickname = "setNickname"
	EventChatMessage = "chatMessage"
	EventDisconnect  = "disconnect"
	EventStartTyping = "startTyping"
	EventStopTyping  = "stopTyping"
)

// Server -> client event names.
const (
	EventSession        = "session"
	EventAvailableRooms = "availableRooms"
	EventMessages       = "messages"
	EventOnlineUsers    = "onlineUsers"
	EventNewMessage     = "newMessage"
	EventTyping         = "typing"
	EventError          = "error"
	// stopTyping is relayed back out under the same name, carrying
	// the bare identity token.
)

// Recognized reports whether a client event name is part of the protocol.
func Recognized(event string) bool {
	switch event {
	case EventJoinRoom, EventGetMessages, EventSetNickname,
		EventChatMessage, EventDisconnect, EventStartTyping, EventStopTyping:
		return true
	}
	return false
}

// JoinRoomPayload is the client payload for joinRoom.
type JoinRoomPayload struct {
	Room     string `json:"room"`
	UserID   string `json:"userId"`
	Username string `json:"username,omitempty"`
}

// ChatMessagePayload is the client payload for chatMessage.
type ChatMessagePayload struct {
	UserID string `json:"userId"`
	Text   string `json:"msg"`
	Room   string `json:"room"`
}

// SessionPayload announces a freshly generated identity token.
type SessionPayload struct {
	UserID string `json:"userId"`
}

// TypingPayload announces that an identity is composing a message.
type TypingPayload struct {
	UserID   string  `json:"userId"`
	Nickname *string `json:"nickname"`
}

// ErrorPayload carries a request-scoped diagnostic back to one connection.
type ErrorPayload struct {
	Message string `json:"message"`
}
