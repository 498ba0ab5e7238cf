package chat

import (
	"encoding/json"
	"errors"
)

// Validation and coordination errors shared across modules. Every one of
// these is request-scoped: the offending event is dropped and reported back
// to the originating connection, the connection stays open.
var (
	ErrUnknownRoom      = errors.New("unknown room")
	ErrUnknownIdentity  = errors.New("unknown user")
	ErrInvalidName      = errors.New("nickname is required")
	ErrEmptyMessage     = errors.New("message is not provided")
	ErrMessageTooLong   = errors.New("message too long")
	ErrNotInRoom        = errors.New("user is not in a room")
	ErrNotAuthenticated = errors.New("not authenticated")
)

// Message is one immutable chat message. Field names are the wire contract
// with existing clients and must not change.
type Message struct {
	UserID    string  `json:"userId"`
	Text      string  `json:"msg"`
	Timestamp int64   `json:"timestamp"` // server-assigned, milliseconds
	Nickname  *string `json:"nickname"`  // display name at send time, null if unset
}

// RosterEntry is one identity in the online-user roster.
type RosterEntry struct {
	UserID   string
	Nickname *string
}

// MarshalJSON emits the [userId, nickname|null] pair shape clients expect.
func (e RosterEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.UserID, e.Nickname})
}

// UnmarshalJSON accepts the same pair shape.
func (e *RosterEntry) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if err := json.Unmarshal(pair[0], &e.UserID); err != nil {
		return err
	}
	if len(pair[1]) == 0 || string(pair[1]) == "null" {
		e.Nickname = nil
		return nil
	}
	return json.Unmarshal(pair[1], &e.Nickname)
}
