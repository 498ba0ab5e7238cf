package rooms

import (
	"sync"
	"time"

	domain "github.com/example/presence-chat-demo/domain/chat"
)

// Store provides thread-safe storage for the fixed room catalog, exclusive
// room membership and per-room message history.
//
// Membership is exclusive: an identity occupies at most one room, and a room
// switch removes the old membership and adds the new one under a single lock
// so no reader ever observes an identity in zero or two rooms.
type Store struct {
	mu      sync.RWMutex
	catalog []string
	valid   map[string]bool
	members map[string]map[string]bool // room -> set of userIDs
	roomOf  map[string]string          // userID -> room
	history map[string][]domain.Message
	lastTS  map[string]int64 // per-room timestamp clamp, milliseconds
}

// NewStore creates a store over a fixed room catalog. Member sets and
// histories are created lazily on first touch.
func NewStore(catalog []string) *Store {
	valid := make(map[string]bool, len(catalog))
	names := make([]string, len(catalog))
	copy(names, catalog)
	for _, name := range names {
		valid[name] = true
	}
	return &Store{
		catalog: names,
		valid:   valid,
		members: make(map[string]map[string]bool),
		roomOf:  make(map[string]string),
		history: make(map[string][]domain.Message),
		lastTS:  make(map[string]int64),
	}
}

// Catalog returns the fixed room names in configuration order.
func (s *Store) Catalog() []string {
	names := make([]string, len(s.catalog))
	copy(names, s.catalog)
	return names
}

// Exists reports whether the room is part of the catalog.
func (s *Store) Exists(room string) bool {
	return s.valid[room]
}

// Join moves the identity into room, leaving any previously occupied room.
// Re-joining the current room reconfirms membership and succeeds.
func (s *Store) Join(userID, room string) error {
	if !s.valid[room] {
		return domain.ErrUnknownRoom
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.roomOf[userID]; ok {
		if prev == room {
			return nil
		}
		delete(s.members[prev], userID)
	}

	if s.members[room] == nil {
		s.members[room] = make(map[string]bool)
	}
	s.members[room][userID] = true
	s.roomOf[userID] = room
	return nil
}

// Leave removes the identity from whichever room it occupies. Returns the
// room that was left. No-op (ok=false) if the identity is in no room.
func (s *Store) Leave(userID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.roomOf[userID]
	if !ok {
		return "", false
	}
	delete(s.members[room], userID)
	delete(s.roomOf, userID)
	return room, true
}

// RoomOf returns the room the identity currently occupies.
func (s *Store) RoomOf(userID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.roomOf[userID]
	return room, ok
}

// Members returns the identities currently in room.
func (s *Store) Members(room string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.members[room]))
	for id := range s.members[room] {
		ids = append(ids, id)
	}
	return ids
}

// Append stamps and appends a message to the room's history. Timestamps are
// monotonically non-decreasing per room; ties keep arrival order.
func (s *Store) Append(room, userID, text string, nickname *string) (domain.Message, error) {
	if !s.valid[room] {
		return domain.Message{}, domain.ErrUnknownRoom
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := time.Now().UnixMilli()
	if ts < s.lastTS[room] {
		ts = s.lastTS[room]
	}
	s.lastTS[room] = ts

	msg := domain.Message{
		UserID:    userID,
		Text:      text,
		Timestamp: ts,
		Nickname:  nickname,
	}
	s.history[room] = append(s.history[room], msg)
	return msg, nil
}

// History returns a copy of the room's full ordered history. A catalog room
// with no traffic yields an empty slice, not an error.
func (s *Store) History(room string) ([]domain.Message, error) {
	if !s.valid[room] {
		return nil, domain.ErrUnknownRoom
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := make([]domain.Message, len(s.history[room]))
	copy(msgs, s.history[room])
	return msgs, nil
}
