package presence

import (
	"sync"

	domain "github.com/example/presence-chat-demo/domain/chat"
)

// session is the registry's record for one online identity.
type session struct {
	connID   string
	nickname *string
}

// Registry provides thread-safe storage for identity sessions. Iteration
// order of the roster is insertion order of the underlying mapping; clients
// observe that order, so it is preserved explicitly rather than left to map
// iteration.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session
	order    []string // userIDs, oldest binding first
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*session),
	}
}

// Connect resolves or assigns an identity for a new connection.
//
// An empty presented token yields a freshly generated identity (fresh=true,
// the caller must announce it to the client once). A presented token with no
// live binding is accepted as-is: the prior session is reattached silently.
// A presented token that is currently bound to a live connection is
// superseded: the identity is rebound to connID and the previous connection
// ID is returned so the caller can retire the stale socket.
func (r *Registry) Connect(presented, connID string) (userID string, fresh bool, superseded string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID = presented
	if userID == "" {
		userID, err = GenerateToken()
		if err != nil {
			return "", false, "", err
		}
		fresh = true
	}

	if s, ok := r.sessions[userID]; ok {
		superseded = s.connID
		s.connID = connID
		return userID, fresh, superseded, nil
	}

	r.sessions[userID] = &session{connID: connID}
	r.order = append(r.order, userID)
	return userID, fresh, "", nil
}

// Unbind removes the identity entirely: connection mapping, display name and
// roster slot. No-op if the identity is not registered, so double-fired
// disconnects are safe.
func (r *Registry) Unbind(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[userID]; !ok {
		return
	}
	delete(r.sessions, userID)
	for i, id := range r.order {
		if id == userID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// UnbindIfConnection removes the identity only if it is still bound to
// connID, comparing and deleting under one lock. Reports whether the removal
// fired. A disconnect racing a reconnect that presented the same token sees
// the rebound connID and leaves the fresh session untouched.
func (r *Registry) UnbindIfConnection(userID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[userID]
	if !ok || s.connID != connID {
		return false
	}
	delete(r.sessions, userID)
	for i, id := range r.order {
		if id == userID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// IsBound reports whether the identity currently has an active connection.
func (r *Registry) IsBound(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[userID]
	return ok
}

// LookupByConnection resolves the identity currently bound to connID. After
// supersession the stale connection no longer resolves, which is what makes
// its deferred cleanup a no-op.
func (r *Registry) LookupByConnection(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, s := range r.sessions {
		if s.connID == connID {
			return id, true
		}
	}
	return "", false
}

// SetDisplayName stores or overwrites the identity's display name.
func (r *Registry) SetDisplayName(userID, name string) error {
	if name == "" {
		return domain.ErrInvalidName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[userID]
	if !ok {
		return domain.ErrUnknownIdentity
	}
	n := name
	s.nickname = &n
	return nil
}

// DisplayName returns the identity's display name, if set.
func (r *Registry) DisplayName(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[userID]
	if !ok || s.nickname == nil {
		return "", false
	}
	return *s.nickname, true
}

// SnapshotRoster returns the online-user roster in insertion order. The
// snapshot is taken under the lock, so it is always consistent with the
// registry state at the moment of the call.
func (r *Registry) SnapshotRoster() []domain.RosterEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roster := make([]domain.RosterEntry, 0, len(r.order))
	for _, id := range r.order {
		roster = append(roster, domain.RosterEntry{
			UserID:   id,
			Nickname: r.sessions[id].nickname,
		})
	}
	return roster
}

// Count returns the number of online identities.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
