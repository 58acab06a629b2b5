// Package presence owns the authoritative in-memory map of who is
// currently connected: an injective email -> connection mapping and its
// inverse, mutated atomically under one lock.
package presence

import (
	"sort"
	"sync"
	"time"

	"github.com/DevaOnL/Chat-app-sub000/pkg/interfaces"
	"github.com/DevaOnL/Chat-app-sub000/pkg/types"
)

// Member pairs a registered session's routing data with its transport.
type Member struct {
	ConnectionID string
	Identity     types.Identity
	Conn         interfaces.Connection
}

type entry struct {
	session *types.Session
	conn    interfaces.Connection
}

// Registry is the presence registry. All critical sections are bounded:
// no store or network I/O happens under the lock.
type Registry struct {
	mu      sync.RWMutex
	byConn  map[string]*entry // connectionID -> session + transport
	byEmail map[string]string // email -> connectionID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byConn:  make(map[string]*entry),
		byEmail: make(map[string]string),
	}
}

// Register inserts a session. If a session for the same email is already
// present it is removed from both mappings and its connection is returned
// so the caller can notify and close it; the new session always wins.
func (r *Registry) Register(session *types.Session, conn interfaces.Connection) (replaced interfaces.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prevID, ok := r.byEmail[session.Identity.Email]; ok {
		if prev, ok := r.byConn[prevID]; ok {
			replaced = prev.conn
			delete(r.byConn, prevID)
		}
	}

	r.byConn[session.ConnectionID] = &entry{session: session, conn: conn}
	r.byEmail[session.Identity.Email] = session.ConnectionID
	return replaced
}

// Unregister removes a session by connection ID. It is idempotent:
// unregistering an absent connection is a no-op. The email mapping is only
// cleared when it still points at this connection, so tearing down a
// replaced session never disturbs its replacement.
func (r *Registry) Unregister(connectionID string) (types.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byConn[connectionID]
	if !ok {
		return types.Session{}, false
	}
	delete(r.byConn, connectionID)
	if r.byEmail[e.session.Identity.Email] == connectionID {
		delete(r.byEmail, e.session.Identity.Email)
	}
	return *e.session, true
}

// Snapshot returns the current presence list ordered by join time.
func (r *Registry) Snapshot() []types.PresenceEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]types.PresenceEntry, 0, len(r.byConn))
	for _, e := range r.byConn {
		entries = append(entries, types.PresenceEntry{
			Identity: e.session.Identity,
			Typing:   e.session.Typing,
			JoinedAt: e.session.JoinedAt,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].JoinedAt.Before(entries[j].JoinedAt)
	})
	return entries
}

// Session returns a copy of the session for a connection ID.
func (r *Registry) Session(connectionID string) (types.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byConn[connectionID]
	if !ok {
		return types.Session{}, false
	}
	return *e.session, true
}

// Member returns the registered member for an email, if online.
func (r *Registry) Member(email string) (Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return Member{}, false
	}
	e, ok := r.byConn[id]
	if !ok {
		return Member{}, false
	}
	return Member{ConnectionID: id, Identity: e.session.Identity, Conn: e.conn}, true
}

// Members returns every registered member.
func (r *Registry) Members() []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]Member, 0, len(r.byConn))
	for id, e := range r.byConn {
		members = append(members, Member{ConnectionID: id, Identity: e.session.Identity, Conn: e.conn})
	}
	return members
}

// MembersIn returns the registered members whose email is in the set.
func (r *Registry) MembersIn(emails map[string]struct{}) []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]Member, 0, len(emails))
	for email := range emails {
		if id, ok := r.byEmail[email]; ok {
			if e, ok := r.byConn[id]; ok {
				members = append(members, Member{ConnectionID: id, Identity: e.session.Identity, Conn: e.conn})
			}
		}
	}
	return members
}

// Connection returns the transport for a connection ID.
func (r *Registry) Connection(connectionID string) (interfaces.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byConn[connectionID]
	if !ok {
		return nil, false
	}
	return e.conn, true
}

// Touch records inbound activity for a connection.
func (r *Registry) Touch(connectionID string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.byConn[connectionID]; ok {
		e.session.LastActiveAt = now
	}
}

// SetTyping records the thread a session is typing in.
func (r *Registry) SetTyping(connectionID string, thread *types.ThreadKey) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.byConn[connectionID]; ok {
		e.session.Typing = thread
	}
}

// ClearTyping clears the typing marker only while it still points at
// thread. A stop or expiry in one thread never erases typing state the
// session has since moved to another thread.
func (r *Registry) ClearTyping(connectionID string, thread types.ThreadKey) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byConn[connectionID]
	if !ok || e.session.Typing == nil {
		return
	}
	if e.session.Typing.String() == thread.String() {
		e.session.Typing = nil
	}
}

// UpdateIdentity mutates the mutable identity fields of the session for
// email without touching its connection, and returns the updated identity.
func (r *Registry) UpdateIdentity(email string, nickname, avatar *string) (types.Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byEmail[email]
	if !ok {
		return types.Identity{}, false
	}
	e, ok := r.byConn[id]
	if !ok {
		return types.Identity{}, false
	}
	if nickname != nil {
		e.session.Identity.Nickname = *nickname
	}
	if avatar != nil {
		e.session.Identity.Avatar = *avatar
	}
	return e.session.Identity, true
}

// Idle returns the connection IDs whose last activity is older than the
// threshold.
func (r *Registry) Idle(now time.Time, threshold time.Duration) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var idle []string
	for id, e := range r.byConn {
		if now.Sub(e.session.LastActiveAt) > threshold {
			idle = append(idle, id)
		}
	}
	return idle
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
