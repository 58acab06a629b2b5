package types

import (
	"time"
)

// Identity is the authenticated principal bound to a connection. AccountID
// and Email are fixed for the lifetime of a session; Nickname and Avatar
// may be updated live and propagate to every other session without a
// reconnect.
type Identity struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Nickname  string `json:"nickname"`
	Avatar    string `json:"avatar,omitempty"`
}

// Session binds one live connection to one identity. Sessions are owned
// exclusively by the presence registry; at most one session exists per
// email at any instant.
type Session struct {
	ConnectionID string     `json:"connection_id"`
	Identity     Identity   `json:"identity"`
	JoinedAt     time.Time  `json:"joined_at"`
	LastActiveAt time.Time  `json:"last_active_at"`
	Typing       *ThreadKey `json:"typing,omitempty"`
}

// NewSession builds an unregistered candidate session for a bound identity.
func NewSession(connectionID string, identity Identity, now time.Time) *Session {
	return &Session{
		ConnectionID: connectionID,
		Identity:     identity,
		JoinedAt:     now,
		LastActiveAt: now,
	}
}

// PresenceEntry is one row of the presence snapshot pushed to clients.
type PresenceEntry struct {
	Identity Identity   `json:"identity"`
	Typing   *ThreadKey `json:"typing,omitempty"`
	JoinedAt time.Time  `json:"joined_at"`
}

// ReactionMap maps an emoji to the account IDs that set it.
type ReactionMap map[string][]string

// Message is the canonical persisted record of one chat message. IDs and
// timestamps are assigned by the message store; live broadcasts carry the
// persisted record so history replay and live delivery share identity.
type Message struct {
	ID         string      `json:"id"`
	Thread     ThreadKey   `json:"thread"`
	Sender     Identity    `json:"sender"`
	Text       string      `json:"text"`
	Attachment string      `json:"attachment,omitempty"`
	Reactions  ReactionMap `json:"reactions,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	EditedAt   *time.Time  `json:"edited_at,omitempty"`
}
