package types

// Client-to-server event names.
const (
	EventSendMessage    = "send_message"
	EventEditMessage    = "edit_message"
	EventDeleteMessage  = "delete_message"
	EventSetTyping      = "set_typing"
	EventToggleReaction = "toggle_reaction"
	EventUpdateIdentity = "update_identity"
)

// Server-to-client event names.
const (
	EventPresenceList     = "presence_list"
	EventPresenceReplaced = "presence_replaced"
	EventMessageHistory   = "message_history"
	EventMessage          = "message"
	EventMessageEdited    = "message_edited"
	EventMessageDeleted   = "message_deleted"
	EventTypingState      = "typing_state"
	EventReactionState    = "reaction_state"
	EventIdentityUpdated  = "identity_updated"
	EventRateLimited      = "rate_limited"
	EventOperationError   = "operation_error"
)

// Envelope carries the discriminator of an inbound frame. The remaining
// fields are decoded into the matching payload struct once the type is
// known, so malformed payloads are rejected at the boundary.
type Envelope struct {
	Type string `json:"type"`
}

// SendMessageEvent asks the router to persist and fan out a new message.
type SendMessageEvent struct {
	Thread     ThreadRef `json:"thread"`
	Text       string    `json:"text"`
	Attachment string    `json:"attachment,omitempty"`
}

// EditMessageEvent rewrites the text of an owned message.
type EditMessageEvent struct {
	MessageID string `json:"message_id"`
	Text      string `json:"text"`
}

// DeleteMessageEvent removes an owned message.
type DeleteMessageEvent struct {
	MessageID string `json:"message_id"`
}

// SetTypingEvent starts or stops the sender's typing state in a thread.
type SetTypingEvent struct {
	Thread ThreadRef `json:"thread"`
	Typing bool      `json:"typing"`
}

// ToggleReactionEvent flips the sender's reaction on a message.
type ToggleReactionEvent struct {
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
}

// UpdateIdentityEvent updates the mutable identity fields. Absent fields
// are left unchanged.
type UpdateIdentityEvent struct {
	Nickname *string `json:"nickname,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
}

// PresenceListEvent is the full presence snapshot, pushed to every
// connection whenever membership changes.
type PresenceListEvent struct {
	Type    string          `json:"type"`
	Members []PresenceEntry `json:"members"`
}

// PresenceReplacedEvent is delivered to the losing side of a duplicate
// login just before its connection is closed.
type PresenceReplacedEvent struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// MessageHistoryEvent replays recent messages of one thread on connect.
type MessageHistoryEvent struct {
	Type     string     `json:"type"`
	Thread   ThreadKey  `json:"thread"`
	Messages []*Message `json:"messages"`
}

// MessageEvent carries a newly persisted message.
type MessageEvent struct {
	Type    string   `json:"type"`
	Message *Message `json:"message"`
}

// MessageEditedEvent carries the persisted record after an edit.
type MessageEditedEvent struct {
	Type    string   `json:"type"`
	Message *Message `json:"message"`
}

// MessageDeletedEvent announces a deletion to the thread audience.
type MessageDeletedEvent struct {
	Type      string    `json:"type"`
	MessageID string    `json:"message_id"`
	Thread    ThreadKey `json:"thread"`
}

// TypingStateEvent reflects one participant's typing state in a thread.
type TypingStateEvent struct {
	Type     string    `json:"type"`
	Thread   ThreadKey `json:"thread"`
	Email    string    `json:"email"`
	Nickname string    `json:"nickname"`
	Typing   bool      `json:"typing"`
}

// ReactionStateEvent carries the confirmed post-mutation reaction map of
// one message.
type ReactionStateEvent struct {
	Type      string      `json:"type"`
	MessageID string      `json:"message_id"`
	Thread    ThreadKey   `json:"thread"`
	Reactions ReactionMap `json:"reactions"`
}

// IdentityUpdatedEvent announces refreshed profile fields to other
// sessions.
type IdentityUpdatedEvent struct {
	Type     string   `json:"type"`
	Identity Identity `json:"identity"`
}

// RateLimitedEvent tells the sender an attempt was dropped; it is never
// broadcast.
type RateLimitedEvent struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// OperationErrorEvent reports a recoverable failure to the requester only.
type OperationErrorEvent struct {
	Type   string `json:"type"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}
