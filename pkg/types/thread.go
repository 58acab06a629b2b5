package types

import (
	"fmt"
	"strings"
)

// ThreadKind discriminates the three conversation address forms.
type ThreadKind string

const (
	ThreadPublic ThreadKind = "public"
	ThreadDirect ThreadKind = "direct"
	ThreadGroup  ThreadKind = "group"
)

// ThreadKey is the canonical address of a conversation. Direct keys are
// symmetric: the two participant emails are kept in lexicographic order so
// that a message addressed by either side resolves to the same thread.
type ThreadKey struct {
	Kind         ThreadKind `json:"kind"`
	Participants []string   `json:"participants,omitempty"`
	GroupID      string     `json:"group_id,omitempty"`
}

// PublicThread returns the key of the shared public room.
func PublicThread() ThreadKey {
	return ThreadKey{Kind: ThreadPublic}
}

// DirectThread returns the canonical key for the conversation between two
// emails, independent of which one is the sender.
func DirectThread(a, b string) ThreadKey {
	if a > b {
		a, b = b, a
	}
	return ThreadKey{Kind: ThreadDirect, Participants: []string{a, b}}
}

// GroupThread returns the key of a group conversation.
func GroupThread(groupID string) ThreadKey {
	return ThreadKey{Kind: ThreadGroup, GroupID: groupID}
}

// OtherParticipant returns the direct-thread counterpart of self, or ""
// for non-direct threads.
func (k ThreadKey) OtherParticipant(self string) string {
	if k.Kind != ThreadDirect || len(k.Participants) != 2 {
		return ""
	}
	if k.Participants[0] == self {
		return k.Participants[1]
	}
	return k.Participants[0]
}

// Has reports whether email participates in a direct thread.
func (k ThreadKey) Has(email string) bool {
	for _, p := range k.Participants {
		if p == email {
			return true
		}
	}
	return false
}

// String renders the storage form of the key: "public", "direct:a|b" or
// "group:<id>".
func (k ThreadKey) String() string {
	switch k.Kind {
	case ThreadPublic:
		return "public"
	case ThreadDirect:
		return "direct:" + strings.Join(k.Participants, "|")
	case ThreadGroup:
		return "group:" + k.GroupID
	default:
		return ""
	}
}

// ParseThreadKey parses the storage form produced by String.
func ParseThreadKey(s string) (ThreadKey, error) {
	switch {
	case s == "public":
		return PublicThread(), nil
	case strings.HasPrefix(s, "direct:"):
		parts := strings.SplitN(strings.TrimPrefix(s, "direct:"), "|", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return ThreadKey{}, fmt.Errorf("malformed direct thread key %q", s)
		}
		return DirectThread(parts[0], parts[1]), nil
	case strings.HasPrefix(s, "group:"):
		id := strings.TrimPrefix(s, "group:")
		if id == "" {
			return ThreadKey{}, fmt.Errorf("malformed group thread key %q", s)
		}
		return GroupThread(id), nil
	default:
		return ThreadKey{}, fmt.Errorf("unknown thread key %q", s)
	}
}

// ThreadRef is the asymmetric addressing form clients put on the wire.
// Direct references name only the counterpart; Normalize folds them into
// the symmetric canonical key before any history or routing use.
type ThreadRef struct {
	Kind    ThreadKind `json:"kind"`
	Other   string     `json:"other,omitempty"`
	GroupID string     `json:"group_id,omitempty"`
}

// Normalize resolves the reference against the sender's own email.
func (r ThreadRef) Normalize(self string) (ThreadKey, error) {
	switch r.Kind {
	case ThreadPublic:
		return PublicThread(), nil
	case ThreadDirect:
		other := NormalizeEmail(r.Other)
		if !IsValidEmail(other) {
			return ThreadKey{}, fmt.Errorf("%w: direct thread requires a valid counterpart email", ErrInvalidThread)
		}
		if other == self {
			return ThreadKey{}, fmt.Errorf("%w: direct thread with self", ErrInvalidThread)
		}
		return DirectThread(self, other), nil
	case ThreadGroup:
		if r.GroupID == "" {
			return ThreadKey{}, fmt.Errorf("%w: group thread requires a group id", ErrInvalidThread)
		}
		return GroupThread(r.GroupID), nil
	default:
		return ThreadKey{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidThread, r.Kind)
	}
}
