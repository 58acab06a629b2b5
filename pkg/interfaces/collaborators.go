package interfaces

import (
	"context"

	"github.com/DevaOnL/Chat-app-sub000/pkg/types"
)

// MessageStore is the external persistence collaborator. The engine never
// broadcasts state the store has not confirmed: every mutating call
// returns the canonical persisted record, and failures leave in-memory
// state untouched.
type MessageStore interface {
	// PersistSend stores a new message and returns the canonical record
	// with its server-assigned ID and timestamp.
	PersistSend(ctx context.Context, thread types.ThreadKey, sender types.Identity, text, attachment string) (*types.Message, error)

	// PersistEdit rewrites the text of a message. Returns
	// types.ErrTargetNotFound for unknown IDs and types.ErrOwnershipDenied,
	// without mutating, when the requester is not the original sender.
	PersistEdit(ctx context.Context, messageID string, requester types.Identity, text string) (*types.Message, error)

	// PersistDelete removes a message under the same ownership rules and
	// returns the thread it belonged to.
	PersistDelete(ctx context.Context, messageID string, requester types.Identity) (types.ThreadKey, error)

	// FetchRecent returns up to limit most recent messages of a thread in
	// ascending timestamp order.
	FetchRecent(ctx context.Context, thread types.ThreadKey, limit int) ([]*types.Message, error)

	// ToggleReaction flips (messageID, emoji, accountID) and returns the
	// confirmed post-mutation reaction map together with the message's
	// thread.
	ToggleReaction(ctx context.Context, messageID, emoji, accountID string) (types.ReactionMap, types.ThreadKey, error)

	// DirectThreads lists the direct threads that already hold messages
	// involving email, for bounded history replay on connect.
	DirectThreads(ctx context.Context, email string) ([]types.ThreadKey, error)
}

// GroupService resolves group membership for routing and history replay.
type GroupService interface {
	// MembersOf returns the member emails of a group.
	MembersOf(ctx context.Context, groupID string) (map[string]struct{}, error)

	// GroupsOf returns the IDs of the groups email belongs to.
	GroupsOf(ctx context.Context, email string) ([]string, error)
}

// AccountDirectory resolves and stores presentation profile data for
// accounts that are not currently connected.
type AccountDirectory interface {
	// Lookup returns the stored nickname and avatar for an email; both are
	// empty when the account is unknown.
	Lookup(ctx context.Context, email string) (nickname, avatar string, err error)

	// UpsertProfile persists refreshed profile fields.
	UpsertProfile(ctx context.Context, email, nickname, avatar string) error
}
