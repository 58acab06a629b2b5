// Package reaction keeps a live view of per-message reaction sets. The
// view is a strict mirror of persisted state: it only ever takes values
// the store has confirmed, so no client can observe a reaction that
// silently failed to persist.
package reaction

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/DevaOnL/Chat-app-sub000/pkg/interfaces"
	"github.com/DevaOnL/Chat-app-sub000/pkg/types"
)

// Ledger reconciles reaction toggles against the message store.
type Ledger struct {
	mu    sync.RWMutex
	store interfaces.MessageStore
	view  map[string]types.ReactionMap // messageID -> confirmed reactions
}

// NewLedger creates a ledger backed by the given store.
func NewLedger(store interfaces.MessageStore) *Ledger {
	return &Ledger{
		store: store,
		view:  make(map[string]types.ReactionMap),
	}
}

// Toggle flips (messageID, emoji, accountID) through the store and, only
// on store success, adopts and returns the confirmed post-mutation map
// together with the message's thread. Two racing toggles therefore settle
// on whichever state the store confirmed last, never a local guess.
func (l *Ledger) Toggle(ctx context.Context, messageID, emoji, accountID string) (types.ReactionMap, types.ThreadKey, error) {
	reactions, thread, err := l.store.ToggleReaction(ctx, messageID, emoji, accountID)
	if err != nil {
		if errors.Is(err, types.ErrTargetNotFound) {
			return nil, types.ThreadKey{}, err
		}
		return nil, types.ThreadKey{}, fmt.Errorf("%w: %v", types.ErrCollaboratorUnavailable, err)
	}

	l.mu.Lock()
	l.view[messageID] = reactions
	l.mu.Unlock()

	return reactions, thread, nil
}

// View returns the last confirmed reaction map for a message, if any.
func (l *Ledger) View(messageID string) (types.ReactionMap, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.view[messageID]
	return m, ok
}

// Forget drops the view for a deleted message.
func (l *Ledger) Forget(messageID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.view, messageID)
}
