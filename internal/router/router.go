// Package router resolves addressed messages to their concrete audience
// and fans out persisted records. Persistence always completes before any
// broadcast: the live stream and history replay share message identity.
package router

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/DevaOnL/Chat-app-sub000/internal/presence"
	"github.com/DevaOnL/Chat-app-sub000/pkg/interfaces"
	"github.com/DevaOnL/Chat-app-sub000/pkg/types"
)

// Router routes sends, edits and deletes through the message store and on
// to the connections resolved for the target thread.
type Router struct {
	registry *presence.Registry
	store    interfaces.MessageStore
	groups   interfaces.GroupService
	now      func() time.Time
}

// NewRouter creates a message router.
func NewRouter(registry *presence.Registry, store interfaces.MessageStore, groups interfaces.GroupService) *Router {
	return &Router{
		registry: registry,
		store:    store,
		groups:   groups,
		now:      time.Now,
	}
}

// Send validates, persists and broadcasts a new message from sender.
// Text longer than the cap is silently truncated; text that is empty with
// no attachment is rejected to the sender only.
func (r *Router) Send(ctx context.Context, sender types.Session, ev types.SendMessageEvent) (*types.Message, error) {
	thread, err := ev.Thread.Normalize(sender.Identity.Email)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(ev.Text)
	if text == "" && ev.Attachment == "" {
		return nil, types.ErrEmptyMessage
	}
	text = types.TruncateText(text, types.MaxMessageRunes)

	msg, err := r.store.PersistSend(ctx, thread, sender.Identity, text, ev.Attachment)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrCollaboratorUnavailable, err)
	}

	audience, err := r.Audience(ctx, thread, sender.Identity.Email)
	if err != nil {
		return nil, err
	}
	r.Deliver(audience, types.MessageEvent{Type: types.EventMessage, Message: msg})
	return msg, nil
}

// Edit rewrites the text of a message owned by the requester and
// broadcasts the persisted record to the thread audience.
func (r *Router) Edit(ctx context.Context, sender types.Session, ev types.EditMessageEvent) (*types.Message, error) {
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return nil, types.ErrEmptyMessage
	}
	text = types.TruncateText(text, types.MaxMessageRunes)

	msg, err := r.store.PersistEdit(ctx, ev.MessageID, sender.Identity, text)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	audience, err := r.Audience(ctx, msg.Thread, sender.Identity.Email)
	if err != nil {
		return nil, err
	}
	r.Deliver(audience, types.MessageEditedEvent{Type: types.EventMessageEdited, Message: msg})
	return msg, nil
}

// Delete removes a message owned by the requester and announces the
// deletion to the thread audience.
func (r *Router) Delete(ctx context.Context, sender types.Session, ev types.DeleteMessageEvent) (types.ThreadKey, error) {
	thread, err := r.store.PersistDelete(ctx, ev.MessageID, sender.Identity)
	if err != nil {
		return types.ThreadKey{}, mapStoreErr(err)
	}

	audience, err := r.Audience(ctx, thread, sender.Identity.Email)
	if err != nil {
		return types.ThreadKey{}, err
	}
	r.Deliver(audience, types.MessageDeletedEvent{
		Type:      types.EventMessageDeleted,
		MessageID: ev.MessageID,
		Thread:    thread,
	})
	return thread, nil
}

// Audience resolves the currently registered connections a thread event
// targets. Public threads reach every session; direct threads reach the
// sender (echo) and the counterpart if online; group threads reach the
// registered sessions the group service reports as members. Offline
// participants are skipped, never queued.
func (r *Router) Audience(ctx context.Context, thread types.ThreadKey, senderEmail string) ([]presence.Member, error) {
	switch thread.Kind {
	case types.ThreadPublic:
		return r.registry.Members(), nil

	case types.ThreadDirect:
		var members []presence.Member
		if self, ok := r.registry.Member(senderEmail); ok {
			members = append(members, self)
		}
		if other, ok := r.registry.Member(thread.OtherParticipant(senderEmail)); ok {
			members = append(members, other)
		}
		return members, nil

	case types.ThreadGroup:
		emails, err := r.groups.MembersOf(ctx, thread.GroupID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrCollaboratorUnavailable, err)
		}
		return r.registry.MembersIn(emails), nil

	default:
		return nil, fmt.Errorf("%w: unknown kind %q", types.ErrInvalidThread, thread.Kind)
	}
}

// Deliver writes an event to every member and records their activity.
// Delivery continues past individual write failures.
func (r *Router) Deliver(audience []presence.Member, event interface{}) {
	now := r.now()
	for _, m := range audience {
		if err := m.Conn.WriteJSON(event); err != nil {
			log.Printf("delivery failed: conn=%s email=%s err=%v", m.ConnectionID, m.Identity.Email, err)
			continue
		}
		r.registry.Touch(m.ConnectionID, now)
	}
}

func mapStoreErr(err error) error {
	if errors.Is(err, types.ErrOwnershipDenied) || errors.Is(err, types.ErrTargetNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", types.ErrCollaboratorUnavailable, err)
}
