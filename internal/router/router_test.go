package router

import (
	"context"
	"errors"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/DevaOnL/Chat-app-sub000/internal/presence"
	"github.com/DevaOnL/Chat-app-sub000/pkg/types"
)

type mockConn struct {
	id       string
	written  []interface{}
	writeErr error
}

func (m *mockConn) ID() string { return m.id }
func (m *mockConn) WriteJSON(v interface{}) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.written = append(m.written, v)
	return nil
}
func (m *mockConn) Shutdown(v interface{}) {}
func (m *mockConn) Close() error           { return nil }

type mockStore struct {
	persisted []*types.Message
	sendErr   error
	editErr   error
	deleteErr error
	messages  map[string]*types.Message
}

func newMockStore() *mockStore {
	return &mockStore{messages: make(map[string]*types.Message)}
}

func (m *mockStore) PersistSend(ctx context.Context, thread types.ThreadKey, sender types.Identity, text, attachment string) (*types.Message, error) {
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	msg := &types.Message{
		ID:         "msg-1",
		Thread:     thread,
		Sender:     sender,
		Text:       text,
		Attachment: attachment,
		CreatedAt:  time.Now(),
	}
	m.persisted = append(m.persisted, msg)
	m.messages[msg.ID] = msg
	return msg, nil
}

func (m *mockStore) PersistEdit(ctx context.Context, messageID string, requester types.Identity, text string) (*types.Message, error) {
	if m.editErr != nil {
		return nil, m.editErr
	}
	msg, ok := m.messages[messageID]
	if !ok {
		return nil, types.ErrTargetNotFound
	}
	if msg.Sender.Email != requester.Email {
		return nil, types.ErrOwnershipDenied
	}
	msg.Text = text
	return msg, nil
}

func (m *mockStore) PersistDelete(ctx context.Context, messageID string, requester types.Identity) (types.ThreadKey, error) {
	if m.deleteErr != nil {
		return types.ThreadKey{}, m.deleteErr
	}
	msg, ok := m.messages[messageID]
	if !ok {
		return types.ThreadKey{}, types.ErrTargetNotFound
	}
	if msg.Sender.Email != requester.Email {
		return types.ThreadKey{}, types.ErrOwnershipDenied
	}
	delete(m.messages, messageID)
	return msg.Thread, nil
}

func (m *mockStore) FetchRecent(ctx context.Context, thread types.ThreadKey, limit int) ([]*types.Message, error) {
	return nil, nil
}

func (m *mockStore) ToggleReaction(ctx context.Context, messageID, emoji, accountID string) (types.ReactionMap, types.ThreadKey, error) {
	return nil, types.ThreadKey{}, nil
}

func (m *mockStore) DirectThreads(ctx context.Context, email string) ([]types.ThreadKey, error) {
	return nil, nil
}

type mockGroups struct {
	members map[string]map[string]struct{}
}

func (m *mockGroups) MembersOf(ctx context.Context, groupID string) (map[string]struct{}, error) {
	return m.members[groupID], nil
}

func (m *mockGroups) GroupsOf(ctx context.Context, email string) ([]string, error) {
	return nil, nil
}

func register(registry *presence.Registry, email, connID string) *mockConn {
	conn := &mockConn{id: connID}
	identity := types.Identity{AccountID: "acct-" + email, Email: email, Nickname: email}
	registry.Register(types.NewSession(connID, identity, time.Now()), conn)
	return conn
}

func session(registry *presence.Registry, connID string) types.Session {
	s, _ := registry.Session(connID)
	return s
}

func TestSendPublicReachesEveryone(t *testing.T) {
	registry := presence.NewRegistry()
	store := newMockStore()
	router := NewRouter(registry, store, &mockGroups{})

	alice := register(registry, "alice@x.com", "conn-a")
	bob := register(registry, "bob@x.com", "conn-b")

	msg, err := router.Send(context.Background(), session(registry, "conn-a"), types.SendMessageEvent{
		Thread: types.ThreadRef{Kind: types.ThreadPublic},
		Text:   "hello",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.ID == "" {
		t.Error("send should return the persisted record")
	}
	if len(alice.written) != 1 || len(bob.written) != 1 {
		t.Errorf("delivery counts: alice=%d bob=%d, want 1 each", len(alice.written), len(bob.written))
	}
}

func TestSendPersistsBeforeBroadcast(t *testing.T) {
	registry := presence.NewRegistry()
	store := newMockStore()
	store.sendErr = errors.New("disk full")
	router := NewRouter(registry, store, &mockGroups{})

	alice := register(registry, "alice@x.com", "conn-a")
	bob := register(registry, "bob@x.com", "conn-b")

	_, err := router.Send(context.Background(), session(registry, "conn-a"), types.SendMessageEvent{
		Thread: types.ThreadRef{Kind: types.ThreadPublic},
		Text:   "hello",
	})
	if !errors.Is(err, types.ErrCollaboratorUnavailable) {
		t.Errorf("expected ErrCollaboratorUnavailable, got %v", err)
	}
	if len(alice.written)+len(bob.written) != 0 {
		t.Error("nothing may be broadcast when persistence fails")
	}
}

func TestSendTruncatesLongText(t *testing.T) {
	registry := presence.NewRegistry()
	store := newMockStore()
	router := NewRouter(registry, store, &mockGroups{})
	register(registry, "alice@x.com", "conn-a")

	long := make([]rune, 600)
	for i := range long {
		long[i] = 'x'
	}
	msg, err := router.Send(context.Background(), session(registry, "conn-a"), types.SendMessageEvent{
		Thread: types.ThreadRef{Kind: types.ThreadPublic},
		Text:   string(long),
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := utf8.RuneCountInString(msg.Text); got != types.MaxMessageRunes {
		t.Errorf("persisted text has %d runes, want %d", got, types.MaxMessageRunes)
	}
}

func TestSendRejectsEmptyText(t *testing.T) {
	registry := presence.NewRegistry()
	store := newMockStore()
	router := NewRouter(registry, store, &mockGroups{})
	register(registry, "alice@x.com", "conn-a")

	_, err := router.Send(context.Background(), session(registry, "conn-a"), types.SendMessageEvent{
		Thread: types.ThreadRef{Kind: types.ThreadPublic},
		Text:   "   \n\t ",
	})
	if !errors.Is(err, types.ErrEmptyMessage) {
		t.Errorf("expected ErrEmptyMessage, got %v", err)
	}
	if len(store.persisted) != 0 {
		t.Error("empty message must not be persisted")
	}
}

func TestSendEmptyTextWithAttachmentAllowed(t *testing.T) {
	registry := presence.NewRegistry()
	store := newMockStore()
	router := NewRouter(registry, store, &mockGroups{})
	register(registry, "alice@x.com", "conn-a")

	_, err := router.Send(context.Background(), session(registry, "conn-a"), types.SendMessageEvent{
		Thread:     types.ThreadRef{Kind: types.ThreadPublic},
		Attachment: "https://x.com/cat.png",
	})
	if err != nil {
		t.Errorf("attachment-only send rejected: %v", err)
	}
}

func TestSendDirectReachesBothSides(t *testing.T) {
	registry := presence.NewRegistry()
	store := newMockStore()
	router := NewRouter(registry, store, &mockGroups{})

	alice := register(registry, "alice@x.com", "conn-a")
	bob := register(registry, "bob@x.com", "conn-b")
	carol := register(registry, "carol@x.com", "conn-c")

	_, err := router.Send(context.Background(), session(registry, "conn-a"), types.SendMessageEvent{
		Thread: types.ThreadRef{Kind: types.ThreadDirect, Other: "bob@x.com"},
		Text:   "psst",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(alice.written) != 1 {
		t.Error("sender should receive the echo")
	}
	if len(bob.written) != 1 {
		t.Error("counterpart should receive the message")
	}
	if len(carol.written) != 0 {
		t.Error("third parties must not see direct messages")
	}
}

func TestSendDirectMixedCaseCounterpartStillDelivered(t *testing.T) {
	registry := presence.NewRegistry()
	store := newMockStore()
	router := NewRouter(registry, store, &mockGroups{})

	register(registry, "alice@x.com", "conn-a")
	bob := register(registry, "bob@x.com", "conn-b")

	msg, err := router.Send(context.Background(), session(registry, "conn-a"), types.SendMessageEvent{
		Thread: types.ThreadRef{Kind: types.ThreadDirect, Other: "BOB@X.com"},
		Text:   "case test",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(bob.written) != 1 {
		t.Fatal("counterpart addressed in mixed case must still receive the message")
	}
	if msg.Thread.String() != types.DirectThread("alice@x.com", "bob@x.com").String() {
		t.Errorf("persisted thread = %q", msg.Thread.String())
	}
}

func TestSendDirectOfflineCounterpartPersistsOnly(t *testing.T) {
	registry := presence.NewRegistry()
	store := newMockStore()
	router := NewRouter(registry, store, &mockGroups{})
	alice := register(registry, "alice@x.com", "conn-a")

	_, err := router.Send(context.Background(), session(registry, "conn-a"), types.SendMessageEvent{
		Thread: types.ThreadRef{Kind: types.ThreadDirect, Other: "bob@x.com"},
		Text:   "see you later",
	})
	if err != nil {
		t.Fatalf("send to offline counterpart: %v", err)
	}
	if len(store.persisted) != 1 {
		t.Error("message must be persisted for later replay")
	}
	if len(alice.written) != 1 {
		t.Error("sender still receives the echo")
	}
}

func TestSendGroupReachesOnlyMembers(t *testing.T) {
	registry := presence.NewRegistry()
	store := newMockStore()
	groups := &mockGroups{members: map[string]map[string]struct{}{
		"g-1": {"alice@x.com": {}, "bob@x.com": {}},
	}}
	router := NewRouter(registry, store, groups)

	alice := register(registry, "alice@x.com", "conn-a")
	bob := register(registry, "bob@x.com", "conn-b")
	carol := register(registry, "carol@x.com", "conn-c")

	_, err := router.Send(context.Background(), session(registry, "conn-a"), types.SendMessageEvent{
		Thread: types.ThreadRef{Kind: types.ThreadGroup, GroupID: "g-1"},
		Text:   "standup in 5",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(alice.written) != 1 || len(bob.written) != 1 {
		t.Error("group members should receive the message")
	}
	if len(carol.written) != 0 {
		t.Error("non-members must not receive group messages")
	}
}

func TestEditByNonOwnerDenied(t *testing.T) {
	registry := presence.NewRegistry()
	store := newMockStore()
	router := NewRouter(registry, store, &mockGroups{})
	register(registry, "alice@x.com", "conn-a")
	bob := register(registry, "bob@x.com", "conn-b")

	if _, err := router.Send(context.Background(), session(registry, "conn-a"), types.SendMessageEvent{
		Thread: types.ThreadRef{Kind: types.ThreadPublic},
		Text:   "original",
	}); err != nil {
		t.Fatalf("send: %v", err)
	}
	bob.written = nil

	_, err := router.Edit(context.Background(), session(registry, "conn-b"), types.EditMessageEvent{
		MessageID: "msg-1",
		Text:      "hijacked",
	})
	if !errors.Is(err, types.ErrOwnershipDenied) {
		t.Errorf("expected ErrOwnershipDenied, got %v", err)
	}
	if store.messages["msg-1"].Text != "original" {
		t.Error("denied edit must not mutate the message")
	}
	if len(bob.written) != 0 {
		t.Error("denied edit must not broadcast")
	}
}

func TestEditUnknownMessage(t *testing.T) {
	registry := presence.NewRegistry()
	router := NewRouter(registry, newMockStore(), &mockGroups{})
	register(registry, "alice@x.com", "conn-a")

	_, err := router.Edit(context.Background(), session(registry, "conn-a"), types.EditMessageEvent{
		MessageID: "nope",
		Text:      "anything",
	})
	if !errors.Is(err, types.ErrTargetNotFound) {
		t.Errorf("expected ErrTargetNotFound, got %v", err)
	}
}

func TestDeleteBroadcastsToThreadAudience(t *testing.T) {
	registry := presence.NewRegistry()
	store := newMockStore()
	router := NewRouter(registry, store, &mockGroups{})
	alice := register(registry, "alice@x.com", "conn-a")
	bob := register(registry, "bob@x.com", "conn-b")

	if _, err := router.Send(context.Background(), session(registry, "conn-a"), types.SendMessageEvent{
		Thread: types.ThreadRef{Kind: types.ThreadDirect, Other: "bob@x.com"},
		Text:   "oops",
	}); err != nil {
		t.Fatalf("send: %v", err)
	}
	alice.written, bob.written = nil, nil

	thread, err := router.Delete(context.Background(), session(registry, "conn-a"), types.DeleteMessageEvent{MessageID: "msg-1"})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if thread.Kind != types.ThreadDirect {
		t.Errorf("returned thread kind = %q", thread.Kind)
	}
	if len(alice.written) != 1 || len(bob.written) != 1 {
		t.Errorf("deletion broadcast counts: alice=%d bob=%d", len(alice.written), len(bob.written))
	}
	deleted, ok := alice.written[0].(types.MessageDeletedEvent)
	if !ok || deleted.MessageID != "msg-1" {
		t.Errorf("unexpected deletion event %+v", alice.written[0])
	}
}

func TestDeliverContinuesPastFailures(t *testing.T) {
	registry := presence.NewRegistry()
	store := newMockStore()
	router := NewRouter(registry, store, &mockGroups{})
	alice := register(registry, "alice@x.com", "conn-a")
	bob := register(registry, "bob@x.com", "conn-b")
	alice.writeErr = errors.New("broken pipe")

	if _, err := router.Send(context.Background(), session(registry, "conn-b"), types.SendMessageEvent{
		Thread: types.ThreadRef{Kind: types.ThreadPublic},
		Text:   "hello",
	}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(bob.written) != 1 {
		t.Error("healthy connection should still receive after a peer's write failure")
	}
}
