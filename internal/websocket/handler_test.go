package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/DevaOnL/Chat-app-sub000/pkg/interfaces"
	"github.com/DevaOnL/Chat-app-sub000/pkg/types"
)

type mockDispatcher struct {
	mu       sync.Mutex
	attached []types.Identity
	conns    []interfaces.Connection
	detached []string
	frames   [][]byte
	frameCh  chan []byte
	attachCh chan interfaces.Connection
	detachCh chan string
}

func newMockDispatcher() *mockDispatcher {
	return &mockDispatcher{
		frameCh:  make(chan []byte, 16),
		attachCh: make(chan interfaces.Connection, 4),
		detachCh: make(chan string, 4),
	}
}

func (m *mockDispatcher) Attach(ctx context.Context, conn interfaces.Connection, id types.Identity) error {
	m.mu.Lock()
	m.attached = append(m.attached, id)
	m.conns = append(m.conns, conn)
	m.mu.Unlock()
	m.attachCh <- conn
	return nil
}

func (m *mockDispatcher) Detach(ctx context.Context, connectionID string) {
	m.mu.Lock()
	m.detached = append(m.detached, connectionID)
	m.mu.Unlock()
	m.detachCh <- connectionID
}

func (m *mockDispatcher) HandleEvent(ctx context.Context, connectionID string, frame []byte) {
	m.mu.Lock()
	m.frames = append(m.frames, frame)
	m.mu.Unlock()
	m.frameCh <- frame
}

func newTestServer(t *testing.T) (*httptest.Server, *mockDispatcher) {
	t.Helper()
	dispatcher := newMockDispatcher()
	handler := NewHandler(dispatcher)
	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	t.Cleanup(server.Close)
	return server, dispatcher
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := strings.Replace(server.URL, "http://", "ws://", 1) + "?" + query
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func TestHandshakeRejectedBeforeUpgrade(t *testing.T) {
	server, dispatcher := newTestServer(t)

	resp, err := http.Get(server.URL + "?email=alice@x.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	if len(dispatcher.attached) != 0 {
		t.Error("refused handshake must not attach")
	}
}

func TestConnectForwardsFramesAndDetaches(t *testing.T) {
	server, dispatcher := newTestServer(t)
	ws := dial(t, server, "account_id=acct-1&email=alice@x.com&nickname=Alice")

	select {
	case <-dispatcher.attachCh:
	case <-time.After(time.Second):
		t.Fatal("attach never happened")
	}
	dispatcher.mu.Lock()
	id := dispatcher.attached[0]
	dispatcher.mu.Unlock()
	if id.Email != "alice@x.com" || id.AccountID != "acct-1" {
		t.Errorf("attached identity = %+v", id)
	}

	frame := []byte(`{"type":"set_typing","thread":{"kind":"public"},"typing":true}`)
	if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case got := <-dispatcher.frameCh:
		if string(got) != string(frame) {
			t.Errorf("forwarded frame = %s", got)
		}
	case <-time.After(time.Second):
		t.Fatal("frame never reached the dispatcher")
	}

	_ = ws.Close()
	select {
	case <-dispatcher.detachCh:
	case <-time.After(time.Second):
		t.Fatal("detach never happened after client close")
	}
}

func TestServerWriteReachesClient(t *testing.T) {
	server, dispatcher := newTestServer(t)
	ws := dial(t, server, "account_id=acct-1&email=alice@x.com&nickname=Alice")

	var conn interfaces.Connection
	select {
	case conn = <-dispatcher.attachCh:
	case <-time.After(time.Second):
		t.Fatal("attach never happened")
	}

	want := types.RateLimitedEvent{Type: types.EventRateLimited, Reason: "slow down"}
	if err := conn.WriteJSON(want); err != nil {
		t.Fatalf("server write: %v", err)
	}

	_ = ws.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("client read: %v", err)
	}
	var got types.RateLimitedEvent
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestShutdownFlushesNoticeThenCloses(t *testing.T) {
	server, dispatcher := newTestServer(t)
	ws := dial(t, server, "account_id=acct-1&email=alice@x.com&nickname=Alice")

	var conn interfaces.Connection
	select {
	case conn = <-dispatcher.attachCh:
	case <-time.After(time.Second):
		t.Fatal("attach never happened")
	}

	notice := types.PresenceReplacedEvent{Type: types.EventPresenceReplaced, Reason: "signed in elsewhere"}
	conn.Shutdown(notice)

	// The notice arrives before the close frame.
	_ = ws.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("client read: %v", err)
	}
	var got types.PresenceReplacedEvent
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != notice {
		t.Errorf("got %+v, want %+v", got, notice)
	}

	// The next read surfaces the close.
	if _, _, err := ws.ReadMessage(); err == nil {
		t.Error("expected a close after the final notice")
	}

	// Teardown finishes asynchronously; writes fail once it completes.
	deadline := time.After(time.Second)
	for conn.WriteJSON(notice) == nil {
		select {
		case <-deadline:
			t.Fatal("writes kept succeeding after shutdown")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
