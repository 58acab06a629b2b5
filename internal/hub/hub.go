// Package hub is the event dispatcher: it turns bound connections into
// registered sessions, demultiplexes inbound events into the router,
// typing coordinator and reaction ledger, and owns the idle sweeper.
// Registry access is mutex-guarded with bounded critical sections; no
// store call ever happens under a lock.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/DevaOnL/Chat-app-sub000/internal/metrics"
	"github.com/DevaOnL/Chat-app-sub000/internal/presence"
	"github.com/DevaOnL/Chat-app-sub000/internal/ratelimit"
	"github.com/DevaOnL/Chat-app-sub000/internal/reaction"
	"github.com/DevaOnL/Chat-app-sub000/internal/router"
	"github.com/DevaOnL/Chat-app-sub000/internal/typing"
	"github.com/DevaOnL/Chat-app-sub000/pkg/interfaces"
	"github.com/DevaOnL/Chat-app-sub000/pkg/types"
)

// Options tune the dispatcher's timers and limits. Zero values fall back
// to the defaults the engine is specified with.
type Options struct {
	RateLimit    int
	RateWindow   time.Duration
	TypingQuiet  time.Duration
	SweepPeriod  time.Duration
	IdleAfter    time.Duration
	HistoryLimit int
}

func (o *Options) fillDefaults() {
	if o.RateLimit <= 0 {
		o.RateLimit = ratelimit.DefaultLimit
	}
	if o.RateWindow <= 0 {
		o.RateWindow = ratelimit.DefaultWindow
	}
	if o.TypingQuiet <= 0 {
		o.TypingQuiet = typing.DefaultQuiet
	}
	if o.SweepPeriod <= 0 {
		o.SweepPeriod = time.Minute
	}
	if o.IdleAfter <= 0 {
		o.IdleAfter = 5 * time.Minute
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = 50
	}
}

// Hub coordinates session lifecycle and event dispatch.
type Hub struct {
	registry  *presence.Registry
	limiter   *ratelimit.Limiter
	router    *router.Router
	typing    *typing.Coordinator
	reactions *reaction.Ledger
	store     interfaces.MessageStore
	groups    interfaces.GroupService
	directory interfaces.AccountDirectory

	opts Options
	now  func() time.Time

	mu       sync.RWMutex
	running  bool
	shutdown chan struct{}
}

// NewHub wires the dispatcher. The typing coordinator and rate limiter
// are owned by the hub; registry, router, ledger and collaborators are
// injected.
func NewHub(registry *presence.Registry, rt *router.Router, ledger *reaction.Ledger,
	store interfaces.MessageStore, groups interfaces.GroupService, directory interfaces.AccountDirectory,
	opts Options) *Hub {

	opts.fillDefaults()
	h := &Hub{
		registry:  registry,
		limiter:   ratelimit.NewLimiter(opts.RateLimit, opts.RateWindow),
		router:    rt,
		reactions: ledger,
		store:     store,
		groups:    groups,
		directory: directory,
		opts:      opts,
		now:       time.Now,
	}
	h.typing = typing.NewCoordinator(opts.TypingQuiet, h.onTypingExpire)
	return h
}

// Start begins background processing (the idle sweep loop). A stopped
// hub can be started again; each cycle gets a fresh shutdown channel.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return ErrHubAlreadyRunning
	}
	h.running = true
	h.shutdown = make(chan struct{})
	shutdown := h.shutdown
	h.mu.Unlock()

	log.Println("Starting event dispatcher...")
	go h.run(ctx, shutdown)
	return nil
}

// Stop shuts the dispatcher down.
func (h *Hub) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running {
		return ErrHubNotRunning
	}
	h.running = false
	close(h.shutdown)
	return nil
}

func (h *Hub) run(ctx context.Context, shutdown <-chan struct{}) {
	ticker := time.NewTicker(h.opts.SweepPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.sweepIdle(ctx)
		case <-shutdown:
			log.Println("Event dispatcher stopped")
			return
		case <-ctx.Done():
			log.Println("Event dispatcher context cancelled")
			return
		}
	}
}

// Attach registers a bound connection: any prior session for the same
// email is notified and closed (last-writer-wins), presence is broadcast,
// and recent history is replayed to the newcomer.
func (h *Hub) Attach(ctx context.Context, conn interfaces.Connection, id types.Identity) error {
	h.mu.RLock()
	if !h.running {
		h.mu.RUnlock()
		return ErrHubNotRunning
	}
	h.mu.RUnlock()

	session := types.NewSession(conn.ID(), id, h.now())
	if replaced := h.registry.Register(session, conn); replaced != nil {
		metrics.SessionsReplacedTotal.Inc()
		log.Printf("session replaced: email=%s old_conn=%s new_conn=%s", id.Email, replaced.ID(), conn.ID())
		replaced.Shutdown(types.PresenceReplacedEvent{
			Type:   types.EventPresenceReplaced,
			Reason: "signed in from another connection",
		})
	}

	metrics.ActiveConnections.Set(float64(h.registry.Count()))
	log.Printf("session registered: email=%s conn=%s", id.Email, conn.ID())

	h.broadcastPresence()
	h.replayHistory(ctx, conn, id)
	return nil
}

// Detach tears a connection down: typing state is cleared and announced,
// the rate window is collected, presence is re-broadcast. Safe to call
// twice; detaching an absent connection only collects the rate window.
func (h *Hub) Detach(ctx context.Context, connectionID string) {
	session, ok := h.registry.Unregister(connectionID)
	h.limiter.Remove(connectionID)
	if !ok {
		return
	}

	for _, thread := range h.typing.StopAll(session.Identity.Email) {
		h.broadcastTyping(ctx, thread, session.Identity, false)
	}

	metrics.ActiveConnections.Set(float64(h.registry.Count()))
	log.Printf("session unregistered: email=%s conn=%s", session.Identity.Email, connectionID)
	h.broadcastPresence()
}

// HandleEvent dispatches one inbound frame from a connection. Payloads
// are validated at the boundary; failures are reported to the sender only.
func (h *Hub) HandleEvent(ctx context.Context, connectionID string, frame []byte) {
	session, ok := h.registry.Session(connectionID)
	if !ok {
		return
	}
	conn, ok := h.registry.Connection(connectionID)
	if !ok {
		return
	}
	h.registry.Touch(connectionID, h.now())

	var env types.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		h.sendError(conn, types.ErrInvalidEvent)
		return
	}

	switch env.Type {
	case types.EventSendMessage:
		var ev types.SendMessageEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			h.sendError(conn, types.ErrInvalidEvent)
			return
		}
		h.handleSend(ctx, session, conn, ev)

	case types.EventEditMessage:
		var ev types.EditMessageEvent
		if err := json.Unmarshal(frame, &ev); err != nil || ev.MessageID == "" {
			h.sendError(conn, types.ErrInvalidEvent)
			return
		}
		if !h.allow(conn, connectionID) {
			return
		}
		if _, err := h.router.Edit(ctx, session, ev); err != nil {
			h.sendError(conn, err)
		}

	case types.EventDeleteMessage:
		var ev types.DeleteMessageEvent
		if err := json.Unmarshal(frame, &ev); err != nil || ev.MessageID == "" {
			h.sendError(conn, types.ErrInvalidEvent)
			return
		}
		if !h.allow(conn, connectionID) {
			return
		}
		if _, err := h.router.Delete(ctx, session, ev); err != nil {
			h.sendError(conn, err)
			return
		}
		h.reactions.Forget(ev.MessageID)

	case types.EventSetTyping:
		var ev types.SetTypingEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			h.sendError(conn, types.ErrInvalidEvent)
			return
		}
		h.handleTyping(ctx, session, conn, ev)

	case types.EventToggleReaction:
		var ev types.ToggleReactionEvent
		if err := json.Unmarshal(frame, &ev); err != nil || ev.MessageID == "" || ev.Emoji == "" {
			h.sendError(conn, types.ErrInvalidEvent)
			return
		}
		h.handleReaction(ctx, session, conn, ev)

	case types.EventUpdateIdentity:
		var ev types.UpdateIdentityEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			h.sendError(conn, types.ErrInvalidEvent)
			return
		}
		h.handleIdentityUpdate(ctx, session, conn, ev)

	default:
		h.sendError(conn, types.ErrInvalidEvent)
	}
}

func (h *Hub) handleSend(ctx context.Context, session types.Session, conn interfaces.Connection, ev types.SendMessageEvent) {
	if !h.allow(conn, session.ConnectionID) {
		return
	}
	if _, err := h.router.Send(ctx, session, ev); err != nil {
		h.sendError(conn, err)
		return
	}
	metrics.MessagesTotal.Inc()
}

func (h *Hub) handleTyping(ctx context.Context, session types.Session, conn interfaces.Connection, ev types.SetTypingEvent) {
	thread, err := ev.Thread.Normalize(session.Identity.Email)
	if err != nil {
		h.sendError(conn, err)
		return
	}

	if ev.Typing {
		// Only the Idle -> Typing transition broadcasts; a refresh just
		// re-arms the quiet timer.
		if h.typing.Start(thread, session.Identity.Email) {
			h.registry.SetTyping(session.ConnectionID, &thread)
			h.broadcastTyping(ctx, thread, session.Identity, true)
		}
		return
	}

	if h.typing.Stop(thread, session.Identity.Email) {
		h.registry.ClearTyping(session.ConnectionID, thread)
		h.broadcastTyping(ctx, thread, session.Identity, false)
	}
}

func (h *Hub) handleReaction(ctx context.Context, session types.Session, conn interfaces.Connection, ev types.ToggleReactionEvent) {
	reactions, thread, err := h.reactions.Toggle(ctx, ev.MessageID, ev.Emoji, session.Identity.AccountID)
	if err != nil {
		h.sendError(conn, err)
		return
	}

	audience, err := h.router.Audience(ctx, thread, session.Identity.Email)
	if err != nil {
		h.sendError(conn, err)
		return
	}
	h.broadcast(audience, types.ReactionStateEvent{
		Type:      types.EventReactionState,
		MessageID: ev.MessageID,
		Thread:    thread,
		Reactions: reactions,
	})
}

func (h *Hub) handleIdentityUpdate(ctx context.Context, session types.Session, conn interfaces.Connection, ev types.UpdateIdentityEvent) {
	if ev.Nickname == nil && ev.Avatar == nil {
		h.sendError(conn, types.ErrInvalidEvent)
		return
	}
	if ev.Nickname != nil && !types.IsValidNickname(*ev.Nickname) {
		h.sendError(conn, types.ErrInvalidEvent)
		return
	}
	if ev.Avatar != nil && !types.IsValidAvatar(*ev.Avatar) {
		h.sendError(conn, types.ErrInvalidEvent)
		return
	}

	// Persist first: in-memory state only changes once the directory has
	// confirmed, so a failed update is invisible to everyone.
	next := session.Identity
	if ev.Nickname != nil {
		next.Nickname = *ev.Nickname
	}
	if ev.Avatar != nil {
		next.Avatar = *ev.Avatar
	}
	if err := h.directory.UpsertProfile(ctx, next.Email, next.Nickname, next.Avatar); err != nil {
		h.sendError(conn, types.ErrCollaboratorUnavailable)
		return
	}

	updated, ok := h.registry.UpdateIdentity(session.Identity.Email, ev.Nickname, ev.Avatar)
	if !ok {
		return
	}

	// Notify every other session; the originator already knows.
	event := types.IdentityUpdatedEvent{Type: types.EventIdentityUpdated, Identity: updated}
	for _, m := range h.registry.Members() {
		if m.ConnectionID == session.ConnectionID {
			continue
		}
		if err := m.Conn.WriteJSON(event); err != nil {
			log.Printf("identity update delivery failed: conn=%s err=%v", m.ConnectionID, err)
		}
	}
}

// allow applies the per-connection rate limit and notifies the sender on
// rejection. Rejections are never broadcast.
func (h *Hub) allow(conn interfaces.Connection, connectionID string) bool {
	if h.limiter.Allow(connectionID) {
		return true
	}
	metrics.RateLimitedTotal.Inc()
	_ = conn.WriteJSON(types.RateLimitedEvent{
		Type:   types.EventRateLimited,
		Reason: types.ErrRateExceeded.Error(),
	})
	return false
}

func (h *Hub) broadcastPresence() {
	event := types.PresenceListEvent{Type: types.EventPresenceList, Members: h.registry.Snapshot()}
	for _, m := range h.registry.Members() {
		if err := m.Conn.WriteJSON(event); err != nil {
			log.Printf("presence delivery failed: conn=%s err=%v", m.ConnectionID, err)
		}
	}
}

func (h *Hub) broadcastTyping(ctx context.Context, thread types.ThreadKey, id types.Identity, active bool) {
	audience, err := h.router.Audience(ctx, thread, id.Email)
	if err != nil {
		log.Printf("typing audience resolution failed: thread=%s err=%v", thread, err)
		return
	}
	metrics.TypingEventsTotal.Inc()
	h.broadcast(audience, types.TypingStateEvent{
		Type:     types.EventTypingState,
		Thread:   thread,
		Email:    id.Email,
		Nickname: id.Nickname,
		Typing:   active,
	})
}

func (h *Hub) broadcast(audience []presence.Member, event interface{}) {
	for _, m := range audience {
		if err := m.Conn.WriteJSON(event); err != nil {
			log.Printf("broadcast delivery failed: conn=%s err=%v", m.ConnectionID, err)
		}
	}
}

// onTypingExpire runs on a timer goroutine when a quiet period elapses
// without a refresh or explicit stop.
func (h *Hub) onTypingExpire(thread types.ThreadKey, email string) {
	id := types.Identity{Email: email}
	if m, ok := h.registry.Member(email); ok {
		h.registry.ClearTyping(m.ConnectionID, thread)
		id = m.Identity
	}
	h.broadcastTyping(context.Background(), thread, id, false)
}

func (h *Hub) sendError(conn interfaces.Connection, err error) {
	code := "internal"
	switch {
	case errors.Is(err, types.ErrOwnershipDenied):
		code = "ownership_denied"
	case errors.Is(err, types.ErrTargetNotFound):
		code = "target_not_found"
	case errors.Is(err, types.ErrCollaboratorUnavailable):
		code = "collaborator_unavailable"
	case errors.Is(err, types.ErrEmptyMessage):
		code = "empty_message"
	case errors.Is(err, types.ErrInvalidThread), errors.Is(err, types.ErrInvalidEvent):
		code = "invalid_payload"
	}
	if werr := conn.WriteJSON(types.OperationErrorEvent{
		Type:   types.EventOperationError,
		Code:   code,
		Reason: err.Error(),
	}); werr != nil {
		log.Printf("error delivery failed: conn=%s err=%v", conn.ID(), werr)
	}
}
