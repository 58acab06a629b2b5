package hub

import (
	"context"
	"log"

	"github.com/DevaOnL/Chat-app-sub000/pkg/interfaces"
	"github.com/DevaOnL/Chat-app-sub000/pkg/types"
)

// replayHistory pushes a bounded recent history for every thread the
// identity can see: the public room, its groups, and the direct threads
// that already hold messages. Replay is best-effort; a failing store is
// reported to the newcomer only.
func (h *Hub) replayHistory(ctx context.Context, conn interfaces.Connection, id types.Identity) {
	threads := []types.ThreadKey{types.PublicThread()}

	groupIDs, err := h.groups.GroupsOf(ctx, id.Email)
	if err != nil {
		log.Printf("history group lookup failed: email=%s err=%v", id.Email, err)
		h.sendError(conn, types.ErrCollaboratorUnavailable)
		return
	}
	for _, gid := range groupIDs {
		threads = append(threads, types.GroupThread(gid))
	}

	direct, err := h.store.DirectThreads(ctx, id.Email)
	if err != nil {
		log.Printf("history direct-thread lookup failed: email=%s err=%v", id.Email, err)
		h.sendError(conn, types.ErrCollaboratorUnavailable)
		return
	}
	threads = append(threads, direct...)

	for _, thread := range threads {
		messages, err := h.store.FetchRecent(ctx, thread, h.opts.HistoryLimit)
		if err != nil {
			log.Printf("history fetch failed: thread=%s err=%v", thread, err)
			h.sendError(conn, types.ErrCollaboratorUnavailable)
			return
		}
		if err := conn.WriteJSON(types.MessageHistoryEvent{
			Type:     types.EventMessageHistory,
			Thread:   thread,
			Messages: messages,
		}); err != nil {
			return
		}
	}
}
