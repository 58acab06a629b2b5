package hub

import (
	"context"
	"log"

	"github.com/DevaOnL/Chat-app-sub000/internal/metrics"
)

// sweepIdle evicts every session whose last observed activity is older
// than the idle threshold. Eviction is not a special case: it runs the
// ordinary detach path and then closes the transport, exactly as an
// explicit disconnect unwinds.
func (h *Hub) sweepIdle(ctx context.Context) {
	for _, connectionID := range h.registry.Idle(h.now(), h.opts.IdleAfter) {
		conn, ok := h.registry.Connection(connectionID)
		h.Detach(ctx, connectionID)
		if ok {
			_ = conn.Close()
		}
		metrics.IdleEvictionsTotal.Inc()
		log.Printf("idle session evicted: conn=%s", connectionID)
	}
}
