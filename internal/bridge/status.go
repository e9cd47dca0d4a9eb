package bridge

import (
	"context"

	"github.com/bridgelabs/wawoot/internal/store"
)

// processStatus applies a delivery receipt. Each transition is monotonic;
// receipts that arrive out of order collapse to the highest status seen and
// only upward moves are pushed to the platform.
func (e *Engine) processStatus(ctx context.Context, ev StatusEvent) {
	if _, ok := statusNames[ev.Status]; !ok && ev.Status != StatusPending {
		e.log.Warn("unknown receipt status", "status", ev.Status)
		return
	}

	for _, id := range ev.MessageIDs {
		entry, applied := e.mappings.advanceStatus(ctx, id, ev.Status)
		if entry == nil {
			// Receipt for a message outside the retention window.
			continue
		}
		if !applied {
			continue
		}
		// Only bridge-origin messages have a platform counterpart whose
		// status the agent is watching.
		if entry.origin != store.OriginBridge || entry.platformID == 0 {
			continue
		}
		name := statusNames[entry.status]
		if name == "" {
			continue
		}
		if err := e.agent.UpdateMessageStatus(ctx, entry.conversationID, entry.platformID, name); err != nil {
			e.log.Warn("status push failed",
				"message", entry.platformID, "status", name, "error", err)
		}
	}
}
