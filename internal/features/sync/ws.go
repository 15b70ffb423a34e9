package sync

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

// ProgressHub fans sync-run snapshots out to websocket subscribers.
// Publish never blocks the sync loop: a subscriber that falls behind
// drops intermediate snapshots and only sees the latest one it can
// keep up with.
type ProgressHub struct {
	mu   sync.RWMutex
	subs map[string]map[chan SyncContext]struct{}
}

func NewProgressHub() *ProgressHub {
	return &ProgressHub{
		subs: make(map[string]map[chan SyncContext]struct{}),
	}
}

// Subscribe registers a listener for one mapping's runs. The returned
// cancel func must be called when the listener goes away.
func (h *ProgressHub) Subscribe(mappingID string) (<-chan SyncContext, func()) {
	ch := make(chan SyncContext, 16)

	h.mu.Lock()
	if h.subs[mappingID] == nil {
		h.subs[mappingID] = make(map[chan SyncContext]struct{})
	}
	h.subs[mappingID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs[mappingID], ch)
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers a snapshot to every subscriber of the mapping.
func (h *ProgressHub) Publish(mappingID string, snapshot SyncContext) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[mappingID] {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

// ProgressSocket streams run snapshots for one mapping over a websocket
// until the client disconnects.
func ProgressSocket(hub *ProgressHub, logger *zap.Logger) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		mappingID := c.Params("id")

		snapshots, cancel := hub.Subscribe(mappingID)
		defer cancel()

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := c.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case snap := <-snapshots:
				if err := c.WriteJSON(snap); err != nil {
					logger.Debug("progress socket write failed",
						zap.String("mapping_id", mappingID),
						zap.Error(err),
					)
					return
				}
			case <-done:
				return
			}
		}
	}
}
