package api

import (
	"encoding/json"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/rawblock/substrate-graph-sleuth/internal/stream"
)

// handleStream serves GET /api/stream: it upgrades to a websocket and
// opens one isolated session. The client kicks off a graph expansion
// by sending a `stream:graph` subscribe frame; RunGraphStream then
// drives progress/data/completed events back down the same session.
// Only one subscription may run at a time per session — a second
// `stream:graph` frame while one is still in flight is dropped, since
// two producers racing on the same ordered Events channel would
// interleave unrelated batches and let either one's completion close
// the connection out from under the other.
func (h *Handler) handleStream(c *gin.Context) {
	caller := callerID(c)
	session := h.streams.NewSession(c.Request.Context())
	var running atomic.Bool

	onMessage := func(raw []byte) {
		var frame struct {
			Type string                  `json:"type"`
			Sub  stream.GraphSubscription `json:"subscription"`
		}
		if err := json.Unmarshal(raw, &frame); err != nil {
			return
		}
		if frame.Type != "stream:graph" {
			return
		}
		if !running.CompareAndSwap(false, true) {
			return
		}
		go func() {
			defer running.Store(false)
			stream.RunGraphStream(session.Context(), session, h.assembler, caller, frame.Sub)
		}()
	}

	h.streams.Serve(c, session, onMessage)
}
