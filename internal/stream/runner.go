package stream

import (
	"context"
	"math/big"

	"github.com/rawblock/substrate-graph-sleuth/internal/assembler"
	"github.com/rawblock/substrate-graph-sleuth/internal/validate"
)

// RunGraphStream drives one `stream:graph` subscription to completion:
// it issues a fresh-expansion cursor for sub.Address, then repeatedly
// calls Expand, emitting stream:progress and stream:data for each
// batch, until the cursor goes null, the next batch's hop depth would
// exceed sub.Depth, or sub.MaxPages batches have run — each page
// advances the cursor's CurrentDepth by one hop, so bounding on it
// keeps streamed nodes within the same hopLevel ≤ depth invariant the
// REST /expand endpoint enforces.
// Cancellation (session.Done()) is checked between batches, so no new
// upstream work is enqueued once the caller disconnects, though the
// in-flight batch is allowed to finish. Every emit races session.Done()
// too, so a disconnect that leaves Serve's consumer gone (and the
// buffered Events channel full) drops this goroutine instead of
// blocking on it forever.
func RunGraphStream(ctx context.Context, session *Session, asm *assembler.Assembler, callerID string, sub GraphSubscription) {
	if !emit(session, Event{Type: EventStarted, SessionID: session.ID}) {
		return
	}

	maxPages := sub.MaxPages
	if maxPages <= 0 {
		maxPages = 20
	}
	depth := validate.Depth(sub.Depth)
	minVolume := validate.ParseVolume(sub.MinVolume, nil).Int

	cursor := sub.Address
	cumulativeNodes, cumulativeEdges := 0, 0

	for page := 0; page < maxPages; page++ {
		select {
		case <-session.Done():
			return
		default:
		}

		var batch assembler.ExpandResult
		var err error
		if page == 0 {
			batch, err = freshBatch(ctx, asm, callerID, sub.Address, minVolume)
		} else {
			batch, err = asm.Expand(ctx, callerID, cursor, 50, minVolume)
		}
		if err != nil {
			emit(session, Event{Type: EventError, SessionID: session.ID, Payload: map[string]string{"error": err.Error()}})
			return
		}

		cumulativeNodes += len(batch.NewNodes)
		cumulativeEdges += len(batch.NewEdges)

		if !emit(session, Event{Type: EventProgress, SessionID: session.ID, Payload: map[string]interface{}{
			"batch": page, "cumulativeNodes": cumulativeNodes, "cumulativeEdges": cumulativeEdges,
		}}) {
			return
		}
		if !emit(session, Event{Type: EventData, SessionID: session.ID, Payload: map[string]interface{}{
			"nodes": batch.NewNodes, "edges": batch.NewEdges, "nextCursor": batch.NextCursor,
		}}) {
			return
		}

		if batch.NextCursor == "" {
			break
		}
		next, err := assembler.DecodeCursor(batch.NextCursor)
		if err != nil || next.CurrentDepth > depth {
			break
		}
		cursor = batch.NextCursor
	}

	emit(session, Event{Type: EventCompleted, SessionID: session.ID, Payload: map[string]interface{}{
		"totalNodes": cumulativeNodes, "totalEdges": cumulativeEdges,
	}})
}

// emit sends evt to session.Events, preferring session.Done() if the
// session is cancelled and nothing is left to drain the channel.
// Reports whether the event was actually delivered.
func emit(session *Session, evt Event) bool {
	select {
	case session.Events <- evt:
		return true
	case <-session.Done():
		return false
	}
}

// freshBatch issues the first expansion page for a brand-new subscribe
// by reusing Expand with a synthetic depth-1 cursor, matching the bare
// address shorthand DecodeCursor already accepts.
func freshBatch(ctx context.Context, asm *assembler.Assembler, callerID, address string, minVolume *big.Int) (assembler.ExpandResult, error) {
	return asm.Expand(ctx, callerID, address, 50, minVolume)
}
