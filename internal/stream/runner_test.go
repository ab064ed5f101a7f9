package stream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{ID: "test", Events: make(chan Event, 1), cancel: cancel, ctx: ctx}
}

func TestEmit_DeliversWhenChannelHasRoom(t *testing.T) {
	s := newTestSession(t)
	require.True(t, emit(s, Event{Type: EventStarted, SessionID: s.ID}))
	evt := <-s.Events
	require.Equal(t, EventStarted, evt.Type)
}

func TestEmit_ReturnsFalseInsteadOfBlockingAfterCancel(t *testing.T) {
	s := newTestSession(t)
	s.Events <- Event{Type: EventStarted, SessionID: s.ID} // fill the buffer
	s.Cancel()

	done := make(chan bool, 1)
	go func() { done <- emit(s, Event{Type: EventProgress, SessionID: s.ID}) }()

	select {
	case delivered := <-done:
		require.False(t, delivered, "expected emit to report non-delivery once the session is cancelled")
	case <-time.After(time.Second):
		t.Fatal("emit blocked instead of observing session cancellation")
	}
}
