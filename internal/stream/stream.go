// Package stream implements the Streaming Session Manager (spec.md
// §4.12): each client gets its own ordered event channel keyed by
// session id, fed by the progressive-expansion engine in assembler.
// Adapted from the teacher's websocket Hub, which broadcast one shared
// channel to every client — here each session is isolated so
// cancellation and backpressure never cross between subscribers.
package stream

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Event kinds emitted to a session in strict order.
const (
	EventStarted   = "stream:started"
	EventProgress  = "stream:progress"
	EventData      = "stream:data"
	EventCompleted = "stream:completed"
	EventError     = "stream:error"
)

// Event is one message sent down a session's channel.
type Event struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId"`
	Payload   interface{} `json:"payload,omitempty"`
}

// GraphSubscription is the client-sent `stream:graph` payload that
// opens a progressive expansion within a session.
type GraphSubscription struct {
	Address   string `json:"address"`
	Depth     int    `json:"depth"`
	MinVolume string `json:"minVolume"`
	MaxPages  int    `json:"maxPages"`
}

// Session is one client's ordered event stream. Events is unbuffered
// beyond a small slack so a slow client applies backpressure to its
// own producer without blocking other sessions.
type Session struct {
	ID     string
	Events chan Event
	cancel context.CancelFunc
	ctx    context.Context
}

// Cancel stops this session's producer; already-queued events still
// drain to the client.
func (s *Session) Cancel() { s.cancel() }

// Done reports the session's cancellation channel.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// Context returns the session's lifetime context, for producers (like
// RunGraphStream) that need to pass cancellation through to store and
// upstream calls rather than only polling Done() between batches.
func (s *Session) Context() context.Context { return s.ctx }

// Manager tracks live sessions, keyed by session id, and upgrades HTTP
// connections into the websocket loop that drains a session's Events
// channel in order.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	log      zerolog.Logger
	upgrader websocket.Upgrader

	active prometheus.Gauge
	total  prometheus.Counter
}

// WithSessionRecorder attaches gauge/counter pairs tracking currently
// active and cumulative streaming sessions. Optional: an unset
// recorder is simply never incremented.
func (m *Manager) WithSessionRecorder(active prometheus.Gauge, total prometheus.Counter) *Manager {
	m.active = active
	m.total = total
	return m
}

// NewManager builds a Manager. allowOrigin gates the websocket upgrade
// against the CORS allowlist (internal/security).
func NewManager(log zerolog.Logger, allowOrigin func(r *http.Request) bool) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     allowOrigin,
		},
	}
}

// NewSession registers a new session and returns it; callers push
// Events to it and call Close when the stream ends.
func (m *Manager) NewSession(parent context.Context) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{ID: uuid.NewString(), Events: make(chan Event, 16), cancel: cancel, ctx: ctx}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	if m.active != nil {
		m.active.Inc()
	}
	if m.total != nil {
		m.total.Inc()
	}
	return s
}

// Close removes the session from the registry and releases its
// cancellation context.
func (m *Manager) Close(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		s.cancel()
		delete(m.sessions, sessionID)
		if m.active != nil {
			m.active.Dec()
		}
	}
}

// Get looks up a live session by id.
func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	return s, ok
}

// Serve upgrades c's connection to a websocket and drains session's
// Events channel to the client in order until the session is closed or
// the connection breaks. It also reads client frames, handing each to
// onClientMessage, and cancels the session once a read fails
// (disconnect), per the teacher's keep-alive idiom.
func (m *Manager) Serve(c *gin.Context, session *Session, onClientMessage func(raw []byte)) {
	conn, err := m.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		m.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer func() {
		conn.Close()
		m.Close(session.ID)
	}()

	go func() {
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				session.Cancel()
				return
			}
			if onClientMessage != nil {
				onClientMessage(raw)
			}
		}
	}()

	for {
		select {
		case evt, ok := <-session.Events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(evt); err != nil {
				m.log.Warn().Err(err).Str("session_id", session.ID).Msg("websocket write failed")
				return
			}
			if evt.Type == EventCompleted || evt.Type == EventError {
				return
			}
		case <-session.Done():
			return
		}
	}
}
