package terminal

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/antibyte/basicterm/pkg/basic"
	"github.com/antibyte/basicterm/pkg/configuration"
	"github.com/antibyte/basicterm/pkg/logger"
	"github.com/antibyte/basicterm/pkg/shared"
	"github.com/antibyte/basicterm/pkg/storage"
)

// TerminalHandler owns all BASIC sessions and their websocket connections.
// Every session has its own interpreter; nothing is shared between them.
type TerminalHandler struct {
	manager  *ClientManager
	store    *storage.Store
	sessions map[string]*Session
	mu       sync.RWMutex
}

// Session is one user's interpreter plus its input queue. The runner
// goroutine is the only place interpreter methods other than State and
// Interrupt are called, so a long RUN never blocks the read pump.
type Session struct {
	ID       string
	Username string
	Interp   *basic.Interpreter

	handler    *TerminalHandler
	lines      chan string
	done       chan struct{}
	lastActive atomic.Int64 // unix nanos, touched from the read pump and the reaper
}

func (s *Session) touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

// NewTerminalHandler creates the handler and starts the session reaper.
func NewTerminalHandler(store *storage.Store) *TerminalHandler {
	h := &TerminalHandler{
		manager:  NewClientManager(),
		store:    store,
		sessions: make(map[string]*Session),
	}
	go h.reapSessions()
	return h
}

// Session returns the session for the given ID, creating it on first use.
// The username scopes saved programs; guests use their session ID so their
// programs disappear with the session.
func (h *TerminalHandler) Session(sessionID, username string) (*Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s, exists := h.sessions[sessionID]; exists {
		s.touch()
		return s, nil
	}

	maxSessions := configuration.GetInt("System", "max_concurrent_sessions", 100)
	if len(h.sessions) >= maxSessions {
		return nil, errTooManySessions
	}

	namespace := username
	if namespace == "" {
		namespace = sessionID
	}
	var store basic.SourceStore
	if h.store != nil {
		store = h.store.ProgramsFor(namespace)
	}

	s := &Session{
		ID:       sessionID,
		Username: username,
		handler:  h,
		lines:    make(chan string, configuration.GetInt("Network", "max_channel_buffer", 1000)),
		done:     make(chan struct{}),
	}
	s.touch()
	s.Interp = basic.New(&wsIO{handler: h, sessionID: sessionID}, store)
	h.sessions[sessionID] = s
	go s.run()

	logger.Info(logger.AreaSession, "session %s created (user %q, %d active)", sessionID, username, len(h.sessions))
	return s, nil
}

// Submit queues one input line for the session.
func (s *Session) Submit(line string) bool {
	s.touch()
	select {
	case s.lines <- line:
		return true
	default:
		return false
	}
}

// run processes queued lines until the session ends. Each line is either
// pending INPUT data or a new command, decided by the interpreter state.
func (s *Session) run() {
	for {
		select {
		case <-s.done:
			return
		case line, ok := <-s.lines:
			if !ok {
				return
			}
			var err error
			if s.Interp.State() == basic.StateAwaitingInput {
				err = s.Interp.ProvideInput(line)
			} else {
				err = s.Interp.Execute(line)
			}
			if err != nil {
				s.handler.send(s.ID, shared.Message{
					Type:    shared.MessageTypeError,
					Content: err.Error(),
				})
			}
			if s.Interp.State() != basic.StateAwaitingInput {
				s.handler.sendReadyPrompt(s.ID)
			}
		}
	}
}

// Close stops the session's runner and interrupts any running program.
func (s *Session) Close() {
	s.Interp.Interrupt()
	close(s.done)
}

// RemoveSession drops a session entirely.
func (h *TerminalHandler) RemoveSession(sessionID string) {
	h.mu.Lock()
	s, exists := h.sessions[sessionID]
	if exists {
		delete(h.sessions, sessionID)
	}
	h.mu.Unlock()
	if exists {
		s.Close()
		logger.Info(logger.AreaSession, "session %s removed", sessionID)
	}
}

// SessionCount returns the number of live sessions.
func (h *TerminalHandler) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// reapSessions drops sessions that have been inactive and disconnected for
// longer than the configured limit.
func (h *TerminalHandler) reapSessions() {
	interval := configuration.GetDuration("System", "session_cleanup_interval", 30*time.Minute)
	for range time.Tick(interval) {
		maxInactive := configuration.GetDuration("System", "max_inactive_time", 30*time.Minute)
		cutoff := time.Now().Add(-maxInactive).UnixNano()

		h.mu.Lock()
		var stale []*Session
		for id, s := range h.sessions {
			if s.lastActive.Load() < cutoff && !h.manager.HasClient(id) {
				delete(h.sessions, id)
				stale = append(stale, s)
			}
		}
		h.mu.Unlock()

		for _, s := range stale {
			s.Close()
			logger.Info(logger.AreaSession, "session %s reaped after inactivity", s.ID)
		}
	}
}

func (h *TerminalHandler) send(sessionID string, message shared.Message) {
	if err := h.manager.SendToClient(sessionID, message); err != nil {
		logger.WebSocketDebug("dropping message for session %s: %v", sessionID, err)
	}
}

// sendReadyPrompt restores the idle "> " prompt on the client.
func (h *TerminalHandler) sendReadyPrompt(sessionID string) {
	enabled := true
	h.send(sessionID, shared.Message{
		Type:         shared.MessageTypePrompt,
		PromptSymbol: "> ",
		InputEnabled: &enabled,
	})
}

// wsIO bridges interpreter output to the session's websocket frames.
type wsIO struct {
	handler   *TerminalHandler
	sessionID string
}

func (io *wsIO) Write(text string) {
	io.handler.send(io.sessionID, shared.Message{
		Type:      shared.MessageTypeText,
		Content:   text,
		NoNewline: true,
	})
}

func (io *wsIO) Clear() {
	io.handler.send(io.sessionID, shared.Message{Type: shared.MessageTypeClear})
}

func (io *wsIO) SetPrompt(text string) {
	enabled := true
	io.handler.send(io.sessionID, shared.Message{
		Type:         shared.MessageTypePrompt,
		PromptSymbol: text,
		InputEnabled: &enabled,
	})
}
